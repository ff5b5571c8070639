package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReportData is the fully formatted input for the compliance report.
// Callers format amounts and dates; the provider only lays them out.
type ReportData struct {
	Title       string
	GeneratedAt string
	Ceilings    []ReportCeiling
	History     []ReportHistoryRow
	Violations  []ReportViolationRow
}

type ReportCeiling struct {
	Product        string
	Amount         string
	EffectiveFrom  string
	EffectiveUntil string
	CreatedAt      string
}

type ReportHistoryRow struct {
	Product   string
	OldAmount string
	NewAmount string
	Reason    string
	Admin     string
	ChangedAt string
}

type ReportViolationRow struct {
	Product    string
	Seller     string
	Listed     string
	Ceiling    string
	OveragePct string
	Status     string
	DetectedAt string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateComplianceReport(ctx context.Context, data ReportData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := data.Title
	if title == "" {
		title = "Price Compliance Report"
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		text.NewCol(12, "Generated at "+data.GeneratedAt, props.Text{Size: 9}),
	)

	m.AddRow(10,
		text.NewCol(12, "Price ceilings", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   2,
		}),
	)
	m.AddRow(8,
		text.NewCol(4, "Product", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "From", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Until", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Created", props.Text{Style: fontstyle.Bold, Size: 9}),
	)
	for _, c := range data.Ceilings {
		m.AddRow(8,
			text.NewCol(4, c.Product, props.Text{Size: 8}),
			text.NewCol(2, c.Amount, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, c.EffectiveFrom, props.Text{Size: 8}),
			text.NewCol(2, c.EffectiveUntil, props.Text{Size: 8}),
			text.NewCol(2, c.CreatedAt, props.Text{Size: 8}),
		)
	}

	if len(data.History) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Ceiling history", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   2,
			}),
		)
		m.AddRow(8,
			text.NewCol(3, "Product", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Old", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "New", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Reason", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Admin", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(1, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		)
		for _, h := range data.History {
			m.AddRow(8,
				text.NewCol(3, h.Product, props.Text{Size: 8}),
				text.NewCol(2, h.OldAmount, props.Text{Size: 8, Align: align.Right}),
				text.NewCol(2, h.NewAmount, props.Text{Size: 8, Align: align.Right}),
				text.NewCol(2, h.Reason, props.Text{Size: 8}),
				text.NewCol(2, h.Admin, props.Text{Size: 8}),
				text.NewCol(1, h.ChangedAt, props.Text{Size: 8}),
			)
		}
	}

	if len(data.Violations) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Non-compliance records", props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   2,
			}),
		)
		m.AddRow(8,
			text.NewCol(2, "Product", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Seller", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Listed", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Ceiling", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(1, "Over", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(1, "Status", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Detected", props.Text{Style: fontstyle.Bold, Size: 9}),
		)
		for _, v := range data.Violations {
			m.AddRow(8,
				text.NewCol(2, v.Product, props.Text{Size: 8}),
				text.NewCol(2, v.Seller, props.Text{Size: 8}),
				text.NewCol(2, v.Listed, props.Text{Size: 8, Align: align.Right}),
				text.NewCol(2, v.Ceiling, props.Text{Size: 8, Align: align.Right}),
				text.NewCol(1, v.OveragePct, props.Text{Size: 8, Align: align.Right}),
				text.NewCol(1, v.Status, props.Text{Size: 8}),
				text.NewCol(2, v.DetectedAt, props.Text{Size: 8}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
