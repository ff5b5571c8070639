package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	compliancedomain "github.com/openagora/agora/internal/compliance/domain"
	"github.com/openagora/agora/internal/pricing/domain"
	"github.com/openagora/agora/internal/providers/pdf"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type exportBundle struct {
	GeneratedAt time.Time
	Ceilings    []domain.CeilingRecord
	History     []domain.HistoryRecord
	Violations  []compliancedomain.ViolationRecord
}

// Export gathers the requested collections in one transaction so the file
// reflects a single point in time, then hands back a renderer for the
// chosen format.
func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportFile, error) {
	format := domain.ExportFormat(strings.ToLower(strings.TrimSpace(req.Format)))
	switch format {
	case "":
		format = domain.FormatCSV
	case domain.FormatCSV, domain.FormatJSON, domain.FormatPDF:
	default:
		return nil, domain.ErrInvalidFormat
	}

	bundle := exportBundle{GeneratedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if bundle.Ceilings, err = s.repo.ExportCeilings(ctx, tx); err != nil {
			return err
		}
		if req.IncludeHistory {
			if bundle.History, err = s.repo.ExportHistory(ctx, tx); err != nil {
				return err
			}
		}
		if req.IncludeViolations {
			if bundle.Violations, err = s.violationRepo.ExportViolations(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("price_ceilings_%s.%s", ulid.Make().String(), format)

	switch format {
	case domain.FormatJSON:
		return renderJSON(name, bundle), nil
	case domain.FormatPDF:
		return s.renderPDF(ctx, name, bundle)
	default:
		return renderCSV(name, bundle), nil
	}
}

type productExport struct {
	ProductID   snowflake.ID                       `json:"product_id"`
	ProductName string                             `json:"product_name"`
	Ceilings    []domain.PriceCeiling              `json:"ceilings"`
	History     []domain.HistoryRecord             `json:"history,omitempty"`
	Violations  []compliancedomain.ViolationRecord `json:"violations,omitempty"`
}

type exportDocument struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Products    []productExport `json:"products"`
}

func buildExportDocument(bundle exportBundle) exportDocument {
	byID := make(map[snowflake.ID]*productExport)
	var order []snowflake.ID
	group := func(id snowflake.ID, name string) *productExport {
		if p, ok := byID[id]; ok {
			return p
		}
		p := &productExport{ProductID: id, ProductName: name}
		byID[id] = p
		order = append(order, id)
		return p
	}

	for _, c := range bundle.Ceilings {
		p := group(c.ProductID, c.ProductName)
		p.Ceilings = append(p.Ceilings, c.PriceCeiling)
	}
	for _, h := range bundle.History {
		p := group(h.ProductID, h.ProductName)
		p.History = append(p.History, h)
	}
	for _, v := range bundle.Violations {
		p := group(v.ProductID, v.ProductName)
		p.Violations = append(p.Violations, v)
	}

	doc := exportDocument{
		GeneratedAt: bundle.GeneratedAt,
		Products:    make([]productExport, 0, len(order)),
	}
	for _, id := range order {
		doc.Products = append(doc.Products, *byID[id])
	}
	return doc
}

func renderJSON(name string, bundle exportBundle) *domain.ExportFile {
	doc := buildExportDocument(bundle)
	return &domain.ExportFile{
		Name:        name,
		ContentType: "application/json",
		Render: func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func renderCSV(name string, bundle exportBundle) *domain.ExportFile {
	return &domain.ExportFile{
		Name:        name,
		ContentType: "text/csv",
		Render: func(w io.Writer) error {
			cw := csv.NewWriter(w)

			rows := [][]string{{"product_id", "product_name", "ceiling_id", "amount", "effective_from", "effective_until", "created_by", "created_at"}}
			for _, c := range bundle.Ceilings {
				rows = append(rows, []string{
					c.ProductID.String(),
					c.ProductName,
					c.ID.String(),
					c.Amount.StringFixed(2),
					formatTime(c.EffectiveFrom),
					formatTimePtr(c.EffectiveUntil),
					c.CreatedBy.String(),
					formatTime(c.CreatedAt),
				})
			}

			if len(bundle.History) > 0 {
				rows = append(rows, []string{})
				rows = append(rows, []string{"history_id", "product_id", "product_name", "ceiling_id", "old_amount", "new_amount", "reason", "note", "admin_id", "admin_name", "created_at"})
				for _, h := range bundle.History {
					rows = append(rows, []string{
						h.ID.String(),
						h.ProductID.String(),
						h.ProductName,
						h.CeilingID.String(),
						formatNullDecimal(h.OldAmount),
						h.NewAmount.StringFixed(2),
						string(h.Reason),
						h.Note,
						h.CreatedBy.String(),
						h.AdminName,
						formatTime(h.CreatedAt),
					})
				}
			}

			if len(bundle.Violations) > 0 {
				rows = append(rows, []string{})
				rows = append(rows, []string{"violation_id", "product_id", "product_name", "seller_id", "seller_name", "listing_id", "listed_price", "ceiling_price", "overage_pct", "status", "detected_at"})
				for _, v := range bundle.Violations {
					rows = append(rows, []string{
						v.ID.String(),
						v.ProductID.String(),
						v.ProductName,
						v.SellerID.String(),
						v.SellerName,
						v.ListingID.String(),
						v.ListedPrice.StringFixed(2),
						v.CeilingPrice.StringFixed(2),
						v.OveragePct.StringFixed(2),
						string(v.Status),
						formatTime(v.DetectedAt),
					})
				}
			}

			return cw.WriteAll(rows)
		},
	}
}

func (s *Service) renderPDF(ctx context.Context, name string, bundle exportBundle) (*domain.ExportFile, error) {
	data := pdf.ReportData{
		GeneratedAt: formatTime(bundle.GeneratedAt),
	}
	for _, c := range bundle.Ceilings {
		until := "open"
		if c.EffectiveUntil != nil {
			until = c.EffectiveUntil.UTC().Format("2006-01-02")
		}
		data.Ceilings = append(data.Ceilings, pdf.ReportCeiling{
			Product:        c.ProductName,
			Amount:         c.Amount.StringFixed(2),
			EffectiveFrom:  c.EffectiveFrom.UTC().Format("2006-01-02"),
			EffectiveUntil: until,
			CreatedAt:      c.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	for _, h := range bundle.History {
		data.History = append(data.History, pdf.ReportHistoryRow{
			Product:   h.ProductName,
			OldAmount: formatNullDecimal(h.OldAmount),
			NewAmount: h.NewAmount.StringFixed(2),
			Reason:    string(h.Reason),
			Admin:     h.AdminName,
			ChangedAt: h.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	for _, v := range bundle.Violations {
		data.Violations = append(data.Violations, pdf.ReportViolationRow{
			Product:    v.ProductName,
			Seller:     v.SellerName,
			Listed:     v.ListedPrice.StringFixed(2),
			Ceiling:    v.CeilingPrice.StringFixed(2),
			OveragePct: v.OveragePct.StringFixed(2) + "%",
			Status:     string(v.Status),
			DetectedAt: v.DetectedAt.UTC().Format("2006-01-02"),
		})
	}

	reader, err := s.pdf.GenerateComplianceReport(ctx, data)
	if err != nil {
		return nil, err
	}

	return &domain.ExportFile{
		Name:        name,
		ContentType: "application/pdf",
		Render: func(w io.Writer) error {
			if reader == nil {
				return nil
			}
			_, err := io.Copy(w, reader)
			return err
		},
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
