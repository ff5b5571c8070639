package pdf

import (
	"context"
	"io"
)

// Provider renders admin-facing PDF documents.
type Provider interface {
	GenerateComplianceReport(ctx context.Context, data ReportData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateComplianceReport(ctx context.Context, data ReportData) (io.Reader, error) {
	return nil, nil
}
