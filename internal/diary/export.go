package diary

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hyperengineering/platewise/internal/report"
	"github.com/hyperengineering/platewise/internal/types"
	"github.com/hyperengineering/platewise/internal/validation"
)

// Export formats.
const (
	FormatHTML = "html"
	FormatCSV  = "csv"
)

// Export is a rendered report ready to download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BuildReport assembles the report for the whole diary.
func (s *Service) BuildReport(ctx context.Context) (*report.Report, error) {
	entries, err := s.store.ListEntries(ctx, types.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return report.Build(entries, s.Replay(entries), s.now())
}

// Export renders the report as password-protected HTML (the default) or
// plain CSV.
func (s *Service) Export(ctx context.Context, req types.ExportRequest) (*Export, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = FormatHTML
	}
	if format != FormatHTML && format != FormatCSV {
		return nil, &ValidationFailedError{Errors: []validation.ValidationError{{
			Field:   "format",
			Message: "must be one of: html, csv",
		}}}
	}
	if format == FormatHTML && req.Password == "" {
		return nil, report.ErrEmptyPassword
	}

	rep, err := s.BuildReport(ctx)
	if err != nil {
		return nil, err
	}

	var out *Export
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, rep); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
		out = &Export{Filename: "HealthReport.csv", ContentType: "text/csv; charset=utf-8", Body: buf.Bytes()}
	default:
		page, err := report.RenderHTML(rep, req.Password)
		if err != nil {
			return nil, err
		}
		out = &Export{Filename: "HealthReport.html", ContentType: "text/html; charset=utf-8", Body: page}
	}

	slog.Info("report exported",
		"component", "diary",
		"action", "export",
		"format", format,
		"entries", rep.Summary.TotalEntries,
	)
	return out, nil
}
