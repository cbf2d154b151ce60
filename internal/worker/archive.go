package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hyperengineering/platewise/internal/archive"
	"github.com/hyperengineering/platewise/internal/diary"
	"github.com/hyperengineering/platewise/internal/report"
	"github.com/hyperengineering/platewise/internal/types"
)

// Exporter renders diary reports.
type Exporter interface {
	Export(ctx context.Context, req types.ExportRequest) (*diary.Export, error)
}

// ArchiveWorker periodically uploads the encrypted HTML report.
type ArchiveWorker struct {
	exporter Exporter
	uploader archive.Uploader
	password string
	interval time.Duration
	now      func() time.Time
}

// NewArchiveWorker creates a worker that exports with password and uploads
// every interval.
func NewArchiveWorker(exporter Exporter, uploader archive.Uploader, password string, interval time.Duration) *ArchiveWorker {
	return &ArchiveWorker{
		exporter: exporter,
		uploader: uploader,
		password: password,
		interval: interval,
		now:      time.Now,
	}
}

// Run archives immediately on start, then on each interval, until ctx is
// cancelled.
func (w *ArchiveWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "report-archive",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.archiveOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "report-archive",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.archiveOnce(ctx)
		}
	}
}

// archiveOnce exports and uploads one report, logging any failure.
func (w *ArchiveWorker) archiveOnce(ctx context.Context) {
	date := w.now().Format(types.DateLayout)

	export, err := w.exporter.Export(ctx, types.ExportRequest{Password: w.password, Format: diary.FormatHTML})
	if err != nil {
		if errors.Is(err, report.ErrNoEntries) {
			slog.Debug("report archive skipped",
				"component", "worker",
				"action", "archive_skip",
				"reason", "no_entries",
			)
			return
		}
		if ctx.Err() != nil {
			return
		}
		slog.Warn("report export failed",
			"component", "worker",
			"action", "archive_failed",
			"error", err,
		)
		return
	}

	if err := w.uploader.Upload(ctx, date, export.Body, export.ContentType); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("report upload failed",
			"component", "worker",
			"action", "archive_failed",
			"object", archive.ObjectKey(date),
			"error", err,
		)
		return
	}

	slog.Info("report archived",
		"component", "worker",
		"action", "archive_complete",
		"object", archive.ObjectKey(date),
		"bytes", len(export.Body),
	)
}
