package worker

import (
	"context"
	"time"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imagecompressor/internal/domain"
)

// FormatSource reports codec readiness in this process.
type FormatSource interface {
	Formats() []domain.FormatStatus
}

// FormatReporter periodically publishes this worker's codec readiness so the
// API can serve it.
type FormatReporter struct {
	source   FormatSource
	repo     domain.FormatStatusRepository
	interval time.Duration
}

func NewFormatReporter(source FormatSource, repo domain.FormatStatusRepository, interval time.Duration) *FormatReporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &FormatReporter{
		source:   source,
		repo:     repo,
		interval: interval,
	}
}

// Report saves the current readiness once.
func (r *FormatReporter) Report(ctx context.Context) error {
	statuses := r.source.Formats()
	if err := r.repo.Save(ctx, statuses); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to report codec readiness")
		return err
	}
	return nil
}

// Run reports immediately and then on every tick until ctx is cancelled.
func (r *FormatReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	_ = r.Report(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Report(ctx)
		}
	}
}
