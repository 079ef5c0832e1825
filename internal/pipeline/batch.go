package pipeline

import (
	"context"
	"time"

	"templateforge/internal/domain"
	"templateforge/internal/registry"

	"go.uber.org/zap"
)

// BatchEvent is one frame of a batch run's progress feed.
type BatchEvent struct {
	Type     string                   `json:"type"` // connected|progress|success|error|batch-complete|complete
	Status   *domain.ProcessingStatus `json:"status,omitempty"`
	Result   *domain.ScrapeItemResult `json:"result,omitempty"`
	Summary  *domain.BatchSummary     `json:"summary,omitempty"`
	PauseKey string                   `json:"pauseKey,omitempty"`
	Resumed  string                   `json:"resumed,omitempty"` // "confirmed" or "timeout"
}

// EmitFunc receives batch events. Emission is best-effort; the driver
// never blocks on a client that stopped listening.
type EmitFunc func(BatchEvent)

// BatchDriver iterates the pipeline over a URL list strictly
// sequentially with a fixed inter-site delay. The delay rate-limits
// pressure on target sites and AI providers; it is not a correctness
// requirement. A failure on one site never aborts the batch.
type BatchDriver struct {
	pipeline   *Pipeline
	pauses     *registry.Pauses
	delay      time.Duration
	pauseEvery int
	logger     *zap.Logger
}

func NewBatchDriver(p *Pipeline, pauses *registry.Pauses, delay time.Duration, pauseEvery int, logger *zap.Logger) *BatchDriver {
	return &BatchDriver{pipeline: p, pauses: pauses, delay: delay, pauseEvery: pauseEvery, logger: logger}
}

// Run processes every URL in input order. Results preserve that order:
// results[i].URL == urls[i]. After every pauseEvery items (except the
// last) the driver registers a pause key, emits it, and waits for an
// external resume or the auto-resume timeout.
func (b *BatchDriver) Run(ctx context.Context, urls []string, opts Options, emit EmitFunc) ([]domain.ScrapeItemResult, domain.BatchSummary) {
	if emit == nil {
		emit = func(BatchEvent) {}
	}

	results := make([]domain.ScrapeItemResult, 0, len(urls))
	summary := domain.BatchSummary{}

	for i, url := range urls {
		if ctx.Err() != nil {
			// Remaining sites are recorded as failed so ordering and
			// length invariants hold for the caller.
			for _, rest := range urls[i:] {
				results = append(results, domain.ScrapeItemResult{URL: rest, Success: false, Error: ctx.Err().Error()})
				summary.Processed++
				summary.FailCount++
			}
			break
		}

		result := b.pipeline.Run(ctx, url, opts, func(status domain.ProcessingStatus) {
			emit(BatchEvent{Type: "progress", Status: &status})
		})
		results = append(results, result)
		summary.Processed++
		if result.Success {
			summary.SuccessCount++
			emit(BatchEvent{Type: "success", Result: &result})
		} else {
			summary.FailCount++
			emit(BatchEvent{Type: "error", Result: &result})
		}

		if i == len(urls)-1 {
			break
		}

		if b.pauseEvery > 0 && (i+1)%b.pauseEvery == 0 {
			b.pause(ctx, i+1, emit)
		}

		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
		}
	}

	emit(BatchEvent{Type: "complete", Summary: &summary})
	return results, summary
}

func (b *BatchDriver) pause(ctx context.Context, processed int, emit EmitFunc) {
	key, err := b.pauses.Register(ctx)
	if err != nil {
		b.logger.Warn("could not register batch pause, continuing without one", zap.Error(err))
		return
	}

	b.logger.Info("batch paused awaiting confirmation",
		zap.Int("processed", processed), zap.String("pauseKey", key))
	emit(BatchEvent{Type: "batch-complete", PauseKey: key})

	resumed := "timeout"
	if b.pauses.Wait(ctx, key) {
		resumed = "confirmed"
	}
	b.logger.Info("batch resumed", zap.String("pauseKey", key), zap.String("via", resumed))
	emit(BatchEvent{Type: "progress", Resumed: resumed})
}
