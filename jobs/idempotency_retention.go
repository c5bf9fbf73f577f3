package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// RetentionStore purges idempotency keys older than a window.
type RetentionStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyJanitor removes idempotency keys past the retention window.
// Receipts and checkouts only need their keys for the duplicate-delivery
// horizon, not forever.
type IdempotencyJanitor struct {
	store  RetentionStore
	retain time.Duration
	logger *slog.Logger
}

// NewIdempotencyJanitor constructs the janitor.
func NewIdempotencyJanitor(store RetentionStore, retain time.Duration, logger *slog.Logger) *IdempotencyJanitor {
	return &IdempotencyJanitor{store: store, retain: retain, logger: logger}
}

// Handle processes TaskTypeIdempotencyRetention tasks.
func (j *IdempotencyJanitor) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.store.Cleanup(ctx, j.retain); err != nil {
		return err
	}
	j.logger.Info("idempotency retention done", slog.Duration("retain", j.retain))
	return nil
}
