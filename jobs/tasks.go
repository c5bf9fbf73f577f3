package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeLowStockScan is the task type for the periodic low-stock sweep.
	TaskTypeLowStockScan = "inventory:lowstock"
	// TaskTypeIdempotencyRetention purges expired idempotency keys.
	TaskTypeIdempotencyRetention = "retention:idempotency"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// LowStockScanPayload carries scheduling metadata for the sweep.
// A zero Threshold means the worker's configured threshold applies.
type LowStockScanPayload struct {
	Threshold    int64     `json:"threshold"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock sweep.
func NewLowStockScanTask(threshold int64, at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{Threshold: threshold, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, data, asynq.Queue(QueueDefault)), nil
}

// IdempotencyRetentionPayload carries scheduling metadata for key cleanup.
type IdempotencyRetentionPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewIdempotencyRetentionTask constructs an Asynq task for key cleanup.
func NewIdempotencyRetentionTask(at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyRetentionPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeIdempotencyRetention, data, asynq.Queue(QueueDefault)), nil
}
