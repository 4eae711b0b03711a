package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the double-entry integrity sweep.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskJournalRecompute is the task type for warming cash-journal running balances.
	TaskJournalRecompute = "journal:recompute"
)

// LedgerIntegrityPayload scopes an integrity sweep to one book, optionally one period.
type LedgerIntegrityPayload struct {
	BookID int64  `json:"book_id"`
	Period string `json:"period,omitempty"`
}

// NewLedgerIntegrityTask constructs an Asynq task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// JournalRecomputePayload scopes a balance warmup to one book.
type JournalRecomputePayload struct {
	BookID int64 `json:"book_id"`
}

// NewJournalRecomputeTask constructs an Asynq task.
func NewJournalRecomputeTask(payload JournalRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJournalRecompute, data), nil
}
