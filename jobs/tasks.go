package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/useradmin/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord persists one audit entry.
	TaskAuditRecord = "audit:record"
	// TaskAuditPrune deletes audit entries past retention.
	TaskAuditPrune = "audit:prune"
	// AuditPruneSchedule runs the prune daily at 03:00 UTC.
	AuditPruneSchedule = "0 3 * * *"

	auditMaxRetry = 5
)

// AuditPrunePayload carries the retention window for TaskAuditPrune.
type AuditPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditRecordTask wraps entry in a task.
func NewAuditRecordTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal audit entry: %w", err)
	}
	return asynq.NewTask(TaskAuditRecord, data), nil
}

// NewAuditPruneTask builds the periodic prune task.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}
