package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/useradmin/internal/audit"
	"github.com/odyssey-erp/useradmin/internal/observability"
)

// AuditStore is the persistence the audit jobs write to.
type AuditStore interface {
	Record(ctx context.Context, entry audit.Entry) error
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditJob persists queued audit entries and prunes old ones.
type AuditJob struct {
	Store            AuditStore
	Logger           *slog.Logger
	Metrics          *observability.Metrics
	DefaultRetention time.Duration
}

// NewAuditJob initialises the audit handlers.
func NewAuditJob(store AuditStore, logger *slog.Logger, metrics *observability.Metrics, retention time.Duration) *AuditJob {
	return &AuditJob{Store: store, Logger: logger, Metrics: metrics, DefaultRetention: retention}
}

// Handlers returns the task handlers served by the worker.
func (j *AuditJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskAuditRecord, Handler: j.HandleRecord},
		{Type: TaskAuditPrune, Handler: j.HandlePrune},
	}
}

// HandleRecord writes one entry. Malformed payloads are not retried.
func (j *AuditJob) HandleRecord(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("audit record: handler not configured")
	}
	defer func() { j.Metrics.JobRun(TaskAuditRecord, err) }()

	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		j.logger().Warn("audit record: bad payload", slog.Any("error", err))
		return fmt.Errorf("audit record: %v: %w", err, asynq.SkipRetry)
	}
	if entry.ID == uuid.Nil {
		return fmt.Errorf("audit record: missing id: %w", asynq.SkipRetry)
	}
	if err := j.Store.Record(ctx, entry); err != nil {
		j.logger().Error("audit record failed",
			slog.String("audit_id", entry.ID.String()),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// HandlePrune deletes entries older than the payload retention, or the default.
func (j *AuditJob) HandlePrune(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("audit prune: handler not configured")
	}
	defer func() { j.Metrics.JobRun(TaskAuditPrune, err) }()

	var payload AuditPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("audit prune: %v: %w", err, asynq.SkipRetry)
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.DefaultRetention
	}
	start := time.Now()
	removed, err := j.Store.Prune(ctx, retention)
	if err != nil {
		j.logger().Error("audit prune failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("audit prune completed",
		slog.Int64("removed", removed),
		slog.Duration("retention", retention),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *AuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
