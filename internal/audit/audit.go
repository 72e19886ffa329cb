// Package audit records administrative and authentication events.
package audit

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the services.
const (
	ActionUserRegistered = "user.registered"
	ActionUserLogin      = "user.login"
	ActionStatusUpdated  = "users.status_updated"
	ActionUsersDeleted   = "users.deleted"
)

// EntityUser is the entity name for user rows.
const EntityUser = "user"

// Entry represents a record stored in audit_logs.
type Entry struct {
	ID       uuid.UUID      `json:"id"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// NewEntry stamps a fresh id and time on an entry.
func NewEntry(actorID int64, action, entity, entityID string, meta map[string]any) Entry {
	return Entry{
		ID:       uuid.New(),
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now().UTC(),
	}
}

// Recorder persists or forwards audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Safe records entry and only logs failures; auditing never fails the caller.
func Safe(ctx context.Context, rec Recorder, logger *slog.Logger, entry Entry) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, entry); err != nil && logger != nil {
		logger.Warn("audit record failed",
			slog.String("action", entry.Action),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err),
		)
	}
}

// JoinIDs renders ids as a comma separated entity id.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
