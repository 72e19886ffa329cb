package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}

// Store writes entries into audit_logs.
type Store struct {
	db execer
}

// NewStore returns a new Store. pool is usually a *pgxpool.Pool.
func NewStore(pool execer) *Store {
	return &Store{db: pool}
}

// Record persists the entry. Re-recording the same entry id is a no-op.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("audit store not initialised")
	}
	if err := entry.validate(); err != nil {
		return err
	}
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("audit: marshal meta: %w", err)
	}
	var actor *int64
	if entry.ActorID > 0 {
		actor = &entry.ActorID
	}
	var at *time.Time
	if !entry.At.IsZero() {
		at = &entry.At
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		 ON CONFLICT (id) DO NOTHING`,
		entry.ID, actor, entry.Action, entry.Entity, entry.EntityID, metaJSON, at,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Prune removes entries older than retention and returns the number removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("audit store not initialised")
	}
	if retention <= 0 {
		return 0, errors.New("audit retention must be positive")
	}
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (e Entry) validate() error {
	if e.ID == uuid.Nil {
		return errors.New("audit log requires id")
	}
	if e.Action == "" || e.Entity == "" || e.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	return nil
}

var _ Recorder = (*Store)(nil)
