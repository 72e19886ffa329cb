package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/useradmin/internal/audit"
	"github.com/odyssey-erp/useradmin/internal/platform/validation"
	"github.com/odyssey-erp/useradmin/internal/shared"
)

var bulkMessages = validation.Messages{
	"ids.required":    "No user IDs provided",
	"ids.min":         "No user IDs provided",
	"ids.gt":          "User IDs must be positive integers",
	"status.required": "Status is required",
	"status.oneof":    "Status must be active or blocked",
}

// Service handles user administration.
type Service struct {
	repo      Repository
	validator *validation.Validator
	audit     audit.Recorder
	logger    *slog.Logger
}

// NewService builds a Service. A nil recorder disables auditing.
func NewService(repo Repository, v *validation.Validator, rec audit.Recorder, logger *slog.Logger) *Service {
	if v == nil {
		v = validation.New()
	}
	if rec == nil {
		rec = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validator: v, audit: rec, logger: logger}
}

// ParseSortOrder maps the orderBy query value. Empty means DefaultSortOrder.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return DefaultSortOrder, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	default:
		return "", shared.FieldError("orderBy", "Invalid sorting order")
	}
}

// List returns every user ordered by last login.
func (s *Service) List(ctx context.Context, orderBy string) ([]User, error) {
	order, err := ParseSortOrder(orderBy)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, order)
	if err != nil {
		return nil, shared.Internal(err)
	}
	return users, nil
}

// UpdateStatus sets the status of every listed user atomically.
func (s *Service) UpdateStatus(ctx context.Context, actorID int64, req UpdateStatusRequest) (*BulkResult, error) {
	if err := s.validator.Struct(req, bulkMessages); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.IDs)
	var affected int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.UpdateStatus(ctx, ids, req.Status)
		affected = n
		return err
	})
	if err != nil {
		return nil, shared.Internal(err)
	}
	audit.Safe(ctx, s.audit, s.logger, audit.NewEntry(actorID, audit.ActionStatusUpdated, audit.EntityUser, audit.JoinIDs(ids), map[string]any{
		"status":   string(req.Status),
		"affected": affected,
	}))
	return &BulkResult{Requested: len(ids), Affected: affected}, nil
}

// Delete hard-deletes every listed user atomically.
func (s *Service) Delete(ctx context.Context, actorID int64, req DeleteRequest) (*BulkResult, error) {
	if err := s.validator.Struct(req, bulkMessages); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.IDs)
	var affected int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n, err := tx.Delete(ctx, ids)
		affected = n
		return err
	})
	if err != nil {
		return nil, shared.Internal(err)
	}
	audit.Safe(ctx, s.audit, s.logger, audit.NewEntry(actorID, audit.ActionUsersDeleted, audit.EntityUser, audit.JoinIDs(ids), map[string]any{
		"affected": affected,
	}))
	return &BulkResult{Requested: len(ids), Affected: affected}, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
