// Package userstest provides an in-memory users.Repository for tests.
package userstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/useradmin/internal/users"
)

// Operation names accepted by FailOn.
const (
	OpCreate       = "create"
	OpFindByEmail  = "find_by_email"
	OpFindByID     = "find_by_id"
	OpTouch        = "touch_last_login"
	OpList         = "list"
	OpUpdateStatus = "update_status"
	OpDelete       = "delete"
	OpCommit       = "commit"
)

// Store keeps users in memory. Transactions stage changes on a copy that is
// swapped in only when the callback and the commit both succeed.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	rows   map[int64]users.User
	nextID int64
	fail   map[string]error
	calls  map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		rows:  make(map[int64]users.User),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// FailOn makes op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Put inserts or replaces a row verbatim, assigning an id when zero.
func (s *Store) Put(u users.User) users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	if u.Status == "" {
		u.Status = users.StatusActive
	}
	s.rows[u.ID] = u
	return u
}

// Snapshot returns a copy of the committed row.
func (s *Store) Snapshot(id int64) (users.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	return u, ok
}

// Len reports the number of committed rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Store) hit(op string) error {
	s.calls[op]++
	return s.fail[op]
}

// WithTx implements users.Repository.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, users.TxRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	staged := make(map[int64]users.User, len(s.rows))
	for id, u := range s.rows {
		staged[id] = u
	}
	s.mu.Unlock()

	if err := fn(ctx, &txStore{parent: s, rows: staged}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpCommit); err != nil {
		return err
	}
	s.rows = staged
	return nil
}

// Create implements users.Repository.
func (s *Store) Create(_ context.Context, nu users.NewUser) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpCreate); err != nil {
		return nil, err
	}
	for _, u := range s.rows {
		if u.Email == nu.Email {
			return nil, users.ErrDuplicateEmail
		}
	}
	s.nextID++
	last := nu.LastLogin.UTC()
	u := users.User{
		ID:           s.nextID,
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Status:       users.StatusActive,
		LastLogin:    &last,
		CreatedAt:    time.Now().UTC(),
	}
	s.rows[u.ID] = u
	return &u, nil
}

// FindByEmail implements users.Repository.
func (s *Store) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpFindByEmail); err != nil {
		return nil, err
	}
	for _, u := range s.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, users.ErrNotFound
}

// FindByID implements users.Repository.
func (s *Store) FindByID(_ context.Context, id int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpFindByID); err != nil {
		return nil, err
	}
	u, ok := s.rows[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

// TouchLastLogin implements users.Repository.
func (s *Store) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpTouch); err != nil {
		return err
	}
	u, ok := s.rows[id]
	if !ok {
		return users.ErrNotFound
	}
	at = at.UTC()
	u.LastLogin = &at
	s.rows[id] = u
	return nil
}

// List implements users.Repository. Ordering matches PostgreSQL: NULL last
// logins sort first descending and last ascending.
func (s *Store) List(_ context.Context, order users.SortOrder) ([]users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpList); err != nil {
		return nil, err
	}
	out := make([]users.User, 0, len(s.rows))
	for _, u := range s.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		less := lessByLastLogin(out[i], out[j])
		if order == users.SortAsc {
			return less
		}
		return lessByLastLogin(out[j], out[i])
	})
	return out, nil
}

func lessByLastLogin(a, b users.User) bool {
	switch {
	case a.LastLogin == nil && b.LastLogin == nil:
		return a.ID < b.ID
	case a.LastLogin == nil:
		return false
	case b.LastLogin == nil:
		return true
	case a.LastLogin.Equal(*b.LastLogin):
		return a.ID < b.ID
	default:
		return a.LastLogin.Before(*b.LastLogin)
	}
}

type txStore struct {
	parent *Store
	rows   map[int64]users.User
}

func (t *txStore) UpdateStatus(_ context.Context, ids []int64, status users.Status) (int64, error) {
	t.parent.mu.Lock()
	err := t.parent.hit(OpUpdateStatus)
	t.parent.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		u, ok := t.rows[id]
		if !ok {
			continue
		}
		u.Status = status
		t.rows[id] = u
		n++
	}
	return n, nil
}

func (t *txStore) Delete(_ context.Context, ids []int64) (int64, error) {
	t.parent.mu.Lock()
	err := t.parent.hit(OpDelete)
	t.parent.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			delete(t.rows, id)
			n++
		}
	}
	return n, nil
}

var (
	_ users.Repository   = (*Store)(nil)
	_ users.TxRepository = (*txStore)(nil)
)
