package users

import (
	"errors"
	"time"
)

// Status is the account state gating every authorized request.
type Status string

const (
	// StatusActive is the default state at registration.
	StatusActive Status = "active"
	// StatusBlocked denies login and any use of previously issued tokens.
	StatusBlocked Status = "blocked"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusBlocked
}

// SortOrder is the direction of the last-login ordering in listings.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultSortOrder lists the most recently active users first.
const DefaultSortOrder = SortDesc

var (
	// ErrNotFound indicates no user row matched.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail indicates the store rejected an insert on the email unique constraint.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// User is the persisted account record.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       Status     `json:"status"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Blocked reports whether the account is blocked.
func (u *User) Blocked() bool {
	return u != nil && u.Status == StatusBlocked
}

// NewUser holds the columns supplied on insert.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	LastLogin    time.Time
}
