package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/useradmin/internal/audit"
	"github.com/odyssey-erp/useradmin/internal/observability"
	"github.com/odyssey-erp/useradmin/internal/platform/validation"
	"github.com/odyssey-erp/useradmin/internal/shared"
	"github.com/odyssey-erp/useradmin/internal/users"
)

var inputMessages = validation.Messages{
	"name.required":     "Name is required",
	"email.required":    "Email is required",
	"email.basic_email": "Invalid email format",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
}

// UserStore is the slice of the credential store the service needs.
type UserStore interface {
	Create(ctx context.Context, u users.NewUser) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Service wraps authentication business rules.
type Service struct {
	store     UserStore
	hasher    PasswordHasher
	tokens    *TokenService
	validator *validation.Validator
	audit     audit.Recorder
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs a new Service. rec, metrics and logger may be nil.
func NewService(store UserStore, hasher PasswordHasher, tokens *TokenService, rec audit.Recorder, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if rec == nil {
		rec = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		validator: validation.New(),
		audit:     rec,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an account and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Struct(in, inputMessages); err != nil {
		s.metrics.AuthEvent(observability.EventRegister, "invalid_input")
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			s.metrics.AuthEvent(observability.EventRegister, "invalid_input")
			return nil, shared.FieldError("password", "Password must be at most 72 bytes")
		}
		return nil, shared.Internal(err)
	}
	user, err := s.store.Create(ctx, users.NewUser{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		LastLogin:    s.now(),
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			s.metrics.AuthEvent(observability.EventRegister, "email_exists")
			return nil, shared.ErrEmailExists
		}
		s.metrics.AuthEvent(observability.EventRegister, "error")
		return nil, shared.Internal(err)
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.AuthEvent(observability.EventRegister, "error")
		return nil, shared.Internal(err)
	}
	s.metrics.AuthEvent(observability.EventRegister, "success")
	audit.Safe(ctx, s.audit, s.logger, audit.NewEntry(user.ID, audit.ActionUserRegistered, audit.EntityUser, strconv.FormatInt(user.ID, 10), nil))
	return &RegisterResult{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh session token. Unknown
// emails and wrong passwords fail identically; a blocked account is reported
// only after its password matched.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Struct(in, inputMessages); err != nil {
		s.metrics.AuthEvent(observability.EventLogin, "invalid_input")
		return nil, err
	}
	user, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.hasher.Verify(in.Password, s.dummy())
			s.metrics.AuthEvent(observability.EventLogin, "invalid_credentials")
			return nil, shared.ErrInvalidCredentials
		}
		s.metrics.AuthEvent(observability.EventLogin, "error")
		return nil, shared.Internal(err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.metrics.AuthEvent(observability.EventLogin, "invalid_credentials")
		return nil, shared.ErrInvalidCredentials
	}
	if user.Blocked() {
		s.metrics.AuthEvent(observability.EventLogin, "blocked")
		return nil, shared.ErrUserBlocked
	}
	if err := s.store.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.metrics.AuthEvent(observability.EventLogin, "invalid_credentials")
			return nil, shared.ErrInvalidCredentials
		}
		s.metrics.AuthEvent(observability.EventLogin, "error")
		return nil, shared.Internal(err)
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.metrics.AuthEvent(observability.EventLogin, "error")
		return nil, shared.Internal(err)
	}
	s.metrics.AuthEvent(observability.EventLogin, "success")
	audit.Safe(ctx, s.audit, s.logger, audit.NewEntry(user.ID, audit.ActionUserLogin, audit.EntityUser, strconv.FormatInt(user.ID, 10), nil))
	return &LoginResult{Token: token}, nil
}

// dummy returns a digest used to spend comparable time on unknown emails.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("useradmin-dummy-password")
		if err != nil {
			s.logger.Warn("dummy hash failed", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
