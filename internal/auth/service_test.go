package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/useradmin/internal/audit"
	"github.com/odyssey-erp/useradmin/internal/auth"
	"github.com/odyssey-erp/useradmin/internal/observability"
	"github.com/odyssey-erp/useradmin/internal/shared"
	"github.com/odyssey-erp/useradmin/internal/users"
	"github.com/odyssey-erp/useradmin/internal/users/userstest"
	_ "github.com/odyssey-erp/useradmin/testing"
)

type auditLog struct {
	entries []audit.Entry
}

func (a *auditLog) Record(_ context.Context, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

type fixture struct {
	store   *userstest.Store
	tokens  *auth.TokenService
	hasher  *auth.BcryptHasher
	audit   *auditLog
	service *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  userstest.New(),
		tokens: newTokens(t),
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
		audit:  &auditLog{},
	}
	f.service = auth.NewService(f.store, f.hasher, f.tokens, f.audit, observability.NewMetrics(), nil)
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *auth.RegisterResult {
	t.Helper()
	res, err := f.service.Register(context.Background(), auth.RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return res
}

func TestRegisterThenLoginSameSubject(t *testing.T) {
	f := newFixture(t)

	reg := f.register(t, "  Ann  ", "ann@example.com", "secret1")
	assert.Equal(t, "Ann", reg.User.Name)
	assert.Equal(t, users.StatusActive, reg.User.Status)
	require.NotNil(t, reg.User.LastLogin)
	assert.NotEqual(t, "secret1", reg.User.PasswordHash)

	regSubject, err := f.tokens.Verify(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, regSubject)

	login, err := f.service.Login(context.Background(), auth.LoginInput{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	loginSubject, err := f.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, regSubject, loginSubject)

	require.Len(t, f.audit.entries, 2)
	assert.Equal(t, audit.ActionUserRegistered, f.audit.entries[0].Action)
	assert.Equal(t, audit.ActionUserLogin, f.audit.entries[1].Action)
}

func TestLoginRefreshesLastLogin(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Ann", "ann@example.com", "secret1")
	before := *reg.User.LastLogin

	time.Sleep(2 * time.Millisecond)
	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	row, ok := f.store.Snapshot(reg.User.ID)
	require.True(t, ok)
	require.NotNil(t, row.LastLogin)
	assert.True(t, row.LastLogin.After(before))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ann", "ann@example.com", "secret1")

	_, err := f.service.Register(context.Background(), auth.RegisterInput{Name: "Other", Email: "ann@example.com", Password: "another"})
	assert.ErrorIs(t, err, shared.ErrEmailExists)
	assert.Equal(t, 1, f.store.Len())
}

func TestRegisterValidationHasNoSideEffects(t *testing.T) {
	cases := []struct {
		name  string
		in    auth.RegisterInput
		field string
		msg   string
	}{
		{"blank name", auth.RegisterInput{Name: "   ", Email: "a@b.co", Password: "secret1"}, "name", "Name is required"},
		{"missing email", auth.RegisterInput{Name: "A", Password: "secret1"}, "email", "Email is required"},
		{"bad email", auth.RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"}, "email", "Invalid email format"},
		{"missing password", auth.RegisterInput{Name: "A", Email: "a@b.co"}, "password", "Password is required"},
		{"short password", auth.RegisterInput{Name: "A", Email: "a@b.co", Password: "12345"}, "password", "Password must be at least 6 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, shared.ErrValidation)

			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.msg, verr.Fields[tc.field])
			assert.Zero(t, f.store.Calls(userstest.OpCreate))
			assert.Empty(t, f.audit.entries)
		})
	}
}

func TestRegisterPasswordTooLong(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Register(context.Background(), auth.RegisterInput{Name: "A", Email: "a@b.co", Password: strings.Repeat("x", 80)})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Zero(t, f.store.Calls(userstest.OpCreate))
}

func TestRegisterStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn(userstest.OpCreate, errors.New("connection refused"))

	_, err := f.service.Register(context.Background(), auth.RegisterInput{Name: "A", Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrInternal)
	assert.NotErrorIs(t, err, shared.ErrEmailExists)
}

func TestLoginInvalidCredentialsAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ann", "ann@example.com", "secret1")

	_, unknownErr := f.service.Login(context.Background(), auth.LoginInput{Email: "nobody@example.com", Password: "secret1"})
	_, wrongErr := f.service.Login(context.Background(), auth.LoginInput{Email: "ann@example.com", Password: "wrong-password"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr, wrongErr)
	assert.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	assert.Zero(t, f.store.Calls(userstest.OpTouch))
}

func TestLoginBlockedUser(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Ann", "ann@example.com", "secret1")
	row, _ := f.store.Snapshot(reg.User.ID)
	row.Status = users.StatusBlocked
	f.store.Put(row)

	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "ann@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrUserBlocked)

	_, err = f.service.Login(context.Background(), auth.LoginInput{Email: "ann@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Zero(t, f.store.Calls(userstest.OpTouch))
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "bad", Password: "x"})
	assert.EqualError(t, err, "Invalid email format")

	_, err = f.service.Login(context.Background(), auth.LoginInput{Email: "a@b.co"})
	assert.EqualError(t, err, "Password is required")
	assert.Zero(t, f.store.Calls(userstest.OpFindByEmail))
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn(userstest.OpFindByEmail, errors.New("timeout"))

	_, err := f.service.Login(context.Background(), auth.LoginInput{Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrInternal)
}
