package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	wrapped := fmt.Errorf("users: insert: %w", pgErr)

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(wrapped, "users_email_key"))
	assert.False(t, IsUniqueViolation(wrapped, "users_pkey"))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsCheckViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "users_status_check"}
	assert.True(t, IsCheckViolation(pgErr, "users_status_check"))
	assert.False(t, IsUniqueViolation(pgErr, ""))
}
