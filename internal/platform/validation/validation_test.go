package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/useradmin/internal/shared"
)

type signup struct {
	Email    string  `json:"email" validate:"required,basic_email"`
	Password string  `json:"password" validate:"required,min=6"`
	IDs      []int64 `json:"ids" validate:"omitempty,dive,gt=0"`
}

var signupMessages = Messages{
	"email.required":    "Email is required",
	"email.basic_email": "Invalid email format",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
}

func TestIsBasicEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "first.last@mail.example.org", "UPPER@Case.IO"} {
		assert.True(t, IsBasicEmail(ok), ok)
	}
	for _, bad := range []string{"", "plain", "a@b", "@b.co", "a@.co ", "a b@c.de", "a@@b.co"} {
		assert.False(t, IsBasicEmail(bad), bad)
	}
}

func TestStructValid(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(signup{Email: "a@b.co", Password: "secret"}, signupMessages))
}

func TestStructFieldMessages(t *testing.T) {
	v := New()

	err := v.Struct(signup{Email: "nope", Password: "123"}, signupMessages)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)

	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"email":    "Invalid email format",
		"password": "Password must be at least 6 characters",
	}, verr.Fields)
}

func TestStructRequiredMessages(t *testing.T) {
	v := New()

	var verr *shared.ValidationError
	require.True(t, errors.As(v.Struct(signup{}, signupMessages), &verr))
	assert.Equal(t, "Email is required", verr.Fields["email"])
	assert.Equal(t, "Password is required", verr.Fields["password"])
}

func TestStructFallbackMessageStripsIndex(t *testing.T) {
	v := New()

	var verr *shared.ValidationError
	err := v.Struct(signup{Email: "a@b.co", Password: "secret", IDs: []int64{1, -2, 0}}, signupMessages)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"ids": "ids is invalid"}, verr.Fields)
}

func TestStructNonStructIsInternal(t *testing.T) {
	v := New()
	err := v.Struct(42, nil)
	assert.ErrorIs(t, err, shared.ErrInternal)
}
