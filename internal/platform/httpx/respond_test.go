package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/useradmin/internal/shared"
)

type payload struct {
	Email string `json:"email"`
}

func decode(t *testing.T, body string) (payload, error) {
	t.Helper()
	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSON(httptest.NewRecorder(), req, &p)
	return p, err
}

func TestDecodeJSON(t *testing.T) {
	p, err := decode(t, `{"email":"a@b.co"}`)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", p.Email)
}

func TestDecodeJSONRejectsMalformedBodies(t *testing.T) {
	for name, body := range map[string]string{
		"empty":         "",
		"syntax":        `{"email":`,
		"unknown field": `{"email":"a@b.co","admin":true}`,
		"trailing":      `{"email":"a@b.co"}{"email":"c@d.co"}`,
		"wrong type":    `{"email":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	big := `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	_, err := decode(t, big)
	require.Error(t, err)
	assert.Equal(t, "Request body is too large", err.Error())
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests","code":"RATE_LIMITED"}`, rec.Body.String())
}
