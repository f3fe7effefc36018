package api

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/orderdeck/internal/domain"
)

func TestParseValidationError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string][]string
	}{
		{
			name: "serializer errors",
			body: `{"project": ["This field is required."], "lines": ["Order must have at least one line."]}`,
			want: map[string][]string{
				"project": {"This field is required."},
				"lines":   {"Order must have at least one line."},
			},
		},
		{
			name: "string value",
			body: `{"non_field_errors": "Invalid shipping address."}`,
			want: map[string][]string{"non_field_errors": {"Invalid shipping address."}},
		},
		{
			name: "wrapped detail object",
			body: `{"success": false, "error_code": "VALIDATION_ERROR", "detail": {"status": ["Invalid pk \"99\" - object does not exist."]}}`,
			want: map[string][]string{"status": {`Invalid pk "99" - object does not exist.`}},
		},
		{
			name: "wrapped detail string",
			body: `{"success": false, "error_code": "BUSINESS_RULE", "detail": "Insufficient stock."}`,
			want: map[string][]string{"detail": {"Insufficient stock."}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := parseValidationError([]byte(tt.body))
			require.NotNil(t, verr)
			assert.Equal(t, tt.want, verr.Fields)
		})
	}
}

func TestParseValidationError_NotJSON(t *testing.T) {
	assert.Nil(t, parseValidationError([]byte("<html>Bad Request</html>")))
	assert.Nil(t, parseValidationError([]byte(`{}`)))
}

func TestStatusError(t *testing.T) {
	err := newStatusError(http.StatusUnauthorized, "", []byte(strings.Repeat("x", 300)))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.Equal(t, "401 Unauthorized", err.Status)
	assert.Len(t, strings.TrimPrefix(err.Error(), "orders API error: 401 Unauthorized: "), 200)

	err = newStatusError(http.StatusBadGateway, "502 Bad Gateway", nil)
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))
	assert.Equal(t, "orders API error: 502 Bad Gateway", err.Error())
}

func TestSessionExpiredError(t *testing.T) {
	cause := newStatusError(http.StatusUnauthorized, "", nil)
	err := &SessionExpiredError{Cause: cause}

	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Same(t, cause, status)
}

func TestUserFromToken(t *testing.T) {
	// header.payload.signature with payload {"user_id":"17","email":"x@example.com"}
	token := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoiMTciLCJlbWFpbCI6InhAZXhhbXBsZS5jb20ifQ.c2ln"
	u, err := userFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "17", Email: "x@example.com"}, u)

	_, err = userFromToken("not-a-jwt")
	assert.Error(t, err)
}
