// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnauthorized is returned when the API responds with HTTP 401 and the
// request could not be recovered by a token refresh.
// Callers can check for it using errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// ErrSessionExpired is returned when the refresh token was rejected and the
// stored session has been cleared. The user must log in again.
var ErrSessionExpired = errors.New("session expired")

// ErrNotAuthenticated is returned by operations that need a stored session
// when none exists.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError carries per-field messages, either reported by the backend
// on a 400 response or produced locally before submitting an order.
type ValidationError struct {
	Fields map[string][]string
}

// Add appends a message for the given field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field messages have been recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
