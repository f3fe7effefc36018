package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/waabox/orderdeck/internal/domain"
)

const maxErrorBody = 1 << 16

// SessionExpiredError is returned when the refresh token was rejected, so
// both tokens are invalid and the user has to log in again.
type SessionExpiredError struct {
	Cause error
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired: re-authentication required: %v", e.Cause)
}

func (e *SessionExpiredError) Unwrap() []error {
	return []error{domain.ErrSessionExpired, e.Cause}
}

// StatusError is an unexpected HTTP status from the backend.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("orders API error: %s", e.Status)
	}
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("orders API error: %s: %s", e.Status, body)
}

// Unwrap maps a 401 onto domain.ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	return nil
}

func newStatusError(code int, status string, body []byte) *StatusError {
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{StatusCode: code, Status: status, Body: strings.TrimSpace(string(body))}
}

// parseValidationError reads a 400 body. The backend wraps business errors as
// {"success": false, "error_code": "...", "detail": {...}}; plain serializer
// errors come as {"field": ["msg", ...]}. Returns nil when no message is found.
func parseValidationError(body []byte) *domain.ValidationError {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	if detail, ok := raw["detail"]; ok {
		if _, wrapped := raw["error_code"]; wrapped {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(detail, &inner); err == nil {
				raw = inner
			} else {
				raw = map[string]json.RawMessage{"detail": detail}
			}
		}
	}
	verr := &domain.ValidationError{}
	for _, field := range sortedKeys(raw) {
		for _, msg := range messages(raw[field]) {
			verr.Add(field, msg)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// messages flattens a DRF error value: a string, a list, or a nested object
// such as the per-line errors of an order.
func messages(v json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, messages(item)...)
		}
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err == nil {
		var out []string
		for _, k := range sortedKeys(obj) {
			for _, m := range messages(obj[k]) {
				out = append(out, k+": "+m)
			}
		}
		return out
	}
	if s := strings.TrimSpace(string(v)); s != "" && s != "null" {
		return []string{s}
	}
	return nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
