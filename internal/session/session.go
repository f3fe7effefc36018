package session

import (
	"encoding/json"
	"fmt"

	"github.com/waabox/orderdeck/internal/domain"
)

// Keys of the persisted session. All three form one logical unit.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// Credentials is the access/refresh token pair issued by the backend.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Session gives typed access to the credential pair and user kept in a Store.
type Session struct {
	store Store
}

// New wraps store.
func New(store Store) *Session {
	return &Session{store: store}
}

// AccessToken returns the stored access token, or "" if there is none.
func (s *Session) AccessToken() string {
	v, _ := s.store.Get(KeyToken)
	return v
}

// Tokens returns the stored pair. A partial pair is reported as absent.
func (s *Session) Tokens() (Credentials, bool) {
	access, okA := s.store.Get(KeyToken)
	refresh, okR := s.store.Get(KeyRefreshToken)
	if !okA || !okR || access == "" || refresh == "" {
		return Credentials{}, false
	}
	return Credentials{AccessToken: access, RefreshToken: refresh}, true
}

// SaveTokens writes the access token, then the refresh token.
func (s *Session) SaveTokens(c Credentials) error {
	if err := s.store.Set(KeyToken, c.AccessToken); err != nil {
		return fmt.Errorf("saving access token: %w", err)
	}
	if err := s.store.Set(KeyRefreshToken, c.RefreshToken); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return nil
}

// SaveUser stores u as JSON under KeyUser.
func (s *Session) SaveUser(u domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.store.Set(KeyUser, string(b)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// User returns the stored user, or the zero value if none is stored or it
// cannot be decoded.
func (s *Session) User() domain.User {
	raw, ok := s.store.Get(KeyUser)
	if !ok || raw == "" {
		return domain.User{}
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return domain.User{}
	}
	return u
}

// IsAuthenticated reports whether both tokens are stored.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.Tokens()
	return ok
}

// Clear removes every session key.
func (s *Session) Clear() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
