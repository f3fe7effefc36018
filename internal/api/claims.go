package api

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/waabox/orderdeck/internal/domain"
)

// userFromToken reads the user id and email out of an access token without
// verifying it. The backend is the one that verifies; the client only needs
// the claims to label the session.
func userFromToken(tokenStr string) (domain.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return domain.User{}, fmt.Errorf("parsing access token: %w", err)
	}
	var u domain.User
	switch v := claims["user_id"].(type) {
	case float64:
		u.ID = domain.ID(strconv.FormatInt(int64(v), 10))
	case string:
		u.ID = domain.ID(v)
	}
	if email, ok := claims["email"].(string); ok {
		u.Email = email
	}
	return u, nil
}
