package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionCookie = "tagboard_session"

// SessionConfig signs and verifies the coder session cookie. The cookie is an
// HS256 JWT whose subject is the coder id; nothing else is stored server-side.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Logger *log.Logger
	Now    func() time.Time
}

func (c SessionConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c SessionConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c SessionConfig) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return 12 * time.Hour
}

// establish signs a session token for the coder and sets the cookie.
func (c SessionConfig) establish(w http.ResponseWriter, coderID string) error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("session secret not configured")
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   coderID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl())),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.Secret))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(c.ttl()),
	})
	return nil
}

// coderID returns the session's coder id, or "" when there is no valid
// session on the request.
func (c SessionConfig) coderID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if strings.TrimSpace(c.Secret) == "" {
		return ""
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		return []byte(c.Secret), nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return ""
	}
	return claims.Subject
}
