// Package session authenticates the single admin and tracks who is logged in.
// A session is a server-side record keyed by a random id; the client holds a
// signed token naming that id.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"menu-service/internal/data/dto"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
)

type Credentials struct {
	Username string
	Password string
}

type record struct {
	expiresAt time.Time
}

type Gate struct {
	creds  Credentials
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]record
}

func New(creds Credentials, secret string, ttl time.Duration) *Gate {
	return &Gate{
		creds:    creds,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]record),
	}
}

// Login compares username and password with the configured pair and opens a
// session on an exact match. Any mismatch, including empty fields, yields
// ErrInvalidCredentials without saying which field was wrong.
func (g *Gate) Login(username, password string) (string, error) {
	const op = "session.Login"

	if username == "" || password == "" || !equal(username, g.creds.Username) || !equal(password, g.creds.Password) {
		return "", ErrInvalidCredentials
	}

	now := g.now()
	id := uuid.NewString()
	claims := dto.SessionClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	g.mu.Lock()
	g.sessions[id] = record{expiresAt: now.Add(g.ttl)}
	g.mu.Unlock()

	return token, nil
}

// Logout destroys the session named by token. Unknown or malformed tokens are
// ignored.
func (g *Gate) Logout(token string) {
	claims, err := g.parse(token)
	if err != nil {
		return
	}

	g.mu.Lock()
	delete(g.sessions, claims.ID)
	g.mu.Unlock()
}

// Authenticated reports whether token names a live admin session.
func (g *Gate) Authenticated(token string) bool {
	if token == "" {
		return false
	}

	claims, err := g.parse(token)
	if err != nil || !claims.Admin {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.sessions[claims.ID]
	if !ok {
		return false
	}
	if !g.now().Before(rec.expiresAt) {
		delete(g.sessions, claims.ID)
		return false
	}

	return true
}

// Sweep drops expired sessions and returns how many were removed.
func (g *Gate) Sweep() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for id, rec := range g.sessions {
		if !now.Before(rec.expiresAt) {
			delete(g.sessions, id)
			n++
		}
	}

	return n
}

// TTL is how long a fresh session stays valid.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

func (g *Gate) parse(token string) (*dto.SessionClaims, error) {
	claims := &dto.SessionClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
