// Package session issues and verifies signed session tokens carrying the
// caller's identity.
package session

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const devSecret = "maintdash-dev-secret-change-me"

var ErrInvalidToken = errors.New("session: invalid token")

// Identity is who performed an operation. The zero value is anonymous.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (i Identity) IsZero() bool { return i.Name == "" && i.Email == "" }

// Attribution is the string stored as a log's performed-by value.
func (i Identity) Attribution() string {
	if i.Email != "" {
		return i.Email
	}
	return i.Name
}

type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager falls back to a development secret when secret is empty.
func NewManager(secret string, ttl time.Duration) *Manager {
	if secret == "" {
		secret = devSecret
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for the identity.
func (m *Manager) Issue(id Identity) (string, error) {
	now := m.now()
	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates the token and returns the identity it carries.
func (m *Manager) Parse(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrInvalidToken
	}
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwtlib.WithTimeFunc(m.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{Name: claims.Name, Email: claims.Email}
	if id.IsZero() {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
