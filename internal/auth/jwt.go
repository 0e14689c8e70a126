package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the session lifetime for issued tokens.
const DefaultTTL = 24 * time.Hour

var (
	ErrTokenMalformed = errors.New("token malformed or not signed by this server")
	ErrTokenExpired   = errors.New("token expired")
	ErrEmptySecret    = errors.New("token signing secret is empty")
)

type Claims struct {
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for userID valid for the manager's TTL.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}

	if userID == "" {
		return "", time.Time{}, errors.New("cannot issue token without subject")
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return raw, expiresAt, nil
}

// Verify checks signature and expiry and returns the subject. Failures are
// either ErrTokenExpired or ErrTokenMalformed.
func (m *Manager) Verify(tokenStr string) (string, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" || len(m.secret) == 0 {
		return nil, ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
		// reject non-canonical base64 so no two encodings share a signature
		jwt.WithStrictDecoding(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
