package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

type GuardObserver interface {
	ObserveGuard(guard, state string)
}

// GuardState is what a guard learned from the session cookie.
type GuardState int

const (
	NoToken GuardState = iota
	InvalidToken
	ValidToken
)

func (s GuardState) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case InvalidToken:
		return "invalid_token"
	case ValidToken:
		return "valid_token"
	default:
		return "unknown"
	}
}

const defaultLookupTimeout = 2 * time.Second

type AuthMiddleware struct {
	tokens        TokenVerifier
	users         UserFinder
	loginPath     string
	lookupTimeout time.Duration
	log           *slog.Logger
	obs           GuardObserver
}

type noopGuardObserver struct{}

func (noopGuardObserver) ObserveGuard(string, string) {}

func NewAuthMiddleware(tokens TokenVerifier, users UserFinder, loginPath string, log *slog.Logger, obs GuardObserver) *AuthMiddleware {
	if loginPath == "" {
		loginPath = "/login"
	}
	if log == nil {
		log = slog.Default()
	}
	if obs == nil {
		obs = noopGuardObserver{}
	}

	return &AuthMiddleware{
		tokens:        tokens,
		users:         users,
		loginPath:     loginPath,
		lookupTimeout: defaultLookupTimeout,
		log:           log,
		obs:           obs,
	}
}

// Inspect classifies the request's session cookie. Expired and malformed
// tokens both come back as InvalidToken.
func (m *AuthMiddleware) Inspect(c *gin.Context) (GuardState, string) {
	raw := auth.Read(c.Request)
	if raw == "" {
		return NoToken, ""
	}

	subject, err := m.tokens.Verify(raw)
	if err != nil {
		m.log.DebugContext(c.Request.Context(), "session token rejected", "path", c.Request.URL.Path, "err", err)
		return InvalidToken, ""
	}

	return ValidToken, subject
}

// RequireAuth lets a request through only with a valid session token and
// redirects everything else to the login page.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, subject := m.Inspect(c)
		m.obs.ObserveGuard("require_auth", state.String())

		if state != ValidToken {
			c.Redirect(http.StatusFound, m.loginPath)
			c.Abort()
			return
		}

		// Stash the verified subject on both contexts
		c.Set(ctxUserIDKey, subject)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), subject))

		c.Next()
	}
}

// CheckIfUser never blocks a request. It resolves the user behind a valid
// token and records nil for anonymous requests or failed lookups.
func (m *AuthMiddleware) CheckIfUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, subject := m.Inspect(c)
		m.obs.ObserveGuard("check_if_user", state.String())

		if state != ValidToken {
			c.Set(ctxUserKey, (*user.User)(nil))
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), m.lookupTimeout)
		u, err := m.users.FindByID(ctx, subject)
		cancel()

		if err != nil {
			m.log.DebugContext(c.Request.Context(), "session user not resolved", "user_id", subject, "err", err)
			c.Set(ctxUserKey, (*user.User)(nil))
			c.Next()
			return
		}

		c.Set(ctxUserKey, &u)
		c.Set(ctxUserIDKey, u.ID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// UserFromContext returns the user CheckIfUser resolved, or nil.
func UserFromContext(c *gin.Context) *user.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}
