package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "jwt"

// CookiePolicy attaches and clears the session token as an HttpOnly,
// SameSite=Strict cookie. It holds no state beyond its settings.
type CookiePolicy struct {
	ttl         time.Duration
	forceSecure bool
	cookiePath  string
}

func NewCookiePolicy(ttl time.Duration, forceSecure bool) *CookiePolicy {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &CookiePolicy{
		ttl:         ttl,
		forceSecure: forceSecure,
		cookiePath:  "/",
	}
}

func (p *CookiePolicy) Attach(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     p.cookiePath,
		MaxAge:   int(p.ttl.Seconds()),
		HttpOnly: true,
		Secure:   p.secure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear overwrites the session cookie with an empty, already expired value.
func (p *CookiePolicy) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     p.cookiePath,
		MaxAge:   -1, // emitted as Max-Age=0
		HttpOnly: true,
		Secure:   p.secure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

// Read returns the session token, or "" when the request has none.
func Read(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(c.Value)
}

func (p *CookiePolicy) secure(r *http.Request) bool {
	if p.forceSecure {
		return true
	}

	if r == nil {
		return false
	}

	if r.TLS != nil {
		return true
	}

	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
