package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/accounts"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/validation"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// Fake implementation of the handlers.Accounts interface

type fakeAccounts struct {
	signUpFn func(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error)
	loginFn  func(ctx context.Context, in accounts.LoginInput) (accounts.Session, error)
	userFn   func(ctx context.Context, subject string) (user.User, error)
	updateFn func(ctx context.Context, subject, imageURL string) (user.User, error)
}

func (f *fakeAccounts) SignUp(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error) {
	if f.signUpFn != nil {
		return f.signUpFn(ctx, in)
	}
	return accounts.Session{}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, in accounts.LoginInput) (accounts.Session, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, in)
	}
	return accounts.Session{}, nil
}

func (f *fakeAccounts) User(ctx context.Context, subject string) (user.User, error) {
	if f.userFn != nil {
		return f.userFn(ctx, subject)
	}
	return user.User{}, nil
}

func (f *fakeAccounts) UpdateProfileImage(ctx context.Context, subject, imageURL string) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, subject, imageURL)
	}
	return user.User{}, nil
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignUpHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		signUpFn   func(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error)
		wantStatus int
		wantCookie bool
		wantError  string
	}{
		{
			name: "created",
			body: `{"email":"a@x.com","password":"Secret123"}`,
			signUpFn: func(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error) {
				if in.Email != "a@x.com" || in.Password != "Secret123" {
					t.Fatalf("unexpected input: %+v", in)
				}
				return accounts.Session{UserID: "u1", Token: "tok"}, nil
			},
			wantStatus: http.StatusCreated,
			wantCookie: true,
		},
		{
			name: "validation",
			body: `{"email":"nope","password":"short"}`,
			signUpFn: func(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error) {
				return accounts.Session{}, &accounts.ValidationError{Fields: []validation.FieldError{
					{Field: "email", Rule: "email", Message: "must be a valid email address"},
				}}
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate",
			body: `{"email":"a@x.com","password":"Secret123"}`,
			signUpFn: func(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error) {
				return accounts.Session{}, accounts.ErrDuplicateEmail
			},
			wantStatus: http.StatusConflict,
			wantError:  "Email already exists",
		},
		{
			name: "store_failure_is_generic",
			body: `{"email":"a@x.com","password":"Secret123"}`,
			signUpFn: func(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error) {
				return accounts.Session{}, fmt.Errorf("%w: %w", accounts.ErrStore, errors.New("pq: relation users does not exist"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(&fakeAccounts{signUpFn: tt.signUpFn}, auth.NewCookiePolicy(time.Hour, false), quietLog)

			r := gin.New()
			r.POST("/signup", h.SignUp)

			w := postJSON(r, "/signup", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := sessionCookie(w) != nil; got != tt.wantCookie {
				t.Fatalf("cookie set=%v, want %v", got, tt.wantCookie)
			}
			if strings.Contains(w.Body.String(), "pq:") {
				t.Fatalf("internal cause leaked: %s", w.Body.String())
			}

			if tt.wantError != "" {
				var resp handlers.APIError
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if resp.Error != tt.wantError {
					t.Fatalf("got error %q, want %q", resp.Error, tt.wantError)
				}
			}
		})
	}
}

func TestLoginHandler_FailuresAreUniform(t *testing.T) {
	for _, failure := range []error{accounts.ErrUnknownEmail, accounts.ErrInvalidCredentials} {
		h := handlers.NewAuthHandler(&fakeAccounts{
			loginFn: func(ctx context.Context, in accounts.LoginInput) (accounts.Session, error) {
				return accounts.Session{}, failure
			},
		}, auth.NewCookiePolicy(time.Hour, false), quietLog)

		r := gin.New()
		r.POST("/login", h.Login)

		w := postJSON(r, "/login", `{"email":"a@x.com","password":"wrong"}`)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%v: got status %d, want 401", failure, w.Code)
		}
		if sessionCookie(w) != nil {
			t.Fatalf("%v: failed login must not set a cookie", failure)
		}

		var resp handlers.APIError
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Error != "Email or password is incorrect." || resp.Code != "invalid_credentials" {
			t.Fatalf("%v: unexpected body %+v", failure, resp)
		}
	}
}

func TestSignOutHandler(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeAccounts{}, auth.NewCookiePolicy(time.Hour, false), quietLog)

	r := gin.New()
	r.GET("/signout", h.SignOut)

	req := httptest.NewRequest(http.MethodGet, "/signout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("got %d to %q", w.Code, w.Header().Get("Location"))
	}

	c := sessionCookie(w)
	if c == nil || c.Value != "" || c.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", c)
	}
}

// newStack wires the real workflow, token service and guards over the
// in-memory store.
func newStack(t *testing.T) (*gin.Engine, *memory.UsersRepo) {
	t.Helper()

	users := memory.NewUsersRepo()
	tokens := auth.NewManager("test-secret", 24*time.Hour)
	svc := accounts.NewService(users, security.NewHasher(bcrypt.MinCost), tokens, quietLog, nil)
	h := handlers.NewAuthHandler(svc, auth.NewCookiePolicy(tokens.TTL(), false), quietLog)
	guard := middlewares.NewAuthMiddleware(tokens, users, "/login", quietLog, nil)

	r := gin.New()
	r.POST("/signup", h.SignUp)
	r.POST("/login", h.Login)
	r.GET("/", guard.CheckIfUser(), h.Welcome)
	r.GET("/home", guard.RequireAuth(), h.Home)

	return r, users
}

func TestAuthScenario_SignUpLoginAndGuards(t *testing.T) {
	r, users := newStack(t)

	w := postJSON(r, "/signup", `{"email":"a@x.com","password":"Secret123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: got %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("signup body: %s", w.Body.String())
	}

	c := sessionCookie(w)
	if c == nil || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode || c.MaxAge != 86400 {
		t.Fatalf("unexpected session cookie: %+v", c)
	}

	stored, err := users.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.PasswordHash == "Secret123" || stored.PasswordHash == "" {
		t.Fatalf("password stored in clear")
	}
	if strings.Contains(w.Body.String(), stored.PasswordHash) {
		t.Fatalf("hash leaked in response")
	}

	w = postJSON(r, "/signup", `{"email":"A@X.com","password":"Other1234"}`)
	if w.Code != http.StatusConflict || users.Count() != 1 {
		t.Fatalf("duplicate signup: status %d, users %d", w.Code, users.Count())
	}

	w = postJSON(r, "/login", `{"email":"a@x.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized || sessionCookie(w) != nil {
		t.Fatalf("wrong password: status %d", w.Code)
	}

	w = postJSON(r, "/login", `{"email":"A@x.com","password":"Secret123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d, body=%s", w.Code, w.Body.String())
	}
	login := sessionCookie(w)
	if login == nil || login.Value == "" {
		t.Fatalf("login did not set a session cookie")
	}

	// guarded page without and with the cookie
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous /home: got %d to %q", w.Code, w.Header().Get("Location"))
	}

	req = httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(login)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"email":"a@x.com"`) {
		t.Fatalf("signed-in /home: got %d, body=%s", w.Code, w.Body.String())
	}

	// annotated page resolves the user, anonymous gets null
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(login)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), created.ID) {
		t.Fatalf("welcome did not resolve user: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"user":null}` {
		t.Fatalf("anonymous welcome: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthScenario_ValidationReportsFields(t *testing.T) {
	r, users := newStack(t)

	w := postJSON(r, "/signup", `{"email":"not-an-email","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, body=%s", w.Code, w.Body.String())
	}

	var resp handlers.ValidationErrors
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	found := map[string]string{}
	for _, f := range resp.Errors {
		found[f.Field] = f.Rule
	}
	if found["email"] != "email" || found["password"] != "min" {
		t.Fatalf("unexpected field errors: %+v", resp.Errors)
	}
	if users.Count() != 0 {
		t.Fatalf("invalid signup created a user")
	}
}

func TestHome_ETagRevalidation(t *testing.T) {
	r, _ := newStack(t)

	w := postJSON(r, "/signup", `{"email":"a@x.com","password":"Secret123"}`)
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatalf("signup did not set a cookie: %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag == "" {
		t.Fatalf("first /home: %d etag=%q", w.Code, etag)
	}
	if w.Header().Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("per-user page must not be publicly cacheable")
	}

	req = httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	req.Header.Set("If-None-Match", "W/"+etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("revalidation: %d %q", w.Code, w.Body.String())
	}
}
