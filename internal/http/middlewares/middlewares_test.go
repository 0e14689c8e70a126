package middlewares_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var ctxID string

	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/", func(c *gin.Context) {
		ctxID, _ = actorctx.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	header := w.Header().Get("X-Request-Id")
	if header == "" || header != ctxID {
		t.Fatalf("header %q and context %q should match and be non-empty", header, ctxID)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "given-id" {
		t.Fatalf("incoming request id not kept, got %q", got)
	}
}

func TestRequestLogger_LogsRedirects(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(middlewares.RequestLogger(log))
	r.GET("/home", func(c *gin.Context) { c.Redirect(http.StatusFound, "/login") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/home", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if rec["route"] != "/home" || rec["redirect"] != "/login" || rec["status"] != float64(http.StatusFound) {
		t.Fatalf("unexpected log record: %v", rec)
	}
}

func TestRequireContentType(t *testing.T) {
	r := gin.New()
	r.POST("/login", middlewares.RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		ct   string
		want int
	}{
		{"application/json", http.StatusOK},
		{"application/json; charset=utf-8", http.StatusOK},
		{"Application/JSON", http.StatusOK},
		{"text/plain", http.StatusUnsupportedMediaType},
		{"", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
		if tt.ct != "" {
			req.Header.Set("Content-Type", tt.ct)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Fatalf("content-type %q: got %d, want %d", tt.ct, w.Code, tt.want)
		}
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/upload", middlewares.MaxBodyBytes(4), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("too large")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want 413", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("ok")))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected headers over http: %v", w.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS over https")
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.CORSMiddleware([]string{"https://app.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("preflight: status=%d headers=%v", w.Code, w.Header())
	}
	if w.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("preflight max-age = %q, want 600", w.Header().Get("Access-Control-Max-Age"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials must be allowed for the session cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Expose-Headers") != "X-Request-Id" {
		t.Fatalf("simple request: status=%d headers=%v", w.Code, w.Header())
	}
	if w.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatalf("allow-methods belongs on preflight responses only")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin must not be echoed")
	}
	if w.Header().Get("Vary") != "Origin" {
		t.Fatalf("vary = %q, want Origin", w.Header().Get("Vary"))
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown-origin preflight: status=%d headers=%v", w.Code, w.Header())
	}
}
