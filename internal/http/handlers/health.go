package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db       Pinger
	draining atomic.Bool
}

// create a new instance of the health handler; db may be nil when the
// service runs without Postgres
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Drain makes Readyz fail so load balancers stop routing here while the
// server finishes in-flight requests.
func (h *HealthHandler) Drain() {
	h.draining.Store(true)
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining.Load() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	if h.db != nil {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 500*time.Millisecond)
		defer cancel()

		if err := h.db.Ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db": "unreachable"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
