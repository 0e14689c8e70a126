package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const corsPreflightMaxAge = 10 * time.Minute

// CORSMiddleware echoes allowed origins with credentials enabled, since the
// session travels as a cookie. A preflight from any other origin is refused
// before it reaches the signup or login handlers.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	maxAge := strconv.Itoa(int(corsPreflightMaxAge.Seconds()))

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin == "" {
			ctx.Next()
			return
		}

		// responses differ per origin, so caches must key on it
		ctx.Header("Vary", "Origin")

		_, ok := allowed[origin]
		if !ok {
			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusForbidden)
				return
			}
			ctx.Next()
			return
		}

		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Expose-Headers", "X-Request-Id")

		if ctx.Request.Method == http.MethodOptions {
			ctx.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type,X-Request-Id")
			ctx.Header("Access-Control-Max-Age", maxAge)
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
