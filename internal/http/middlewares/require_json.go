package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireContentType rejects POST/PUT/PATCH requests whose Content-Type is not
// one of allowed (parameters such as charset are ignored).
func RequireContentType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Type")))
			mediaType, _, _ := strings.Cut(ct, ";")

			for _, a := range allowed {
				if strings.TrimSpace(mediaType) == a {
					c.Next()
					return
				}
			}

			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "Content-Type must be one of: " + strings.Join(allowed, ", "),
				"code":  "unsupported_media_type",
			})
			return
		}
		c.Next()
	}
}

func RequireJSON() gin.HandlerFunc {
	return RequireContentType("application/json")
}
