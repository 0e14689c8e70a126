package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// respondUserJSON writes a per-user payload with a strong ETag so a browser
// revalidating /home or / gets 304 while the record is unchanged. The body
// depends on the session cookie, so it is never shared between users.
func respondUserJSON(ctx *gin.Context, payload interface{}) {
	ctx.Header("Cache-Control", "private, no-cache")
	ctx.Header("Vary", "Cookie")

	b, err := json.Marshal(payload)
	if err != nil {
		ctx.JSON(http.StatusOK, payload)
		return
	}

	sum := sha256.Sum256(b)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	ctx.Header("ETag", etag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" {
		return false
	}

	if headerValue == "*" {
		return true
	}

	for _, part := range strings.Split(headerValue, ",") {
		// weak comparison, W/"abc" matches "abc"
		if strings.TrimPrefix(strings.TrimSpace(part), "W/") == currentETag {
			return true
		}
	}

	return false
}
