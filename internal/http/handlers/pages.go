package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Page handlers answer with small JSON bodies where the site renders
// templates.

// Welcome is served behind CheckIfUser; user is null for anonymous visitors.
func (h *AuthHandler) Welcome(ctx *gin.Context) {
	respondUserJSON(ctx, gin.H{"user": middlewares.UserFromContext(ctx)})
}

// Home is served behind RequireAuth.
func (h *AuthHandler) Home(ctx *gin.Context) {
	subject, _ := middlewares.UserIDFromContext(ctx)

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.accounts.User(cctx, subject)
	if err != nil {
		h.respondAccountsError(ctx, err)
		return
	}

	respondUserJSON(ctx, gin.H{"user": u})
}

func (h *AuthHandler) LoginPage(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"page": "login"})
}

func (h *AuthHandler) SignUpPage(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"page": "signup"})
}
