package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/accounts"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const loginFailedMessage = "Email or password is incorrect."

// Accounts is the slice of accounts.Service the handlers drive.
type Accounts interface {
	SignUp(ctx context.Context, in accounts.SignUpInput) (accounts.Session, error)
	Login(ctx context.Context, in accounts.LoginInput) (accounts.Session, error)
	User(ctx context.Context, subject string) (user.User, error)
	UpdateProfileImage(ctx context.Context, subject, imageURL string) (user.User, error)
}

// SessionCookies writes and clears the session cookie.
type SessionCookies interface {
	Attach(w http.ResponseWriter, r *http.Request, token string)
	Clear(w http.ResponseWriter, r *http.Request)
}

type AuthHandler struct {
	accounts Accounts
	cookies  SessionCookies
	log      *slog.Logger
}

func NewAuthHandler(svc Accounts, cookies SessionCookies, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		accounts: svc,
		cookies:  cookies,
		log:      log,
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req accounts.SignUpInput

	if !BindJSON(ctx, &req) {
		return
	}

	// hashing dominates, so allow a little more than a lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	sess, err := h.accounts.SignUp(cctx, req)
	if err != nil {
		h.respondAccountsError(ctx, err)
		return
	}

	h.cookies.Attach(ctx.Writer, ctx.Request, sess.Token)

	ctx.JSON(http.StatusCreated, gin.H{"id": sess.UserID})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req accounts.LoginInput

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	sess, err := h.accounts.Login(cctx, req)
	if err != nil {
		h.respondAccountsError(ctx, err)
		return
	}

	h.cookies.Attach(ctx.Writer, ctx.Request, sess.Token)

	ctx.JSON(http.StatusOK, gin.H{"id": sess.UserID})
}

// SignOut drops the session cookie. The token itself stays valid until it
// expires.
func (h *AuthHandler) SignOut(ctx *gin.Context) {
	h.cookies.Clear(ctx.Writer, ctx.Request)
	ctx.Redirect(http.StatusFound, "/")
}

// respondAccountsError is the single place workflow errors become HTTP
// responses. Internal causes are logged by the workflow and never echoed.
func (h *AuthHandler) respondAccountsError(ctx *gin.Context, err error) {
	var validationErr *accounts.ValidationError

	switch {
	case errors.As(err, &validationErr):
		RespondValidation(ctx, validationErr.Fields)
	case errors.Is(err, accounts.ErrDuplicateEmail):
		RespondConflict(ctx, "email_taken", "Email already exists")
	case errors.Is(err, accounts.ErrUnknownEmail), errors.Is(err, accounts.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "invalid_credentials", loginFailedMessage)
	case errors.Is(err, accounts.ErrUnauthorized):
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
	case errors.Is(err, accounts.ErrNoFileProvided):
		RespondBadRequest(ctx, "no_file", "No file uploaded")
	default:
		h.log.ErrorContext(ctx.Request.Context(), "request failed",
			"route", ctx.FullPath(),
			"err", err,
		)
		RespondInternal(ctx, "Something went wrong")
	}
}
