package handlers

import (
	"net/http"

	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/validation"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

type ValidationErrors struct {
	Errors    []validation.FieldError `json:"errors"`
	Code      string                  `json:"code"`
	RequestID string                  `json:"requestId,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string) {
	ctx.JSON(status, APIError{
		Error:     message,
		Code:      code,
		RequestID: requestIDFrom(ctx),
	})
}

func RespondValidation(ctx *gin.Context, fields []validation.FieldError) {
	ctx.JSON(http.StatusBadRequest, ValidationErrors{
		Errors:    fields,
		Code:      "invalid_request",
		RequestID: requestIDFrom(ctx),
	})
}

func RespondBadRequest(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusBadRequest, code, message)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message)
}
