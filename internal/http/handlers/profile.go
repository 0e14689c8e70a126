package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/storage"
	"github.com/gin-gonic/gin"
)

const profileImageField = "image"

type ProfileHandler struct {
	*AuthHandler
	blobs storage.BlobStore
	now   func() time.Time
}

func NewProfileHandler(auth *AuthHandler, blobs storage.BlobStore) *ProfileHandler {
	return &ProfileHandler{
		AuthHandler: auth,
		blobs:       blobs,
		now:         time.Now,
	}
}

// UpdateImage uploads the multipart "image" file and points the signed-in
// user's profile at it.
func (h *ProfileHandler) UpdateImage(ctx *gin.Context) {
	subject, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	header, err := ctx.FormFile(profileImageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
			return
		}

		RespondBadRequest(ctx, "no_file", "No file uploaded")
		return
	}

	file, err := header.Open()
	if err != nil {
		RespondBadRequest(ctx, "no_file", "No file uploaded")
		return
	}
	defer file.Close()

	contentType, err := storage.SniffImage(header.Filename, file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			RespondBadRequest(ctx, "unsupported_image", "Only jpg, jpeg and png images are allowed")
			return
		}

		RespondBadRequest(ctx, "no_file", "Uploaded file could not be read")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	key := storage.ProfileImageKey(h.now(), header.Filename)

	url, err := h.blobs.Put(cctx, key, contentType, file, header.Size)
	if err != nil {
		h.log.ErrorContext(cctx, "profile image upload failed", "user_id", subject, "key", key, "err", err)
		RespondError(ctx, http.StatusInternalServerError, "upload_failed", "Could not upload image")
		return
	}

	if _, err := h.accounts.UpdateProfileImage(cctx, subject, url); err != nil {
		h.respondAccountsError(ctx, err)
		return
	}

	ctx.Redirect(http.StatusFound, "/home")
}
