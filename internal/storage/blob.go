// Package storage uploads profile images to object storage and hands back a
// stable URL for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const profileFolder = "user_profiles"

var (
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrUpload           = errors.New("blob upload failed")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var allowedMIME = []string{"image/jpeg", "image/png"}

var whitespace = regexp.MustCompile(`\s+`)

// BlobStore persists an object and returns the URL it can be fetched from.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// ProfileImageKey names an upload the way the profile folder expects:
// "<unix ms>-<original name with whitespace runs replaced by _>".
func ProfileImageKey(now time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")

	return profileFolder + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + name
}

// SniffImage checks both the filename extension and the leading bytes of f
// against the jpg/jpeg/png allow-list and rewinds f. It returns the detected
// content type.
func SniffImage(filename string, f io.ReadSeeker) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedImage, ext)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if !mimetype.EqualsAny(mt.String(), allowedMIME...) {
		return "", fmt.Errorf("%w: content %s", ErrUnsupportedImage, mt.String())
	}

	return mt.String(), nil
}
