package accounts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/authhub/internal/validation"
)

// Caller-facing failures. Internal failures (ErrStore, ErrHash,
// ErrTokenSigning) wrap their cause and are rendered with a generic message.
var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrUnknownEmail       = errors.New("unknown email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNoFileProvided     = errors.New("no file provided")

	ErrStore        = errors.New("user store failure")
	ErrHash         = errors.New("password hashing failure")
	ErrTokenSigning = errors.New("token signing failure")
)

// ValidationError lists every field that failed input validation.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+" "+f.Message)
	}

	return "invalid input: " + strings.Join(names, "; ")
}

func wrap(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
