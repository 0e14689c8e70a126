package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"` // never expose hash in JSON
	Name            string    `json:"name,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewUser carries the fields a store needs to create a record. The store
// assigns the id and timestamps.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
}

// NormalizeEmail is the single case policy for emails: trimmed and lower-cased
// before any store read or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
