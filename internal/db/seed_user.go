package db

import (
	"context"
	"errors"

	"github.com/geocoder89/authhub/internal/domain/user"
)

type SeedStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, in user.NewUser) (user.User, error)
}

type SeedHasher interface {
	Hash(plain string) (string, error)
}

// EnsureSeedUser creates the configured account once. Missing credentials
// disable seeding; an existing account is left untouched.
func EnsureSeedUser(ctx context.Context, users SeedStore, hasher SeedHasher, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	// check if the user exists

	_, err := users.FindByEmail(ctx, email)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(password)

	if err != nil {
		return err
	}

	_, err = users.Create(ctx, user.NewUser{
		Email:        email,
		PasswordHash: hash,
		Name:         "seed",
	})

	// another instance seeded it first
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}

	return err
}
