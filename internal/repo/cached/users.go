// Package cached puts a short-lived, process-local read-through cache in front
// of the user store for id lookups, which the annotating guard performs on
// every request.
package cached

import (
	"context"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type Store interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, in user.NewUser) (user.User, error)
	UpdateProfileImage(ctx context.Context, id, imageURL string) (user.User, error)
}

type UsersRepo struct {
	next Store
	byID *cache.Cache[string, user.User]
}

func NewUsersRepo(next Store, ttl time.Duration) *UsersRepo {
	return &UsersRepo{
		next: next,
		byID: cache.New[string, user.User](ttl),
	}
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	if u, ok := r.byID.Get(id); ok {
		return u, nil
	}

	u, err := r.next.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	r.byID.Set(id, u)
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	return r.next.Create(ctx, in)
}

func (r *UsersRepo) UpdateProfileImage(ctx context.Context, id, imageURL string) (user.User, error) {
	u, err := r.next.UpdateProfileImage(ctx, id, imageURL)
	if err != nil {
		r.byID.Delete(id)
		return user.User{}, err
	}

	r.byID.Set(id, u)
	return u, nil
}
