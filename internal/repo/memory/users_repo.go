package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo keeps users in process memory. Emails are unique under the same
// lock that inserts, so concurrent signups for one email leave one record.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // id -> user
	byEmail map[string]string    // normalized email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.items[id], nil
}

func (r *UsersRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Create(_ context.Context, in user.NewUser) (user.User, error) {
	now := time.Now().UTC()
	email := user.NormalizeEmail(in.Email)

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		Name:         in.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.items[u.ID] = u
	r.byEmail[email] = u.ID

	return u, nil
}

func (r *UsersRepo) UpdateProfileImage(_ context.Context, id, imageURL string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u.ProfileImageURL = imageURL
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
