package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the slice of pgxpool.Pool the repositories use, small enough for
// pgxmock to stand in during tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBObserver records latency and error class per logical operation.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

const usersEmailUniqueConstraint = "users_email_key"

const userColumns = `id, email, password_hash, name, profile_image_url, created_at, updated_at`

type UsersRepo struct {
	db  DBTX
	obs DBObserver
}

func NewUsersRepo(db DBTX, obs DBObserver) *UsersRepo {
	if obs == nil {
		obs = noopObserver{}
	}

	return &UsersRepo{db: db, obs: obs}
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.find_by_email", func() error {
		row := r.db.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE email = $1`,
			user.NormalizeEmail(email),
		)

		return scanUser(row, &u)
	})

	if err != nil {
		return user.User{}, mapNoRows(err)
	}

	return u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	// ids are uuids; anything else cannot exist and would only produce a cast error
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err := r.obs.ObserveDB("users.find_by_id", func() error {
		row := r.db.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE id = $1`,
			id,
		)

		return scanUser(row, &u)
	})

	if err != nil {
		return user.User{}, mapNoRows(err)
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		Name:         in.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.obs.ObserveDB("users.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, profile_image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.ProfileImageURL, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == usersEmailUniqueConstraint {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfileImage(ctx context.Context, id, imageURL string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err := r.obs.ObserveDB("users.update_profile_image", func() error {
		row := r.db.QueryRow(ctx, `
		UPDATE users
		SET profile_image_url = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns,
			id, imageURL, time.Now().UTC(),
		)

		return scanUser(row, &u)
	})

	if err != nil {
		return user.User{}, mapNoRows(err)
	}

	return u, nil
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.ProfileImageURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}

	return err
}
