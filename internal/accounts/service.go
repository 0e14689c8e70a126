// Package accounts holds the signup, login and profile-image workflows. It
// owns the translation of store, hasher and token failures into the error
// taxonomy in errors.go; handlers only map those errors to responses.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/validation"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, in user.NewUser) (user.User, error)
	UpdateProfileImage(ctx context.Context, id, imageURL string) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
}

// OutcomeRecorder counts workflow results, e.g. ("login", "invalid_credentials").
type OutcomeRecorder interface {
	ObserveAuth(op, result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAuth(string, string) {}

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful signup or login hands back to the transport.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	log      *slog.Logger
	outcomes OutcomeRecorder
}

func NewService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger, outcomes OutcomeRecorder) *Service {
	if log == nil {
		log = slog.Default()
	}
	if outcomes == nil {
		outcomes = noopRecorder{}
	}

	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		log:      log,
		outcomes: outcomes,
	}
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	in.Email = user.NormalizeEmail(in.Email)

	if err := validateInput(in); err != nil {
		s.outcomes.ObserveAuth("signup", "invalid")
		return Session{}, err
	}

	if len(in.Password) > maxPasswordBytes {
		s.outcomes.ObserveAuth("signup", "invalid")
		return Session{}, &ValidationError{Fields: []validation.FieldError{{
			Field:   "password",
			Rule:    "max",
			Param:   "72",
			Message: "must be at most 72 bytes",
		}}}
	}

	_, err := s.users.FindByEmail(ctx, in.Email)

	switch {
	case err == nil:
		s.outcomes.ObserveAuth("signup", "duplicate_email")
		return Session{}, ErrDuplicateEmail
	case !errors.Is(err, user.ErrNotFound):
		s.log.ErrorContext(ctx, "signup: user lookup failed", "err", err)
		s.outcomes.ObserveAuth("signup", "error")
		return Session{}, wrap(ErrStore, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.ErrorContext(ctx, "signup: password hashing failed", "err", err)
		s.outcomes.ObserveAuth("signup", "error")
		return Session{}, wrap(ErrHash, err)
	}

	created, err := s.users.Create(ctx, user.NewUser{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
	})

	if err != nil {
		// lost the race against a concurrent signup for the same email
		if errors.Is(err, user.ErrEmailTaken) {
			s.outcomes.ObserveAuth("signup", "duplicate_email")
			return Session{}, ErrDuplicateEmail
		}

		s.log.ErrorContext(ctx, "signup: create user failed", "err", err)
		s.outcomes.ObserveAuth("signup", "error")
		return Session{}, wrap(ErrStore, err)
	}

	sess, err := s.issue(ctx, created.ID)
	if err != nil {
		s.outcomes.ObserveAuth("signup", "error")
		return Session{}, err
	}

	s.log.InfoContext(ctx, "user signed up", "user_id", created.ID)
	s.outcomes.ObserveAuth("signup", "ok")

	return sess, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = user.NormalizeEmail(in.Email)

	if err := validateInput(in); err != nil {
		s.outcomes.ObserveAuth("login", "invalid")
		return Session{}, err
	}

	found, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.outcomes.ObserveAuth("login", "unknown_email")
			return Session{}, ErrUnknownEmail
		}

		s.log.ErrorContext(ctx, "login: user lookup failed", "err", err)
		s.outcomes.ObserveAuth("login", "error")
		return Session{}, wrap(ErrStore, err)
	}

	ok, err := s.hasher.Verify(in.Password, found.PasswordHash)
	if err != nil {
		s.log.ErrorContext(ctx, "login: stored hash unusable", "user_id", found.ID, "err", err)
		s.outcomes.ObserveAuth("login", "error")
		return Session{}, wrap(ErrHash, err)
	}

	if !ok {
		s.outcomes.ObserveAuth("login", "invalid_credentials")
		return Session{}, ErrInvalidCredentials
	}

	sess, err := s.issue(ctx, found.ID)
	if err != nil {
		s.outcomes.ObserveAuth("login", "error")
		return Session{}, err
	}

	s.outcomes.ObserveAuth("login", "ok")

	return sess, nil
}

// User resolves the record behind a verified session subject. A subject whose
// record no longer exists is ErrUnauthorized.
func (s *Service) User(ctx context.Context, subject string) (user.User, error) {
	if subject == "" {
		return user.User{}, ErrUnauthorized
	}

	u, err := s.users.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUnauthorized
		}

		s.log.ErrorContext(ctx, "user lookup failed", "user_id", subject, "err", err)
		return user.User{}, wrap(ErrStore, err)
	}

	return u, nil
}

// UpdateProfileImage points subject's profile image at an already uploaded
// blob. No other field is touched.
func (s *Service) UpdateProfileImage(ctx context.Context, subject, imageURL string) (user.User, error) {
	if subject == "" {
		return user.User{}, ErrUnauthorized
	}

	if imageURL == "" {
		return user.User{}, ErrNoFileProvided
	}

	u, err := s.users.UpdateProfileImage(ctx, subject, imageURL)
	if err != nil {
		s.log.ErrorContext(ctx, "profile image update failed", "user_id", subject, "err", err)
		return user.User{}, wrap(ErrStore, err)
	}

	return u, nil
}

func (s *Service) issue(ctx context.Context, userID string) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(userID)
	if err != nil {
		s.log.ErrorContext(ctx, "token signing failed", "user_id", userID, "err", err)
		return Session{}, wrap(ErrTokenSigning, err)
	}

	return Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func validateInput(in interface{}) error {
	fields, err := validation.Struct(in)
	if err != nil {
		return err
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}
