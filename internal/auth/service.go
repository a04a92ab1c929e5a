package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/linkpulse/linkpulse/internal/errx"
)

const MinPasswordLength = 8

// RegisterRequest represents the parameters for creating an account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Service defines the account operations: registration and credential
// login. Session resolution lives in the middleware, not here.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Login(ctx context.Context, email, password string) (string, User, error)
}

type service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService creates a new service instance.
func NewService(repo Repository, tokens *TokenManager) Service {
	return &service{
		repo:   repo,
		tokens: tokens,
	}
}

// Register creates a new account with a bcrypt-hashed password. The
// email-exists pre-check is a UX nicety; the store's unique constraint
// on email is what actually prevents duplicates.
func (s *service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	const op = "auth.service.Register"

	if err := validateRegistration(req); err != nil {
		return User{}, errx.E(op, errx.Invalid, err)
	}

	email := normalizeEmail(req.Email)

	_, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return User{}, errx.E(op, errx.Conflict, errors.New("email already registered"))
	case errx.KindOf(err) != errx.NotFound:
		return User{}, errx.E(op, errx.KindOf(err), err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return User{}, errx.E(op, errx.Internal, err)
	}

	created, err := s.repo.CreateUser(ctx, User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         DefaultRole,
	})
	if err != nil {
		return User{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

// Login verifies credentials and returns a signed session token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, email, password string) (string, User, error) {
	const op = "auth.service.Login"

	if email == "" || password == "" {
		return "", User{}, errx.E(op, errx.Invalid, errors.New("email and password are required"))
	}

	invalidCredentials := errx.E(op, errx.Unauthorized, errors.New("invalid email or password"))

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return "", User{}, invalidCredentials
		}
		return "", User{}, errx.E(op, errx.KindOf(err), err)
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return "", User{}, invalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", User{}, errx.E(op, errx.Internal, err)
	}
	return token, user, nil
}

func validateRegistration(req RegisterRequest) error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("invalid email address")
	}
	if len(req.Password) < MinPasswordLength {
		return errors.New("password too short (minimum 8 characters)")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
