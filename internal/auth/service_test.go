package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse/internal/errx"
)

/***************
 * Mocks
 ***************/

// mockRepository implements Repository interface for testing.
type mockRepository struct {
	createUserFunc     func(ctx context.Context, user User) (User, error)
	getUserByEmailFunc func(ctx context.Context, email string) (User, error)
}

func (m *mockRepository) CreateUser(ctx context.Context, user User) (User, error) {
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, user)
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return user, nil
}

func (m *mockRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if m.getUserByEmailFunc != nil {
		return m.getUserByEmailFunc(ctx, email)
	}
	return User{}, errx.E("repo.GetUserByEmail", errx.NotFound, errors.New("not found"))
}

func newTestService(repo Repository) Service {
	return NewService(repo, NewTokenManager(testSecret, time.Hour))
}

/***************
 * Register Tests
 ***************/

func TestService_Register(t *testing.T) {
	t.Run("creates user with hashed password and default role", func(t *testing.T) {
		var persisted User
		repo := &mockRepository{
			createUserFunc: func(ctx context.Context, user User) (User, error) {
				persisted = user
				user.ID = uuid.New()
				return user, nil
			},
		}
		svc := newTestService(repo)

		user, err := svc.Register(context.Background(), RegisterRequest{
			Name:     "Ada",
			Email:    "Ada@Example.com",
			Password: "supersecret",
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if user.ID == uuid.Nil {
			t.Error("ID is nil, want assigned")
		}
		if persisted.Email != "ada@example.com" {
			t.Errorf("stored email = %q, want normalized %q", persisted.Email, "ada@example.com")
		}
		if persisted.Role != DefaultRole {
			t.Errorf("Role = %q, want %q", persisted.Role, DefaultRole)
		}
		if persisted.PasswordHash == "supersecret" || persisted.PasswordHash == "" {
			t.Error("password was not hashed")
		}
		if !VerifyPassword(persisted.PasswordHash, "supersecret") {
			t.Error("stored hash does not verify the password")
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name string
			req  RegisterRequest
		}{
			{"missing name", RegisterRequest{Email: "a@example.com", Password: "supersecret"}},
			{"missing email", RegisterRequest{Name: "Ada", Password: "supersecret"}},
			{"malformed email", RegisterRequest{Name: "Ada", Email: "not-an-email", Password: "supersecret"}},
			{"short password", RegisterRequest{Name: "Ada", Email: "a@example.com", Password: "short"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := newTestService(&mockRepository{})
				_, err := svc.Register(context.Background(), tt.req)
				if errx.KindOf(err) != errx.Invalid {
					t.Errorf("error kind = %v, want Invalid", errx.KindOf(err))
				}
			})
		}
	})

	t.Run("duplicate email reports conflict", func(t *testing.T) {
		repo := &mockRepository{
			getUserByEmailFunc: func(ctx context.Context, email string) (User, error) {
				return User{ID: uuid.New(), Email: email}, nil
			},
		}
		svc := newTestService(repo)

		_, err := svc.Register(context.Background(), RegisterRequest{
			Name:     "Ada",
			Email:    "a@example.com",
			Password: "supersecret",
		})
		if errx.KindOf(err) != errx.Conflict {
			t.Errorf("error kind = %v, want Conflict", errx.KindOf(err))
		}
		if !strings.Contains(err.Error(), "already registered") {
			t.Errorf("error %q does not mention duplicate email", err.Error())
		}
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		repo := &mockRepository{
			getUserByEmailFunc: func(ctx context.Context, email string) (User, error) {
				return User{}, errx.E("repo.GetUserByEmail", errx.Unavailable, errors.New("connection refused"))
			},
		}
		svc := newTestService(repo)

		_, err := svc.Register(context.Background(), RegisterRequest{
			Name:     "Ada",
			Email:    "a@example.com",
			Password: "supersecret",
		})
		if errx.KindOf(err) != errx.Unavailable {
			t.Errorf("error kind = %v, want Unavailable", errx.KindOf(err))
		}
	})

	t.Run("lost unique race reports conflict", func(t *testing.T) {
		repo := &mockRepository{
			createUserFunc: func(ctx context.Context, user User) (User, error) {
				return User{}, errx.E("repo.CreateUser", errx.Conflict, errors.New("email already in use"))
			},
		}
		svc := newTestService(repo)

		_, err := svc.Register(context.Background(), RegisterRequest{
			Name:     "Ada",
			Email:    "a@example.com",
			Password: "supersecret",
		})
		if errx.KindOf(err) != errx.Conflict {
			t.Errorf("error kind = %v, want Conflict", errx.KindOf(err))
		}
	})
}

/***************
 * Login Tests
 ***************/

func TestService_Login(t *testing.T) {
	hash, err := HashPassword("supersecret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	stored := User{
		ID:           uuid.New(),
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: hash,
	}

	repoWithUser := func() *mockRepository {
		return &mockRepository{
			getUserByEmailFunc: func(ctx context.Context, email string) (User, error) {
				if email == stored.Email {
					return stored, nil
				}
				return User{}, errx.E("repo.GetUserByEmail", errx.NotFound, errors.New("not found"))
			},
		}
	}

	t.Run("returns a verifiable token", func(t *testing.T) {
		tm := NewTokenManager(testSecret, time.Hour)
		svc := NewService(repoWithUser(), tm)

		token, user, err := svc.Login(context.Background(), "ada@example.com", "supersecret")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.ID != stored.ID {
			t.Errorf("user.ID = %v, want %v", user.ID, stored.ID)
		}

		subject, err := tm.Parse(token)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if subject != stored.ID {
			t.Errorf("token subject = %v, want %v", subject, stored.ID)
		}
	})

	t.Run("normalizes the login email", func(t *testing.T) {
		svc := newTestService(repoWithUser())

		if _, _, err := svc.Login(context.Background(), "  Ada@Example.COM ", "supersecret"); err != nil {
			t.Errorf("Login() error = %v, want nil", err)
		}
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		svc := newTestService(repoWithUser())

		_, _, errUnknown := svc.Login(context.Background(), "nobody@example.com", "supersecret")
		_, _, errWrongPw := svc.Login(context.Background(), "ada@example.com", "wrong password")

		for _, err := range []error{errUnknown, errWrongPw} {
			if errx.KindOf(err) != errx.Unauthorized {
				t.Errorf("error kind = %v, want Unauthorized", errx.KindOf(err))
			}
		}
		if errUnknown.Error() != errWrongPw.Error() {
			t.Errorf("messages differ: %q vs %q", errUnknown.Error(), errWrongPw.Error())
		}
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		svc := newTestService(repoWithUser())

		if _, _, err := svc.Login(context.Background(), "", "supersecret"); errx.KindOf(err) != errx.Invalid {
			t.Errorf("empty email: error kind = %v, want Invalid", errx.KindOf(err))
		}
		if _, _, err := svc.Login(context.Background(), "ada@example.com", ""); errx.KindOf(err) != errx.Invalid {
			t.Errorf("empty password: error kind = %v, want Invalid", errx.KindOf(err))
		}
	})

	t.Run("store failure is not masked as bad credentials", func(t *testing.T) {
		repo := &mockRepository{
			getUserByEmailFunc: func(ctx context.Context, email string) (User, error) {
				return User{}, errx.E("repo.GetUserByEmail", errx.Unavailable, errors.New("connection refused"))
			},
		}
		svc := newTestService(repo)

		_, _, err := svc.Login(context.Background(), "ada@example.com", "supersecret")
		if errx.KindOf(err) != errx.Unavailable {
			t.Errorf("error kind = %v, want Unavailable", errx.KindOf(err))
		}
	})
}
