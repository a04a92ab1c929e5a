package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/linkpulse/linkpulse/internal/errx"
	"github.com/linkpulse/linkpulse/internal/idgen"
)

// db is an internal interface satisfied by *pgxpool.Pool.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repo struct {
	db  db
	ids idgen.Generator
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository creates a new Repository implementation
func NewRepository(db db, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		db:  db,
		ids: config.IDGenerator,
	}
}

const userColumns = "id, name, email, password_hash, role, total_clicks, unique_country_count, created_at, updated_at"

func isEmailUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "users_email_unique"
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isEmailUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		user      User
	)

	err := row.Scan(&id, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.TotalClicks, &user.UniqueCountryCount, &createdAt, &updatedAt)
	if err != nil {
		return User{}, err
	}

	user.ID = uuid.UUID(id.Bytes)

	if user.CreatedAt, err = mustTime(createdAt, "created_at"); err != nil {
		return User{}, err
	}
	if user.UpdatedAt, err = mustTime(updatedAt, "updated_at"); err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *repo) CreateUser(ctx context.Context, user User) (User, error) {
	const op = "auth.repo.CreateUser"

	if user.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return User{}, errx.E(op, errx.Unavailable, err)
		}
		user.ID = id
	}
	if user.Role == "" {
		user.Role = DefaultRole
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		pgtype.UUID{Bytes: user.ID, Valid: true}, user.Name, user.Email,
		user.PasswordHash, user.Role,
	)

	created, err := scanUser(row)
	if err != nil {
		return User{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "auth.repo.GetUserByEmail"

	row := r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)

	user, err := scanUser(row)
	if err != nil {
		return User{}, mapRepoError(op, err)
	}
	return user, nil
}
