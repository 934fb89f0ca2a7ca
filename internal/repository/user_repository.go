package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/persistence"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"
	defaultListLimit  = 100
	maxListLimit      = 1000
	userColumns       = `id, username, email, first_name, last_name, password_hash, is_staff, is_superuser, is_active, date_joined, last_login, updated_at`
)

// UserRepository is the persistence provider for user accounts.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsWithUsername(ctx context.Context, username string) (bool, error)
	ExistsWithEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
}

// UserFilter defines paging for user listing.
type UserFilter struct {
	Limit  int
	Offset int
}

// Normalize clamps paging values into range.
func (f UserFilter) Normalize() UserFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type userRepository struct {
	db *persistence.Postgres
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db *persistence.Postgres) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) ExistsWithUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username)
}

func (r *userRepository) ExistsWithEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff, is_superuser, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, date_joined, updated_at`

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsStaff,
		user.IsSuperuser,
		user.IsActive,
	).Scan(&user.ID, &user.DateJoined, &user.UpdatedAt)
	if err != nil {
		return mapPgError("user insert", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at=NOW() WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	return r.findOne(ctx, query, args...)
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users
        SET username=$1, email=$2, first_name=$3, last_name=$4, password_hash=$5,
            is_staff=$6, is_superuser=$7, is_active=$8, updated_at=NOW()
        WHERE id=$9`

	if !validID(user.ID) {
		return domain.ErrUserNotFound
	}
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsStaff,
		user.IsSuperuser,
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return mapPgError("user save", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, `UPDATE users SET last_login=$1 WHERE id=$2`, at, id); err != nil {
		return mapPgError("user touch login", err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		mapped := mapPgError("user delete", err)
		if errors.Is(mapped, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	filter = filter.Normalize()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("user count: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY date_joined, username LIMIT $1 OFFSET $2`,
		filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	result := make([]domain.User, 0, filter.Limit)
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, 0, err
		}
		result = append(result, user)
	}
	return result, total, rows.Err()
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var user domain.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, query, args...), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var found bool
	if err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return found, nil
}

func scanUser(row pgx.Row, out *domain.User) error {
	if err := row.Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.PasswordHash,
		&out.IsStaff,
		&out.IsSuperuser,
		&out.IsActive,
		&out.DateJoined,
		&out.LastLogin,
		&out.UpdatedAt,
	); err != nil {
		return mapPgError("scan user", err)
	}
	return nil
}

// validID reports whether id can be bound to the uuid column. pgx rejects
// anything else client-side, before the server can answer 22P02.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// mapPgError translates driver errors into domain errors. Malformed UUIDs read as not found.
func mapPgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrUniqueViolation, pgErr.ConstraintName)
		case pgInvalidTextRepr:
			return domain.ErrUserNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
