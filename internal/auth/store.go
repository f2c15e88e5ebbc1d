package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/kodeit-calculator/internal/platform/database"
)

var (
	// ErrUserNotFound is returned when no admin matches the lookup.
	ErrUserNotFound = errors.New("auth: admin user not found")
	// ErrEmailTaken is returned when creating an admin whose email exists.
	ErrEmailTaken = errors.New("auth: email already exists")
	// ErrStoreUnavailable indicates the store dependency is not configured.
	ErrStoreUnavailable = errors.New("auth: store unavailable")
)

// User is the admin account as returned to clients.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is a User together with its password hash.
type Account struct {
	User
	PasswordHash string
}

// Store provides database accessors for admin accounts.
type Store interface {
	Create(ctx context.Context, acc Account) (User, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context) ([]User, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// NewPostgresStore constructs a Store backed by the admin_users table.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// PostgresStore implements Store with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, role, is_active, created_at, updated_at`

// Create inserts the account. Emails are stored lower-cased.
func (s *PostgresStore) Create(ctx context.Context, acc Account) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, ErrStoreUnavailable
	}
	id := uuid.New()
	if parsed, err := uuid.Parse(acc.ID); err == nil {
		id = parsed
	}
	var u User
	var rowID uuid.UUID
	err := s.pool.QueryRow(ctx, `INSERT INTO admin_users (id, email, password, role, is_active)
VALUES ($1, $2, $3, $4, $5) RETURNING `+userColumns,
		id, normalizeEmail(acc.Email), acc.PasswordHash, acc.Role, acc.IsActive,
	).Scan(&rowID, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create admin user: %w", err)
	}
	u.ID = rowID.String()
	return u, nil
}

// GetByEmail loads the account with its password hash.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	if s == nil || s.pool == nil {
		return Account{}, ErrStoreUnavailable
	}
	var acc Account
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT `+userColumns+`, password FROM admin_users WHERE email = $1`, normalizeEmail(email)).
		Scan(&id, &acc.Email, &acc.Role, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt, &acc.PasswordHash)
	if err != nil {
		if database.IsNoRows(err) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("get admin user by email: %w", err)
	}
	acc.ID = id.String()
	return acc, nil
}

// GetByID loads a user by id. Malformed ids are reported as not found.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, ErrStoreUnavailable
	}
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return User{}, ErrUserNotFound
	}
	var u User
	err = s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM admin_users WHERE id = $1`, uid).
		Scan(&uid, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get admin user: %w", err)
	}
	u.ID = uid.String()
	return u, nil
}

// List returns every admin ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM admin_users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		var id uuid.UUID
		if err := rows.Scan(&id, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.ID = id.String()
		users = append(users, u)
	}
	return users, rows.Err()
}

// Deactivate clears the is_active flag.
func (s *PostgresStore) Deactivate(ctx context.Context, id string) error {
	return s.execByID(ctx, `UPDATE admin_users SET is_active = false, updated_at = now() WHERE id = $1`, id)
}

// Delete removes the account.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return s.execByID(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
}

// UpdatePassword replaces the stored hash.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.execByID(ctx, `UPDATE admin_users SET password = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (s *PostgresStore) execByID(ctx context.Context, sql, id string, args ...any) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ErrUserNotFound
	}
	tag, err := s.pool.Exec(ctx, sql, append([]any{uid}, args...)...)
	if err != nil {
		return fmt.Errorf("admin user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
