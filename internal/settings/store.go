package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/kodeit-calculator/internal/platform/database"
)

// Store provides database accessors for admin settings.
type Store interface {
	GetByID(ctx context.Context, id string) (Setting, error)
	ListByType(ctx context.Context, settingType string) ([]Setting, error)
	Create(ctx context.Context, s Setting) (Setting, error)
	Update(ctx context.Context, id string, value json.RawMessage) (Setting, error)
	Upsert(ctx context.Context, s Setting) (Setting, error)
	Delete(ctx context.Context, id string) (Setting, error)
}

const settingColumns = `id, setting_type, setting_value, created_at, updated_at`

// NewPostgresStore constructs a Store backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// PostgresStore implements Store on the admin_settings table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (Setting, error) {
	var s Setting
	var value []byte
	if err := row.Scan(&s.ID, &s.Type, &value, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Setting{}, err
	}
	s.Value = json.RawMessage(value)
	return s, nil
}

// GetByID fetches a setting by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Setting, error) {
	if s == nil || s.pool == nil {
		return Setting{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT `+settingColumns+` FROM admin_settings WHERE id = $1`, id)
	setting, err := scanSetting(row)
	if err != nil {
		if database.IsNoRows(err) {
			return Setting{}, ErrNotFound
		}
		return Setting{}, fmt.Errorf("get setting %s: %w", id, err)
	}
	return setting, nil
}

// ListByType returns every setting of the given type ordered by id.
func (s *PostgresStore) ListByType(ctx context.Context, settingType string) ([]Setting, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT `+settingColumns+` FROM admin_settings WHERE setting_type = $1 ORDER BY id`, settingType)
	if err != nil {
		return nil, fmt.Errorf("list settings %s: %w", settingType, err)
	}
	defer rows.Close()

	out := make([]Setting, 0, 1)
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, setting)
	}
	return out, rows.Err()
}

// Create inserts a new setting. An existing id yields ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, in Setting) (Setting, error) {
	if s == nil || s.pool == nil {
		return Setting{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO admin_settings (id, setting_type, setting_value)
VALUES ($1, $2, $3) RETURNING `+settingColumns, in.ID, in.Type, []byte(in.Value))
	setting, err := scanSetting(row)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Setting{}, ErrConflict
		}
		return Setting{}, fmt.Errorf("create setting %s: %w", in.ID, err)
	}
	return setting, nil
}

// Update replaces the value of an existing setting and touches updated_at.
func (s *PostgresStore) Update(ctx context.Context, id string, value json.RawMessage) (Setting, error) {
	if s == nil || s.pool == nil {
		return Setting{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `UPDATE admin_settings SET setting_value = $2, updated_at = now()
WHERE id = $1 RETURNING `+settingColumns, id, []byte(value))
	setting, err := scanSetting(row)
	if err != nil {
		if database.IsNoRows(err) {
			return Setting{}, ErrNotFound
		}
		return Setting{}, fmt.Errorf("update setting %s: %w", id, err)
	}
	return setting, nil
}

// Upsert inserts the setting or replaces the value of the existing row.
func (s *PostgresStore) Upsert(ctx context.Context, in Setting) (Setting, error) {
	if s == nil || s.pool == nil {
		return Setting{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO admin_settings (id, setting_type, setting_value)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = now()
RETURNING `+settingColumns, in.ID, in.Type, []byte(in.Value))
	setting, err := scanSetting(row)
	if err != nil {
		return Setting{}, fmt.Errorf("upsert setting %s: %w", in.ID, err)
	}
	return setting, nil
}

// Delete removes a setting by id and returns the removed row.
func (s *PostgresStore) Delete(ctx context.Context, id string) (Setting, error) {
	if s == nil || s.pool == nil {
		return Setting{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `DELETE FROM admin_settings WHERE id = $1 RETURNING `+settingColumns, id)
	setting, err := scanSetting(row)
	if err != nil {
		if database.IsNoRows(err) {
			return Setting{}, ErrNotFound
		}
		return Setting{}, fmt.Errorf("delete setting %s: %w", id, err)
	}
	return setting, nil
}
