package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore writes audit entries to admin_audit_log.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a PostgresStore over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, e Entry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("audit: store not configured")
	}
	var meta []byte
	if len(e.Metadata) > 0 {
		meta = e.Metadata
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_audit_log
			(actor_id, actor_email, action, resource, resource_id, method, path, status, ip, user_agent, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		nullable(e.ActorID), nullable(e.ActorEmail), e.Action, e.Resource, nullable(e.ResourceID),
		e.Method, e.Path, e.Status, nullable(e.IP), nullable(e.UserAgent), nullable(e.RequestID), meta,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("audit: store not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(actor_id, ''), COALESCE(actor_email, ''), action, resource,
		       COALESCE(resource_id, ''), method, path, status, COALESCE(ip, ''),
		       COALESCE(user_agent, ''), COALESCE(request_id, ''), metadata, created_at
		FROM admin_audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e    Entry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.Resource,
			&e.ResourceID, &e.Method, &e.Path, &e.Status, &e.IP,
			&e.UserAgent, &e.RequestID, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(meta) > 0 {
			e.Metadata = meta
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
