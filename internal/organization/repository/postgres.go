package repository

import (
	"context"
	"database/sql"
	"errors"

	"beacon-attendance/backend/internal/organization/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orgColumns = `id, slug, name, org_code, status, created_at`

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM orgs WHERE id = $1`, id)
	return scanOrg(row)
}

// GetBySlug returns the organization for slug, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM orgs WHERE slug = $1`, slug)
	return scanOrg(row)
}

// Create persists the organization. The org must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orgs (id, slug, name, org_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID, o.Slug, o.Name, int32(o.OrgCode), string(o.Status), o.CreatedAt)
	return err
}

func scanOrg(row *sql.Row) (*domain.Org, error) {
	var o domain.Org
	var code int32
	var status string
	err := row.Scan(&o.ID, &o.Slug, &o.Name, &code, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.OrgCode = uint16(code)
	o.Status = domain.OrgStatus(status)
	return &o, nil
}
