package repository

import (
	"context"
	"database/sql"
	"errors"

	"beacon-attendance/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = `id, user_id, org_id, role, status, created_at`

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND org_id = $2`,
		userID, orgID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembershipsByOrg returns all memberships for the given org. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE org_id = $1 ORDER BY created_at`,
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		var role, status string
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &status, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		m.Status = domain.Status(status)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CreateMembership persists the membership to the database. The membership must have ID set.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, org_id, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.UserID, m.OrgID, string(m.Role), string(m.Status), m.CreatedAt)
	return err
}

// UpdateStatus sets the membership status for the given user and org.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, userID, orgID string, status domain.Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET status = $3 WHERE user_id = $1 AND org_id = $2`,
		userID, orgID, string(status))
	return err
}

func scanMembership(row *sql.Row) (*domain.Membership, error) {
	var m domain.Membership
	var role, status string
	err := row.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	m.Status = domain.Status(status)
	return &m, nil
}
