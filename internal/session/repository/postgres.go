package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"beacon-attendance/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, token, org_id, title, starts_at, ends_at, created_by, created_at`

// CreateGuarded inserts the session only if no other session with the same
// token is active. A transaction-scoped advisory lock on the token serializes
// concurrent creates of the same token, so the NOT EXISTS guard cannot be
// raced under READ COMMITTED. A plain UNIQUE index would be wrong here:
// expired tokens are reusable and every session row is kept as history.
func (r *PostgresRepository) CreateGuarded(ctx context.Context, s *domain.Session) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.Token); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_sessions (id, token, org_id, title, starts_at, ends_at, created_by, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM attendance_sessions
			WHERE token = $2 AND ends_at > now()
		)
	`, s.ID, s.Token, s.OrgID, s.Title, s.StartsAt, s.EndsAt, s.CreatedBy, s.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

// GetLatestByToken returns the most recent session for token regardless of
// expiry, or nil if the token was never used.
func (r *PostgresRepository) GetLatestByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE token = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, token)
	return scanSession(row)
}

// ListActiveTokens returns the tokens of all sessions active at now, across all orgs.
func (r *PostgresRepository) ListActiveTokens(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT token FROM attendance_sessions WHERE ends_at > $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// ListActiveByOrg returns the org's sessions active at now, newest first.
func (r *PostgresRepository) ListActiveByOrg(ctx context.Context, orgID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE org_id = $1 AND ends_at > $2
		ORDER BY created_at DESC
	`, orgID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.Token, &s.OrgID, &s.Title, &s.StartsAt, &s.EndsAt, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// End closes the session early by setting ends_at to now. Only an active
// session belonging to orgID matches; rows are never deleted.
func (r *PostgresRepository) End(ctx context.Context, sessionID, orgID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET ends_at = $3
		WHERE id = $1 AND org_id = $2 AND ends_at > $3
	`, sessionID, orgID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.Token, &s.OrgID, &s.Title, &s.StartsAt, &s.EndsAt, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
