package repository

import (
	"context"
	"database/sql"
	"errors"

	"beacon-attendance/backend/internal/attendance/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an attendance repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, session_id, session_token, org_id, member_id, method, recorded_at`

// Record inserts the record; the UNIQUE(session_id, member_id) constraint makes
// the insert a no-op when the member already checked in. The stored row is
// fetched afterwards so callers always see the first check-in's timestamp.
func (r *PostgresRepository) Record(ctx context.Context, rec *domain.Record) (*domain.Record, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, session_id, session_token, org_id, member_id, method, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, member_id) DO NOTHING
	`, rec.ID, rec.SessionID, rec.SessionToken, rec.OrgID, rec.MemberID, rec.Method, rec.RecordedAt)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	stored, err := r.GetBySessionAndMember(ctx, rec.SessionID, rec.MemberID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, errors.New("attendance record missing after insert")
	}
	return stored, n > 0, nil
}

// GetBySessionAndMember returns the record for the pair, or nil if not found.
func (r *PostgresRepository) GetBySessionAndMember(ctx context.Context, sessionID, memberID string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE session_id = $1 AND member_id = $2
	`, sessionID, memberID)
	var rec domain.Record
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.SessionToken, &rec.OrgID, &rec.MemberID, &rec.Method, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// CountBySession returns how many members have checked in to the session.
func (r *PostgresRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records WHERE session_id = $1
	`, sessionID).Scan(&n)
	return n, err
}
