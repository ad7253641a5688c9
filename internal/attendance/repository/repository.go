package repository

import (
	"context"

	"beacon-attendance/backend/internal/attendance/domain"
)

// Repository defines persistence for attendance records.
type Repository interface {
	// Record inserts the record unless one already exists for the same
	// (session, member) pair. Returns inserted=false when the pair was
	// already recorded; the stored record is returned either way.
	Record(ctx context.Context, rec *domain.Record) (stored *domain.Record, inserted bool, err error)
	GetBySessionAndMember(ctx context.Context, sessionID, memberID string) (*domain.Record, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}
