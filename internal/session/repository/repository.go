package repository

import (
	"context"
	"time"

	"beacon-attendance/backend/internal/session/domain"
)

// Repository defines persistence for attendance sessions.
type Repository interface {
	// CreateGuarded inserts the session unless another session with the same
	// token is still active at insert time. Returns inserted=false when the
	// guard rejected the row; the caller should regenerate the token and retry.
	CreateGuarded(ctx context.Context, s *domain.Session) (inserted bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetLatestByToken returns the most recently created session for the
	// token regardless of expiry, or nil if no session ever used it.
	GetLatestByToken(ctx context.Context, token string) (*domain.Session, error)
	// ListActiveTokens returns the tokens of every session, in any org, whose
	// ends_at is after now. Used to exclude live tokens from generation.
	ListActiveTokens(ctx context.Context, now time.Time) ([]string, error)
	ListActiveByOrg(ctx context.Context, orgID string, now time.Time) ([]*domain.Session, error)
	// End sets ends_at to now for the session if it belongs to orgID and is
	// still active. Returns false when no row matched.
	End(ctx context.Context, sessionID, orgID string, now time.Time) (bool, error)
}
