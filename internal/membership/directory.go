// Package membership exposes the organization directory lookups the
// attendance protocol consumes.
package membership

import (
	"context"

	"beacon-attendance/backend/internal/membership/domain"
)

// Getter is the minimal repository surface the directory needs.
type Getter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// Directory answers the one question the attendance gate asks: does this user
// hold an active membership in this org? Only the status column matters; role
// and any other attribute of the org must not influence the answer.
type Directory struct {
	repo Getter
}

// NewDirectory returns a Directory backed by the given membership repository.
func NewDirectory(repo Getter) *Directory {
	return &Directory{repo: repo}
}

// IsActiveMember reports whether userID has an active membership in orgID.
// Returns an error only for lookup failures; a missing or inactive membership
// is (false, nil).
func (d *Directory) IsActiveMember(ctx context.Context, userID, orgID string) (bool, error) {
	m, err := d.repo.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	return m.IsActive(), nil
}
