package rbac

import (
	"context"
	"errors"
	"fmt"

	"beacon-attendance/backend/internal/membership/domain"
	"beacon-attendance/backend/internal/server/middleware"
)

var (
	// ErrUnauthenticated is returned when the caller's identity is missing from context.
	ErrUnauthenticated = errors.New("org and user context required")
	// ErrNotMember is returned when the caller has no active membership in the context org.
	ErrNotMember = errors.New("not an active member of this organization")
	// ErrNotOfficer is returned when the caller's role may not manage sessions.
	ErrNotOfficer = errors.New("role may not manage attendance sessions")
)

// OrgMembershipGetter resolves the membership linking a user to an org.
type OrgMembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// RequireOrgMember ensures the caller is authenticated and holds an active
// membership (any role) in the context org. Returns (orgID, userID, nil) on success.
func RequireOrgMember(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, err error) {
	orgID, userID, m, err := resolve(ctx, getter)
	if err != nil {
		return "", "", err
	}
	if !m.IsActive() {
		return "", "", ErrNotMember
	}
	return orgID, userID, nil
}

// RequireOrgOfficer ensures the caller is authenticated and holds an active
// owner or officer membership in the context org. Returns (orgID, userID, nil) on success.
func RequireOrgOfficer(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, err error) {
	orgID, userID, m, err := resolve(ctx, getter)
	if err != nil {
		return "", "", err
	}
	if !m.IsActive() {
		return "", "", ErrNotMember
	}
	if !m.CanManageSessions() {
		return "", "", ErrNotOfficer
	}
	return orgID, userID, nil
}

func resolve(ctx context.Context, getter OrgMembershipGetter) (orgID, userID string, m *domain.Membership, err error) {
	orgID, okOrg := middleware.GetOrgID(ctx)
	userID, okUser := middleware.GetUserID(ctx)
	if !okOrg || orgID == "" || !okUser || userID == "" {
		return "", "", nil, ErrUnauthenticated
	}
	m, err = getter.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return "", "", nil, fmt.Errorf("resolve membership: %w", err)
	}
	return orgID, userID, m, nil
}
