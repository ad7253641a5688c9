package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"beacon-attendance/backend/internal/membership/domain"
)

type fakeGetter struct {
	m   map[string]*domain.Membership // key userID+"/"+orgID
	err error
}

func (f *fakeGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.m[userID+"/"+orgID], nil
}

func TestIsActiveMember(t *testing.T) {
	now := time.Now().UTC()
	getter := &fakeGetter{m: map[string]*domain.Membership{
		"u1/org-a": {ID: "m1", UserID: "u1", OrgID: "org-a", Role: domain.RoleMember, Status: domain.StatusActive, CreatedAt: now},
		"u2/org-a": {ID: "m2", UserID: "u2", OrgID: "org-a", Role: domain.RoleOwner, Status: domain.StatusInactive, CreatedAt: now},
		"u1/org-b": {ID: "m3", UserID: "u1", OrgID: "org-b", Role: domain.RoleOfficer, Status: domain.StatusActive, CreatedAt: now},
	}}
	dir := NewDirectory(getter)
	ctx := context.Background()

	testCases := []struct {
		name   string
		userID string
		orgID  string
		want   bool
	}{
		{"active member", "u1", "org-a", true},
		{"inactive membership does not count even for owners", "u2", "org-a", false},
		{"no membership row", "u3", "org-a", false},
		{"membership in another org is irrelevant", "u2", "org-b", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dir.IsActiveMember(ctx, tc.userID, tc.orgID)
			if err != nil {
				t.Fatalf("IsActiveMember: %v", err)
			}
			if got != tc.want {
				t.Errorf("IsActiveMember(%s, %s) = %v, want %v", tc.userID, tc.orgID, got, tc.want)
			}
		})
	}
}

func TestIsActiveMember_LookupError(t *testing.T) {
	dir := NewDirectory(&fakeGetter{err: errors.New("db down")})
	if _, err := dir.IsActiveMember(context.Background(), "u1", "org-a"); err == nil {
		t.Fatal("IsActiveMember should propagate lookup errors")
	}
}
