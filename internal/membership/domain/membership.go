package domain

import (
	"time"
)

// Membership links a user to an organization with a role. Only a membership
// with StatusActive counts for attendance; role and every other attribute are
// irrelevant to the attendance gate.
type Membership struct {
	ID        string
	UserID    string
	OrgID     string
	Role      Role
	Status    Status
	CreatedAt time.Time
}

type Role string

const (
	RoleOwner   Role = "owner"
	RoleOfficer Role = "officer"
	RoleMember  Role = "member"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsActive reports whether the membership currently counts.
func (m *Membership) IsActive() bool {
	return m != nil && m.Status == StatusActive
}

// CanManageSessions reports whether the role may create and end attendance
// sessions for the org.
func (m *Membership) CanManageSessions() bool {
	if !m.IsActive() {
		return false
	}
	return m.Role == RoleOwner || m.Role == RoleOfficer
}
