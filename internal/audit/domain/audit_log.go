package domain

import "time"

// Actions recorded in the audit trail.
const (
	ActionSessionCreate = "session.create"
	ActionSessionEnd    = "session.end"
	ActionCheckIn       = "attendance.checkin"
	ActionLogin         = "auth.login"
)

// AuditLog is one immutable audit row. UserID may be empty for events that
// predate authentication (failed logins).
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
