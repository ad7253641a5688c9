package domain

import "time"

// MethodBLE marks records created through beacon detection. Kept as a column so
// future check-in paths (QR, manual override) share the same table.
const MethodBLE = "ble"

// Record is one member's attendance at one session. At most one record exists
// per (session, member) pair; repeated check-ins do not create new rows.
// SessionToken and OrgID are denormalized so attendance history survives
// without joining the sessions table.
type Record struct {
	ID           string
	SessionID    string
	SessionToken string
	OrgID        string
	MemberID     string
	Method       string
	RecordedAt   time.Time
}
