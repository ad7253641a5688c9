package domain

import (
	"errors"
	"fmt"
	"time"
)

// MaxTTLSeconds caps session lifetime at 24 hours.
const MaxTTLSeconds = 86400

var (
	// ErrInvalidInput is returned when create parameters fail validation.
	ErrInvalidInput = errors.New("invalid session input")
	// ErrSessionNotFound is returned when no session matches a token or beacon.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotAuthenticated is returned when a check-in arrives without a member identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAMember is returned when the caller has no active membership in the session's org.
	ErrNotAMember = errors.New("not a member of the session's organization")
)

// ExpiredError is returned when a check-in arrives after the session ended.
// Overdue says how long past the end the attempt was.
type ExpiredError struct {
	Overdue time.Duration
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("session expired %s ago", e.Overdue.Round(time.Second))
}

// ErrSessionExpired matches any ExpiredError via errors.Is.
var ErrSessionExpired = errors.New("session expired")

func (e *ExpiredError) Is(target error) bool { return target == ErrSessionExpired }

// Session is one attendance window broadcast by an officer device. Rows are
// never deleted; expiry is a timestamp comparison against EndsAt.
type Session struct {
	ID        string
	Token     string
	OrgID     string
	Title     string
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedBy string
	CreatedAt time.Time
}

// IsActive reports whether the session is accepting check-ins at t.
func (s *Session) IsActive(t time.Time) bool {
	return s != nil && t.Before(s.EndsAt)
}

// Info is the member-facing view of a resolved session. Expiry is reported,
// not enforced: an expired session still resolves so the client can show why
// a check-in would fail.
type Info struct {
	SessionID        string
	OrgID            string
	Title            string
	ExpiresAt        time.Time
	IsCurrentlyValid bool
}

// CheckInResult reports a recorded (or re-recorded) attendance.
type CheckInResult struct {
	RecordID    string
	SessionID   string
	Title       string
	RecordedAt  time.Time
	IsDuplicate bool
}
