package telemetry

import "time"

// Event types emitted by the attendance backend.
const (
	EventSessionCreated    = "session.created"
	EventSessionEnded      = "session.ended"
	EventAttendanceRecord  = "attendance.recorded"
	EventAttendanceRefused = "attendance.refused"
	EventAuthLogin         = "auth.login"
)

// Event is one telemetry record. It is serialized as JSON onto the Kafka
// topic and must stay free of secrets and tokens: the token hash is safe to
// log, the token itself is not.
type Event struct {
	Type       string            `json:"type"`
	OrgID      string            `json:"org_id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	TokenHash  uint16            `json:"token_hash,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventEmitter publishes telemetry events. Implementations must not block the
// caller's request path.
type EventEmitter interface {
	EmitAsync(event Event)
}

// NopEmitter discards all events. Used when telemetry is not configured.
type NopEmitter struct{}

func (NopEmitter) EmitAsync(Event) {}
