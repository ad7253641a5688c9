// Package producer emits telemetry events to Kafka.
package producer

import (
	"context"

	"beacon-attendance/backend/internal/telemetry"
)

// Producer emits telemetry events and releases its transport on Close.
type Producer interface {
	Emit(ctx context.Context, event telemetry.Event) error
	// Close releases resources (e.g. the Kafka writer). Safe to call twice.
	Close() error
}
