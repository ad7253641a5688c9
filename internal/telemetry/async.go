package telemetry

import (
	"context"
	"log"
	"time"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server drains
// before shutting down OTel providers, so in-flight async telemetry emits have
// time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Emitter sends a single event somewhere durable (Kafka in production).
// Callers use it best-effort: log and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Async wraps an Emitter into the fire-and-forget EventEmitter the request
// path uses. Each emit runs in its own goroutine with a fresh context so
// request cancellation does not abort an in-flight emit.
type Async struct {
	emitter Emitter
}

// NewAsync returns an Async over emitter. A nil emitter yields a no-op.
func NewAsync(emitter Emitter) *Async {
	return &Async{emitter: emitter}
}

// EmitAsync sends the event in the background; errors are logged, never returned.
func (a *Async) EmitAsync(event Event) {
	if a == nil || a.emitter == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := a.emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}
