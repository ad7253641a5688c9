package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockEmitter implements Emitter for tests.
type mockEmitter struct {
	mu      sync.Mutex
	events  []Event
	emitErr error
}

func (m *mockEmitter) Emit(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEmitter) getEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	// Should not panic.
	NewAsync(nil).EmitAsync(Event{Type: EventSessionCreated})
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEmitter{}
	async := NewAsync(emitter)

	async.EmitAsync(Event{
		Type:      EventAttendanceRecord,
		OrgID:     "org-1",
		UserID:    "user-1",
		SessionID: "s-1",
		TokenHash: 27791,
	})

	deadline := time.Now().Add(time.Second)
	for len(emitter.getEvents()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never emitted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	events := emitter.getEvents()
	if events[0].Type != EventAttendanceRecord || events[0].OrgID != "org-1" || events[0].TokenHash != 27791 {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestEmitAsync_ErrorDoesNotAffectCaller(t *testing.T) {
	emitter := &mockEmitter{emitErr: context.DeadlineExceeded}
	// Should not panic; the error is logged and dropped.
	NewAsync(emitter).EmitAsync(Event{Type: EventSessionEnded, OrgID: "org-1"})
	time.Sleep(50 * time.Millisecond)
}

func TestEmitAsync_ConcurrentAccess(t *testing.T) {
	emitter := &mockEmitter{}
	async := NewAsync(emitter)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			async.EmitAsync(Event{Type: EventSessionCreated, OrgID: "org-1"})
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(time.Second)
	for len(emitter.getEvents()) < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("events = %d, want 10", len(emitter.getEvents()))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
