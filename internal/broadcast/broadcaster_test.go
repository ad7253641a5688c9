package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beacon-attendance/backend/internal/beacon"
)

type fakeAdvertiser struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	uuid     string
	major    uint16
	minor    uint16
	startErr error
}

func (f *fakeAdvertiser) Start(uuid string, major, minor uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.uuid = uuid
	f.major = major
	f.minor = minor
	return nil
}

func (f *fakeAdvertiser) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func TestRunAdvertisesUntilSessionEnd(t *testing.T) {
	adv := &fakeAdvertiser{}
	b := NewBroadcaster(adv)

	endsAt := time.Now().Add(30 * time.Millisecond)
	if err := b.Run(context.Background(), 512, "WEEKLYMEET29", endsAt); err != nil {
		t.Fatalf("Run: %v", err)
	}

	adv.mu.Lock()
	defer adv.mu.Unlock()
	if !adv.started || !adv.stopped {
		t.Fatalf("started=%v stopped=%v, want both", adv.started, adv.stopped)
	}
	if adv.uuid != beacon.ProtocolUUID {
		t.Errorf("uuid = %q, want the protocol UUID", adv.uuid)
	}
	if adv.major != 512 {
		t.Errorf("major = %d, want org code 512", adv.major)
	}
	if adv.minor != beacon.Hash("WEEKLYMEET29") {
		t.Errorf("minor = %d, want the token hash", adv.minor)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	adv := &fakeAdvertiser{}
	b := NewBroadcaster(adv)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx, 512, "WEEKLYMEET29", time.Now().Add(time.Hour))
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	adv.mu.Lock()
	defer adv.mu.Unlock()
	if !adv.stopped {
		t.Error("advertising must stop on cancel")
	}
}

func TestRunExpiredSessionStopsImmediately(t *testing.T) {
	adv := &fakeAdvertiser{}
	b := NewBroadcaster(adv)
	if err := b.Run(context.Background(), 512, "WEEKLYMEET29", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	adv.mu.Lock()
	defer adv.mu.Unlock()
	if !adv.stopped {
		t.Error("already expired session must stop advertising immediately")
	}
}

func TestRunStartFailure(t *testing.T) {
	adv := &fakeAdvertiser{startErr: errors.New("radio busy")}
	b := NewBroadcaster(adv)
	if err := b.Run(context.Background(), 512, "WEEKLYMEET29", time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected start failure to propagate")
	}
}
