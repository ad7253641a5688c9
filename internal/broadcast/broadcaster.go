// Package broadcast drives the officer device's beacon advertisement for the
// lifetime of an attendance session.
package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"beacon-attendance/backend/internal/beacon"
)

// Advertiser is the native radio capability, injected by the platform layer.
// Start begins advertising the given beacon identity; Stop ends it.
type Advertiser interface {
	Start(uuid string, major, minor uint16) error
	Stop() error
}

// Broadcaster advertises one session at a time and stops when the session
// ends or the context is cancelled, whichever comes first.
type Broadcaster struct {
	adv Advertiser
	now func() time.Time
}

func NewBroadcaster(adv Advertiser) *Broadcaster {
	return &Broadcaster{adv: adv, now: time.Now}
}

// Run advertises the session's beacon identity until endsAt or ctx cancel.
// The advertisement carries only the org code and token hash; the token
// itself never goes over the air.
func (b *Broadcaster) Run(ctx context.Context, orgCode uint16, token string, endsAt time.Time) error {
	id := beacon.Encode(orgCode, token)
	if err := b.adv.Start(beacon.ProtocolUUID, id.OrgCode, id.TokenHash); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	defer func() {
		if err := b.adv.Stop(); err != nil {
			log.Printf("broadcast: stop advertising: %v", err)
		}
	}()

	remaining := endsAt.Sub(b.now())
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
