// Package detect implements the member-device detection pipeline: it consumes
// raw beacon sightings, gates them on org context, resolves them against the
// backend, and surfaces each attendance session at most once.
package detect

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrNoMatch is returned by a Resolver when no active session matches
	// the beacon fields. Not retried; the cache entry is cleared so a later
	// sighting of the same beacon resolves afresh.
	ErrNoMatch = errors.New("no active session matches beacon")
	// ErrClosed is returned by CheckIn after the pipeline was closed.
	ErrClosed = errors.New("detection pipeline closed")
)

// DefaultCooldown is how long an unresolved entry stays cached.
// It must exceed the worst-case time for org context to load after app start,
// or sightings cached before login would be purged instead of resolved.
const DefaultCooldown = 90 * time.Second

const defaultResolveMaxTries = 3

// Sighting is one raw beacon observation from the radio.
type Sighting struct {
	OrgCode   uint16
	TokenHash uint16
	RSSI      int
}

// ResolvedSession is the backend's answer for a sighted beacon.
type ResolvedSession struct {
	SessionID string
	Token     string
	Title     string
	ExpiresAt time.Time
}

// Resolver maps beacon fields to an active session. Implementations call the
// backend; ErrNoMatch means the lookup succeeded but nothing matched.
type Resolver interface {
	FindActiveByBeacon(ctx context.Context, orgCode, tokenHash uint16) (*ResolvedSession, error)
}

// CheckInClient records attendance for a resolved session token.
type CheckInClient interface {
	CheckIn(ctx context.Context, token string) error
}

// Detection is a session surfaced to the app layer for display.
type Detection struct {
	SessionID string
	Token     string
	Title     string
	ExpiresAt time.Time
	RSSI      int
}

// Config wires a Pipeline. Resolver and CheckIn are required; the rest
// defaults sensibly.
type Config struct {
	Resolver Resolver
	CheckIn  CheckInClient
	// OnDetected is called from the event loop when a session is first
	// surfaced. Must not block.
	OnDetected func(Detection)
	// Cooldown bounds how long unresolved entries live. Defaults to DefaultCooldown.
	Cooldown time.Duration
	// ResolveRetryInterval is the initial backoff interval for resolve
	// retries. Defaults to 500ms; tests shrink it.
	ResolveRetryInterval time.Duration
}

type cacheKey struct {
	orgCode   uint16
	tokenHash uint16
}

type cacheEntry struct {
	sighting  Sighting
	firstSeen time.Time
	lastSeen  time.Time
	resolving bool
	resolved  bool
}

// Pipeline owns all detection state inside a single event loop. Sightings,
// org-context changes, and check-in completions are all funneled through the
// loop, so no state needs locking.
type Pipeline struct {
	cfg       Config
	sightings <-chan Sighting
	cmds      chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// Loop-owned state. Touched only from run().
	orgID    string
	orgCode  uint16
	hasOrg   bool
	cache    map[cacheKey]*cacheEntry
	surfaced map[string]Detection // keyed by token
}

// NewPipeline starts the event loop consuming sightings. The pipeline never
// blocks the producer: the loop drains the channel and the cache absorbs
// bursts. Call Close to stop.
func NewPipeline(cfg Config, sightings <-chan Sighting) *Pipeline {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ResolveRetryInterval <= 0 {
		cfg.ResolveRetryInterval = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg:       cfg,
		sightings: sightings,
		cmds:      make(chan func(), 16),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		cache:     make(map[cacheKey]*cacheEntry),
		surfaced:  make(map[string]Detection),
	}
	go p.run()
	return p
}

// SetOrgContext installs the member's org identity. The first call with a
// usable org opens the gate: every cached sighting with a matching org code is
// resolved exactly once. Safe to call from any goroutine.
func (p *Pipeline) SetOrgContext(orgID string, orgCode uint16) {
	p.enqueue(func() {
		wasOpen := p.hasOrg && p.orgCode == orgCode && p.orgID == orgID
		p.orgID = orgID
		p.orgCode = orgCode
		p.hasOrg = orgID != "" && orgCode != 0
		if !p.hasOrg || wasOpen {
			return
		}
		for key, entry := range p.cache {
			if key.orgCode == p.orgCode && !entry.resolved && !entry.resolving {
				p.startResolve(key, entry)
			}
		}
	})
}

// CheckIn records attendance for a surfaced session. On success the session
// leaves the surfaced set immediately, so the UI stops offering it. Backend
// rejections (expired, not a member, not authenticated) pass through to the
// caller untouched and are never retried.
func (p *Pipeline) CheckIn(ctx context.Context, token string) error {
	select {
	case <-p.ctx.Done():
		return ErrClosed
	default:
	}
	if err := p.cfg.CheckIn.CheckIn(ctx, token); err != nil {
		return err
	}
	p.enqueue(func() {
		delete(p.surfaced, token)
	})
	return nil
}

// Surfaced returns a snapshot of the currently surfaced sessions.
func (p *Pipeline) Surfaced() []Detection {
	out := make(chan []Detection, 1)
	p.enqueue(func() {
		snapshot := make([]Detection, 0, len(p.surfaced))
		for _, d := range p.surfaced {
			snapshot = append(snapshot, d)
		}
		out <- snapshot
	})
	select {
	case s := <-out:
		return s
	case <-p.ctx.Done():
		return nil
	}
}

// Close stops the loop and discards all cached state. No server-side effects:
// nothing is un-recorded, nothing is flushed.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done
	})
}

func (p *Pipeline) enqueue(cmd func()) {
	select {
	case p.cmds <- cmd:
	case <-p.ctx.Done():
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.Cooldown / 2)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			p.cache = nil
			p.surfaced = nil
			return
		case s := <-p.sightings:
			p.handleSighting(s)
		case cmd := <-p.cmds:
			cmd()
		case <-ticker.C:
			p.purgeExpired()
		}
	}
}

func (p *Pipeline) handleSighting(s Sighting) {
	now := time.Now()
	key := cacheKey{orgCode: s.OrgCode, tokenHash: s.TokenHash}
	entry, ok := p.cache[key]
	if !ok {
		entry = &cacheEntry{sighting: s, firstSeen: now}
		p.cache[key] = entry
	}
	entry.lastSeen = now
	entry.sighting.RSSI = s.RSSI
	if entry.resolved || entry.resolving {
		return
	}
	// The gate: without org context the sighting just sits in the cache.
	if !p.hasOrg || s.OrgCode != p.orgCode {
		return
	}
	p.startResolve(key, entry)
}

// startResolve marks the entry in flight and resolves it on its own goroutine,
// so retry sleeps never stall the event loop and the sightings channel keeps
// draining. The outcome comes back through cmds; the resolving flag, set here
// on the loop, guarantees at most one resolve per entry.
func (p *Pipeline) startResolve(key cacheKey, entry *cacheEntry) {
	entry.resolving = true
	go func() {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = p.cfg.ResolveRetryInterval
		resolved, err := backoff.Retry(p.ctx, func() (*ResolvedSession, error) {
			rs, err := p.cfg.Resolver.FindActiveByBeacon(p.ctx, key.orgCode, key.tokenHash)
			if err != nil {
				if errors.Is(err, ErrNoMatch) {
					return nil, backoff.Permanent(err)
				}
				return nil, err
			}
			return rs, nil
		}, backoff.WithBackOff(bo), backoff.WithMaxTries(defaultResolveMaxTries))
		p.enqueue(func() { p.finishResolve(key, resolved, err) })
	}()
}

// finishResolve applies one resolve outcome. Runs on the event loop. A
// confirmed non-match clears the entry, so a later sighting of the same beacon
// resolves afresh instead of being pinned by a stale answer. Persistent
// transient failure drops the entry silently.
func (p *Pipeline) finishResolve(key cacheKey, resolved *ResolvedSession, err error) {
	entry, ok := p.cache[key]
	if !ok {
		return
	}
	entry.resolving = false
	if err != nil {
		if !errors.Is(err, ErrNoMatch) && !errors.Is(err, context.Canceled) {
			log.Printf("detect: resolve org_code=%d hash=%d failed, dropping: %v", key.orgCode, key.tokenHash, err)
		}
		delete(p.cache, key)
		return
	}
	entry.resolved = true
	// Dedup by token: a re-sighted session that is already surfaced is a no-op.
	if _, ok := p.surfaced[resolved.Token]; ok {
		return
	}
	d := Detection{
		SessionID: resolved.SessionID,
		Token:     resolved.Token,
		Title:     resolved.Title,
		ExpiresAt: resolved.ExpiresAt,
		RSSI:      entry.sighting.RSSI,
	}
	p.surfaced[resolved.Token] = d
	if p.cfg.OnDetected != nil {
		p.cfg.OnDetected(d)
	}
}

func (p *Pipeline) purgeExpired() {
	cutoff := time.Now().Add(-p.cfg.Cooldown)
	for key, entry := range p.cache {
		// In-flight entries stay until their resolve comes back.
		if !entry.resolving && entry.lastSeen.Before(cutoff) {
			delete(p.cache, key)
		}
	}
	now := time.Now()
	for token, d := range p.surfaced {
		if d.ExpiresAt.Before(now) {
			delete(p.surfaced, token)
		}
	}
}
