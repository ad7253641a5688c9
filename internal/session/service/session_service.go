package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	attendancedomain "beacon-attendance/backend/internal/attendance/domain"
	"beacon-attendance/backend/internal/audit"
	auditdomain "beacon-attendance/backend/internal/audit/domain"
	"beacon-attendance/backend/internal/beacon"
	"beacon-attendance/backend/internal/membership"
	"beacon-attendance/backend/internal/platform/rbac"
	"beacon-attendance/backend/internal/server/middleware"
	"beacon-attendance/backend/internal/session/domain"
	"beacon-attendance/backend/internal/telemetry"
	"beacon-attendance/backend/internal/token"

	orgdomain "beacon-attendance/backend/internal/organization/domain"
)

// maxCreateAttempts bounds retries when the guarded insert loses a race
// against a concurrent create that picked the same token.
const maxCreateAttempts = 3

// SessionRepo is the session persistence surface the service needs.
type SessionRepo interface {
	CreateGuarded(ctx context.Context, s *domain.Session) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetLatestByToken(ctx context.Context, tok string) (*domain.Session, error)
	ListActiveTokens(ctx context.Context, now time.Time) ([]string, error)
	ListActiveByOrg(ctx context.Context, orgID string, now time.Time) ([]*domain.Session, error)
	End(ctx context.Context, sessionID, orgID string, now time.Time) (bool, error)
}

// RecordRepo is the attendance persistence surface the service needs.
type RecordRepo interface {
	Record(ctx context.Context, rec *attendancedomain.Record) (*attendancedomain.Record, bool, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// OrgGetter resolves orgs by ID.
type OrgGetter interface {
	GetByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// CreateResult is the officer-facing outcome of Create: everything the device
// needs to start advertising immediately.
type CreateResult struct {
	Session   *domain.Session
	OrgCode   uint16
	TokenHash uint16
}

// BeaconMatch is the member-facing outcome of a beacon lookup. Token is
// included so the client can check in without a second resolve round-trip.
type BeaconMatch struct {
	SessionID string
	Token     string
	OrgID     string
	Title     string
	ExpiresAt time.Time
}

// ActiveSession is one row of the officer live view.
type ActiveSession struct {
	Session       *domain.Session
	TokenHash     uint16
	AttendeeCount int
}

// SessionService owns the attendance session lifecycle: create, resolve,
// beacon lookup, check-in, live list, and early end. All authorization reads
// the caller's identity from the request context.
type SessionService struct {
	sessions    SessionRepo
	records     RecordRepo
	orgs        OrgGetter
	memberships rbac.OrgMembershipGetter
	directory   *membership.Directory
	auditor     audit.AuditLogger
	emitter     telemetry.EventEmitter
	now         func() time.Time
}

// NewSessionService wires the session service. auditor and emitter may be the
// nop implementations.
func NewSessionService(
	sessions SessionRepo,
	records RecordRepo,
	orgs OrgGetter,
	memberships rbac.OrgMembershipGetter,
	auditor audit.AuditLogger,
	emitter telemetry.EventEmitter,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		records:     records,
		orgs:        orgs,
		memberships: memberships,
		directory:   membership.NewDirectory(memberships),
		auditor:     auditor,
		emitter:     emitter,
		now:         time.Now,
	}
}

// Create starts a new attendance session for the caller's org. The caller must
// hold an officer or owner role. ttlSeconds must be in (0, 86400]. A zero
// startsAt means "now". The generated token is unique among all currently
// active sessions across every org.
func (s *SessionService) Create(ctx context.Context, title string, startsAt time.Time, ttlSeconds int) (*CreateResult, error) {
	orgID, userID, err := rbac.RequireOrgOfficer(ctx, s.memberships)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if ttlSeconds <= 0 || ttlSeconds > domain.MaxTTLSeconds {
		return nil, fmt.Errorf("%w: ttl_seconds must be in (0, %d]", domain.ErrInvalidInput, domain.MaxTTLSeconds)
	}
	now := s.now().UTC()
	if startsAt.IsZero() {
		startsAt = now
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load org: %w", err)
	}
	if org == nil {
		return nil, fmt.Errorf("%w: org %s does not exist", domain.ErrInvalidInput, orgID)
	}

	var created *domain.Session
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		activeTokens, err := s.sessions.ListActiveTokens(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("list active tokens: %w", err)
		}
		active := make(map[string]struct{}, len(activeTokens))
		for _, t := range activeTokens {
			active[t] = struct{}{}
		}
		tok, err := token.Generate(active)
		if err != nil {
			return nil, err
		}
		candidate := &domain.Session{
			ID:        uuid.New().String(),
			Token:     tok,
			OrgID:     orgID,
			Title:     title,
			StartsAt:  startsAt,
			EndsAt:    startsAt.Add(time.Duration(ttlSeconds) * time.Second),
			CreatedBy: userID,
			CreatedAt: now,
		}
		inserted, err := s.sessions.CreateGuarded(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		if inserted {
			created = candidate
			break
		}
		// Lost a race: another create claimed this token between our
		// snapshot and the insert. Regenerate and try again.
	}
	if created == nil {
		return nil, token.ErrGenerationExhausted
	}

	hash := beacon.Hash(created.Token)
	s.auditor.LogEvent(ctx, orgID, userID, auditdomain.ActionSessionCreate, "session/"+created.ID,
		fmt.Sprintf(`{"title":%q,"ttl_seconds":%d}`, title, ttlSeconds))
	s.emitter.EmitAsync(telemetry.Event{
		Type:       telemetry.EventSessionCreated,
		OrgID:      orgID,
		UserID:     userID,
		SessionID:  created.ID,
		TokenHash:  hash,
		OccurredAt: now,
	})
	return &CreateResult{Session: created, OrgCode: org.OrgCode, TokenHash: hash}, nil
}

// Resolve returns the member-facing view of the most recent session for the
// token, expired or not. ErrSessionNotFound only when no session ever used it.
func (s *SessionService) Resolve(ctx context.Context, tok string) (*domain.Info, error) {
	if !token.Valid(tok) {
		return nil, domain.ErrSessionNotFound
	}
	sess, err := s.sessions.GetLatestByToken(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}
	return &domain.Info{
		SessionID:        sess.ID,
		OrgID:            sess.OrgID,
		Title:            sess.Title,
		ExpiresAt:        sess.EndsAt,
		IsCurrentlyValid: sess.IsActive(s.now()),
	}, nil
}

// FindActiveByBeacon maps a sighted beacon back to an active session of the
// caller's org. The org's registered code must match the advertised one, which
// rejects stale or forged advertisements from other orgs that happen to share
// a token hash.
func (s *SessionService) FindActiveByBeacon(ctx context.Context, orgCode, tokenHash uint16) (*BeaconMatch, error) {
	orgID, _, err := rbac.RequireOrgMember(ctx, s.memberships)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load org: %w", err)
	}
	if org == nil || org.OrgCode == beacon.UnknownOrgCode || org.OrgCode != orgCode {
		return nil, domain.ErrSessionNotFound
	}
	active, err := s.sessions.ListActiveByOrg(ctx, orgID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	var matches []*domain.Session
	for _, sess := range active {
		if beacon.Hash(sess.Token) == tokenHash {
			matches = append(matches, sess)
		}
	}
	if len(matches) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	if len(matches) > 1 {
		log.Printf("session: ambiguous beacon match org=%s hash=%d candidates=%d, picking newest", orgID, tokenHash, len(matches))
	}
	// ListActiveByOrg orders newest first, so the first match wins.
	m := matches[0]
	return &BeaconMatch{
		SessionID: m.ID,
		Token:     m.Token,
		OrgID:     m.OrgID,
		Title:     m.Title,
		ExpiresAt: m.EndsAt,
	}, nil
}

// RecordAttendance records the authenticated member's attendance for the
// session the token resolves to. The token is always re-resolved server-side;
// a client-supplied session id is never trusted. Repeat check-ins return the
// original record with IsDuplicate set.
func (s *SessionService) RecordAttendance(ctx context.Context, tok string) (*domain.CheckInResult, error) {
	memberID, ok := middleware.GetUserID(ctx)
	if !ok || memberID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	sess, err := s.sessions.GetLatestByToken(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	if sess == nil {
		return nil, domain.ErrSessionNotFound
	}
	now := s.now()
	if !sess.IsActive(now) {
		s.emitter.EmitAsync(telemetry.Event{
			Type:       telemetry.EventAttendanceRefused,
			OrgID:      sess.OrgID,
			UserID:     memberID,
			SessionID:  sess.ID,
			Attributes: map[string]string{"reason": "expired"},
			OccurredAt: now,
		})
		return nil, &domain.ExpiredError{Overdue: now.Sub(sess.EndsAt)}
	}
	isMember, err := s.directory.IsActiveMember(ctx, memberID, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("membership check: %w", err)
	}
	if !isMember {
		s.emitter.EmitAsync(telemetry.Event{
			Type:       telemetry.EventAttendanceRefused,
			OrgID:      sess.OrgID,
			UserID:     memberID,
			SessionID:  sess.ID,
			Attributes: map[string]string{"reason": "not_a_member"},
			OccurredAt: now,
		})
		return nil, domain.ErrNotAMember
	}
	stored, inserted, err := s.records.Record(ctx, &attendancedomain.Record{
		ID:           uuid.New().String(),
		SessionID:    sess.ID,
		SessionToken: sess.Token,
		OrgID:        sess.OrgID,
		MemberID:     memberID,
		Method:       attendancedomain.MethodBLE,
		RecordedAt:   now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record attendance: %w", err)
	}
	if inserted {
		s.auditor.LogEvent(ctx, sess.OrgID, memberID, auditdomain.ActionCheckIn, "session/"+sess.ID, "")
		s.emitter.EmitAsync(telemetry.Event{
			Type:       telemetry.EventAttendanceRecord,
			OrgID:      sess.OrgID,
			UserID:     memberID,
			SessionID:  sess.ID,
			TokenHash:  beacon.Hash(sess.Token),
			OccurredAt: now,
		})
	}
	return &domain.CheckInResult{
		RecordID:    stored.ID,
		SessionID:   sess.ID,
		Title:       sess.Title,
		RecordedAt:  stored.RecordedAt,
		IsDuplicate: !inserted,
	}, nil
}

// ListActive returns the caller org's live sessions with attendee counts,
// newest first. Officer only.
func (s *SessionService) ListActive(ctx context.Context) ([]ActiveSession, error) {
	orgID, _, err := rbac.RequireOrgOfficer(ctx, s.memberships)
	if err != nil {
		return nil, err
	}
	active, err := s.sessions.ListActiveByOrg(ctx, orgID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	out := make([]ActiveSession, 0, len(active))
	for _, sess := range active {
		count, err := s.records.CountBySession(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("count attendees: %w", err)
		}
		out = append(out, ActiveSession{
			Session:       sess,
			TokenHash:     beacon.Hash(sess.Token),
			AttendeeCount: count,
		})
	}
	return out, nil
}

// End terminates the session early by setting its end time to now. The session
// row is kept; attendance history is never deleted. Officer only.
func (s *SessionService) End(ctx context.Context, sessionID string) error {
	orgID, userID, err := rbac.RequireOrgOfficer(ctx, s.memberships)
	if err != nil {
		return err
	}
	now := s.now()
	ended, err := s.sessions.End(ctx, sessionID, orgID, now)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if !ended {
		sess, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		if sess == nil || sess.OrgID != orgID {
			return domain.ErrSessionNotFound
		}
		return &domain.ExpiredError{Overdue: now.Sub(sess.EndsAt)}
	}
	s.auditor.LogEvent(ctx, orgID, userID, auditdomain.ActionSessionEnd, "session/"+sessionID, "")
	s.emitter.EmitAsync(telemetry.Event{
		Type:       telemetry.EventSessionEnded,
		OrgID:      orgID,
		UserID:     userID,
		SessionID:  sessionID,
		OccurredAt: now,
	})
	return nil
}
