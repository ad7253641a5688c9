package audit

import (
	"context"
	"errors"
	"testing"

	"beacon-attendance/backend/internal/audit/domain"
)

type fakeAuditRepo struct {
	entries []*domain.AuditLog
	err     error
}

func (f *fakeAuditRepo) Create(ctx context.Context, l *domain.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeAuditRepo) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.AuditLog, error) {
	return f.entries, nil
}

func TestLogEvent(t *testing.T) {
	repo := &fakeAuditRepo{}
	logger := NewLogger(repo, func(context.Context) string { return "10.0.0.7" })

	logger.LogEvent(context.Background(), "org-1", "user-1", domain.ActionSessionCreate, "session/s1", `{"title":"standup"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("entry must get an ID")
	}
	if e.OrgID != "org-1" || e.UserID != "user-1" || e.Action != domain.ActionSessionCreate {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.IP != "10.0.0.7" {
		t.Errorf("ip = %q, want 10.0.0.7", e.IP)
	}
}

func TestLogEvent_SentinelOrg(t *testing.T) {
	repo := &fakeAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "", domain.ActionLogin, "login", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].OrgID != SentinelOrgID {
		t.Errorf("org = %q, want %q", repo.entries[0].OrgID, SentinelOrgID)
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown", repo.entries[0].IP)
	}
}

func TestLogEvent_BestEffort(t *testing.T) {
	logger := NewLogger(&fakeAuditRepo{err: errors.New("db down")}, nil)
	// Must not panic or propagate the failure.
	logger.LogEvent(context.Background(), "org-1", "user-1", domain.ActionCheckIn, "session/s1", "")
}
