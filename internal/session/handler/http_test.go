package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	attendancedomain "beacon-attendance/backend/internal/attendance/domain"
	"beacon-attendance/backend/internal/audit"
	membershipdomain "beacon-attendance/backend/internal/membership/domain"
	orgdomain "beacon-attendance/backend/internal/organization/domain"
	"beacon-attendance/backend/internal/server/middleware"
	"beacon-attendance/backend/internal/session/domain"
	"beacon-attendance/backend/internal/session/service"
	"beacon-attendance/backend/internal/telemetry"
)

type memSessionRepo struct {
	sessions []*domain.Session
}

func (f *memSessionRepo) CreateGuarded(ctx context.Context, s *domain.Session) (bool, error) {
	for _, existing := range f.sessions {
		if existing.Token == s.Token && existing.EndsAt.After(time.Now()) {
			return false, nil
		}
	}
	f.sessions = append(f.sessions, s)
	return true, nil
}

func (f *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *memSessionRepo) GetLatestByToken(ctx context.Context, tok string) (*domain.Session, error) {
	var latest *domain.Session
	for _, s := range f.sessions {
		if s.Token == tok && (latest == nil || s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	return latest, nil
}

func (f *memSessionRepo) ListActiveTokens(ctx context.Context, now time.Time) ([]string, error) {
	var tokens []string
	for _, s := range f.sessions {
		if s.EndsAt.After(now) {
			tokens = append(tokens, s.Token)
		}
	}
	return tokens, nil
}

func (f *memSessionRepo) ListActiveByOrg(ctx context.Context, orgID string, now time.Time) ([]*domain.Session, error) {
	var active []*domain.Session
	for _, s := range f.sessions {
		if s.OrgID == orgID && s.EndsAt.After(now) {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	return active, nil
}

func (f *memSessionRepo) End(ctx context.Context, sessionID, orgID string, now time.Time) (bool, error) {
	for _, s := range f.sessions {
		if s.ID == sessionID && s.OrgID == orgID && s.EndsAt.After(now) {
			s.EndsAt = now
			return true, nil
		}
	}
	return false, nil
}

type memRecordRepo struct {
	records map[string]*attendancedomain.Record
}

func (f *memRecordRepo) Record(ctx context.Context, rec *attendancedomain.Record) (*attendancedomain.Record, bool, error) {
	key := rec.SessionID + "/" + rec.MemberID
	if existing, ok := f.records[key]; ok {
		return existing, false, nil
	}
	f.records[key] = rec
	return rec, true, nil
}

func (f *memRecordRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	n := 0
	for _, rec := range f.records {
		if rec.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

type memOrgGetter struct{ orgs map[string]*orgdomain.Org }

func (f *memOrgGetter) GetByID(ctx context.Context, id string) (*orgdomain.Org, error) {
	return f.orgs[id], nil
}

type memMembershipGetter struct{ m map[string]*membershipdomain.Membership }

func (f *memMembershipGetter) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error) {
	return f.m[userID+":"+orgID], nil
}

// identityAs injects a fixed identity, standing in for the JWT middleware.
func identityAs(userID, orgID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(middleware.WithIdentity(c.Request.Context(), userID, orgID))
		c.Next()
	}
}

func newTestServer(t *testing.T) (officer *gin.Engine, member *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := service.NewSessionService(
		&memSessionRepo{},
		&memRecordRepo{records: map[string]*attendancedomain.Record{}},
		&memOrgGetter{orgs: map[string]*orgdomain.Org{
			"org-a": {ID: "org-a", Slug: "acme", Name: "Acme", OrgCode: 512, Status: orgdomain.OrgStatusActive},
		}},
		&memMembershipGetter{m: map[string]*membershipdomain.Membership{
			"officer-1:org-a": {ID: "m1", UserID: "officer-1", OrgID: "org-a", Role: membershipdomain.RoleOfficer, Status: membershipdomain.StatusActive},
			"member-1:org-a":  {ID: "m2", UserID: "member-1", OrgID: "org-a", Role: membershipdomain.RoleMember, Status: membershipdomain.StatusActive},
		}},
		audit.Nop{},
		telemetry.NopEmitter{},
	)
	h := NewHTTPHandler(svc)

	officer = gin.New()
	og := officer.Group("/v1", identityAs("officer-1", "org-a"))
	h.Register(og)

	member = gin.New()
	mg := member.Group("/v1", identityAs("member-1", "org-a"))
	h.Register(mg)
	return officer, member
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateResolveCheckInFlow(t *testing.T) {
	officer, member := newTestServer(t)

	w := doJSON(t, officer, http.MethodPost, "/v1/sessions", gin.H{"title": "Standup", "ttl_seconds": 1800})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
		OrgCode   uint16 `json:"org_code"`
		TokenHash uint16 `json:"token_hash"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Token == "" || created.OrgCode != 512 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	w = doJSON(t, member, http.MethodGet, "/v1/sessions/resolve?token="+created.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, member, http.MethodPost, "/v1/sessions/beacon", gin.H{"org_code": created.OrgCode, "token_hash": created.TokenHash})
	if w.Code != http.StatusOK {
		t.Fatalf("beacon status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, member, http.MethodPost, "/v1/attendance", gin.H{"token": created.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("attendance status = %d, body %s", w.Code, w.Body.String())
	}
	var checkin struct {
		IsDuplicate bool `json:"is_duplicate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &checkin); err != nil {
		t.Fatalf("decode attendance response: %v", err)
	}
	if checkin.IsDuplicate {
		t.Error("first check-in flagged duplicate")
	}

	w = doJSON(t, member, http.MethodPost, "/v1/attendance", gin.H{"token": created.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("repeat attendance status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &checkin); err != nil {
		t.Fatalf("decode repeat response: %v", err)
	}
	if !checkin.IsDuplicate {
		t.Error("repeat check-in must report is_duplicate")
	}

	w = doJSON(t, officer, http.MethodGet, "/v1/sessions/active", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("active status = %d", w.Code)
	}
	var activeResp struct {
		Sessions []struct {
			AttendeeCount int `json:"attendee_count"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &activeResp); err != nil {
		t.Fatalf("decode active response: %v", err)
	}
	if len(activeResp.Sessions) != 1 || activeResp.Sessions[0].AttendeeCount != 1 {
		t.Errorf("active = %+v, want one session with one attendee", activeResp.Sessions)
	}

	w = doJSON(t, officer, http.MethodPost, "/v1/sessions/"+created.SessionID+"/end", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("end status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestErrorStatusMapping(t *testing.T) {
	officer, member := newTestServer(t)

	testCases := []struct {
		name   string
		router *gin.Engine
		method string
		path   string
		body   any
		want   int
	}{
		{"create without title", officer, http.MethodPost, "/v1/sessions", gin.H{"ttl_seconds": 60}, http.StatusBadRequest},
		{"create bad ttl", officer, http.MethodPost, "/v1/sessions", gin.H{"title": "x", "ttl_seconds": 90000}, http.StatusBadRequest},
		{"member cannot create", member, http.MethodPost, "/v1/sessions", gin.H{"title": "x", "ttl_seconds": 60}, http.StatusForbidden},
		{"resolve unknown token", member, http.MethodGet, "/v1/sessions/resolve?token=AAAAAAAAAAAA", nil, http.StatusNotFound},
		{"resolve without token", member, http.MethodGet, "/v1/sessions/resolve", nil, http.StatusBadRequest},
		{"beacon no match", member, http.MethodPost, "/v1/sessions/beacon", gin.H{"org_code": 512, "token_hash": 1}, http.StatusNotFound},
		{"member cannot list active", member, http.MethodGet, "/v1/sessions/active", nil, http.StatusForbidden},
		{"end unknown session", officer, http.MethodPost, "/v1/sessions/nope/end", nil, http.StatusNotFound},
		{"check in unknown token", member, http.MethodPost, "/v1/attendance", gin.H{"token": "AAAAAAAAAAAA"}, http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, tc.router, tc.method, tc.path, tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestCheckInExpiredSessionIsGone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	past := time.Now().Add(-2 * time.Hour)
	repo := &memSessionRepo{sessions: []*domain.Session{{
		ID: "s-old", Token: "WEEKLYMEET29", OrgID: "org-a", Title: "Old",
		StartsAt: past, EndsAt: past.Add(time.Hour), CreatedAt: past,
	}}}
	svc := service.NewSessionService(
		repo,
		&memRecordRepo{records: map[string]*attendancedomain.Record{}},
		&memOrgGetter{orgs: map[string]*orgdomain.Org{"org-a": {ID: "org-a", Slug: "acme", Name: "Acme", OrgCode: 512}}},
		&memMembershipGetter{m: map[string]*membershipdomain.Membership{
			"member-1:org-a": {ID: "m2", UserID: "member-1", OrgID: "org-a", Role: membershipdomain.RoleMember, Status: membershipdomain.StatusActive},
		}},
		audit.Nop{},
		telemetry.NopEmitter{},
	)
	r := gin.New()
	NewHTTPHandler(svc).Register(r.Group("/v1", identityAs("member-1", "org-a")))

	w := doJSON(t, r, http.MethodPost, "/v1/attendance", gin.H{"token": "WEEKLYMEET29"})
	if w.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410 (body %s)", w.Code, w.Body.String())
	}
}
