package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	accountdomain "session-authority/internal/account/domain"
	accountservice "session-authority/internal/account/service"
	"session-authority/internal/authority"
	"session-authority/internal/config"
	identityservice "session-authority/internal/identity/service"
	orgdomain "session-authority/internal/organization/domain"
	sessiondomain "session-authority/internal/session/domain"
)

// memStore implements every repository interface the services need, so the
// handlers are tested through the real service stack.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
	accounts map[string]*accountdomain.Account
	orgs     map[string]*orgdomain.Organization
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]*sessiondomain.Session),
		accounts: make(map[string]*accountdomain.Account),
		orgs:     make(map[string]*orgdomain.Organization),
	}
}

func (st *memStore) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, nil
	}
	s2 := *s
	return &s2, nil
}

func (st *memStore) Revoke(ctx context.Context, id string, reason sessiondomain.RevokedReason, at time.Time) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok && s.RevokedAt == nil {
		t := at
		s.RevokedAt = &t
		s.RevokedReason = reason
	}
	return nil
}

func (st *memStore) Refresh(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok && s.RevokedAt == nil {
		t := lastSeenAt
		s.LastSeenAt = &t
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (st *memStore) FindLiveByAccount(ctx context.Context, accountID string, now time.Time) (*sessiondomain.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var newest *sessiondomain.Session
	for _, s := range st.sessions {
		if s.AccountID != accountID || !s.IsLive(now) {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, nil
	}
	s2 := *newest
	return &s2, nil
}

func (st *memStore) Create(ctx context.Context, s *sessiondomain.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s2 := *s
	st.sessions[s.ID] = &s2
	return nil
}

func (st *memStore) RevokeAllLiveByAccount(ctx context.Context, accountID string, reason sessiondomain.RevokedReason, at time.Time) (int64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var n int64
	for _, s := range st.sessions {
		if s.AccountID == accountID && s.RevokedAt == nil {
			t := at
			s.RevokedAt = &t
			s.RevokedReason = reason
			n++
		}
	}
	return n, nil
}

type memAccounts struct{ st *memStore }

func (r memAccounts) GetByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, nil
	}
	a2 := *a
	return &a2, nil
}

func (r memAccounts) GetWithOrganization(ctx context.Context, id string) (*accountdomain.Account, *orgdomain.Organization, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, nil, nil
	}
	a2 := *a
	if a.OrgID != nil {
		if o, ok := r.st.orgs[*a.OrgID]; ok {
			o2 := *o
			return &a2, &o2, nil
		}
	}
	return &a2, nil, nil
}

func (r memAccounts) GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, a := range r.st.accounts {
		if a.Email == email {
			a2 := *a
			return &a2, nil
		}
	}
	return nil, nil
}

func (r memAccounts) GetByExternalSubject(ctx context.Context, subject string) (*accountdomain.Account, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, a := range r.st.accounts {
		if a.ExternalSubject == subject {
			a2 := *a
			return &a2, nil
		}
	}
	return nil, nil
}

func (r memAccounts) LinkExternalSubject(ctx context.Context, accountID, subject string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if a, ok := r.st.accounts[accountID]; ok {
		a.ExternalSubject = subject
	}
	return nil
}

func (r memAccounts) Create(ctx context.Context, a *accountdomain.Account) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	a2 := *a
	r.st.accounts[a.ID] = &a2
	return nil
}

func (r memAccounts) UpdateStatus(ctx context.Context, id string, status accountdomain.AccountStatus) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if a, ok := r.st.accounts[id]; ok {
		a.Status = status
	}
	return nil
}

func (r memAccounts) ListByOrg(ctx context.Context, orgID string) ([]*accountdomain.Account, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*accountdomain.Account
	for _, a := range r.st.accounts {
		if a.OrgID != nil && *a.OrgID == orgID {
			a2 := *a
			out = append(out, &a2)
		}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		SessionCookie:         "app_session_id",
		IDTokenCookie:         "idp_id_token",
		SessionTimeoutMinutes: 60,
	}
}

func newTestServer(st *memStore) *Server {
	cfg := testConfig()
	logger := slog.New(slog.DiscardHandler)
	accounts := memAccounts{st: st}

	auth := authority.NewService(st, accounts, authority.Config{Timeout: cfg.SessionTimeout()}, logger)
	bootstrap := identityservice.NewBootstrapService(accounts, st,
		identityservice.Config{Timeout: cfg.SessionTimeout()}, logger)
	admin := accountservice.NewAdminService(accounts, st, logger)

	return New(cfg, auth, bootstrap, admin, logger)
}

func idToken(t *testing.T, subject, email string, verified bool) string {
	t.Helper()
	header, _ := json.Marshal(map[string]any{"alg": "RS256", "typ": "JWT"})
	payload, err := json.Marshal(map[string]any{
		"sub": subject, "email": email, "email_verified": verified,
	})
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + ".sig"
}

func sessionCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, res *http.Response) string {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestSession_Failure_NoCookie(t *testing.T) {
	srv := newTestServer(newMemStore())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	if code := decodeError(t, res); code != codeNoSession {
		t.Errorf("code = %q, want %q", code, codeNoSession)
	}
}

func TestBootstrap_Success_EstablishesSession(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", nil)
	req.AddCookie(&http.Cookie{Name: "idp_id_token", Value: idToken(t, "idp|1", "a@example.com", true)})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	cookie := sessionCookie(t, res, "app_session_id")
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected the session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	var body bootstrapResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Account.Email != "a@example.com" {
		t.Errorf("account.email = %q, want a@example.com", body.Account.Email)
	}

	// The cookie now authenticates /api/session.
	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: cookie.Value})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/session = %d, want 200", rec.Code)
	}
}

func TestBootstrap_Failure_MissingIDToken(t *testing.T) {
	srv := newTestServer(newMemStore())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", nil))

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	if code := decodeError(t, res); code != codeUnauthorized {
		t.Errorf("code = %q, want %q", code, codeUnauthorized)
	}
}

func TestBootstrap_Failure_ConflictThenOverride(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(st)
	token := idToken(t, "idp|1", "a@example.com", true)

	// Device X logs in.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", nil)
	req.AddCookie(&http.Cookie{Name: "idp_id_token", Value: token})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	first := sessionCookie(t, rec.Result(), "app_session_id")
	if first == nil {
		t.Fatal("device X should get a session")
	}

	// Device Y logs in without a session cookie: conflict, nothing mutated.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", nil)
	req.AddCookie(&http.Cookie{Name: "idp_id_token", Value: token})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", res.StatusCode)
	}
	var conflict conflictResponse
	if err := json.NewDecoder(res.Body).Decode(&conflict); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if conflict.Error.Code != codeSessionExists {
		t.Errorf("code = %q, want %q", conflict.Error.Code, codeSessionExists)
	}
	if sessionCookie(t, res, "app_session_id") != nil {
		t.Error("conflict must not set a session cookie")
	}

	// Device Y confirms takeover.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/session/override", nil)
	req.AddCookie(&http.Cookie{Name: "idp_id_token", Value: token})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res = rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("override status = %d, want 200", res.StatusCode)
	}
	second := sessionCookie(t, res, "app_session_id")
	if second == nil || second.Value == first.Value {
		t.Fatal("override should issue a fresh session")
	}

	// Device X's session is now revoked.
	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: first.Value})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res = rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("device X status = %d, want 401", res.StatusCode)
	}
	if code := decodeError(t, res); code != codeRevoked {
		t.Errorf("device X code = %q, want %q", code, codeRevoked)
	}
}

func TestLogout_Success_ClearsCookie(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(st)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/bootstrap", nil)
	req.AddCookie(&http.Cookie{Name: "idp_id_token", Value: idToken(t, "idp|1", "a@example.com", true)})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	cookie := sessionCookie(t, rec.Result(), "app_session_id")

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: cookie.Value})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res := rec.Result()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", res.StatusCode)
	}
	cleared := sessionCookie(t, res, "app_session_id")
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("logout should clear the session cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: cookie.Value})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res = rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", res.StatusCode)
	}
	if code := decodeError(t, res); code != codeRevoked {
		t.Errorf("code = %q, want %q", code, codeRevoked)
	}
}

func TestAdmin_Success_SuspendCutsOffTarget(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(st)
	now := time.Now().UTC()

	orgID := "org-1"
	st.orgs[orgID] = &orgdomain.Organization{ID: orgID, Name: "Acme", Status: orgdomain.OrgStatusActive}
	st.accounts["admin-1"] = &accountdomain.Account{
		ID: "admin-1", Email: "admin@example.com",
		Status: accountdomain.AccountStatusActive, OrgID: &orgID, Role: accountdomain.RoleAdmin,
	}
	st.accounts["member-1"] = &accountdomain.Account{
		ID: "member-1", Email: "member@example.com",
		Status: accountdomain.AccountStatusActive, OrgID: &orgID, Role: accountdomain.RoleMember,
	}
	st.sessions["admin-sess"] = &sessiondomain.Session{
		ID: "admin-sess", AccountID: "admin-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	st.sessions["member-sess"] = &sessiondomain.Session{
		ID: "member-sess", AccountID: "member-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/accounts/member-1/suspend", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: "admin-sess"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("suspend status = %d, want 204", rec.Code)
	}

	// The member's session was revoked eagerly; the cookie is now dead.
	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: "member-sess"})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("member status = %d, want 401 (session revoked eagerly)", res.StatusCode)
	}
	if code := decodeError(t, res); code != codeRevoked {
		t.Errorf("member code = %q, want %q", code, codeRevoked)
	}
}

func TestAdmin_Failure_MemberForbidden(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(st)
	now := time.Now().UTC()

	orgID := "org-1"
	st.orgs[orgID] = &orgdomain.Organization{ID: orgID, Name: "Acme", Status: orgdomain.OrgStatusActive}
	st.accounts["member-1"] = &accountdomain.Account{
		ID: "member-1", Email: "member@example.com",
		Status: accountdomain.AccountStatusActive, OrgID: &orgID, Role: accountdomain.RoleMember,
	}
	st.sessions["member-sess"] = &sessiondomain.Session{
		ID: "member-sess", AccountID: "member-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/accounts/", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: "member-sess"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	res := rec.Result()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.StatusCode)
	}
	if code := decodeError(t, res); code != codeForbidden {
		t.Errorf("code = %q, want %q", code, codeForbidden)
	}
}

func TestHealth_Success(t *testing.T) {
	srv := newTestServer(newMemStore())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
