package audit

import (
	"context"
	"errors"
	"testing"

	"session-authority/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	ipExtractor := func(ctx context.Context) string {
		return "192.168.1.1"
	}
	logger := NewLogger(repo, ipExtractor)

	logger.LogEvent(context.Background(), "org-1", "acct-1", "account_suspend", "account", "acct-2", "{}")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.OrgID != "org-1" {
		t.Errorf("org_id = %q, want %q", entry.OrgID, "org-1")
	}
	if entry.ActorAccountID != "acct-1" {
		t.Errorf("actor_account_id = %q, want %q", entry.ActorAccountID, "acct-1")
	}
	if entry.Action != "account_suspend" {
		t.Errorf("action = %q, want %q", entry.Action, "account_suspend")
	}
	if entry.EntityType != "account" || entry.EntityID != "acct-2" {
		t.Errorf("entity = %q/%q, want account/acct-2", entry.EntityType, entry.EntityID)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_SentinelOrg(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "acct-1", "account_suspend", "account", "acct-2", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].OrgID != SentinelOrgID {
		t.Errorf("org_id = %q, want sentinel %q", repo.entries[0].OrgID, SentinelOrgID)
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want unknown without extractor", repo.entries[0].IP)
	}
}

func TestLogger_LogEvent_Failure_DoesNotPanic(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo, nil)

	// Best-effort: a repository failure must not propagate.
	logger.LogEvent(context.Background(), "org-1", "acct-1", "account_suspend", "account", "acct-2", "")

	if len(repo.entries) != 0 {
		t.Error("no entry should be recorded on failure")
	}
}
