// Package audit records administrative actions (suspensions, reactivations)
// for operator review. Recording is best-effort and never affects the action
// being recorded.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"session-authority/internal/audit/domain"
	auditrepo "session-authority/internal/audit/repository"
)

// SentinelOrgID is the org_id used for audit events with no organization
// (actions on individual accounts).
const SentinelOrgID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action and entity.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, actorAccountID, action, entityType, entityID, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for the client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, actorAccountID, action, entityType, entityID, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:             uuid.New().String(),
		OrgID:          orgID,
		ActorAccountID: actorAccountID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		IP:             ip,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, entityType, err)
	}
}
