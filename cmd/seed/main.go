// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	accountdomain "session-authority/internal/account/domain"
	accountrepo "session-authority/internal/account/repository"
	"session-authority/internal/config"
	"session-authority/internal/db"
	orgdomain "session-authority/internal/organization/domain"
	orgrepo "session-authority/internal/organization/repository"
	sessiondomain "session-authority/internal/session/domain"
	sessionrepo "session-authority/internal/session/repository"
)

const (
	devOrgID      = "dev-org-001"
	devAdminID    = "dev-account-001"
	devMemberID   = "dev-account-002"
	devSessionID  = "dev-session-001"
	devAdminEmail = "admin@example.com"
	memberEmail   = "member@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	accounts := accountrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)

	existing, err := accounts.GetByEmail(ctx, devAdminEmail)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Println("seed: dev data already present, nothing to do")
		return
	}

	now := time.Now().UTC()
	orgID := devOrgID

	if err := orgs.Create(ctx, &orgdomain.Organization{
		ID:        devOrgID,
		Name:      "Dev Org",
		Status:    orgdomain.OrgStatusActive,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("seed org: %v", err)
	}

	if err := accounts.Create(ctx, &accountdomain.Account{
		ID:              devAdminID,
		Email:           devAdminEmail,
		ExternalSubject: "dev|admin",
		Status:          accountdomain.AccountStatusActive,
		OrgID:           &orgID,
		Role:            accountdomain.RoleAdmin,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	if err := accounts.Create(ctx, &accountdomain.Account{
		ID:              devMemberID,
		Email:           memberEmail,
		ExternalSubject: "dev|member",
		Status:          accountdomain.AccountStatusActive,
		OrgID:           &orgID,
		Role:            accountdomain.RoleMember,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		log.Fatalf("seed member: %v", err)
	}

	// A known live session for the admin, so curl against protected routes
	// works right after seeding.
	sessions := sessionrepo.NewPostgresRepository(conn)
	if err := sessions.Create(ctx, &sessiondomain.Session{
		ID:        devSessionID,
		AccountID: devAdminID,
		CreatedAt: now,
		ExpiresAt: sessiondomain.Expiry(now, cfg.SessionTimeout()),
		UserAgent: "seed",
	}); err != nil {
		log.Fatalf("seed session: %v", err)
	}

	log.Println("seed: inserted dev org, accounts, and admin session")
}
