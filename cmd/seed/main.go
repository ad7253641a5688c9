// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev officer (officer@example.com) already exists.
// Org codes come from ORG_CODES so the seeded orgs match the beacon registry.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	authdomain "beacon-attendance/backend/internal/auth/domain"
	authrepo "beacon-attendance/backend/internal/auth/repository"
	"beacon-attendance/backend/internal/beacon"
	"beacon-attendance/backend/internal/config"
	"beacon-attendance/backend/internal/db"
	membershipdomain "beacon-attendance/backend/internal/membership/domain"
	membershiprepo "beacon-attendance/backend/internal/membership/repository"
	orgdomain "beacon-attendance/backend/internal/organization/domain"
	orgrepo "beacon-attendance/backend/internal/organization/repository"
	"beacon-attendance/backend/internal/security"
)

const (
	officerEmail = "officer@example.com"
	memberEmail  = "member@example.com"
	devPassword  = "Password12345"

	officerID = "dev-user-001"
	memberID  = "dev-user-002"
	orgID     = "dev-org-001"
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

	users := authrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, officerEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (officer@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	codes, err := cfg.OrgCodeTable()
	if err != nil {
		log.Fatalf("org codes: %v", err)
	}
	registry := beacon.NewRegistry(codes)
	orgCode := registry.OrgCode("acme")
	if orgCode == beacon.UnknownOrgCode {
		// No assignment configured; pick a fixed dev code.
		orgCode = 512
	}

	now := time.Now().UTC()

	if err := orgs.Create(ctx, &orgdomain.Org{
		ID:        orgID,
		Slug:      "acme",
		Name:      "Acme Dev Club",
		OrgCode:   orgCode,
		Status:    orgdomain.OrgStatusActive,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create org: %v", err)
	}

	for _, u := range []*authdomain.User{
		{ID: officerID, Email: officerEmail, Name: "Dev Officer", PasswordHash: passwordHash, Status: authdomain.UserStatusActive, CreatedAt: now},
		{ID: memberID, Email: memberEmail, Name: "Dev Member", PasswordHash: passwordHash, Status: authdomain.UserStatusActive, CreatedAt: now},
	} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	for _, m := range []*membershipdomain.Membership{
		{ID: "dev-membership-001", UserID: officerID, OrgID: orgID, Role: membershipdomain.RoleOfficer, Status: membershipdomain.StatusActive, CreatedAt: now},
		{ID: "dev-membership-002", UserID: memberID, OrgID: orgID, Role: membershipdomain.RoleMember, Status: membershipdomain.StatusActive, CreatedAt: now},
	} {
		if err := memberships.CreateMembership(ctx, m); err != nil {
			log.Fatalf("create membership %s: %v", m.ID, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Officer login: %s / %s (org_id %s)\n", officerEmail, devPassword, orgID)
	fmt.Printf("Member login:  %s / %s (org_id %s)\n", memberEmail, devPassword, orgID)
}
