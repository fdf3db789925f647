// Package storagetest provides an in-memory SQLite store for tests. The
// schema mirrors the production migrations with SQLite column types.
package storagetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/storage"
)

const schema = `
	CREATE TABLE clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE team_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE campaigns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_by_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE campaign_assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(campaign_id, user_id)
	);

	CREATE TABLE tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'todo',
		priority TEXT NOT NULL DEFAULT 'medium',
		notes TEXT NOT NULL DEFAULT '',
		due_date TIMESTAMP,
		assigned_to_team_member_id INTEGER,
		assigned_to_id TEXT,
		created_by_id TEXT NOT NULL,
		completed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE approval_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_by_id TEXT NOT NULL,
		approved_by_id TEXT,
		approved_at TIMESTAMP,
		rejected_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE approval_comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		approval_request_id INTEGER NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		parent_id INTEGER,
		read_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);
`

// NewDB opens an in-memory SQLite database with the full schema applied.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

// NewStore opens an in-memory store ready for use.
func NewStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	return storage.NewSQLStore(NewDB(t))
}

// MustCreateClient inserts a client and returns it.
func MustCreateClient(t *testing.T, s *storage.SQLStore, name, email string) *domain.Client {
	t.Helper()
	c := &domain.Client{Name: name, Email: email}
	if err := s.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// MustCreateTeamMember inserts a team member and returns it.
func MustCreateTeamMember(t *testing.T, s *storage.SQLStore, name, email, title string) *domain.TeamMember {
	t.Helper()
	m := &domain.TeamMember{Name: name, Email: email, Title: title, IsActive: true}
	if err := s.CreateTeamMember(context.Background(), m); err != nil {
		t.Fatalf("Failed to create team member: %v", err)
	}
	return m
}

// MustCreateCampaign inserts a campaign and returns it.
func MustCreateCampaign(t *testing.T, s *storage.SQLStore, clientID int64, name, createdBy string) *domain.Campaign {
	t.Helper()
	c := &domain.Campaign{ClientID: clientID, Name: name, CreatedByID: createdBy}
	if err := s.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("Failed to create campaign: %v", err)
	}
	return c
}

// MustCreateTask inserts a task and returns it.
func MustCreateTask(t *testing.T, s *storage.SQLStore, task *domain.Task) *domain.Task {
	t.Helper()
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}

// MustCreateApproval inserts an approval request and returns it.
func MustCreateApproval(t *testing.T, s *storage.SQLStore, campaignID int64, title, createdBy string) *domain.ApprovalRequest {
	t.Helper()
	a := &domain.ApprovalRequest{CampaignID: campaignID, Title: title, CreatedByID: createdBy}
	if err := s.CreateApproval(context.Background(), a); err != nil {
		t.Fatalf("Failed to create approval request: %v", err)
	}
	return a
}

// MustAssign replaces a campaign's assignment set.
func MustAssign(t *testing.T, s *storage.SQLStore, campaignID int64, assignments ...domain.CampaignAssignment) {
	t.Helper()
	if err := s.SetCampaignAssignments(context.Background(), campaignID, assignments); err != nil {
		t.Fatalf("Failed to set campaign assignments: %v", err)
	}
}

// Ptr returns a pointer to v. Convenient for change sets.
func Ptr[T any](v T) *T { return &v }

// Time returns a UTC timestamp offset from now by d.
func Time(d time.Duration) time.Time {
	return time.Now().UTC().Add(d)
}
