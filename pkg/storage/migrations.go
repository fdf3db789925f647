package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the schema migrations, in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create clients table",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					company VARCHAR(255) NOT NULL DEFAULT '',
					phone VARCHAR(50) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_clients_email_lower ON clients(LOWER(email));
			`,
		},
		{
			Version:     2,
			Description: "Create team_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS team_members (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					title VARCHAR(255) NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_team_members_email_lower ON team_members(LOWER(email));
			`,
		},
		{
			Version:     3,
			Description: "Create campaigns table",
			SQL: `
				CREATE TABLE IF NOT EXISTS campaigns (
					id BIGSERIAL PRIMARY KEY,
					client_id BIGINT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(50) NOT NULL DEFAULT 'active',
					created_by_id VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_campaigns_client_id ON campaigns(client_id);
				CREATE INDEX idx_campaigns_created_by_id ON campaigns(created_by_id);
				CREATE INDEX idx_campaigns_status ON campaigns(status);
			`,
		},
		{
			Version:     4,
			Description: "Create campaign_assignments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS campaign_assignments (
					id BIGSERIAL PRIMARY KEY,
					campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
					user_id VARCHAR(255) NOT NULL,
					role VARCHAR(50) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(campaign_id, user_id)
				);

				CREATE INDEX idx_campaign_assignments_campaign_id ON campaign_assignments(campaign_id);
				CREATE INDEX idx_campaign_assignments_user_id ON campaign_assignments(user_id);
			`,
		},
		{
			Version:     5,
			Description: "Create tasks table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tasks (
					id BIGSERIAL PRIMARY KEY,
					campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(50) NOT NULL DEFAULT 'todo',
					priority VARCHAR(50) NOT NULL DEFAULT 'medium',
					notes TEXT NOT NULL DEFAULT '',
					due_date TIMESTAMP,
					assigned_to_team_member_id BIGINT REFERENCES team_members(id) ON DELETE SET NULL,
					assigned_to_id VARCHAR(255),
					created_by_id VARCHAR(255) NOT NULL,
					completed_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_tasks_campaign_id ON tasks(campaign_id);
				CREATE INDEX idx_tasks_assigned_to_team_member_id ON tasks(assigned_to_team_member_id);
				CREATE INDEX idx_tasks_assigned_to_id ON tasks(assigned_to_id);
				CREATE INDEX idx_tasks_created_by_id ON tasks(created_by_id);
				CREATE INDEX idx_tasks_status ON tasks(status);
			`,
		},
		{
			Version:     6,
			Description: "Create approval_requests table",
			SQL: `
				CREATE TABLE IF NOT EXISTS approval_requests (
					id BIGSERIAL PRIMARY KEY,
					campaign_id BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(50) NOT NULL DEFAULT 'pending',
					created_by_id VARCHAR(255) NOT NULL,
					approved_by_id VARCHAR(255),
					approved_at TIMESTAMP,
					rejected_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_approval_requests_campaign_id ON approval_requests(campaign_id);
				CREATE INDEX idx_approval_requests_status ON approval_requests(status);
			`,
		},
		{
			Version:     7,
			Description: "Create approval_comments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS approval_comments (
					id BIGSERIAL PRIMARY KEY,
					approval_request_id BIGINT NOT NULL REFERENCES approval_requests(id) ON DELETE CASCADE,
					actor_id VARCHAR(255) NOT NULL,
					action VARCHAR(50) NOT NULL,
					comment TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_approval_comments_approval_request_id ON approval_comments(approval_request_id);
			`,
		},
		{
			Version:     8,
			Description: "Create messages table",
			SQL: `
				CREATE TABLE IF NOT EXISTS messages (
					id BIGSERIAL PRIMARY KEY,
					sender_id VARCHAR(255) NOT NULL,
					recipient_id VARCHAR(255) NOT NULL,
					subject VARCHAR(255) NOT NULL DEFAULT '',
					body TEXT NOT NULL DEFAULT '',
					parent_id BIGINT REFERENCES messages(id) ON DELETE CASCADE,
					read_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_messages_sender_id ON messages(sender_id);
				CREATE INDEX idx_messages_recipient_id ON messages(recipient_id);
				CREATE INDEX idx_messages_parent_id ON messages(parent_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range Migrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
