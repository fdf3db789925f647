package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/brightlane/agencyhub/pkg/domain"
)

// SQLStore implements Store over database/sql. It works against PostgreSQL
// in production and SQLite in tests; every query uses numbered placeholders
// and explicit timestamps so both drivers behave identically.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// entityTables maps entity kinds to their primary table.
var entityTables = map[domain.EntityKind]string{
	domain.EntityClient:   "clients",
	domain.EntityCampaign: "campaigns",
	domain.EntityTask:     "tasks",
	domain.EntityApproval: "approval_requests",
	domain.EntityMessage:  "messages",
}

// searchColumns maps entity kinds to the columns a free-text search covers.
var searchColumns = map[domain.EntityKind][]string{
	domain.EntityClient:   {"name", "email", "company"},
	domain.EntityCampaign: {"name", "description"},
	domain.EntityTask:     {"tasks.title", "tasks.description"},
	domain.EntityApproval: {"title", "description"},
	domain.EntityMessage:  {"subject", "body"},
}

// sortColumns whitelists caller-supplied sort keys per entity kind.
var sortColumns = map[domain.EntityKind]map[string]string{
	domain.EntityClient:   {"name": "name", "created_at": "created_at"},
	domain.EntityCampaign: {"name": "name", "status": "status", "created_at": "created_at"},
	domain.EntityTask:     {"title": "tasks.title", "status": "tasks.status", "priority": "tasks.priority", "due_date": "tasks.due_date", "created_at": "tasks.created_at"},
	domain.EntityApproval: {"title": "title", "status": "status", "created_at": "created_at"},
	domain.EntityMessage:  {"subject": "subject", "created_at": "created_at"},
}

func defaultSort(kind domain.EntityKind) string {
	if kind == domain.EntityTask {
		return "tasks.created_at"
	}
	return "created_at"
}

// buildFilter renders the predicate plus the caller's search and status
// filters as a single WHERE fragment. The predicate always comes first;
// caller filters compose conjunctively.
func buildFilter(kind domain.EntityKind, pred Predicate, opts ListOptions, statusColumn string) (string, []interface{}) {
	where, args := pred.SQL(1)

	if opts.Search != "" {
		pattern := "%" + strings.ToLower(opts.Search) + "%"
		clauses := make([]string, 0, len(searchColumns[kind]))
		for _, col := range searchColumns[kind] {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE $%d", col, len(args)+1))
			args = append(args, pattern)
		}
		where = fmt.Sprintf("(%s) AND (%s)", where, strings.Join(clauses, " OR "))
	}

	if opts.Status != "" && statusColumn != "" {
		where = fmt.Sprintf("(%s) AND %s = $%d", where, statusColumn, len(args)+1)
		args = append(args, opts.Status)
	}

	return where, args
}

// orderAndPage renders ORDER BY / LIMIT / OFFSET, appending paging args.
func orderAndPage(kind domain.EntityKind, opts ListOptions, args []interface{}) (string, []interface{}) {
	col := defaultSort(kind)
	dir := "DESC"
	if opts.SortBy != "" {
		if mapped, ok := sortColumns[kind][opts.SortBy]; ok {
			col = mapped
			dir = "ASC"
			if opts.SortDesc {
				dir = "DESC"
			}
		}
	}

	clause := fmt.Sprintf(" ORDER BY %s %s", col, dir)
	if opts.Page.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, opts.Page.Limit, opts.Page.Offset)
	}
	return clause, args
}

// MatchesScope reports whether the record falls inside the predicate.
func (s *SQLStore) MatchesScope(ctx context.Context, kind domain.EntityKind, id int64, pred Predicate) (bool, error) {
	if pred.IsAll() {
		return true, nil
	}
	if pred.IsNone() {
		return false, nil
	}

	table, ok := entityTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown entity kind: %s", kind)
	}

	where, args := pred.SQL(2)
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND (%s))", table, where)

	var matches bool
	if err := s.db.QueryRowContext(ctx, query, append([]interface{}{id}, args...)...).Scan(&matches); err != nil {
		return false, fmt.Errorf("failed to evaluate scope for %s %d: %w", kind, id, err)
	}
	return matches, nil
}

// Delete removes a record by kind and ID.
func (s *SQLStore) Delete(ctx context.Context, kind domain.EntityKind, id int64) error {
	table, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("unknown entity kind: %s", kind)
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TeamMemberByEmail looks up a team member by email, case-insensitively.
func (s *SQLStore) TeamMemberByEmail(ctx context.Context, email string) (*domain.TeamMember, error) {
	query := `
		SELECT id, name, email, title, is_active, created_at, updated_at
		FROM team_members
		WHERE LOWER(email) = LOWER($1)
	`
	m := &domain.TeamMember{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&m.ID, &m.Name, &m.Email, &m.Title, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up team member by email: %w", err)
	}
	return m, nil
}

// ClientByEmail looks up a client by email, case-insensitively.
func (s *SQLStore) ClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	query := `
		SELECT id, name, email, company, phone, created_at, updated_at
		FROM clients
		WHERE LOWER(email) = LOWER($1)
	`
	c := &domain.Client{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up client by email: %w", err)
	}
	return c, nil
}

// ListClients lists clients inside the predicate.
func (s *SQLStore) ListClients(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.Client, int64, error) {
	where, args := buildFilter(domain.EntityClient, pred, opts, "")

	var total int64
	countQuery := "SELECT COUNT(*) FROM clients WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	page, args := orderAndPage(domain.EntityClient, opts, args)
	query := `
		SELECT id, name, email, company, phone, created_at, updated_at
		FROM clients WHERE ` + where + page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		c := &domain.Client{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

// GetClient fetches a client by ID.
func (s *SQLStore) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	query := `
		SELECT id, name, email, company, phone, created_at, updated_at
		FROM clients WHERE id = $1
	`
	c := &domain.Client{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// CreateClient inserts a client and fills in its ID and timestamps.
func (s *SQLStore) CreateClient(ctx context.Context, client *domain.Client) error {
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	query := `
		INSERT INTO clients (name, email, company, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		client.Name, client.Email, client.Company, client.Phone, now, now,
	).Scan(&client.ID)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// ListTeamMembers lists team members. Team members are only ever listed by
// admins, so there is no predicate parameter here.
func (s *SQLStore) ListTeamMembers(ctx context.Context, opts ListOptions) ([]*domain.TeamMember, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM team_members").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count team members: %w", err)
	}

	args := []interface{}{}
	query := `
		SELECT id, name, email, title, is_active, created_at, updated_at
		FROM team_members ORDER BY name ASC
	`
	if opts.Page.Limit > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, opts.Page.Limit, opts.Page.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []*domain.TeamMember
	for rows.Next() {
		m := &domain.TeamMember{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Title, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, total, rows.Err()
}

// CreateTeamMember inserts a team member.
func (s *SQLStore) CreateTeamMember(ctx context.Context, member *domain.TeamMember) error {
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now
	query := `
		INSERT INTO team_members (name, email, title, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		member.Name, member.Email, member.Title, member.IsActive, now, now,
	).Scan(&member.ID)
	if err != nil {
		return fmt.Errorf("failed to create team member: %w", err)
	}
	return nil
}

// ListCampaigns lists campaigns inside the predicate.
func (s *SQLStore) ListCampaigns(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.Campaign, int64, error) {
	where, args := buildFilter(domain.EntityCampaign, pred, opts, "status")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	page, args := orderAndPage(domain.EntityCampaign, opts, args)
	query := `
		SELECT id, client_id, name, description, status, created_by_id, created_at, updated_at
		FROM campaigns WHERE ` + where + page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c := &domain.Campaign{}
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Name, &c.Description, &c.Status, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

// GetCampaign fetches a campaign by ID.
func (s *SQLStore) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := `
		SELECT id, client_id, name, description, status, created_by_id, created_at, updated_at
		FROM campaigns WHERE id = $1
	`
	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ClientID, &c.Name, &c.Description, &c.Status, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// CreateCampaign inserts a campaign.
func (s *SQLStore) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	if campaign.Status == "" {
		campaign.Status = "active"
	}
	query := `
		INSERT INTO campaigns (client_id, name, description, status, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		campaign.ClientID, campaign.Name, campaign.Description, campaign.Status,
		campaign.CreatedByID, now, now,
	).Scan(&campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// UpdateCampaign applies a partial update and returns the updated record.
func (s *SQLStore) UpdateCampaign(ctx context.Context, id int64, changes domain.CampaignChanges) (*domain.Campaign, error) {
	setClauses := []string{}
	args := []interface{}{}

	if changes.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *changes.Name)
	}
	if changes.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", len(args)+1))
		args = append(args, *changes.Description)
	}
	if changes.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *changes.Status)
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)+1))
		args = append(args, time.Now().UTC())
		args = append(args, id)
		query := fmt.Sprintf("UPDATE campaigns SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update campaign: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetCampaign(ctx, id)
}

// SetCampaignAssignments replaces the campaign's assignment set in one
// transaction.
func (s *SQLStore) SetCampaignAssignments(ctx context.Context, campaignID int64, assignments []domain.CampaignAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM campaign_assignments WHERE campaign_id = $1", campaignID); err != nil {
		return fmt.Errorf("failed to clear campaign assignments: %w", err)
	}

	now := time.Now().UTC()
	for _, a := range assignments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_assignments (campaign_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)
		`, campaignID, a.UserID, a.Role, now)
		if err != nil {
			return fmt.Errorf("failed to insert campaign assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign assignments: %w", err)
	}
	return nil
}

// ListCampaignAssignments lists a campaign's assignment set.
func (s *SQLStore) ListCampaignAssignments(ctx context.Context, campaignID int64) ([]*domain.CampaignAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, user_id, role, created_at
		FROM campaign_assignments WHERE campaign_id = $1 ORDER BY created_at ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*domain.CampaignAssignment
	for rows.Next() {
		a := &domain.CampaignAssignment{}
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.UserID, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

const taskViewColumns = `
	tasks.id, tasks.campaign_id, tasks.title, tasks.description, tasks.status,
	tasks.priority, tasks.notes, tasks.due_date, tasks.assigned_to_team_member_id,
	tasks.assigned_to_id, tasks.created_by_id, tasks.completed_at,
	tasks.created_at, tasks.updated_at,
	team_members.name, team_members.title
`

const taskViewFrom = `
	FROM tasks
	LEFT JOIN team_members ON tasks.assigned_to_team_member_id = team_members.id
`

func scanTaskView(scanner interface{ Scan(dest ...interface{}) error }) (*domain.TaskView, error) {
	v := &domain.TaskView{}
	err := scanner.Scan(
		&v.ID, &v.CampaignID, &v.Title, &v.Description, &v.Status,
		&v.Priority, &v.Notes, &v.DueDate, &v.AssignedToTeamMemberID,
		&v.AssignedToID, &v.CreatedByID, &v.CompletedAt,
		&v.CreatedAt, &v.UpdatedAt,
		&v.AssignedToTeamMemberName, &v.AssignedToTeamMemberTitle,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListTasks lists tasks inside the predicate, joined with the assigned
// team member for the outbound view.
func (s *SQLStore) ListTasks(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.TaskView, int64, error) {
	where, args := buildFilter(domain.EntityTask, pred, opts, "tasks.status")

	var total int64
	countQuery := "SELECT COUNT(*) " + taskViewFrom + " WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	page, args := orderAndPage(domain.EntityTask, opts, args)
	query := "SELECT " + taskViewColumns + taskViewFrom + " WHERE " + where + page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.TaskView
	for rows.Next() {
		v, err := scanTaskView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, v)
	}
	return tasks, total, rows.Err()
}

// GetTask fetches a task view by ID.
func (s *SQLStore) GetTask(ctx context.Context, id int64) (*domain.TaskView, error) {
	query := "SELECT " + taskViewColumns + taskViewFrom + " WHERE tasks.id = $1"
	v, err := scanTaskView(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return v, nil
}

// CreateTask inserts a task.
func (s *SQLStore) CreateTask(ctx context.Context, task *domain.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = domain.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	query := `
		INSERT INTO tasks (campaign_id, title, description, status, priority, notes,
			due_date, assigned_to_team_member_id, assigned_to_id, created_by_id,
			completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		task.CampaignID, task.Title, task.Description, task.Status, task.Priority,
		task.Notes, task.DueDate, task.AssignedToTeamMemberID, task.AssignedToID,
		task.CreatedByID, task.CompletedAt, now, now,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// UpdateTask applies a partial update and returns the updated view.
func (s *SQLStore) UpdateTask(ctx context.Context, id int64, changes domain.TaskChanges) (*domain.TaskView, error) {
	setClauses := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if changes.Title != nil {
		add("title", *changes.Title)
	}
	if changes.Description != nil {
		add("description", *changes.Description)
	}
	if changes.Status != nil {
		add("status", *changes.Status)
	}
	if changes.Priority != nil {
		add("priority", *changes.Priority)
	}
	if changes.Notes != nil {
		add("notes", *changes.Notes)
	}
	if changes.DueDate != nil {
		add("due_date", *changes.DueDate)
	}
	if changes.AssignedToTeamMemberID != nil {
		add("assigned_to_team_member_id", *changes.AssignedToTeamMemberID)
	}
	if changes.AssignedToID != nil {
		add("assigned_to_id", *changes.AssignedToID)
	}
	if changes.CompletedAt != nil {
		add("completed_at", *changes.CompletedAt)
	}

	if len(setClauses) > 0 {
		add("updated_at", time.Now().UTC())
		args = append(args, id)
		query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetTask(ctx, id)
}

// ListApprovals lists approval requests inside the predicate.
func (s *SQLStore) ListApprovals(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.ApprovalRequest, int64, error) {
	where, args := buildFilter(domain.EntityApproval, pred, opts, "status")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM approval_requests WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count approval requests: %w", err)
	}

	page, args := orderAndPage(domain.EntityApproval, opts, args)
	query := `
		SELECT id, campaign_id, title, description, status, created_by_id,
			approved_by_id, approved_at, rejected_at, created_at, updated_at
		FROM approval_requests WHERE ` + where + page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	var approvals []*domain.ApprovalRequest
	for rows.Next() {
		a := &domain.ApprovalRequest{}
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.Title, &a.Description, &a.Status,
			&a.CreatedByID, &a.ApprovedByID, &a.ApprovedAt, &a.RejectedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan approval request: %w", err)
		}
		approvals = append(approvals, a)
	}
	return approvals, total, rows.Err()
}

// GetApproval fetches an approval request by ID.
func (s *SQLStore) GetApproval(ctx context.Context, id int64) (*domain.ApprovalRequest, error) {
	query := `
		SELECT id, campaign_id, title, description, status, created_by_id,
			approved_by_id, approved_at, rejected_at, created_at, updated_at
		FROM approval_requests WHERE id = $1
	`
	a := &domain.ApprovalRequest{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.CampaignID, &a.Title, &a.Description, &a.Status,
		&a.CreatedByID, &a.ApprovedByID, &a.ApprovedAt, &a.RejectedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	return a, nil
}

// CreateApproval inserts an approval request.
func (s *SQLStore) CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error {
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.ApprovalPending
	}
	query := `
		INSERT INTO approval_requests (campaign_id, title, description, status,
			created_by_id, approved_by_id, approved_at, rejected_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		req.CampaignID, req.Title, req.Description, req.Status,
		req.CreatedByID, req.ApprovedByID, req.ApprovedAt, req.RejectedAt, now, now,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("failed to create approval request: %w", err)
	}
	return nil
}

// UpdateApproval applies a partial content update and returns the updated
// record. Status is untouchable here; it changes only through
// TransitionApproval.
func (s *SQLStore) UpdateApproval(ctx context.Context, id int64, changes domain.ApprovalChanges) (*domain.ApprovalRequest, error) {
	setClauses := []string{}
	args := []interface{}{}

	if changes.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", len(args)+1))
		args = append(args, *changes.Title)
	}
	if changes.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", len(args)+1))
		args = append(args, *changes.Description)
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)+1))
		args = append(args, time.Now().UTC())
		args = append(args, id)
		query := fmt.Sprintf("UPDATE approval_requests SET %s WHERE id = $%d", strings.Join(setClauses, ", "), len(args))

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update approval request: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetApproval(ctx, id)
}

// TransitionApproval applies the status transition and appends the comment
// record in one transaction, so a reader never observes a transition
// timestamp without its comment.
func (s *SQLStore) TransitionApproval(ctx context.Context, id int64, target domain.ApprovalStatus, actorID, comment string) (*domain.ApprovalRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var approvedAt, rejectedAt *time.Time
	var approvedBy *string
	switch target {
	case domain.ApprovalApproved:
		approvedAt = &now
		approvedBy = &actorID
	case domain.ApprovalRejected:
		rejectedAt = &now
	case domain.ApprovalChangesRequested:
		// both timestamps cleared
	default:
		return nil, fmt.Errorf("invalid transition target: %s", target)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE approval_requests
		SET status = $1, approved_by_id = $2, approved_at = $3, rejected_at = $4, updated_at = $5
		WHERE id = $6
	`, target, approvedBy, approvedAt, rejectedAt, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to transition approval request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO approval_comments (approval_request_id, actor_id, action, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, actorID, target, comment, now); err != nil {
		return nil, fmt.Errorf("failed to append approval comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval transition: %w", err)
	}

	return s.GetApproval(ctx, id)
}

// ListApprovalComments lists the immutable comment trail of a request.
func (s *SQLStore) ListApprovalComments(ctx context.Context, approvalID int64) ([]*domain.ApprovalComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, approval_request_id, actor_id, action, comment, created_at
		FROM approval_comments WHERE approval_request_id = $1 ORDER BY created_at ASC, id ASC
	`, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.ApprovalComment
	for rows.Next() {
		c := &domain.ApprovalComment{}
		if err := rows.Scan(&c.ID, &c.ApprovalRequestID, &c.ActorID, &c.Action, &c.Comment, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListMessages lists messages inside the predicate.
func (s *SQLStore) ListMessages(ctx context.Context, pred Predicate, opts ListOptions) ([]*domain.Message, int64, error) {
	where, args := buildFilter(domain.EntityMessage, pred, opts, "")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	page, args := orderAndPage(domain.EntityMessage, opts, args)
	query := `
		SELECT id, sender_id, recipient_id, subject, body, parent_id, read_at, created_at
		FROM messages WHERE ` + where + page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Subject, &m.Body, &m.ParentID, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

// GetMessage fetches a message by ID.
func (s *SQLStore) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, subject, body, parent_id, read_at, created_at
		FROM messages WHERE id = $1
	`
	m := &domain.Message{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.SenderID, &m.RecipientID, &m.Subject, &m.Body, &m.ParentID, &m.ReadAt, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// CreateMessage inserts a message.
func (s *SQLStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	msg.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO messages (sender_id, recipient_id, subject, body, parent_id, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		msg.SenderID, msg.RecipientID, msg.Subject, msg.Body, msg.ParentID, msg.ReadAt, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}
