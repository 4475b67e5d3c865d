package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// viewSelect is the joined projection every task listing shares. One task
// fans out into one row per (assignee x sub-department) combination; the
// taskview package collapses the fan-out.
const viewSelect = `
SELECT t.task_id, t.title, t.description, t.priority, t.status, t.created_by,
  COALESCE(t.department_id, 0), t.target_date, t.created_at,
  creator.name, au.name, sd.sub_department_name`

const viewInteractionSelect = `,
  ui.interaction_id, ui.user_id, ui.interaction_type, ui.interaction_detail, ui.interaction_timestamp`

const viewJoins = `
FROM tasks t
LEFT JOIN users creator ON creator.user_id = t.created_by
LEFT JOIN task_assignees ta ON ta.task_id = t.task_id
LEFT JOIN users au ON au.user_id = ta.user_id
LEFT JOIN task_sub_departments tsd ON tsd.task_id = t.task_id
LEFT JOIN sub_departments sd ON sd.sub_department_id = tsd.sub_department_id`

const viewInteractionJoin = `
LEFT JOIN user_interactions ui ON ui.task_id = t.task_id AND ui.user_id = ?`

func (s *sqliteStore) CreateTask(ctx context.Context, t NewTask) (int64, error) {
	if strings.TrimSpace(t.Title) == "" {
		return 0, fmt.Errorf("%w: title required", ErrValidation)
	}
	if t.CreatedBy == 0 {
		return 0, fmt.Errorf("%w: created_by required", ErrValidation)
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(t.Priority) {
		return 0, fmt.Errorf("%w: priority %q", ErrValidation, t.Priority)
	}
	if t.Status == "" {
		return 0, fmt.Errorf("%w: status required", ErrValidation)
	}
	if !models.ValidStatus(t.Status) {
		return 0, fmt.Errorf("%w: status %q", ErrValidation, t.Status)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var dept any
	if t.DepartmentID != 0 {
		dept = t.DepartmentID
	}
	var target any
	if t.TargetDate != nil {
		target = *t.TargetDate
	}
	res, err := tx.StmtContext(ctx, s.stmtCreateTask).ExecContext(ctx,
		t.Title, t.Description, t.Priority, t.Status, t.CreatedBy, dept, target, time.Now().UTC().Unix())
	if err != nil {
		return 0, err
	}
	taskID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertRelations(ctx, tx, taskID, t.Assignees, t.SubDepartments); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return taskID, nil
}

func insertRelations(ctx context.Context, tx *sql.Tx, taskID int64, assignees, subDepartments []int64) error {
	for _, userID := range assignees {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_assignees(task_id, user_id) VALUES(?, ?)`, taskID, userID); err != nil {
			return err
		}
	}
	for _, sdID := range subDepartments {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_sub_departments(task_id, sub_department_id) VALUES(?, ?)`, taskID, sdID); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) GetTask(ctx context.Context, taskID int64) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
WHERE t.task_id = ?`
	rows, err := s.queryViewRows(ctx, q, false, taskID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return rows, nil
}

func (s *sqliteStore) ListTasks(ctx context.Context, limit int) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT ?`
	return s.queryViewRows(ctx, q, false, listLimit(limit))
}

func (s *sqliteStore) ListTasksScoped(ctx context.Context, f ScopeFilter, limit int) ([]taskview.Row, error) {
	pred, predArgs, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	q := viewSelect + viewInteractionSelect + viewJoins + viewInteractionJoin + `
WHERE ` + pred + `
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT ?`
	args := append([]any{f.UserID}, predArgs...)
	args = append(args, listLimit(limit))
	return s.queryViewRows(ctx, q, true, args...)
}

func (s *sqliteStore) ListTasksByDepartment(ctx context.Context, departmentID int64, limit int) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
WHERE t.department_id = ?
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT ?`
	return s.queryViewRows(ctx, q, false, departmentID, listLimit(limit))
}

func (s *sqliteStore) ListTasksBySubDepartment(ctx context.Context, subDepartmentID int64, limit int) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
WHERE tsd.sub_department_id = ?
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT ?`
	return s.queryViewRows(ctx, q, false, subDepartmentID, listLimit(limit))
}

func listLimit(limit int) int {
	if limit <= 0 {
		return models.DefaultTaskListLimit
	}
	return limit
}

func (s *sqliteStore) queryViewRows(ctx context.Context, q string, withInteraction bool, args ...any) ([]taskview.Row, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []taskview.Row
	for rows.Next() {
		r, err := scanViewRow(rows, withInteraction)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// scanViewRow scans the current row of the shared view projection. When
// withInteraction is set, the five interaction columns follow the base ones.
func scanViewRow(rows interface{ Scan(dest ...any) error }, withInteraction bool) (taskview.Row, error) {
	var (
		id          int64
		title       string
		description string
		priority    string
		status      string
		createdBy   int64
		deptID      int64
		targetDate  sql.NullString
		createdAt   int64
		creatorName sql.NullString
		assignee    sql.NullString
		subDept     sql.NullString

		uiID     sql.NullInt64
		uiUser   sql.NullInt64
		uiType   sql.NullString
		uiDetail sql.NullString
		uiTS     sql.NullInt64
	)
	dest := []any{&id, &title, &description, &priority, &status, &createdBy, &deptID, &targetDate, &createdAt, &creatorName, &assignee, &subDept}
	if withInteraction {
		dest = append(dest, &uiID, &uiUser, &uiType, &uiDetail, &uiTS)
	}
	if err := rows.Scan(dest...); err != nil {
		return taskview.Row{}, err
	}

	r := taskview.Row{
		Task: models.Task{
			TaskID:       id,
			Title:        title,
			Description:  description,
			Priority:     priority,
			Status:       status,
			CreatedBy:    createdBy,
			DepartmentID: deptID,
			CreatedAt:    time.Unix(createdAt, 0).UTC(),
		},
	}
	if targetDate.Valid {
		r.Task.TargetDate = &targetDate.String
	}
	if creatorName.Valid {
		r.CreatedByName = &creatorName.String
	}
	if assignee.Valid {
		r.AssigneeName = &assignee.String
	}
	if subDept.Valid {
		r.SubDepartmentName = &subDept.String
	}
	if withInteraction && uiID.Valid {
		r.Interaction = &models.Interaction{
			InteractionID: uiID.Int64,
			UserID:        uiUser.Int64,
			TaskID:        id,
			Type:          uiType.String,
			Detail:        uiDetail.String,
			Timestamp:     time.Unix(uiTS.Int64, 0).UTC(),
		}
	}
	return r, nil
}

func (s *sqliteStore) UpdateTask(ctx context.Context, taskID int64, u TaskUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return fmt.Errorf("%w: title required", ErrValidation)
		}
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Priority != nil {
		if !models.ValidPriority(*u.Priority) {
			return fmt.Errorf("%w: priority %q", ErrValidation, *u.Priority)
		}
		sets = append(sets, "priority = ?")
		args = append(args, *u.Priority)
	}
	if u.Status != nil {
		if !models.ValidStatus(*u.Status) {
			return fmt.Errorf("%w: status %q", ErrValidation, *u.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if u.DepartmentID != nil {
		sets = append(sets, "department_id = ?")
		args = append(args, *u.DepartmentID)
	}
	if u.TargetDate != nil {
		sets = append(sets, "target_date = ?")
		args = append(args, *u.TargetDate)
	}
	if len(sets) == 0 && u.Assignees == nil && u.SubDepartments == nil {
		return fmt.Errorf("%w: empty update", ErrValidation)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE task_id = ?`, taskID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		return err
	}

	if len(sets) > 0 {
		q := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE task_id = ?"
		if _, err := tx.ExecContext(ctx, q, append(args, taskID)...); err != nil {
			return err
		}
	}
	if u.Assignees != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, taskID); err != nil {
			return err
		}
	}
	if u.SubDepartments != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_sub_departments WHERE task_id = ?`, taskID); err != nil {
			return err
		}
	}
	if err := insertRelations(ctx, tx, taskID, u.Assignees, u.SubDepartments); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) UpdateTaskStatus(ctx context.Context, taskID int64, status string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: status %q", ErrValidation, status)
	}
	res, err := s.stmtUpdateStatus.ExecContext(ctx, status, taskID)
	if err != nil {
		return err
	}
	return requireAffected(res, taskID)
}

func (s *sqliteStore) UpdateTaskTargetDate(ctx context.Context, taskID int64, targetDate string) error {
	if strings.TrimSpace(targetDate) == "" {
		return fmt.Errorf("%w: target_date required", ErrValidation)
	}
	res, err := s.stmtUpdateTargetDate.ExecContext(ctx, targetDate, taskID)
	if err != nil {
		return err
	}
	return requireAffected(res, taskID)
}

func (s *sqliteStore) DeleteTask(ctx context.Context, taskID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Relation rows go with the task; the interaction log is append-only
	// and keeps its rows, now orphaned.
	for _, q := range []string{
		`DELETE FROM task_assignees WHERE task_id = ?`,
		`DELETE FROM task_sub_departments WHERE task_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, taskID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, taskID)
	if err != nil {
		return err
	}
	if err := requireAffected(res, taskID); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, taskID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) LogInteraction(ctx context.Context, in models.Interaction) (models.Interaction, error) {
	if in.UserID == 0 || in.TaskID == 0 {
		return models.Interaction{}, fmt.Errorf("%w: user_id and task_id required", ErrValidation)
	}
	if strings.TrimSpace(in.Type) == "" {
		return models.Interaction{}, fmt.Errorf("%w: interaction_type required", ErrValidation)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	var detail any
	if in.Detail != "" {
		detail = in.Detail
	}
	res, err := s.stmtLogInteraction.ExecContext(ctx, in.UserID, in.TaskID, in.Type, detail, in.Timestamp.Unix())
	if err != nil {
		return models.Interaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Interaction{}, err
	}
	in.InteractionID = id
	in.Timestamp = in.Timestamp.Truncate(time.Second).UTC()
	return in, nil
}

func (s *sqliteStore) ListUserTaskInteractions(ctx context.Context, userID, taskID int64) ([]models.Interaction, error) {
	return scanInteractions(s.stmtUserTaskLog.QueryContext(ctx, userID, taskID))
}

func (s *sqliteStore) ListTaskInteractions(ctx context.Context, taskID int64) ([]models.Interaction, error) {
	return scanInteractions(s.stmtTaskLog.QueryContext(ctx, taskID))
}

func scanInteractions(rows *sql.Rows, err error) ([]models.Interaction, error) {
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Interaction
	for rows.Next() {
		var (
			in models.Interaction
			ts int64
		)
		if err := rows.Scan(&in.InteractionID, &in.UserID, &in.TaskID, &in.Type, &in.Detail, &ts); err != nil {
			return nil, err
		}
		in.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var (
		u         models.User
		createdAt int64
	)
	err := s.stmtGetUser.QueryRowContext(ctx, userID).
		Scan(&u.UserID, &u.Name, &u.Email, &u.Role, &u.DepartmentID, &u.SubDepartmentID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return models.User{}, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// SeedDemo loads a small org chart and a handful of tasks for local
// development. Safe to call repeatedly.
func (s *sqliteStore) SeedDemo(ctx context.Context) error {
	now := time.Now().UTC().Unix()

	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT OR IGNORE INTO departments(department_id, department_name) VALUES(1, 'Engineering')`, nil},
		{`INSERT OR IGNORE INTO departments(department_id, department_name) VALUES(2, 'Operations')`, nil},
		{`INSERT OR IGNORE INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(1, 1, 'Backend')`, nil},
		{`INSERT OR IGNORE INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(2, 1, 'Frontend')`, nil},
		{`INSERT OR IGNORE INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(3, 2, 'Logistics')`, nil},
		{`INSERT OR IGNORE INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(1, 'Asma', 'asma@example.com', 'HOD', 1, NULL, ?)`, []any{now}},
		{`INSERT OR IGNORE INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(2, 'Bilal', 'bilal@example.com', 'Manager', 1, 1, ?)`, []any{now}},
		{`INSERT OR IGNORE INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(3, 'Chandra', 'chandra@example.com', 'Team Member', 1, 1, ?)`, []any{now}},
		{`INSERT OR IGNORE INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(4, 'Dawood', 'dawood@example.com', 'Team Member', 1, 2, ?)`, []any{now}},
	}
	for _, st := range stmts {
		if _, err := s.DB.ExecContext(ctx, st.q, st.args...); err != nil {
			return err
		}
	}

	var taskCount int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&taskCount); err != nil {
		return err
	}
	if taskCount > 0 {
		return nil
	}
	seedTasks := []NewTask{
		{Title: "Prepare quarterly report", Priority: models.PriorityHigh, Status: models.StatusPending, CreatedBy: 1, DepartmentID: 1, Assignees: []int64{2}, SubDepartments: []int64{1}},
		{Title: "Migrate CI pipeline", Status: models.StatusPending, CreatedBy: 2, DepartmentID: 1, Assignees: []int64{3, 4}, SubDepartments: []int64{1, 2}},
		{Title: "Refresh onboarding docs", Priority: models.PriorityLow, Status: models.StatusPending, CreatedBy: 2, DepartmentID: 1, Assignees: []int64{3}, SubDepartments: []int64{1}},
	}
	for _, t := range seedTasks {
		if _, err := s.CreateTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
