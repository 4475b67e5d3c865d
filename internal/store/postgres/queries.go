package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// rebind converts ? placeholders to $1..$n starting at start.
func rebind(q string, start int) string {
	var b strings.Builder
	n := start
	for _, r := range q {
		if r == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

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

func (s *Store) CreateTask(ctx context.Context, t store.NewTask) (int64, error) {
	if strings.TrimSpace(t.Title) == "" {
		return 0, fmt.Errorf("%w: title required", store.ErrValidation)
	}
	if t.CreatedBy == 0 {
		return 0, fmt.Errorf("%w: created_by required", store.ErrValidation)
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(t.Priority) {
		return 0, fmt.Errorf("%w: priority %q", store.ErrValidation, t.Priority)
	}
	if t.Status == "" {
		return 0, fmt.Errorf("%w: status required", store.ErrValidation)
	}
	if !models.ValidStatus(t.Status) {
		return 0, fmt.Errorf("%w: status %q", store.ErrValidation, t.Status)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var dept any
	if t.DepartmentID != 0 {
		dept = t.DepartmentID
	}
	var target any
	if t.TargetDate != nil {
		target = *t.TargetDate
	}
	var taskID int64
	err = tx.QueryRow(ctx, `INSERT INTO tasks(title, description, priority, status, created_by, department_id, target_date, created_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING task_id`,
		t.Title, t.Description, t.Priority, t.Status, t.CreatedBy, dept, target, time.Now().UTC().Unix()).Scan(&taskID)
	if err != nil {
		return 0, err
	}
	if err := insertRelations(ctx, tx, taskID, t.Assignees, t.SubDepartments); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return taskID, nil
}

func insertRelations(ctx context.Context, tx pgx.Tx, taskID int64, assignees, subDepartments []int64) error {
	for _, userID := range assignees {
		if _, err := tx.Exec(ctx, `INSERT INTO task_assignees(task_id, user_id) VALUES($1, $2) ON CONFLICT DO NOTHING`, taskID, userID); err != nil {
			return err
		}
	}
	for _, sdID := range subDepartments {
		if _, err := tx.Exec(ctx, `INSERT INTO task_sub_departments(task_id, sub_department_id) VALUES($1, $2) ON CONFLICT DO NOTHING`, taskID, sdID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, taskID int64) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
WHERE t.task_id = $1`
	rows, err := s.queryViewRows(ctx, q, false, taskID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("task %d: %w", taskID, store.ErrNotFound)
	}
	return rows, nil
}

func (s *Store) ListTasks(ctx context.Context, limit int) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT $1`
	return s.queryViewRows(ctx, q, false, listLimit(limit))
}

func (s *Store) ListTasksScoped(ctx context.Context, f store.ScopeFilter, limit int) ([]taskview.Row, error) {
	pred, predArgs, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	// $1 is the interaction-join user; predicate placeholders follow.
	q := viewSelect + viewInteractionSelect + viewJoins + `
LEFT JOIN user_interactions ui ON ui.task_id = t.task_id AND ui.user_id = $1
WHERE ` + rebind(pred, 2) + fmt.Sprintf(`
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT $%d`, len(predArgs)+2)
	args := append([]any{f.UserID}, predArgs...)
	args = append(args, listLimit(limit))
	return s.queryViewRows(ctx, q, true, args...)
}

func (s *Store) ListTasksByDepartment(ctx context.Context, departmentID int64, limit int) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
WHERE t.department_id = $1
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT $2`
	return s.queryViewRows(ctx, q, false, departmentID, listLimit(limit))
}

func (s *Store) ListTasksBySubDepartment(ctx context.Context, subDepartmentID int64, limit int) ([]taskview.Row, error) {
	q := viewSelect + viewJoins + `
WHERE tsd.sub_department_id = $1
ORDER BY t.created_at DESC, t.task_id DESC
LIMIT $2`
	return s.queryViewRows(ctx, q, false, subDepartmentID, listLimit(limit))
}

func listLimit(limit int) int {
	if limit <= 0 {
		return models.DefaultTaskListLimit
	}
	return limit
}

func (s *Store) queryViewRows(ctx context.Context, q string, withInteraction bool, args ...any) ([]taskview.Row, error) {
	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func scanViewRow(rows pgx.Rows, withInteraction bool) (taskview.Row, error) {
	var (
		id          int64
		title       string
		description string
		priority    string
		status      string
		createdBy   int64
		deptID      int64
		targetDate  *string
		createdAt   int64
		creatorName *string
		assignee    *string
		subDept     *string

		uiID     *int64
		uiUser   *int64
		uiType   *string
		uiDetail *string
		uiTS     *int64
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
			TargetDate:   targetDate,
			CreatedAt:    time.Unix(createdAt, 0).UTC(),
		},
		CreatedByName:     creatorName,
		AssigneeName:      assignee,
		SubDepartmentName: subDept,
	}
	if withInteraction && uiID != nil {
		in := models.Interaction{
			InteractionID: *uiID,
			TaskID:        id,
		}
		if uiUser != nil {
			in.UserID = *uiUser
		}
		if uiType != nil {
			in.Type = *uiType
		}
		if uiDetail != nil {
			in.Detail = *uiDetail
		}
		if uiTS != nil {
			in.Timestamp = time.Unix(*uiTS, 0).UTC()
		}
		r.Interaction = &in
	}
	return r, nil
}

func (s *Store) UpdateTask(ctx context.Context, taskID int64, u store.TaskUpdate) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return fmt.Errorf("%w: title required", store.ErrValidation)
		}
		set("title", *u.Title)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Priority != nil {
		if !models.ValidPriority(*u.Priority) {
			return fmt.Errorf("%w: priority %q", store.ErrValidation, *u.Priority)
		}
		set("priority", *u.Priority)
	}
	if u.Status != nil {
		if !models.ValidStatus(*u.Status) {
			return fmt.Errorf("%w: status %q", store.ErrValidation, *u.Status)
		}
		set("status", *u.Status)
	}
	if u.DepartmentID != nil {
		set("department_id", *u.DepartmentID)
	}
	if u.TargetDate != nil {
		set("target_date", *u.TargetDate)
	}
	if len(sets) == 0 && u.Assignees == nil && u.SubDepartments == nil {
		return fmt.Errorf("%w: empty update", store.ErrValidation)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM tasks WHERE task_id = $1`, taskID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("task %d: %w", taskID, store.ErrNotFound)
		}
		return err
	}

	if len(sets) > 0 {
		args = append(args, taskID)
		q := fmt.Sprintf("UPDATE tasks SET %s WHERE task_id = $%d", strings.Join(sets, ", "), len(args))
		if _, err := tx.Exec(ctx, q, args...); err != nil {
			return err
		}
	}
	if u.Assignees != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, taskID); err != nil {
			return err
		}
	}
	if u.SubDepartments != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM task_sub_departments WHERE task_id = $1`, taskID); err != nil {
			return err
		}
	}
	if err := insertRelations(ctx, tx, taskID, u.Assignees, u.SubDepartments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateTaskStatus(ctx context.Context, taskID int64, status string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: status %q", store.ErrValidation, status)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE tasks SET status = $1 WHERE task_id = $2`, status, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d: %w", taskID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateTaskTargetDate(ctx context.Context, taskID int64, targetDate string) error {
	if strings.TrimSpace(targetDate) == "" {
		return fmt.Errorf("%w: target_date required", store.ErrValidation)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE tasks SET target_date = $1 WHERE task_id = $2`, targetDate, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d: %w", taskID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Relation rows go with the task; the interaction log is append-only
	// and keeps its rows, now orphaned.
	for _, q := range []string{
		`DELETE FROM task_assignees WHERE task_id = $1`,
		`DELETE FROM task_sub_departments WHERE task_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, taskID); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE task_id = $1`, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d: %w", taskID, store.ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (s *Store) LogInteraction(ctx context.Context, in models.Interaction) (models.Interaction, error) {
	if in.UserID == 0 || in.TaskID == 0 {
		return models.Interaction{}, fmt.Errorf("%w: user_id and task_id required", store.ErrValidation)
	}
	if strings.TrimSpace(in.Type) == "" {
		return models.Interaction{}, fmt.Errorf("%w: interaction_type required", store.ErrValidation)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	var detail any
	if in.Detail != "" {
		detail = in.Detail
	}
	err := s.Pool.QueryRow(ctx, `INSERT INTO user_interactions(user_id, task_id, interaction_type, interaction_detail, interaction_timestamp)
VALUES($1, $2, $3, $4, $5) RETURNING interaction_id`,
		in.UserID, in.TaskID, in.Type, detail, in.Timestamp.Unix()).Scan(&in.InteractionID)
	if err != nil {
		return models.Interaction{}, err
	}
	in.Timestamp = in.Timestamp.Truncate(time.Second).UTC()
	return in, nil
}

const interactionSelect = `SELECT interaction_id, user_id, task_id, interaction_type, COALESCE(interaction_detail,''), interaction_timestamp FROM user_interactions`

func (s *Store) ListUserTaskInteractions(ctx context.Context, userID, taskID int64) ([]models.Interaction, error) {
	rows, err := s.Pool.Query(ctx, interactionSelect+` WHERE user_id = $1 AND task_id = $2 ORDER BY interaction_timestamp ASC, interaction_id ASC`, userID, taskID)
	return scanInteractions(rows, err)
}

func (s *Store) ListTaskInteractions(ctx context.Context, taskID int64) ([]models.Interaction, error) {
	rows, err := s.Pool.Query(ctx, interactionSelect+` WHERE task_id = $1 ORDER BY interaction_timestamp ASC, interaction_id ASC`, taskID)
	return scanInteractions(rows, err)
}

func scanInteractions(rows pgx.Rows, err error) ([]models.Interaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (s *Store) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var (
		u         models.User
		createdAt int64
	)
	err := s.Pool.QueryRow(ctx, `SELECT user_id, name, email, role, COALESCE(department_id,0), COALESCE(sub_department_id,0), created_at FROM users WHERE user_id = $1`, userID).
		Scan(&u.UserID, &u.Name, &u.Email, &u.Role, &u.DepartmentID, &u.SubDepartmentID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
		}
		return models.User{}, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// SeedDemo loads a small org chart and a handful of tasks for local
// development. Safe to call repeatedly.
func (s *Store) SeedDemo(ctx context.Context) error {
	now := time.Now().UTC().Unix()

	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO departments(department_id, department_name) VALUES(1, 'Engineering') ON CONFLICT DO NOTHING`, nil},
		{`INSERT INTO departments(department_id, department_name) VALUES(2, 'Operations') ON CONFLICT DO NOTHING`, nil},
		{`INSERT INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(1, 1, 'Backend') ON CONFLICT DO NOTHING`, nil},
		{`INSERT INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(2, 1, 'Frontend') ON CONFLICT DO NOTHING`, nil},
		{`INSERT INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(3, 2, 'Logistics') ON CONFLICT DO NOTHING`, nil},
		{`INSERT INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(1, 'Asma', 'asma@example.com', 'HOD', 1, NULL, $1) ON CONFLICT DO NOTHING`, []any{now}},
		{`INSERT INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(2, 'Bilal', 'bilal@example.com', 'Manager', 1, 1, $1) ON CONFLICT DO NOTHING`, []any{now}},
		{`INSERT INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(3, 'Chandra', 'chandra@example.com', 'Team Member', 1, 1, $1) ON CONFLICT DO NOTHING`, []any{now}},
		{`INSERT INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(4, 'Dawood', 'dawood@example.com', 'Team Member', 1, 2, $1) ON CONFLICT DO NOTHING`, []any{now}},
	}
	for _, st := range stmts {
		if _, err := s.Pool.Exec(ctx, st.q, st.args...); err != nil {
			return err
		}
	}

	var taskCount int
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&taskCount); err != nil {
		return err
	}
	if taskCount > 0 {
		return nil
	}
	seedTasks := []store.NewTask{
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
