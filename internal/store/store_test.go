package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

func openTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatal(err)
	}
	st, err := openSQLite(home)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func insertUser(t *testing.T, st *sqliteStore, id int64, name, role string, deptID, subDeptID int64) {
	t.Helper()
	_, err := st.DB.Exec(`INSERT INTO users(user_id, name, email, role, department_id, sub_department_id, created_at) VALUES(?, ?, ?, ?, ?, ?, 0)`,
		id, name, name+"@example.com", role, deptID, subDeptID)
	if err != nil {
		t.Fatalf("insert user %s: %v", name, err)
	}
}

func insertSubDepartment(t *testing.T, st *sqliteStore, id, deptID int64, name string) {
	t.Helper()
	if _, err := st.DB.Exec(`INSERT OR IGNORE INTO departments(department_id, department_name) VALUES(?, 'dept')`, deptID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.DB.Exec(`INSERT INTO sub_departments(sub_department_id, department_id, sub_department_name) VALUES(?, ?, ?)`, id, deptID, name); err != nil {
		t.Fatalf("insert sub-department %s: %v", name, err)
	}
}

func taskIDs(rows []taskview.Row) []int64 {
	var ids []int64
	for _, v := range taskview.Assemble(rows) {
		ids = append(ids, v.TaskID)
	}
	return ids
}

func sameIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	set := make(map[int64]bool, len(want))
	for _, id := range want {
		set[id] = true
	}
	for _, id := range got {
		if !set[id] {
			return false
		}
	}
	return true
}

func TestMigrationsAndTaskCRUD(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	insertSubDepartment(t, st, 1, 1, "Backend")
	insertSubDepartment(t, st, 2, 1, "Frontend")
	insertUser(t, st, 1, "asma", models.RoleManager, 1, 1)
	insertUser(t, st, 2, "bilal", models.RoleTeamMember, 1, 1)

	target := "2026-09-15"
	id, err := st.CreateTask(ctx, NewTask{
		Title:          "write release notes",
		Description:    "cover the storage changes",
		Priority:       models.PriorityHigh,
		Status:         models.StatusPending,
		CreatedBy:      1,
		DepartmentID:   1,
		TargetDate:     &target,
		Assignees:      []int64{1, 2},
		SubDepartments: []int64{1, 2},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rows, err := st.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	v := taskview.AssembleOne(rows)
	if v == nil {
		t.Fatal("expected assembled view")
	}
	if v.Title != "write release notes" || v.Status != models.StatusPending {
		t.Fatalf("unexpected task: %+v", v.Task)
	}
	if v.CreatedByName != "asma" {
		t.Fatalf("creator name: %q", v.CreatedByName)
	}
	if len(v.Assignees) != 2 || len(v.SubDepartments) != 2 {
		t.Fatalf("relations: assignees=%v sub_departments=%v", v.Assignees, v.SubDepartments)
	}
	if v.TargetDate == nil || *v.TargetDate != target {
		t.Fatalf("target date: %v", v.TargetDate)
	}

	// Update replaces relations wholesale.
	newTitle := "write release notes v2"
	if err := st.UpdateTask(ctx, id, TaskUpdate{Title: &newTitle, Assignees: []int64{2}, SubDepartments: []int64{1}}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	rows, _ = st.GetTask(ctx, id)
	v = taskview.AssembleOne(rows)
	if v.Title != newTitle {
		t.Fatalf("title after update: %q", v.Title)
	}
	if len(v.Assignees) != 1 || v.Assignees[0] != "bilal" {
		t.Fatalf("assignees after update: %v", v.Assignees)
	}
	if len(v.SubDepartments) != 1 || v.SubDepartments[0] != "Backend" {
		t.Fatalf("sub-departments after update: %v", v.SubDepartments)
	}

	if err := st.UpdateTaskStatus(ctx, id, "archived"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad status, got %v", err)
	}
	if err := st.UpdateTaskStatus(ctx, id, models.StatusCompleted); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if err := st.UpdateTaskTargetDate(ctx, id, "2026-10-01"); err != nil {
		t.Fatalf("UpdateTaskTargetDate: %v", err)
	}
	rows, _ = st.GetTask(ctx, id)
	v = taskview.AssembleOne(rows)
	if v.Status != models.StatusCompleted || v.TargetDate == nil || *v.TargetDate != "2026-10-01" {
		t.Fatalf("after status/date updates: %+v", v.Task)
	}

	if err := st.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := st.GetTask(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.DeleteTask(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, NewTask{Title: "  ", CreatedBy: 1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank title: %v", err)
	}
	if _, err := st.CreateTask(ctx, NewTask{Title: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing creator: %v", err)
	}
	if _, err := st.CreateTask(ctx, NewTask{Title: "x", CreatedBy: 1, Priority: "urgent", Status: models.StatusPending}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad priority: %v", err)
	}
	if _, err := st.CreateTask(ctx, NewTask{Title: "x", CreatedBy: 1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing status: %v", err)
	}
	if _, err := st.CreateTask(ctx, NewTask{Title: "x", CreatedBy: 1, Status: "archived"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status: %v", err)
	}
}

func TestScopedListings(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	insertSubDepartment(t, st, 1, 1, "Backend")
	insertSubDepartment(t, st, 2, 1, "Frontend")
	insertUser(t, st, 10, "manager", models.RoleManager, 1, 1)
	insertUser(t, st, 11, "memberA", models.RoleTeamMember, 1, 1)
	insertUser(t, st, 12, "memberB", models.RoleTeamMember, 1, 1)
	insertUser(t, st, 13, "outsider", models.RoleManager, 1, 2)

	mk := func(createdBy int64, assignees, subDepts []int64) int64 {
		t.Helper()
		id, err := st.CreateTask(ctx, NewTask{Title: "t", Status: models.StatusPending, CreatedBy: createdBy, DepartmentID: 1, Assignees: assignees, SubDepartments: subDepts})
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		return id
	}
	t1 := mk(10, []int64{11}, []int64{1})
	t2 := mk(13, []int64{10}, []int64{2})
	t3 := mk(13, []int64{13}, []int64{2})
	t4 := mk(13, []int64{12}, []int64{1})

	cases := []struct {
		name string
		f    ScopeFilter
		want []int64
	}{
		{"manager all", ScopeFilter{Kind: ScopeManagerAll, UserID: 10, SubDepartmentID: 1}, []int64{t1, t2, t4}},
		{"manager mine", ScopeFilter{Kind: ScopeManagerMine, UserID: 10, SubDepartmentID: 1}, []int64{t2}},
		{"manager other", ScopeFilter{Kind: ScopeManagerOther, UserID: 10, SubDepartmentID: 1}, []int64{t1, t3, t4}},
		{"team member all", ScopeFilter{Kind: ScopeTeamMemberAll, UserID: 11, SubDepartmentID: 1}, []int64{t1, t4}},
		{"team member mine", ScopeFilter{Kind: ScopeTeamMemberMine, UserID: 11, SubDepartmentID: 1}, []int64{t1}},
		{"team member other", ScopeFilter{Kind: ScopeTeamMemberOther, UserID: 11, SubDepartmentID: 1}, []int64{t4}},
	}
	for _, tc := range cases {
		rows, err := st.ListTasksScoped(ctx, tc.f, 0)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := taskIDs(rows); !sameIDs(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	// Newest first.
	rows, err := st.ListTasksScoped(ctx, ScopeFilter{Kind: ScopeTeamMemberAll, UserID: 11, SubDepartmentID: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	ids := taskIDs(rows)
	if len(ids) != 2 || ids[0] != t4 || ids[1] != t1 {
		t.Fatalf("ordering: got %v, want [%d %d]", ids, t4, t1)
	}
}

func TestUnseenScope(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	insertSubDepartment(t, st, 1, 1, "Backend")
	insertUser(t, st, 10, "manager", models.RoleManager, 1, 1)
	insertUser(t, st, 11, "member", models.RoleTeamMember, 1, 1)

	mk := func() int64 {
		t.Helper()
		id, err := st.CreateTask(ctx, NewTask{Title: "t", Status: models.StatusPending, CreatedBy: 10, DepartmentID: 1, SubDepartments: []int64{1}})
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	t1, t2 := mk(), mk()

	f := ScopeFilter{Kind: ScopeTeamMemberUnseen, UserID: 11, SubDepartmentID: 1}
	rows, err := st.ListTasksScoped(ctx, f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := taskIDs(rows); !sameIDs(got, []int64{t1, t2}) {
		t.Fatalf("before interaction: got %v", got)
	}

	if _, err := st.LogInteraction(ctx, models.Interaction{UserID: 11, TaskID: t1, Type: models.InteractionExpand}); err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}
	rows, err = st.ListTasksScoped(ctx, f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := taskIDs(rows); !sameIDs(got, []int64{t2}) {
		t.Fatalf("after interaction: got %v", got)
	}

	// Another user's interaction must not mark the task seen for user 11.
	if _, err := st.LogInteraction(ctx, models.Interaction{UserID: 10, TaskID: t2, Type: models.InteractionExpand}); err != nil {
		t.Fatal(err)
	}
	rows, _ = st.ListTasksScoped(ctx, f, 0)
	if got := taskIDs(rows); !sameIDs(got, []int64{t2}) {
		t.Fatalf("after other user's interaction: got %v", got)
	}
}

func TestInteractionLog(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	insertSubDepartment(t, st, 1, 1, "Backend")
	insertUser(t, st, 10, "manager", models.RoleManager, 1, 1)
	insertUser(t, st, 11, "member", models.RoleTeamMember, 1, 1)
	id, err := st.CreateTask(ctx, NewTask{Title: "t", Status: models.StatusPending, CreatedBy: 10, DepartmentID: 1, Assignees: []int64{11}, SubDepartments: []int64{1}})
	if err != nil {
		t.Fatal(err)
	}

	first, err := st.LogInteraction(ctx, models.Interaction{UserID: 11, TaskID: id, Type: models.InteractionExpand})
	if err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}
	if first.InteractionID == 0 || first.Timestamp.IsZero() {
		t.Fatalf("expected assigned id and timestamp, got %+v", first)
	}
	second, err := st.LogInteraction(ctx, models.Interaction{UserID: 11, TaskID: id, Type: models.InteractionStatusChange, Detail: "pending -> completed"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.LogInteraction(ctx, models.Interaction{UserID: 10, TaskID: id, Type: models.InteractionHide}); err != nil {
		t.Fatal(err)
	}

	mine, err := st.ListUserTaskInteractions(ctx, 11, id)
	if err != nil {
		t.Fatalf("ListUserTaskInteractions: %v", err)
	}
	if len(mine) != 2 || mine[0].InteractionID != first.InteractionID || mine[1].InteractionID != second.InteractionID {
		t.Fatalf("user log: %+v", mine)
	}
	if mine[1].Detail != "pending -> completed" {
		t.Fatalf("detail round-trip: %q", mine[1].Detail)
	}

	all, err := st.ListTaskInteractions(ctx, id)
	if err != nil {
		t.Fatalf("ListTaskInteractions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("task log: %+v", all)
	}

	// Scoped listings attach only the viewer's interactions.
	rows, err := st.ListTasksScoped(ctx, ScopeFilter{Kind: ScopeTeamMemberMine, UserID: 11, SubDepartmentID: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	views := taskview.Assemble(rows)
	if len(views) != 1 || len(views[0].Interactions) != 2 {
		t.Fatalf("scoped interactions: %+v", views)
	}

	if _, err := st.LogInteraction(ctx, models.Interaction{TaskID: id, Type: models.InteractionExpand}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing user, got %v", err)
	}
}

func TestDeleteTaskOrphansInteractionLog(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	insertSubDepartment(t, st, 1, 1, "Backend")
	insertUser(t, st, 10, "manager", models.RoleManager, 1, 1)
	insertUser(t, st, 11, "member", models.RoleTeamMember, 1, 1)
	id, err := st.CreateTask(ctx, NewTask{Title: "t", Status: models.StatusPending, CreatedBy: 10, DepartmentID: 1, Assignees: []int64{11}, SubDepartments: []int64{1}})
	if err != nil {
		t.Fatal(err)
	}
	logged, err := st.LogInteraction(ctx, models.Interaction{UserID: 11, TaskID: id, Type: models.InteractionExpand})
	if err != nil {
		t.Fatalf("LogInteraction: %v", err)
	}

	if err := st.DeleteTask(ctx, id); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := st.GetTask(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Delete removes the task and its relation rows; the interaction log
	// keeps its rows, now orphaned.
	all, err := st.ListTaskInteractions(ctx, id)
	if err != nil {
		t.Fatalf("ListTaskInteractions: %v", err)
	}
	if len(all) != 1 || all[0].InteractionID != logged.InteractionID {
		t.Fatalf("log after delete: %+v", all)
	}
	mine, err := st.ListUserTaskInteractions(ctx, 11, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 {
		t.Fatalf("user log after delete: %+v", mine)
	}
}

func TestDepartmentListingsAndSeed(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SeedDemo(ctx); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if err := st.SeedDemo(ctx); err != nil {
		t.Fatalf("SeedDemo twice: %v", err)
	}

	rows, err := st.ListTasksByDepartment(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListTasksByDepartment: %v", err)
	}
	if len(taskview.Assemble(rows)) == 0 {
		t.Fatal("expected seeded department tasks")
	}

	rows, err = st.ListTasksBySubDepartment(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListTasksBySubDepartment: %v", err)
	}
	if len(taskview.Assemble(rows)) == 0 {
		t.Fatal("expected seeded sub-department tasks")
	}

	u, err := st.GetUser(ctx, 2)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Role != models.RoleManager {
		t.Fatalf("seeded user role: %q", u.Role)
	}
	if _, err := st.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
