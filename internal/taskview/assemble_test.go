package taskview

import (
	"testing"
	"time"

	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

func strp(s string) *string { return &s }

func task(id int64, title string) models.Task {
	return models.Task{TaskID: id, Title: title, Status: models.StatusPending, Priority: models.PriorityMedium}
}

func TestAssemble_fanOut(t *testing.T) {
	t.Parallel()

	// Task 1 with 2 assignees x 2 sub-departments = 4 rows, one interaction
	// repeated on every row by the join.
	in := models.Interaction{InteractionID: 9, UserID: 5, TaskID: 1, Type: models.InteractionExpand}
	rows := []Row{
		{Task: task(1, "t1"), AssigneeName: strp("alice"), SubDepartmentName: strp("QA"), Interaction: &in},
		{Task: task(1, "t1"), AssigneeName: strp("alice"), SubDepartmentName: strp("Dev"), Interaction: &in},
		{Task: task(1, "t1"), AssigneeName: strp("bob"), SubDepartmentName: strp("QA"), Interaction: &in},
		{Task: task(1, "t1"), AssigneeName: strp("bob"), SubDepartmentName: strp("Dev"), Interaction: &in},
	}
	views := Assemble(rows)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	v := views[0]
	if len(v.Assignees) != 2 || v.Assignees[0] != "alice" || v.Assignees[1] != "bob" {
		t.Fatalf("assignees: got %v", v.Assignees)
	}
	if len(v.SubDepartments) != 2 || v.SubDepartments[0] != "QA" || v.SubDepartments[1] != "Dev" {
		t.Fatalf("sub-departments: got %v", v.SubDepartments)
	}
	if len(v.Interactions) != 1 || v.Interactions[0].InteractionID != 9 {
		t.Fatalf("interactions: got %v", v.Interactions)
	}
}

func TestAssemble_multipleInteractionsSurviveFanOut(t *testing.T) {
	t.Parallel()

	i1 := models.Interaction{InteractionID: 1, UserID: 5, TaskID: 1, Type: models.InteractionExpand}
	i2 := models.Interaction{InteractionID: 2, UserID: 5, TaskID: 1, Type: models.InteractionStatusChange}
	rows := []Row{
		{Task: task(1, "t1"), AssigneeName: strp("alice"), Interaction: &i1},
		{Task: task(1, "t1"), AssigneeName: strp("alice"), Interaction: &i2},
		{Task: task(1, "t1"), AssigneeName: strp("bob"), Interaction: &i1},
		{Task: task(1, "t1"), AssigneeName: strp("bob"), Interaction: &i2},
	}
	views := Assemble(rows)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if len(views[0].Interactions) != 2 {
		t.Fatalf("expected both interactions, got %v", views[0].Interactions)
	}
}

func TestAssemble_firstSeenScalarsAndOrder(t *testing.T) {
	t.Parallel()

	newer := task(2, "newer")
	newer.CreatedAt = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	older := task(1, "older")
	older.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// The store orders rows created_at DESC; assembly must preserve that.
	rows := []Row{
		{Task: newer, CreatedByName: strp("carol")},
		{Task: older},
		{Task: newer, CreatedByName: strp("ignored")},
	}
	views := Assemble(rows)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].TaskID != 2 || views[1].TaskID != 1 {
		t.Fatalf("order not preserved: %v", []int64{views[0].TaskID, views[1].TaskID})
	}
	if views[0].CreatedByName != "carol" {
		t.Fatalf("first-seen creator name lost: %q", views[0].CreatedByName)
	}
}

func TestAssemble_emptyRelationsEncodeAsEmptyLists(t *testing.T) {
	t.Parallel()

	views := Assemble([]Row{{Task: task(1, "bare")}})
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	v := views[0]
	if v.Assignees == nil || v.SubDepartments == nil || v.Interactions == nil {
		t.Fatal("relation lists must be non-nil so JSON encodes [] not null")
	}
	if len(v.Assignees)+len(v.SubDepartments)+len(v.Interactions) != 0 {
		t.Fatalf("expected empty lists, got %+v", v)
	}
}

func TestAssembleOne(t *testing.T) {
	t.Parallel()

	if got := AssembleOne(nil); got != nil {
		t.Fatalf("expected nil for empty rows, got %+v", got)
	}
	v := AssembleOne([]Row{{Task: task(7, "one")}})
	if v == nil || v.TaskID != 7 {
		t.Fatalf("AssembleOne: got %+v", v)
	}
}
