// Package taskview turns flat relational join results into per-task views.
//
// The store's task queries left-join assignees, sub-departments, and the
// requesting user's interactions, so a single task fans out into one row per
// (assignee x sub-department x interaction) combination. Assemble collapses
// that fan-out back into exactly one view per task.
package taskview

import "github.com/israrulhaq-IFL/task-assignment-system/pkg/models"

// Row is one raw joined row as scanned from the store. Join columns are nil
// when the corresponding LEFT JOIN produced no match.
type Row struct {
	Task              models.Task
	CreatedByName     *string
	AssigneeName      *string
	SubDepartmentName *string
	Interaction       *models.Interaction
}

// Assemble groups rows by task id, preserving first-seen order and the
// first-seen row's scalar fields. Assignee and sub-department names are
// deduplicated in insertion order; interactions are deduplicated by
// interaction id so a task's interactions survive join fan-out intact.
func Assemble(rows []Row) []models.TaskView {
	out := make([]models.TaskView, 0, len(rows))
	index := make(map[int64]int)
	seen := make(map[int64]*rowSets)

	for _, r := range rows {
		id := r.Task.TaskID
		i, ok := index[id]
		if !ok {
			v := models.TaskView{
				Task:           r.Task,
				Assignees:      []string{},
				SubDepartments: []string{},
				Interactions:   []models.Interaction{},
			}
			if r.CreatedByName != nil {
				v.CreatedByName = *r.CreatedByName
			}
			out = append(out, v)
			i = len(out) - 1
			index[id] = i
			seen[id] = newRowSets()
		}
		s := seen[id]
		v := &out[i]
		if r.AssigneeName != nil && !s.assignees[*r.AssigneeName] {
			s.assignees[*r.AssigneeName] = true
			v.Assignees = append(v.Assignees, *r.AssigneeName)
		}
		if r.SubDepartmentName != nil && !s.subDepartments[*r.SubDepartmentName] {
			s.subDepartments[*r.SubDepartmentName] = true
			v.SubDepartments = append(v.SubDepartments, *r.SubDepartmentName)
		}
		if r.Interaction != nil && !s.interactions[r.Interaction.InteractionID] {
			s.interactions[r.Interaction.InteractionID] = true
			v.Interactions = append(v.Interactions, *r.Interaction)
		}
	}
	return out
}

// AssembleOne is Assemble for a single-task row set. Returns nil when rows is
// empty.
func AssembleOne(rows []Row) *models.TaskView {
	views := Assemble(rows)
	if len(views) == 0 {
		return nil
	}
	return &views[0]
}

type rowSets struct {
	assignees      map[string]bool
	subDepartments map[string]bool
	interactions   map[int64]bool
}

func newRowSets() *rowSets {
	return &rowSets{
		assignees:      make(map[string]bool),
		subDepartments: make(map[string]bool),
		interactions:   make(map[int64]bool),
	}
}
