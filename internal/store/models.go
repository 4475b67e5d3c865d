// Package store defines the persistence interface and shared inputs for
// tasks, task relations, interactions, and organizational lookups.
package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store implementations. Callers match with
// errors.Is; the HTTP layer maps them to status codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid input")
)

// NewTask is the payload for creating a task together with its relations.
type NewTask struct {
	Title          string
	Description    string
	Priority       string // defaults to medium
	Status         string // defaults to pending
	CreatedBy      int64
	DepartmentID   int64
	TargetDate     *string
	Assignees      []int64 // user ids
	SubDepartments []int64 // sub-department ids
}

// TaskUpdate is a partial update. Nil scalar fields are left unchanged.
// Nil relation slices leave the relation untouched; non-nil slices replace
// it wholesale (an empty non-nil slice clears it).
type TaskUpdate struct {
	Title          *string
	Description    *string
	Priority       *string
	Status         *string
	DepartmentID   *int64
	TargetDate     *string
	Assignees      []int64
	SubDepartments []int64
}

// ScopeKind selects one of the role-specific visibility predicates applied
// to scoped task listings.
type ScopeKind int

const (
	// ScopeManagerAll matches tasks assigned to the user, created by the
	// user, or targeting the user's sub-department.
	ScopeManagerAll ScopeKind = iota
	// ScopeManagerMine narrows ScopeManagerAll to tasks assigned to the user.
	ScopeManagerMine
	// ScopeManagerOther matches tasks not assigned to the user that the user
	// did not create or that target the user's sub-department.
	ScopeManagerOther
	// ScopeTeamMemberAll matches tasks targeting the user's sub-department.
	ScopeTeamMemberAll
	// ScopeTeamMemberMine narrows ScopeTeamMemberAll to tasks assigned to
	// the user.
	ScopeTeamMemberMine
	// ScopeTeamMemberOther matches sub-department tasks assigned to someone
	// else.
	ScopeTeamMemberOther
	// ScopeTeamMemberUnseen matches sub-department tasks the user has never
	// interacted with.
	ScopeTeamMemberUnseen
)

// ScopeFilter is a visibility predicate bound to a viewing user. Scoped
// listings also attach that user's interactions to each returned task.
type ScopeFilter struct {
	Kind            ScopeKind
	UserID          int64
	SubDepartmentID int64
}

// Predicate returns the WHERE clause (with ? placeholders) and its arguments
// for the filter. The clause references aliases t (tasks), ta
// (task_assignees), and tsd (task_sub_departments) from the listing query.
// The postgres implementation rebinds ? to positional placeholders.
func (f ScopeFilter) Predicate() (string, []any, error) {
	switch f.Kind {
	case ScopeManagerAll:
		return `ta.user_id = ? OR t.created_by = ? OR tsd.sub_department_id = ?`,
			[]any{f.UserID, f.UserID, f.SubDepartmentID}, nil
	case ScopeManagerMine:
		return `ta.user_id = ? AND (ta.user_id = ? OR t.created_by = ? OR tsd.sub_department_id = ?)`,
			[]any{f.UserID, f.UserID, f.UserID, f.SubDepartmentID}, nil
	case ScopeManagerOther:
		return `ta.user_id != ? AND (t.created_by != ? OR tsd.sub_department_id = ?)`,
			[]any{f.UserID, f.UserID, f.SubDepartmentID}, nil
	case ScopeTeamMemberAll:
		return `tsd.sub_department_id = ?`,
			[]any{f.SubDepartmentID}, nil
	case ScopeTeamMemberMine:
		return `ta.user_id = ? AND tsd.sub_department_id = ?`,
			[]any{f.UserID, f.SubDepartmentID}, nil
	case ScopeTeamMemberOther:
		return `ta.user_id != ? AND tsd.sub_department_id = ?`,
			[]any{f.UserID, f.SubDepartmentID}, nil
	case ScopeTeamMemberUnseen:
		return `tsd.sub_department_id = ? AND NOT EXISTS (SELECT 1 FROM user_interactions seen WHERE seen.task_id = t.task_id AND seen.user_id = ?)`,
			[]any{f.SubDepartmentID, f.UserID}, nil
	}
	return "", nil, fmt.Errorf("%w: unknown scope kind %d", ErrValidation, f.Kind)
}
