// Package models provides shared types for the task-assignment HTTP API and
// external tools. These types mirror the API JSON and are stable for use by
// pkg/client and other consumers.
package models

import "time"

// Task is a tracked work item owned by a department, with a status lifecycle
// and an optional target date.
type Task struct {
	TaskID       int64     `json:"task_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	CreatedBy    int64     `json:"created_by"`
	DepartmentID int64     `json:"department_id,omitempty"`
	TargetDate   *string   `json:"target_date,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// TaskView is a task with its many-to-many relations flattened in: deduplicated
// assignee and sub-department names, the creator's name, and any interactions
// attached for the requesting user.
type TaskView struct {
	Task
	CreatedByName  string        `json:"created_by_name,omitempty"`
	Assignees      []string      `json:"assignees"`
	SubDepartments []string      `json:"sub_departments"`
	Interactions   []Interaction `json:"interactions"`
}

// Interaction is one append-only log entry recording a user action on a task
// (status change, expand, hide, delete, target-date change, ...).
// The type is open-ended; Detail is a free-form payload whose meaning depends
// on the type.
type Interaction struct {
	InteractionID int64     `json:"interaction_id,omitempty"`
	UserID        int64     `json:"user_id"`
	TaskID        int64     `json:"task_id"`
	Type          string    `json:"interaction_type"`
	Detail        string    `json:"interaction_detail,omitempty"`
	Timestamp     time.Time `json:"interaction_timestamp,omitempty"`
}

// Principal is the authenticated caller, attached to each request by the
// upstream authentication step. The server trusts it without re-validation.
type Principal struct {
	UserID          int64  `json:"user_id"`
	Role            string `json:"role"`
	DepartmentID    int64  `json:"department_id"`
	SubDepartmentID int64  `json:"sub_department_id"`
}

// User is an organizational user referenced by tasks and interactions.
// User records are owned by the user-management collaborator; the core only
// reads them for name joins and org lookups.
type User struct {
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Role            string    `json:"role"`
	DepartmentID    int64     `json:"department_id,omitempty"`
	SubDepartmentID int64     `json:"sub_department_id,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}
