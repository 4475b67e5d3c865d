package models

// Task statuses used throughout the codebase.
const (
	StatusPending    = "pending"
	StatusInProgress = "in progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the three task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is one of the three task priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// User roles.
const (
	RoleSuperAdmin = "Super Admin"
	RoleHOD        = "HOD"
	RoleManager    = "Manager"
	RoleTeamMember = "Team Member"
)

// Interaction types. The set is open-ended; these are the ones the frontend
// emits today. Storage does not enforce membership.
const (
	InteractionStatusChange     = "status_change"
	InteractionTargetDateChange = "target_date_change"
	InteractionExpand           = "expand"
	InteractionHide             = "hide"
	InteractionDelete           = "delete"
)

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultTaskListLimit       = 1000
)
