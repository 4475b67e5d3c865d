// Package visibility maps an authenticated principal and a requested view
// onto the store's scope filters, and assembles the filtered rows into
// per-task views with the viewer's cached interactions attached.
package visibility

import (
	"context"
	"fmt"

	"github.com/israrulhaq-IFL/task-assignment-system/internal/interactions"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/otel"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/store"
	"github.com/israrulhaq-IFL/task-assignment-system/internal/taskview"
	"github.com/israrulhaq-IFL/task-assignment-system/pkg/models"
)

// Scoped view names.
const (
	ViewAll    = "all"
	ViewMine   = "mine"
	ViewOther  = "other"
	ViewUnseen = "unseen"
)

// FilterFor maps a principal and view name to a scope filter. Roles without
// scoped views (HOD, Super Admin) and unknown views report ErrValidation;
// those roles use the unscoped and department listings instead.
func FilterFor(p models.Principal, view string) (store.ScopeFilter, error) {
	f := store.ScopeFilter{UserID: p.UserID, SubDepartmentID: p.SubDepartmentID}
	switch p.Role {
	case models.RoleManager:
		switch view {
		case ViewAll:
			f.Kind = store.ScopeManagerAll
		case ViewMine:
			f.Kind = store.ScopeManagerMine
		case ViewOther:
			f.Kind = store.ScopeManagerOther
		default:
			return store.ScopeFilter{}, fmt.Errorf("%w: view %q for role %q", store.ErrValidation, view, p.Role)
		}
	case models.RoleTeamMember:
		switch view {
		case ViewAll:
			f.Kind = store.ScopeTeamMemberAll
		case ViewMine:
			f.Kind = store.ScopeTeamMemberMine
		case ViewOther:
			f.Kind = store.ScopeTeamMemberOther
		case ViewUnseen:
			f.Kind = store.ScopeTeamMemberUnseen
		default:
			return store.ScopeFilter{}, fmt.Errorf("%w: view %q for role %q", store.ErrValidation, view, p.Role)
		}
	default:
		return store.ScopeFilter{}, fmt.Errorf("%w: role %q has no scoped views", store.ErrValidation, p.Role)
	}
	return f, nil
}

// Resolver serves role-scoped task listings.
type Resolver struct {
	store        store.Store
	interactions *interactions.Service
}

// NewResolver returns a resolver. The interactions service may be nil, in
// which case listings carry only the store-joined interactions.
func NewResolver(st store.Store, ints *interactions.Service) *Resolver {
	return &Resolver{store: st, interactions: ints}
}

// ScopedTasks lists the tasks the principal may see under the named view,
// newest first, with the principal's interactions attached to each task.
func (r *Resolver) ScopedTasks(ctx context.Context, p models.Principal, view string, limit int) ([]models.TaskView, error) {
	f, err := FilterFor(p, view)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.ListTasksScoped(ctx, f, limit)
	if err != nil {
		return nil, err
	}
	views := taskview.Assemble(rows)
	otel.RecordScopedListing(ctx, p.Role, view)
	if r.interactions != nil {
		r.interactions.AttachCached(ctx, p.UserID, views)
	}
	return views, nil
}
