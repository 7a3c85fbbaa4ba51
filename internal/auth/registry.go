// Package auth resolves chat permissions and issues operator API tokens.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mmynk/lebot/internal/models"
)

// AdminStore persists admin assignments.
type AdminStore interface {
	LoadAdminSets(ctx context.Context) (models.AdminSets, error)
	SaveAdminSets(ctx context.Context, sets models.AdminSets) error
}

// Registry resolves the role of a user in a group.
//
// Super admins come from configuration and are fixed for the life of the
// process. Global and group admins are granted at runtime by super admins and
// persisted through the AdminStore. A Registry is shared by every group and
// safe for concurrent use; a grant is visible to all groups once it returns.
type Registry struct {
	store  AdminStore
	supers map[int64]struct{}

	mu   sync.RWMutex
	sets models.AdminSets
}

// NewRegistry loads the persisted admin sets and returns a ready Registry.
func NewRegistry(ctx context.Context, store AdminStore, superAdmins []int64) (*Registry, error) {
	sets, err := store.LoadAdminSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin sets: %w", err)
	}
	if sets.Global == nil {
		sets.Global = make(map[int64]struct{})
	}
	if sets.Group == nil {
		sets.Group = make(map[int64]map[int64]struct{})
	}

	supers := make(map[int64]struct{}, len(superAdmins))
	for _, id := range superAdmins {
		supers[id] = struct{}{}
	}

	slog.Info("Permission registry loaded",
		"super_admins", len(supers),
		"global_admins", len(sets.Global),
		"admin_groups", len(sets.Group),
		"version", sets.Version,
	)

	return &Registry{store: store, supers: supers, sets: sets}, nil
}

// IsSuperAdmin reports whether userID is a configured super admin.
func (r *Registry) IsSuperAdmin(userID int64) bool {
	_, ok := r.supers[userID]
	return ok
}

// Role returns the effective role of userID in groupID.
func (r *Registry) Role(userID, groupID int64) models.Role {
	if r.IsSuperAdmin(userID) {
		return models.RoleSuperAdmin
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case r.sets.IsGlobal(userID):
		return models.RoleGlobalAdmin
	case r.sets.IsGroup(userID, groupID):
		return models.RoleGroupAdmin
	default:
		return models.RoleMember
	}
}

// CanManageAdmins reports whether userID may grant or revoke admin rights.
func (r *Registry) CanManageAdmins(userID int64) bool {
	return r.IsSuperAdmin(userID)
}

// CanMutateLedger reports whether userID may adjust or clear the ledger of groupID.
func (r *Registry) CanMutateLedger(userID, groupID int64) bool {
	return r.Role(userID, groupID) >= models.RoleGroupAdmin
}

// GrantGlobal makes target an admin of every group.
// changed is false when target already was one.
func (r *Registry) GrantGlobal(ctx context.Context, actor, target int64) (changed bool, err error) {
	return r.update(ctx, actor, func(sets *models.AdminSets) bool {
		if sets.IsGlobal(target) {
			return false
		}
		sets.Global[target] = struct{}{}
		return true
	})
}

// GrantGroup makes target an admin of groupID.
func (r *Registry) GrantGroup(ctx context.Context, actor, target, groupID int64) (changed bool, err error) {
	return r.update(ctx, actor, func(sets *models.AdminSets) bool {
		if sets.IsGroup(target, groupID) {
			return false
		}
		if sets.Group[groupID] == nil {
			sets.Group[groupID] = make(map[int64]struct{})
		}
		sets.Group[groupID][target] = struct{}{}
		return true
	})
}

// RevokeGlobal removes the global admin right of target.
func (r *Registry) RevokeGlobal(ctx context.Context, actor, target int64) (changed bool, err error) {
	return r.update(ctx, actor, func(sets *models.AdminSets) bool {
		if !sets.IsGlobal(target) {
			return false
		}
		delete(sets.Global, target)
		return true
	})
}

// RevokeGroup removes the admin right of target in groupID.
func (r *Registry) RevokeGroup(ctx context.Context, actor, target, groupID int64) (changed bool, err error) {
	return r.update(ctx, actor, func(sets *models.AdminSets) bool {
		if !sets.IsGroup(target, groupID) {
			return false
		}
		delete(sets.Group[groupID], target)
		if len(sets.Group[groupID]) == 0 {
			delete(sets.Group, groupID)
		}
		return true
	})
}

// update applies mutate to a copy of the sets, persists it and swaps it in.
// The write lock is held across persistence so concurrent grants serialise.
func (r *Registry) update(ctx context.Context, actor int64, mutate func(*models.AdminSets) bool) (bool, error) {
	if !r.CanManageAdmins(actor) {
		return false, fmt.Errorf("%w: user %d cannot manage admins", models.ErrUnauthorized, actor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.sets.Clone()
	if !mutate(&next) {
		return false, nil
	}
	next.Version++

	if err := r.store.SaveAdminSets(ctx, next); err != nil {
		return false, fmt.Errorf("%w: failed to save admin sets: %w", models.ErrPersistence, err)
	}
	r.sets = next

	return true, nil
}

// AdminView is a sorted, read-only copy of every admin assignment.
type AdminView struct {
	Version     int64
	SuperAdmins []int64
	Global      []int64
	Group       map[int64][]int64
}

// Snapshot returns the current assignments.
func (r *Registry) Snapshot() AdminView {
	view := AdminView{
		SuperAdmins: sortedIDs(r.supers),
		Group:       make(map[int64][]int64),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	view.Version = r.sets.Version
	view.Global = sortedIDs(r.sets.Global)
	for groupID, members := range r.sets.Group {
		view.Group[groupID] = sortedIDs(members)
	}
	return view
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
