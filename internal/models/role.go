package models

// Role is the effective permission tier of a user in a group.
// Higher values carry more privilege.
type Role int

const (
	RoleMember Role = iota
	RoleGroupAdmin
	RoleGlobalAdmin
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "super-admin"
	case RoleGlobalAdmin:
		return "global-admin"
	case RoleGroupAdmin:
		return "group-admin"
	default:
		return "member"
	}
}

// AdminSets holds the mutable admin assignments. Super admins are not part of
// it: they come from configuration and never change at runtime.
type AdminSets struct {
	// Version increases by one on every persisted change.
	Version int64

	// Global holds users with admin rights in every group.
	Global map[int64]struct{}

	// Group maps a group ID to users with admin rights in that group only.
	Group map[int64]map[int64]struct{}
}

// NewAdminSets returns empty sets.
func NewAdminSets() AdminSets {
	return AdminSets{
		Global: make(map[int64]struct{}),
		Group:  make(map[int64]map[int64]struct{}),
	}
}

// Clone returns a deep copy.
func (a AdminSets) Clone() AdminSets {
	c := AdminSets{
		Version: a.Version,
		Global:  make(map[int64]struct{}, len(a.Global)),
		Group:   make(map[int64]map[int64]struct{}, len(a.Group)),
	}
	for id := range a.Global {
		c.Global[id] = struct{}{}
	}
	for groupID, members := range a.Group {
		m := make(map[int64]struct{}, len(members))
		for id := range members {
			m[id] = struct{}{}
		}
		c.Group[groupID] = m
	}
	return c
}

// IsGlobal reports whether userID is a global admin.
func (a AdminSets) IsGlobal(userID int64) bool {
	_, ok := a.Global[userID]
	return ok
}

// IsGroup reports whether userID is an admin of groupID.
func (a AdminSets) IsGroup(userID, groupID int64) bool {
	_, ok := a.Group[groupID][userID]
	return ok
}
