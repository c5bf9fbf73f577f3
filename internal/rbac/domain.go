package rbac

import (
	"fmt"
	"time"
)

// Resource enumerates the protected resource domains.
type Resource string

const (
	ResourceProcurement Resource = "procurement"
	ResourceInventory   Resource = "inventory"
	ResourceSales       Resource = "sales"
	ResourceMasterdata  Resource = "masterdata"
	ResourceLedger      Resource = "ledger"
	ResourcePayroll     Resource = "payroll"
	ResourceUploads     Resource = "uploads"
	ResourceUsers       Resource = "users"
)

// Action enumerates the operations a resource supports.
type Action string

const (
	ActionView    Action = "view"
	ActionEdit    Action = "edit"
	ActionApprove Action = "approve"
	ActionReceive Action = "receive"
	ActionSettle  Action = "settle"
)

// Permission is a closed {resource, action} pair. Only combinations present
// in the registry are valid; Must rejects everything else at wiring time
// instead of silently answering false at check time.
type Permission struct {
	Resource Resource
	Action   Action
}

func (p Permission) String() string {
	return string(p.Resource) + "." + string(p.Action)
}

var registry = map[Permission]struct{}{
	{ResourceProcurement, ActionView}:    {},
	{ResourceProcurement, ActionEdit}:    {},
	{ResourceProcurement, ActionApprove}: {},
	{ResourceProcurement, ActionReceive}: {},
	{ResourceProcurement, ActionSettle}:  {},
	{ResourceInventory, ActionView}:      {},
	{ResourceInventory, ActionEdit}:      {},
	{ResourceSales, ActionView}:          {},
	{ResourceSales, ActionEdit}:          {},
	{ResourceMasterdata, ActionView}:     {},
	{ResourceMasterdata, ActionEdit}:     {},
	{ResourceLedger, ActionView}:         {},
	{ResourcePayroll, ActionView}:        {},
	{ResourcePayroll, ActionEdit}:        {},
	{ResourceUploads, ActionView}:        {},
	{ResourceUploads, ActionEdit}:        {},
	{ResourceUsers, ActionView}:          {},
	{ResourceUsers, ActionEdit}:          {},
}

// Valid reports whether the pair is part of the closed enumeration.
func Valid(p Permission) bool {
	_, ok := registry[p]
	return ok
}

// Must returns the permission or panics when the pair is not registered.
// Panicking here turns a typo into a startup failure rather than a silent deny.
func Must(res Resource, act Action) Permission {
	p := Permission{Resource: res, Action: act}
	if !Valid(p) {
		panic(fmt.Sprintf("rbac: unknown permission %s", p))
	}
	return p
}

// Parse maps a stored "resource.action" string onto the enumeration.
func Parse(raw string) (Permission, error) {
	for p := range registry {
		if p.String() == raw {
			return p, nil
		}
	}
	return Permission{}, fmt.Errorf("rbac: unknown permission %q", raw)
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Grants maps role names to their permissions.
type Grants map[string][]Permission

// DefaultGrants returns the immutable built-in role grants. Callers pass the
// result into NewService explicitly; nothing in this package mutates it.
func DefaultGrants() Grants {
	return Grants{
		"admin": allPermissions(),
		"cashier": {
			Must(ResourceSales, ActionView),
			Must(ResourceSales, ActionEdit),
			Must(ResourceMasterdata, ActionView),
			Must(ResourceInventory, ActionView),
		},
		"storekeeper": {
			Must(ResourceInventory, ActionView),
			Must(ResourceInventory, ActionEdit),
			Must(ResourceProcurement, ActionView),
			Must(ResourceProcurement, ActionReceive),
			Must(ResourceUploads, ActionEdit),
		},
		"purchaser": {
			Must(ResourceProcurement, ActionView),
			Must(ResourceProcurement, ActionEdit),
			Must(ResourceMasterdata, ActionView),
		},
	}
}

// MergeGrants combines defaults with database overrides; overrides win per role.
func MergeGrants(defaults, overrides Grants) Grants {
	merged := make(Grants, len(defaults)+len(overrides))
	for role, perms := range defaults {
		merged[role] = append([]Permission(nil), perms...)
	}
	for role, perms := range overrides {
		merged[role] = append([]Permission(nil), perms...)
	}
	return merged
}

func allPermissions() []Permission {
	perms := make([]Permission, 0, len(registry))
	for p := range registry {
		perms = append(perms, p)
	}
	return perms
}
