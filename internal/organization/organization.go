package organization

import (
	"time"
)

// Closed enumerations for the permission catalog.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ResourceTasks    = "tasks"
	ResourceProjects = "projects"
	ResourceUsers    = "users"
	ResourceRoles    = "roles"
)

var (
	Actions   = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	Resources = []string{ResourceTasks, ResourceProjects, ResourceUsers, ResourceRoles}
)

// Seeded role names. Every new organization gets these three.
const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
	RoleViewer        = "viewer"
)

type Organization struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Roles []Role `json:"roles,omitempty" gorm:"foreignKey:OrganizationID"`
}

func (Organization) TableName() string { return "organizations" }

// Role belongs to exactly one organization. Names are only meaningful
// per organization, not globally.
type Role struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	Name           string    `json:"name" gorm:"not null"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
}

func (Role) TableName() string { return "roles" }

// Permission is one (action, resource) pair from the closed enumerations.
type Permission struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Action   string `json:"action" gorm:"uniqueIndex:idx_permissions_action_resource;not null"`
	Resource string `json:"resource" gorm:"uniqueIndex:idx_permissions_action_resource;not null"`
}

func (Permission) TableName() string { return "permissions" }

// Membership links one user to one organization via a role. The
// (user, organization) pair is unique at the storage layer.
type Membership struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	UserID         int64     `json:"user_id" gorm:"uniqueIndex:idx_memberships_user_org;not null"`
	OrganizationID int64     `json:"organization_id" gorm:"uniqueIndex:idx_memberships_user_org;not null"`
	RoleID         int64     `json:"role_id" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`

	Role *Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

func (Membership) TableName() string { return "memberships" }

// SeedCatalog is the 12-pair permission catalog seeded at migration
// time: full CRUD on tasks and projects, read/update on users and roles.
// Create and delete of users and roles are not grantable.
func SeedCatalog() []Permission {
	var catalog []Permission
	for _, resource := range []string{ResourceTasks, ResourceProjects} {
		for _, action := range Actions {
			catalog = append(catalog, Permission{Action: action, Resource: resource})
		}
	}
	for _, resource := range []string{ResourceUsers, ResourceRoles} {
		for _, action := range []string{ActionRead, ActionUpdate} {
			catalog = append(catalog, Permission{Action: action, Resource: resource})
		}
	}
	return catalog
}

// SeededRolePermissions maps each seeded role to the subset of the
// catalog it is granted: administrator holds the full catalog, editor
// all task permissions, viewer read-only on tasks.
func SeededRolePermissions(catalog []Permission) map[string][]Permission {
	grants := map[string][]Permission{
		RoleAdministrator: catalog,
	}
	for _, p := range catalog {
		if p.Resource != ResourceTasks {
			continue
		}
		grants[RoleEditor] = append(grants[RoleEditor], p)
		if p.Action == ActionRead {
			grants[RoleViewer] = append(grants[RoleViewer], p)
		}
	}
	return grants
}
