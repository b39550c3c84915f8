package service

import "github.com/school-logistics/roster-api/internal/models"

// Action names a permission checked against a role and, where relevant,
// resource ownership.
type Action string

const (
	ActionStudentRead   Action = "student:read"
	ActionStudentCreate Action = "student:create"
	ActionStudentUpdate Action = "student:update"
	ActionStudentDelete Action = "student:delete"

	ActionUserList   Action = "user:list"
	ActionUserCreate Action = "user:create"
	ActionUserUpdate Action = "user:update"
	ActionUserDelete Action = "user:delete"

	// ActionIntrospect covers health detail, metrics, docs and roster export.
	ActionIntrospect Action = "introspect"
)

type capability struct {
	allow     bool
	ownerOnly bool
}

// capabilities is the single (role, action) decision table. Ownership only
// matters for entries marked ownerOnly; admins are never owner-restricted.
var capabilities = map[models.UserRole]map[Action]capability{
	models.RoleAdmin: {
		ActionStudentRead:   {allow: true},
		ActionStudentCreate: {allow: true},
		ActionStudentUpdate: {allow: true},
		ActionStudentDelete: {allow: true},
		ActionUserList:      {allow: true},
		ActionUserCreate:    {allow: true},
		ActionUserUpdate:    {allow: true},
		ActionUserDelete:    {allow: true},
		ActionIntrospect:    {allow: true},
	},
	models.RoleUser: {
		ActionStudentRead:   {allow: true},
		ActionStudentCreate: {allow: true},
		ActionStudentUpdate: {allow: true, ownerOnly: true},
		ActionStudentDelete: {allow: true, ownerOnly: true},
	},
}

// Allowed reports whether a role may perform the action. For owner-scoped
// actions the caller passes whether the acting identity owns the resource.
func Allowed(role models.UserRole, action Action, owns bool) bool {
	cap, ok := capabilities[role][action]
	if !ok || !cap.allow {
		return false
	}
	if cap.ownerOnly && !owns {
		return false
	}
	return true
}
