package models

import "strings"

// Role is the closed set of account roles. Values outside the set never pass ParseRole.
type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleProjectLead Role = "ProjectLead"
	RoleDeveloper   Role = "Developer"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleProjectLead, RoleDeveloper}

func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// CanLead reports whether a user with this role may be recorded as a project lead.
func (r Role) CanLead() bool {
	return r == RoleAdmin || r == RoleProjectLead
}

// RoleList renders the valid roles for error messages ("Admin, ProjectLead, Developer").
func RoleList() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
