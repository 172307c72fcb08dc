package types

import "fmt"

// Role is the organizational role asserted by the identity provider
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleLeader Role = "LEADER"
	RoleAdmin  Role = "ADMIN"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleLeader, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanResolve reports whether the role may approve or reject member requests
func (r Role) CanResolve() bool {
	return r == RoleLeader || r == RoleAdmin
}

// IsAdministrative reports whether the role may freeze, resume and create tasks
func (r Role) IsAdministrative() bool {
	return r == RoleLeader || r == RoleAdmin
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return role, nil
}

// NotificationCategory classifies a notification for the delivery channel
type NotificationCategory string

const (
	NotificationInfo     NotificationCategory = "INFO"
	NotificationRequest  NotificationCategory = "REQUEST"
	NotificationApproval NotificationCategory = "APPROVAL"
	NotificationReject   NotificationCategory = "REJECTION"
)

// String returns the string representation of the category
func (c NotificationCategory) String() string {
	return string(c)
}
