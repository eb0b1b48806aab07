package domain

import (
	"fmt"
	"strings"
	"time"
)

// RoleName is the closed set of roles a user can hold.
type RoleName string

const (
	RoleAdmin      RoleName = "admin"
	RoleUser       RoleName = "user"
	RoleSupervisor RoleName = "supervisor"
	RoleSupport    RoleName = "soporte"
	RoleManager    RoleName = "gerente"
)

// AllRoles lists every role in seeding order.
var AllRoles = []RoleName{RoleAdmin, RoleUser, RoleSupervisor, RoleSupport, RoleManager}

// ParseRoleName accepts stored names and their English aliases.
func ParseRoleName(raw string) (RoleName, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	case "supervisor":
		return RoleSupervisor, nil
	case "soporte", "support":
		return RoleSupport, nil
	case "gerente", "manager":
		return RoleManager, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether r is one of the stored role names.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleSupervisor, RoleSupport, RoleManager:
		return true
	}
	return false
}

// Role groups a name with its permission strings.
type Role struct {
	ID          string
	Name        RoleName
	Description string
	Permissions []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
