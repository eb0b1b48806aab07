// Package policy decides what an actor may do with a ticket.
package policy

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Permissions is the capability set of one actor on one ticket.
type Permissions struct {
	CanView         bool `json:"can_view"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanChangeStatus bool `json:"can_change_status"`
	CanAssign       bool `json:"can_assign"`
	CanComment      bool `json:"can_comment"`
}

func full() Permissions {
	return Permissions{
		CanView:         true,
		CanEdit:         true,
		CanDelete:       true,
		CanChangeStatus: true,
		CanAssign:       true,
		CanComment:      true,
	}
}

// For computes the permissions of actor on ticket. Grants from ownership,
// assignment and area supervision are additive.
func For(actor domain.Actor, ticket *domain.Ticket) Permissions {
	var p Permissions

	switch actor.Role {
	case domain.RoleAdmin:
		return full()
	case domain.RoleSupervisor:
		if ticket.InArea(actor.AreaID) {
			p.CanView = true
			p.CanEdit = true
			p.CanChangeStatus = true
			p.CanAssign = true
			p.CanComment = true
		}
	case domain.RoleSupport:
		p.CanComment = true
	case domain.RoleUser, domain.RoleManager:
	default:
		return Permissions{}
	}

	if actor.ID != "" && ticket.ClientID == actor.ID {
		p.CanView = true
		p.CanEdit = true
		p.CanComment = true
	}
	if actor.ID != "" && ticket.IsAssignedTo(actor.ID) {
		p.CanView = true
		p.CanEdit = true
		p.CanChangeStatus = true
		p.CanComment = true
	}
	return p
}

// Scope restricts a ticket listing. At most one of the id fields is set; All
// means no restriction.
type Scope struct {
	All        bool
	AreaID     *string
	AssignedTo *string
	ClientID   *string
}

// ListScope returns the listing filter for actor. A supervisor without an
// area falls back to their own tickets.
func ListScope(actor domain.Actor) Scope {
	id := actor.ID
	switch actor.Role {
	case domain.RoleAdmin:
		return Scope{All: true}
	case domain.RoleSupervisor:
		if actor.AreaID != nil {
			area := *actor.AreaID
			return Scope{AreaID: &area}
		}
	case domain.RoleSupport:
		return Scope{AssignedTo: &id}
	}
	return Scope{ClientID: &id}
}

// IsStaff reports whether role may hold ticket assignments.
func IsStaff(role domain.RoleName) bool {
	switch role {
	case domain.RoleSupport, domain.RoleSupervisor, domain.RoleAdmin:
		return true
	}
	return false
}
