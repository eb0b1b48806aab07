package service

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// SubcategoryInput selects a subcategory and optional detail of the ticket's
// category, by id or by name.
type SubcategoryInput struct {
	Ref    string
	Detail string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Description string
	CategoryID  string
	Subcategory SubcategoryInput
	Priority    domain.TicketPriority
	AssignedTo  *string
	Attachment  *domain.Attachment
}

// TicketUpdateInput is a partial update. Nil fields are left unchanged; an
// AssignedTo pointing at "" removes the assignment.
type TicketUpdateInput struct {
	Description *string
	CategoryID  *string
	Subcategory *SubcategoryInput
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssignedTo  *string
	AreaID      *string
	Attachment  *domain.Attachment
	Notes       string
}

// CommentInput describes a new comment, optionally moving the ticket to
// NewStatus first.
type CommentInput struct {
	Text       string
	Attachment *domain.Attachment
	NewStatus  *domain.TicketStatus
}

// TicketListFilter narrows a listing inside the caller's visibility scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Page       int
	PageSize   int
}

// TicketDetail pairs a ticket with what the caller may do with it.
type TicketDetail struct {
	Ticket      *domain.TicketView
	Permissions policy.Permissions
}
