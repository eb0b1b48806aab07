package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// CreateTicketRequest payload. Accepted as JSON or as a multipart form with
// an optional "attachment" file.
type CreateTicketRequest struct {
	Description       string                `json:"description" form:"description" validate:"required,max=5000"`
	CategoryID        string                `json:"category_id" form:"category_id" validate:"required,uuid"`
	Subcategory       string                `json:"subcategory" form:"subcategory" validate:"required,max=200"`
	SubcategoryDetail string                `json:"subcategory_detail" form:"subcategory_detail" validate:"max=200"`
	Priority          domain.TicketPriority `json:"priority" form:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssignedTo        *string               `json:"assigned_to" form:"assigned_to"`
}

// UpdateTicketRequest is a partial update; omitted fields stay unchanged.
// An empty assigned_to removes the assignment.
type UpdateTicketRequest struct {
	Description       *string                `json:"description" validate:"omitempty,max=5000"`
	CategoryID        *string                `json:"category_id" validate:"omitempty,uuid"`
	Subcategory       *string                `json:"subcategory" validate:"omitempty,max=200"`
	SubcategoryDetail *string                `json:"subcategory_detail" validate:"omitempty,max=200"`
	Priority          *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status            *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS RESOLVED CANCELLED"`
	AssignedTo        *string                `json:"assigned_to"`
	AreaID            *string                `json:"area_id" validate:"omitempty,uuid"`
	Notes             string                 `json:"notes" validate:"max=2000"`
}

// ChangeStatusRequest payload for PATCH /tickets/:id/status.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status" validate:"required,oneof=PENDING IN_PROGRESS RESOLVED CANCELLED"`
	Comment string              `json:"comment" validate:"max=5000"`
}

// AssignRequest payload for POST /tickets/assign.
type AssignRequest struct {
	TicketID string `json:"ticket_id" validate:"required,uuid"`
	UserID   string `json:"user_id" validate:"required,uuid"`
}

// SupportAssignRequest payload for POST /tickets/support-assign.
type SupportAssignRequest struct {
	TicketID      string `json:"ticket_id" validate:"required,uuid"`
	SupportUserID string `json:"support_user_id" validate:"required,uuid"`
}

// CreateCommentRequest payload. Accepted as JSON or multipart form.
type CreateCommentRequest struct {
	Text      string               `json:"text" form:"text" validate:"max=5000"`
	NewStatus *domain.TicketStatus `json:"new_status" form:"new_status" validate:"omitempty,oneof=PENDING IN_PROGRESS RESOLVED CANCELLED"`
}

// TicketResponse is the populated ticket.
type TicketResponse struct {
	ID           string                 `json:"id"`
	TicketNumber string                 `json:"ticket_number"`
	Description  string                 `json:"description"`
	Category     domain.CategorySummary `json:"category"`
	Subcategory  domain.Subcategory     `json:"subcategory"`
	Priority     domain.TicketPriority  `json:"priority"`
	Status       domain.TicketStatus    `json:"status"`
	Area         *domain.AreaSummary    `json:"area"`
	Client       domain.UserSummary     `json:"client"`
	AssignedTo   *domain.UserSummary    `json:"assigned_to"`
	Attachment   *domain.Attachment     `json:"attachment,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// TicketDetailResponse adds the caller's permissions.
type TicketDetailResponse struct {
	Ticket      TicketResponse     `json:"ticket"`
	Permissions policy.Permissions `json:"permissions"`
}

// CommentResponse represents a discussion entry.
type CommentResponse struct {
	ID           string               `json:"id"`
	TicketID     string               `json:"ticket_id"`
	Author       domain.UserSummary   `json:"author"`
	Text         string               `json:"text"`
	Attachment   *domain.Attachment   `json:"attachment,omitempty"`
	StatusChange *domain.StatusChange `json:"status_change,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// HistoryChanges holds the before and after snapshots.
type HistoryChanges struct {
	Previous map[string]any `json:"previous"`
	Current  map[string]any `json:"current"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	TicketID   string                  `json:"ticket_id"`
	ChangedBy  string                  `json:"changed_by"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	Changes    HistoryChanges          `json:"changes"`
	IPAddress  string                  `json:"ip_address,omitempty"`
	UserAgent  string                  `json:"user_agent,omitempty"`
	Notes      string                  `json:"notes,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}
