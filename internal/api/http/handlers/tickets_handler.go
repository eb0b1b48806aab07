package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/attachment"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const attachmentField = "attachment"

// TicketsHandler exposes the ticket lifecycle.
type TicketsHandler struct {
	service     *service.TicketService
	attachments attachment.Store
	logger      *zap.Logger
}

// NewTicketsHandler constructs handler. attachments may be nil, in which case
// uploaded files are ignored.
func NewTicketsHandler(ticketService *service.TicketService, attachments attachment.Store, logger *zap.Logger) *TicketsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketsHandler{service: ticketService, attachments: attachments, logger: logger}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	att, err := h.attachment(c)
	if err != nil {
		return err
	}

	view, err := h.service.Create(c.UserContext(), a, service.TicketCreateInput{
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Subcategory: service.SubcategoryInput{Ref: req.Subcategory, Detail: req.SubcategoryDetail},
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		Attachment:  att,
	}, auth.MetaFromContext(c))
	if err != nil {
		h.discard(c, att)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(view)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), a, listFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// ListByCategory GET /tickets/category/:categoryId.
func (h *TicketsHandler) ListByCategory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListByCategory(c.UserContext(), a, c.Params("categoryId"), listFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		Ticket:      ticketResponse(detail.Ticket),
		Permissions: detail.Permissions,
	}})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := service.TicketUpdateInput{
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		AreaID:      req.AreaID,
		Notes:       req.Notes,
	}
	if req.Subcategory != nil {
		input.Subcategory = &service.SubcategoryInput{Ref: *req.Subcategory}
		if req.SubcategoryDetail != nil {
			input.Subcategory.Detail = *req.SubcategoryDetail
		}
	}

	view, err := h.service.Update(c.UserContext(), a, c.Params("id"), input, auth.MetaFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), a, id, auth.MetaFromContext(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "deleted": true}})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListHistory(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	att, err := h.attachment(c)
	if err != nil {
		return err
	}

	comment, err := h.service.AddComment(c.UserContext(), a, c.Params("id"), service.CommentInput{
		Text:       req.Text,
		Attachment: att,
		NewStatus:  req.NewStatus,
	}, auth.MetaFromContext(c))
	if err != nil {
		h.discard(c, att)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.service.ChangeStatus(c.UserContext(), a, c.Params("id"), req.Status, req.Comment, auth.MetaFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// Assign POST /tickets/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.service.Assign(c.UserContext(), a, req.TicketID, req.UserID, auth.MetaFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// AssignSupport POST /tickets/support-assign.
func (h *TicketsHandler) AssignSupport(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req dto.SupportAssignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.service.AssignSupportUser(c.UserContext(), a, req.TicketID, req.SupportUserID, auth.MetaFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// attachment stores the optional file of a multipart request.
func (h *TicketsHandler) attachment(c *fiber.Ctx) (*domain.Attachment, error) {
	if h.attachments == nil || !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart form", nil)
	}
	files := form.File[attachmentField]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer f.Close()
	return h.attachments.Save(c.UserContext(), fh.Filename, f)
}

// discard removes a stored upload whose command failed.
func (h *TicketsHandler) discard(c *fiber.Ctx, att *domain.Attachment) {
	if att == nil {
		return
	}
	if err := h.attachments.Remove(context.WithoutCancel(c.UserContext()), att); err != nil {
		h.logger.Warn("orphaned attachment", zap.String("path", att.StoragePath), zap.Error(err))
	}
}

func listFilter(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		Page:     parseInt(c.Query("page"), 0),
		PageSize: parseInt(c.Query("page_size"), 0),
	}
	for _, s := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(s)))
	}
	for _, p := range splitQuery(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(p)))
	}
	return filter
}
