package handlers

import (
	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func ticketResponse(v *domain.TicketView) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           v.ID,
		TicketNumber: v.TicketNumber,
		Description:  v.Description,
		Category:     v.Category,
		Subcategory:  v.Subcategory,
		Priority:     v.Priority,
		Status:       v.Status,
		Area:         v.Area,
		Client:       v.Client,
		AssignedTo:   v.Assignee,
		Attachment:   v.Attachment,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func ticketResponses(views []domain.TicketView) []dto.TicketResponse {
	out := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, ticketResponse(&views[i]))
	}
	return out
}

func commentResponse(c *domain.CommentView) dto.CommentResponse {
	return dto.CommentResponse{
		ID:           c.ID,
		TicketID:     c.TicketID,
		Author:       c.Author,
		Text:         c.Text,
		Attachment:   c.Attachment,
		StatusChange: c.StatusChange,
		CreatedAt:    c.CreatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			TicketID:   entry.TicketID,
			ChangedBy:  entry.ChangedBy,
			ChangeType: entry.ChangeType,
			Changes:    dto.HistoryChanges{Previous: entry.Previous, Current: entry.Current},
			IPAddress:  entry.IPAddress,
			UserAgent:  entry.UserAgent,
			Notes:      entry.Notes,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}

func notificationResponse(n *domain.NotificationView) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		Ticket:    n.Ticket,
		CreatedAt: n.CreatedAt,
	}
}
