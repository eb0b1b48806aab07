package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// changeNote is free text travelling with a change event.
type changeNote struct {
	text      string
	commentID string
}

// Update applies a partial update. Changing the status additionally needs
// status rights; changing the assignee or area needs assignment rights.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput, meta domain.RequestMeta) (view *domain.TicketView, err error) {
	defer func() { s.metrics.RecordCommand("update", err) }()

	before, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	perms := policy.For(actor, before)
	if !perms.CanEdit {
		return nil, apperrors.NewForbidden("not allowed to edit this ticket")
	}
	after := before.Clone()

	if input.Description != nil {
		description := s.clean(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
		}
		after.Description = description
	}

	if input.CategoryID != nil || input.Subcategory != nil {
		categoryID := after.CategoryID
		if input.CategoryID != nil {
			if err := requireID("category_id", *input.CategoryID); err != nil {
				return nil, err
			}
			categoryID = *input.CategoryID
		}
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "category", map[string]any{"id": categoryID})
		}
		subInput := SubcategoryInput{Ref: after.Subcategory.ID}
		if after.Subcategory.Detail != nil {
			subInput.Detail = after.Subcategory.Detail.ID
		}
		if input.Subcategory != nil {
			subInput = *input.Subcategory
		}
		sub, err := canonicalSubcategory(category, subInput)
		if err != nil {
			return nil, err
		}
		after.CategoryID = category.ID
		after.Subcategory = sub
	}

	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, invalidEnum("priority", string(*input.Priority))
		}
		after.Priority = *input.Priority
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, invalidEnum("status", string(*input.Status))
		}
		if *input.Status != before.Status {
			if !perms.CanChangeStatus {
				return nil, apperrors.NewForbidden("not allowed to change the status of this ticket")
			}
			if err := s.checkTransition(before.Status, *input.Status); err != nil {
				return nil, err
			}
			after.Status = *input.Status
		}
	}

	if input.AreaID != nil && !sameRef(before.AreaID, input.AreaID) {
		if !perms.CanAssign {
			return nil, apperrors.NewForbidden("not allowed to change the area of this ticket")
		}
		if err := requireID("area_id", *input.AreaID); err != nil {
			return nil, err
		}
		area, err := s.areas.GetByID(ctx, *input.AreaID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "area", map[string]any{"id": *input.AreaID})
		}
		after.AreaID = &area.ID
	}

	if input.AssignedTo != nil {
		target := *input.AssignedTo
		switch {
		case target == "" && before.AssignedTo != nil:
			if !perms.CanAssign {
				return nil, apperrors.NewForbidden("not allowed to assign this ticket")
			}
			after.AssignedTo = nil
		case target != "" && !before.IsAssignedTo(target):
			if !perms.CanAssign {
				return nil, apperrors.NewForbidden("not allowed to assign this ticket")
			}
			agent, err := s.loadAssignee(ctx, target, false)
			if err != nil {
				return nil, err
			}
			after.AssignedTo = &agent.ID
		}
	}

	if input.Attachment != nil {
		after.Attachment = input.Attachment
	}

	if err := s.tickets.Update(ctx, after); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"id": ticketID})
	}

	changeType := audit.Classify(before, after)
	notes := s.clean(input.Notes)
	view = s.commit(ctx, actor, before, after, changeType, meta, notes)
	s.publishChange(ctx, actor, before, view, changeType, changeNote{text: notes})
	return view, nil
}

// ChangeStatus moves a ticket to newStatus. A non-empty comment is stored as
// a comment carrying the transition.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus, comment string, meta domain.RequestMeta) (view *domain.TicketView, err error) {
	defer func() { s.metrics.RecordCommand("change_status", err) }()

	if !newStatus.Valid() {
		return nil, invalidEnum("status", string(newStatus))
	}
	before, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.For(actor, before).CanChangeStatus {
		return nil, apperrors.NewForbidden("not allowed to change the status of this ticket")
	}
	if before.Status == newStatus {
		return nil, apperrors.NewValidationError("ticket already has this status", map[string]any{"status": newStatus})
	}
	if err := s.checkTransition(before.Status, newStatus); err != nil {
		return nil, err
	}

	after := before.Clone()
	after.Status = newStatus
	if err := s.tickets.Update(ctx, after); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"id": ticketID})
	}

	text := s.clean(comment)
	view = s.commit(ctx, actor, before, after, domain.ChangeTypeStatus, meta, text)

	var commentErr error
	if text != "" {
		c := &domain.Comment{
			TicketID:     after.ID,
			AuthorID:     actor.ID,
			Text:         text,
			StatusChange: &domain.StatusChange{OldStatus: before.Status, NewStatus: newStatus},
		}
		commentErr = s.comments.Create(ctx, c)
	}

	s.publishChange(ctx, actor, before, view, domain.ChangeTypeStatus, changeNote{text: text})
	if commentErr != nil {
		s.logger.Error("status comment write failed", zap.String("ticket_id", after.ID), zap.Error(commentErr))
		return nil, apperrors.MapError(commentErr)
	}
	return view, nil
}

// Assign gives the ticket to any staff member. Requires assignment rights.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, targetUserID string, meta domain.RequestMeta) (view *domain.TicketView, err error) {
	defer func() { s.metrics.RecordCommand("assign", err) }()

	before, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.For(actor, before).CanAssign {
		return nil, apperrors.NewForbidden("not allowed to assign this ticket")
	}
	agent, err := s.loadAssignee(ctx, targetUserID, false)
	if err != nil {
		return nil, err
	}
	return s.assignTo(ctx, actor, before, agent, meta)
}

// AssignSupportUser gives the ticket to a support agent. Supervisors may only
// assign tickets of their own area.
func (s *TicketService) AssignSupportUser(ctx context.Context, actor domain.Actor, ticketID, supportUserID string, meta domain.RequestMeta) (view *domain.TicketView, err error) {
	defer func() { s.metrics.RecordCommand("assign_support", err) }()

	before, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleSupervisor:
		if !before.InArea(actor.AreaID) {
			return nil, apperrors.NewForbidden("ticket belongs to another area")
		}
	default:
		return nil, apperrors.NewForbidden("only supervisors and admins can assign support users")
	}
	agent, err := s.loadAssignee(ctx, supportUserID, true)
	if err != nil {
		return nil, err
	}
	return s.assignTo(ctx, actor, before, agent, meta)
}

func (s *TicketService) assignTo(ctx context.Context, actor domain.Actor, before *domain.Ticket, agent *domain.User, meta domain.RequestMeta) (*domain.TicketView, error) {
	if before.IsAssignedTo(agent.ID) {
		return nil, apperrors.NewValidationError("ticket is already assigned to this user", map[string]any{"user_id": agent.ID})
	}
	after := before.Clone()
	after.AssignedTo = &agent.ID
	if err := s.tickets.Update(ctx, after); err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"id": before.ID})
	}
	view := s.commit(ctx, actor, before, after, domain.ChangeTypeAssignment, meta, "")
	s.publishChange(ctx, actor, before, view, domain.ChangeTypeAssignment, changeNote{})
	return view, nil
}

// AddComment posts a comment. When input.NewStatus differs from the current
// status the transition is applied before the comment is stored.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID string, input CommentInput, meta domain.RequestMeta) (out *domain.CommentView, err error) {
	defer func() { s.metrics.RecordCommand("add_comment", err) }()

	before, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	perms := policy.For(actor, before)
	if !perms.CanComment {
		return nil, apperrors.NewForbidden("not allowed to comment on this ticket")
	}
	text := s.clean(input.Text)
	if text == "" && input.Attachment == nil {
		return nil, apperrors.NewValidationError("comment text is required", map[string]any{"field": "text"})
	}
	if input.NewStatus != nil && !input.NewStatus.Valid() {
		return nil, invalidEnum("status", string(*input.NewStatus))
	}

	comment := &domain.Comment{
		TicketID:   before.ID,
		AuthorID:   actor.ID,
		Text:       text,
		Attachment: input.Attachment,
	}

	var view *domain.TicketView
	if input.NewStatus != nil && *input.NewStatus != before.Status {
		if !perms.CanChangeStatus {
			return nil, apperrors.NewForbidden("not allowed to change the status of this ticket")
		}
		if err := s.checkTransition(before.Status, *input.NewStatus); err != nil {
			return nil, err
		}
		after := before.Clone()
		after.Status = *input.NewStatus
		if err := s.tickets.Update(ctx, after); err != nil {
			return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"id": ticketID})
		}
		view = s.commit(ctx, actor, before, after, domain.ChangeTypeStatus, meta, text)
		comment.StatusChange = &domain.StatusChange{OldStatus: before.Status, NewStatus: after.Status}
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	note := changeNote{text: text, commentID: comment.ID}
	if view != nil {
		s.publishChange(ctx, actor, before, view, domain.ChangeTypeStatus, note)
	} else {
		s.publish(ctx, events.Event{
			Type:      events.EventCommentAdded,
			Ticket:    *s.expand(ctx, before),
			Actor:     actor,
			Comment:   note.text,
			CommentID: note.commentID,
		})
	}

	return &domain.CommentView{Comment: *comment, Author: newUserCache(s.users).summary(ctx, actor.ID)}, nil
}

// Delete removes a ticket for good. Notifications go out before the record
// disappears; the history keeps the final snapshot.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string, meta domain.RequestMeta) (err error) {
	defer func() { s.metrics.RecordCommand("delete", err) }()

	before, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if !policy.For(actor, before).CanDelete {
		return apperrors.NewForbidden("not allowed to delete this ticket")
	}

	view := s.expand(ctx, before)
	s.publish(ctx, events.Event{
		Type:             events.EventTicketDeleted,
		Ticket:           *view,
		Actor:            actor,
		PreviousAssignee: view.Assignee,
	})

	if err := s.tickets.Delete(ctx, before.ID); err != nil {
		return apperrors.NotFoundOr(err, "ticket", map[string]any{"id": ticketID})
	}

	s.audit.Record(ctx, audit.Entry{
		TicketID:   before.ID,
		ActorID:    actor.ID,
		ChangeType: domain.ChangeTypeDeleted,
		Previous:   before.Snapshot(),
		Meta:       meta,
	})
	s.logger.Info("ticket deleted", zap.String("ticket_id", before.ID), zap.String("actor_id", actor.ID))
	return nil
}

// commit records the audit entry for a stored mutation and returns the
// populated ticket.
func (s *TicketService) commit(ctx context.Context, actor domain.Actor, before, after *domain.Ticket, changeType domain.TicketChangeType, meta domain.RequestMeta, notes string) *domain.TicketView {
	s.audit.Record(ctx, audit.Entry{
		TicketID:   after.ID,
		ActorID:    actor.ID,
		ChangeType: changeType,
		Previous:   before.Snapshot(),
		Current:    after.Snapshot(),
		Meta:       meta,
		Notes:      notes,
	})
	return s.expand(ctx, after)
}

// publishChange emits the event matching changeType. An assignee change is
// always announced, even when a higher-priority change named the entry.
func (s *TicketService) publishChange(ctx context.Context, actor domain.Actor, before *domain.Ticket, view *domain.TicketView, changeType domain.TicketChangeType, note changeNote) {
	after := &view.Ticket
	assigneeChanged := !sameRef(before.AssignedTo, after.AssignedTo)

	ev := events.Event{
		Ticket:    *view,
		Actor:     actor,
		Comment:   note.text,
		CommentID: note.commentID,
	}
	switch changeType {
	case domain.ChangeTypeStatus:
		ev.Type = events.EventTicketStatusChanged
		ev.OldStatus = before.Status
		ev.NewStatus = after.Status
	case domain.ChangeTypePriority:
		ev.Type = events.EventTicketPriorityChanged
		ev.OldPriority = before.Priority
		ev.NewPriority = after.Priority
	case domain.ChangeTypeAssignment:
		s.publishAssignment(ctx, actor, before, view)
		return
	default:
		ev.Type = events.EventTicketUpdated
	}
	s.publish(ctx, ev)

	if assigneeChanged {
		s.publishAssignment(ctx, actor, before, view)
	}
}

func (s *TicketService) publishAssignment(ctx context.Context, actor domain.Actor, before *domain.Ticket, view *domain.TicketView) {
	ev := events.Event{Type: events.EventTicketAssigned, Ticket: *view, Actor: actor}
	if before.AssignedTo != nil {
		prev := newUserCache(s.users).summary(ctx, *before.AssignedTo)
		ev.Type = events.EventTicketReassigned
		ev.PreviousAssignee = &prev
	}
	s.publish(ctx, ev)
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
