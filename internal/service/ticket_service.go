package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TicketService coordinates the ticket lifecycle: routing, access checks,
// persistence, audit and notification events.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	areas      repository.AreaRepository
	categories repository.CategoryRepository
	resolver   *routing.Resolver
	audit      *audit.Recorder
	dispatcher events.Dispatcher
	numbers    *TicketNumberGenerator
	sanitizer  *bluemonday.Policy
	strict     bool
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	CommentRepo       repository.CommentRepository
	HistoryRepo       repository.TicketHistoryRepository
	UserRepo          repository.UserRepository
	AreaRepo          repository.AreaRepository
	CategoryRepo      repository.CategoryRepository
	Resolver          *routing.Resolver
	Audit             *audit.Recorder
	Dispatcher        events.Dispatcher
	Numbers           *TicketNumberGenerator
	StrictTransitions bool
	Logger            *zap.Logger
	Metrics           *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	numbers := deps.Numbers
	if numbers == nil {
		numbers = NewTicketNumberGenerator()
	}
	recorder := deps.Audit
	if recorder == nil {
		recorder = audit.NewRecorder(audit.RecorderDependencies{Repo: deps.HistoryRepo, Logger: logger, Metrics: deps.Metrics})
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		areas:      deps.AreaRepo,
		categories: deps.CategoryRepo,
		resolver:   deps.Resolver,
		audit:      recorder,
		dispatcher: deps.Dispatcher,
		numbers:    numbers,
		sanitizer:  bluemonday.StrictPolicy(),
		strict:     deps.StrictTransitions,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Create files a new ticket for actor, routed to an area from its
// classification.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput, meta domain.RequestMeta) (view *domain.TicketView, err error) {
	defer func() { s.metrics.RecordCommand("create", err) }()

	description := s.clean(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidEnum("priority", string(priority))
	}
	if err := requireID("category_id", input.CategoryID); err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "category", map[string]any{"id": input.CategoryID})
	}
	sub, err := canonicalSubcategory(category, input.Subcategory)
	if err != nil {
		return nil, err
	}
	area, err := s.resolver.ResolveFor(ctx, category, sub)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketNumber: s.numbers.Next(),
		Description:  description,
		CategoryID:   category.ID,
		Subcategory:  sub,
		Priority:     priority,
		Status:       domain.TicketStatusPending,
		AreaID:       &area.ID,
		ClientID:     actor.ID,
		Attachment:   input.Attachment,
	}

	if input.AssignedTo != nil && *input.AssignedTo != "" {
		agent, err := s.loadAssignee(ctx, *input.AssignedTo, true)
		if err != nil {
			return nil, err
		}
		ticket.AssignedTo = &agent.ID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.Record(ctx, audit.Entry{
		TicketID:   ticket.ID,
		ActorID:    actor.ID,
		ChangeType: domain.ChangeTypeCreated,
		Current:    ticket.Snapshot(),
		Meta:       meta,
	})

	view = s.expand(ctx, ticket)
	s.publish(ctx, events.Event{Type: events.EventTicketCreated, Ticket: *view, Actor: actor})

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("area", area.Name))
	return view, nil
}

// List returns the tickets visible to actor, newest first.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.TicketView, error) {
	repoFilter, err := s.listFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	return s.listViews(ctx, repoFilter)
}

// ListByCategory is List restricted to one category.
func (s *TicketService) ListByCategory(ctx context.Context, actor domain.Actor, categoryID string, filter TicketListFilter) ([]domain.TicketView, error) {
	if err := requireID("category_id", categoryID); err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, apperrors.NotFoundOr(err, "category", map[string]any{"id": categoryID})
	}
	repoFilter, err := s.listFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	repoFilter.CategoryID = &categoryID
	return s.listViews(ctx, repoFilter)
}

// Get returns a ticket the actor may view, with the actor's permissions.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	perms := policy.For(actor, ticket)
	if !perms.CanView {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	return &TicketDetail{Ticket: s.expand(ctx, ticket), Permissions: perms}, nil
}

// ListComments returns the discussion of a ticket the actor may view.
func (s *TicketService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.CommentView, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.For(actor, ticket).CanView {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	users := newUserCache(s.users)
	out := make([]domain.CommentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, domain.CommentView{Comment: c, Author: users.summary(ctx, c.AuthorID)})
	}
	return out, nil
}

// ListHistory returns the audit trail of a ticket. Admins may read the trail
// of a deleted ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	if err := requireID("id", ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	switch {
	case err == nil:
		if !policy.For(actor, ticket).CanView {
			return nil, apperrors.NewForbidden("not allowed to view this ticket")
		}
	case actor.Role == domain.RoleAdmin:
	default:
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"id": ticketID})
	}

	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

func (s *TicketService) listFilter(actor domain.Actor, filter TicketListFilter) (repository.TicketFilter, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return repository.TicketFilter{}, invalidEnum("status", string(st))
		}
	}
	for _, pr := range filter.Priorities {
		if !pr.Valid() {
			return repository.TicketFilter{}, invalidEnum("priority", string(pr))
		}
	}

	scope := policy.ListScope(actor)
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
	}
	if !scope.All {
		repoFilter.ClientID = scope.ClientID
		repoFilter.AreaID = scope.AreaID
		repoFilter.AssignedTo = scope.AssignedTo
	}

	if filter.Page > 0 || filter.PageSize > 0 {
		size := filter.PageSize
		if size <= 0 {
			size = defaultPageSize
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		repoFilter.Limit = size
		repoFilter.Offset = (page - 1) * size
	}
	return repoFilter, nil
}

func (s *TicketService) listViews(ctx context.Context, filter repository.TicketFilter) ([]domain.TicketView, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	refs := newRefCache(s.users, s.categories, s.areas)
	out := make([]domain.TicketView, 0, len(tickets))
	for i := range tickets {
		out = append(out, *refs.view(ctx, &tickets[i]))
	}
	return out, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if err := requireID("id", ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) expand(ctx context.Context, ticket *domain.Ticket) *domain.TicketView {
	return newRefCache(s.users, s.categories, s.areas).view(ctx, ticket)
}

// loadAssignee resolves a prospective assignee. supportOnly narrows the
// accepted roles to the support role.
func (s *TicketService) loadAssignee(ctx context.Context, userID string, supportOnly bool) (*domain.User, error) {
	if err := requireID("assigned_to", userID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", map[string]any{"id": userID})
	}
	if !user.IsActive {
		return nil, apperrors.NewValidationError("assignee is inactive", map[string]any{"user_id": userID})
	}
	if supportOnly && user.Role != domain.RoleSupport {
		return nil, apperrors.NewValidationError("assignee must hold the support role", map[string]any{"user_id": userID, "role": user.Role})
	}
	if !policy.IsStaff(user.Role) {
		return nil, apperrors.NewValidationError("assignee must be a staff member", map[string]any{"user_id": userID, "role": user.Role})
	}
	return user, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(context.WithoutCancel(ctx), event)
}

// clean strips markup and surrounding whitespace from user text.
func (s *TicketService) clean(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

func canonicalSubcategory(category *domain.Category, input SubcategoryInput) (domain.Subcategory, error) {
	if strings.TrimSpace(input.Ref) == "" {
		return domain.Subcategory{}, apperrors.NewValidationError("subcategory is required", map[string]any{"field": "subcategory"})
	}
	configured, ok := category.FindSubcategory(input.Ref)
	if !ok {
		return domain.Subcategory{}, apperrors.NewValidationError("unknown subcategory for category", map[string]any{
			"category":    category.Name,
			"subcategory": input.Ref,
		})
	}
	sub := domain.Subcategory{
		ID:          configured.ID,
		Name:        configured.Name,
		Description: configured.Description,
	}
	if strings.TrimSpace(input.Detail) != "" {
		detail, ok := configured.FindDetail(input.Detail)
		if !ok {
			return domain.Subcategory{}, apperrors.NewValidationError("unknown subcategory detail", map[string]any{
				"subcategory": configured.Name,
				"detail":      input.Detail,
			})
		}
		d := *detail
		sub.Detail = &d
	}
	return sub, nil
}

func requireID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("malformed id", map[string]any{"field": field, "value": id})
	}
	return nil
}

func invalidEnum(field, value string) error {
	return apperrors.NewValidationError("invalid "+field, map[string]any{"field": field, "value": value})
}
