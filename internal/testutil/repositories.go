// Package testutil holds in-memory implementations of the repository
// interfaces and fake delivery channels for tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

// tick returns strictly increasing timestamps so ordering is stable.
func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	}
	c.now = c.now.Add(time.Second)
	return c.now
}

// AreaRepo is an in-memory repository.AreaRepository.
type AreaRepo struct {
	mu    sync.Mutex
	clock clock
	items map[string]domain.Area
}

func NewAreaRepo() *AreaRepo {
	return &AreaRepo{items: map[string]domain.Area{}}
}

func (r *AreaRepo) Upsert(_ context.Context, area *domain.Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.items {
		if existing.Name == area.Name {
			area.ID = id
			area.CreatedAt = existing.CreatedAt
			area.UpdatedAt = r.clock.tick()
			r.items[id] = *area
			return nil
		}
	}
	area.ID = uuid.NewString()
	area.CreatedAt = r.clock.tick()
	area.UpdatedAt = area.CreatedAt
	r.items[area.ID] = *area
	return nil
}

func (r *AreaRepo) GetByID(_ context.Context, id string) (*domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	area, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &area, nil
}

func (r *AreaRepo) GetByName(_ context.Context, name string) (*domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, area := range r.items {
		if area.Name == name {
			a := area
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *AreaRepo) List(_ context.Context) ([]domain.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Area, 0, len(r.items))
	for _, area := range r.items {
		out = append(out, area)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CategoryRepo is an in-memory repository.CategoryRepository.
type CategoryRepo struct {
	mu    sync.Mutex
	clock clock
	items map[string]domain.Category
}

func NewCategoryRepo() *CategoryRepo {
	return &CategoryRepo{items: map[string]domain.Category{}}
}

func (r *CategoryRepo) Upsert(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.items {
		if existing.Name == category.Name {
			category.ID = id
			category.CreatedAt = existing.CreatedAt
			category.UpdatedAt = r.clock.tick()
			r.items[id] = *category
			return nil
		}
	}
	category.ID = uuid.NewString()
	category.CreatedAt = r.clock.tick()
	category.UpdatedAt = category.CreatedAt
	r.items[category.ID] = *category
	return nil
}

func (r *CategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *CategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RoleRepo is an in-memory repository.RoleRepository.
type RoleRepo struct {
	mu    sync.Mutex
	items map[domain.RoleName]domain.Role
}

func NewRoleRepo() *RoleRepo {
	return &RoleRepo{items: map[domain.RoleName]domain.Role{}}
}

func (r *RoleRepo) Upsert(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[role.Name]; ok {
		role.ID = existing.ID
	} else {
		role.ID = uuid.NewString()
	}
	r.items[role.Name] = *role
	return nil
}

func (r *RoleRepo) GetByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.items[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &role, nil
}

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	clock clock
	items map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{items: map[string]domain.User{}}
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if strings.EqualFold(existing.Email, user.Email) {
			return errors.New("duplicate email")
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.clock.tick()
	user.UpdatedAt = user.CreatedAt
	r.items[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// TicketRepo is an in-memory repository.TicketRepository.
type TicketRepo struct {
	mu    sync.Mutex
	clock clock
	items map[string]*domain.Ticket

	FailUpdate error
}

func NewTicketRepo() *TicketRepo {
	return &TicketRepo{items: map[string]*domain.Ticket{}}
}

func (r *TicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.TicketNumber == ticket.TicketNumber {
			return errors.New("duplicate ticket_number")
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.clock.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	r.items[ticket.ID] = ticket.Clone()
	return nil
}

func (r *TicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpdate != nil {
		return r.FailUpdate
	}
	existing, ok := r.items[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.TicketNumber = existing.TicketNumber
	ticket.CreatedAt = existing.CreatedAt
	ticket.UpdatedAt = r.clock.tick()
	r.items[ticket.ID] = ticket.Clone()
	return nil
}

func (r *TicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func (r *TicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t.Clone(), nil
}

func (r *TicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.items {
		if t.TicketNumber == number {
			return t.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *TicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.items {
		if filter.ClientID != nil && t.ClientID != *filter.ClientID {
			continue
		}
		if filter.AreaID != nil && !t.InArea(filter.AreaID) {
			continue
		}
		if filter.AssignedTo != nil && !t.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if filter.CategoryID != nil && t.CategoryID != *filter.CategoryID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		start := filter.Offset
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

// Count returns the number of stored tickets.
func (r *TicketRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

// HistoryRepo is an in-memory repository.TicketHistoryRepository.
type HistoryRepo struct {
	mu      sync.Mutex
	clock   clock
	entries []domain.TicketHistory

	FailCreate error
}

func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{}
}

func (r *HistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	h.ID = uuid.NewString()
	h.CreatedAt = r.clock.tick()
	r.entries = append(r.entries, *h)
	return nil
}

func (r *HistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range r.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

// All returns every recorded entry in insertion order.
func (r *HistoryRepo) All() []domain.TicketHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TicketHistory(nil), r.entries...)
}

// CommentRepo is an in-memory repository.CommentRepository.
type CommentRepo struct {
	mu    sync.Mutex
	clock clock
	items []domain.Comment
}

func NewCommentRepo() *CommentRepo {
	return &CommentRepo{}
}

func (r *CommentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = r.clock.tick()
	r.items = append(r.items, *c)
	return nil
}

func (r *CommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.items {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

// NotificationRepo is an in-memory repository.NotificationRepository.
type NotificationRepo struct {
	mu    sync.Mutex
	clock clock
	items []domain.Notification

	FailCreate error
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{}
}

func (r *NotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	n.ID = uuid.NewString()
	n.CreatedAt = r.clock.tick()
	r.items = append(r.items, *n)
	return nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID string, filter repository.NotificationFilter) ([]domain.NotificationView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationView
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if n.UserID != userID || (filter.UnreadOnly && n.Read) {
			continue
		}
		out = append(out, domain.NotificationView{Notification: n})
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, id, userID string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			n := r.items[i]
			return &n, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *NotificationRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	var removed int64
	for _, n := range r.items {
		if n.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.items = kept
	return removed, nil
}

// All returns every stored notification in insertion order.
func (r *NotificationRepo) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.items...)
}

// For returns the notifications of one user in insertion order.
func (r *NotificationRepo) For(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

var (
	_ repository.AreaRepository          = (*AreaRepo)(nil)
	_ repository.CategoryRepository      = (*CategoryRepo)(nil)
	_ repository.RoleRepository          = (*RoleRepo)(nil)
	_ repository.UserRepository          = (*UserRepo)(nil)
	_ repository.TicketRepository        = (*TicketRepo)(nil)
	_ repository.TicketHistoryRepository = (*HistoryRepo)(nil)
	_ repository.CommentRepository       = (*CommentRepo)(nil)
	_ repository.NotificationRepository  = (*NotificationRepo)(nil)
)
