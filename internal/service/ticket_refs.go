package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// refCache populates ticket references within one call. Missing references
// degrade to id-only summaries.
type refCache struct {
	users      *userCache
	categories repository.CategoryRepository
	areas      repository.AreaRepository
	catByID    map[string]domain.CategorySummary
	areaByID   map[string]domain.AreaSummary
}

func newRefCache(users repository.UserRepository, categories repository.CategoryRepository, areas repository.AreaRepository) *refCache {
	return &refCache{
		users:      newUserCache(users),
		categories: categories,
		areas:      areas,
		catByID:    map[string]domain.CategorySummary{},
		areaByID:   map[string]domain.AreaSummary{},
	}
}

func (c *refCache) view(ctx context.Context, t *domain.Ticket) *domain.TicketView {
	v := &domain.TicketView{
		Ticket:   *t,
		Client:   c.users.summary(ctx, t.ClientID),
		Category: c.category(ctx, t.CategoryID),
	}
	if t.AssignedTo != nil {
		agent := c.users.summary(ctx, *t.AssignedTo)
		v.Assignee = &agent
	}
	if t.AreaID != nil {
		area := c.area(ctx, *t.AreaID)
		v.Area = &area
	}
	return v
}

func (c *refCache) category(ctx context.Context, id string) domain.CategorySummary {
	if s, ok := c.catByID[id]; ok {
		return s
	}
	s := domain.CategorySummary{ID: id}
	if cat, err := c.categories.GetByID(ctx, id); err == nil {
		s.Name = cat.Name
	}
	c.catByID[id] = s
	return s
}

func (c *refCache) area(ctx context.Context, id string) domain.AreaSummary {
	if s, ok := c.areaByID[id]; ok {
		return s
	}
	s := domain.AreaSummary{ID: id}
	if area, err := c.areas.GetByID(ctx, id); err == nil {
		s.Name = area.Name
	}
	c.areaByID[id] = s
	return s
}

type userCache struct {
	repo repository.UserRepository
	byID map[string]domain.UserSummary
}

func newUserCache(repo repository.UserRepository) *userCache {
	return &userCache{repo: repo, byID: map[string]domain.UserSummary{}}
}

func (c *userCache) summary(ctx context.Context, id string) domain.UserSummary {
	if s, ok := c.byID[id]; ok {
		return s
	}
	s := domain.UserSummary{ID: id}
	if u, err := c.repo.GetByID(ctx, id); err == nil {
		s = u.Summary()
	}
	c.byID[id] = s
	return s
}
