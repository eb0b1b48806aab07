package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ResolverDependencies wires the area resolver.
type ResolverDependencies struct {
	Table      *Table
	Categories repository.CategoryRepository
	Areas      repository.AreaRepository
	Logger     *zap.Logger
}

// Resolver maps a ticket classification to a stored area.
type Resolver struct {
	table      *Table
	categories repository.CategoryRepository
	areas      repository.AreaRepository
	logger     *zap.Logger
}

// NewResolver builds a Resolver. A nil Table falls back to the embedded one.
func NewResolver(deps ResolverDependencies) *Resolver {
	table := deps.Table
	if table == nil {
		table = Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		table:      table,
		categories: deps.Categories,
		areas:      deps.Areas,
		logger:     logger,
	}
}

// Resolve loads the category and routes the subcategory within it.
func (r *Resolver) Resolve(ctx context.Context, categoryID string, sub domain.Subcategory) (*domain.Area, error) {
	category, err := r.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, errorutil.NotFoundOr(err, "category", map[string]any{"id": categoryID})
	}
	return r.ResolveFor(ctx, category, sub)
}

// ResolveFor routes within an already loaded category.
func (r *Resolver) ResolveFor(ctx context.Context, category *domain.Category, sub domain.Subcategory) (*domain.Area, error) {
	areaName, ok := r.table.Lookup(category.Name, sub.Name, sub.DetailName())
	if !ok {
		r.logger.Info("unroutable ticket classification",
			zap.String("category", category.Name),
			zap.String("subcategory", sub.Name),
			zap.String("detail", sub.DetailName()))
		return nil, errorutil.NewUnroutable(map[string]any{
			"category":    category.Name,
			"subcategory": sub.Name,
			"detail":      sub.DetailName(),
		})
	}

	area, err := r.areas.GetByName(ctx, areaName)
	if err != nil {
		return nil, errorutil.NotFoundOr(err, "area", map[string]any{"name": areaName})
	}
	return area, nil
}
