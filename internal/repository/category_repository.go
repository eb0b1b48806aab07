package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryRepository manages ticket categories and their embedded subcategories.
type CategoryRepository interface {
	Upsert(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Upsert(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, color, subcategories)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (name) DO UPDATE SET description=EXCLUDED.description, color=EXCLUDED.color,
            subcategories=EXCLUDED.subcategories, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	subs := category.Subcategories
	if subs == nil {
		subs = []domain.CategorySubcategory{}
	}
	return r.pool.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.Color,
		subs,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, color, subcategories, created_at, updated_at
        FROM categories WHERE id=$1`
	var c domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Color,
		&c.Subcategories,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT id, name, description, color, subcategories, created_at, updated_at
        FROM categories ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Subcategories, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
