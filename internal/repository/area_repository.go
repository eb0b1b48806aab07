package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AreaRepository manages organizational areas.
type AreaRepository interface {
	Upsert(ctx context.Context, area *domain.Area) error
	GetByID(ctx context.Context, id string) (*domain.Area, error)
	GetByName(ctx context.Context, name string) (*domain.Area, error)
	List(ctx context.Context) ([]domain.Area, error)
}

type areaRepository struct {
	pool *pgxpool.Pool
}

// NewAreaRepository builds the repository.
func NewAreaRepository(pool *pgxpool.Pool) AreaRepository {
	return &areaRepository{pool: pool}
}

// Upsert inserts the area or refreshes the details of the one with the same name.
func (r *areaRepository) Upsert(ctx context.Context, area *domain.Area) error {
	const query = `
        INSERT INTO areas (name, details)
        VALUES ($1,$2)
        ON CONFLICT (name) DO UPDATE SET details=EXCLUDED.details, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	details := area.Details
	if details == nil {
		details = []string{}
	}
	return r.pool.QueryRow(ctx, query, area.Name, details).Scan(&area.ID, &area.CreatedAt, &area.UpdatedAt)
}

func (r *areaRepository) GetByID(ctx context.Context, id string) (*domain.Area, error) {
	return r.fetchSingle(ctx, `SELECT id, name, details, created_at, updated_at FROM areas WHERE id=$1`, id)
}

func (r *areaRepository) GetByName(ctx context.Context, name string) (*domain.Area, error) {
	return r.fetchSingle(ctx, `SELECT id, name, details, created_at, updated_at FROM areas WHERE name=$1`, name)
}

func (r *areaRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Area, error) {
	var area domain.Area
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&area.ID,
		&area.Name,
		&area.Details,
		&area.CreatedAt,
		&area.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *areaRepository) List(ctx context.Context) ([]domain.Area, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, details, created_at, updated_at FROM areas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Area
	for rows.Next() {
		var area domain.Area
		if err := rows.Scan(&area.ID, &area.Name, &area.Details, &area.CreatedAt, &area.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}
