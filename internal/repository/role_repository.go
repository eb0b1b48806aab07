package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RoleRepository manages role records.
type RoleRepository interface {
	Upsert(ctx context.Context, role *domain.Role) error
	GetByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository builds the repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Upsert(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, description, permissions, is_active)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (name) DO UPDATE SET description=EXCLUDED.description,
            permissions=EXCLUDED.permissions, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		role.Name,
		role.Description,
		role.Permissions,
		role.IsActive,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

func (r *roleRepository) GetByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	const query = `
        SELECT id, name, description, permissions, is_active, created_at, updated_at
        FROM roles WHERE name=$1`
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.Permissions,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}
