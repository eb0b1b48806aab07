// Command seed loads the reference data the service expects: roles, the
// routed areas and categories, and an initial administrator.
package main

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
)

var rolePermissions = map[domain.RoleName][]string{
	domain.RoleAdmin:      {"ver", "crear", "editar", "borrar", "reportes", "dashboard"},
	domain.RoleUser:       {"ver"},
	domain.RoleSupervisor: {"ver", "reportes", "dashboard"},
	domain.RoleSupport:    {"ver", "crear", "editar"},
	domain.RoleManager:    {"ver", "reportes", "dashboard", "editar"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	table, err := routing.Load(cfg.Tickets.RoutingTablePath)
	if err != nil {
		logger.Fatal("failed to load routing table", zap.Error(err))
	}

	roles := repository.NewRoleRepository(pg.Pool)
	areas := repository.NewAreaRepository(pg.Pool)
	categories := repository.NewCategoryRepository(pg.Pool)
	users := repository.NewUserRepository(pg.Pool)

	adminRoleID, err := seedRoles(ctx, roles)
	if err != nil {
		logger.Fatal("seed roles", zap.Error(err))
	}
	for _, name := range table.AreaNames() {
		if err := areas.Upsert(ctx, &domain.Area{Name: name}); err != nil {
			logger.Fatal("seed area", zap.String("area", name), zap.Error(err))
		}
	}
	if err := seedCategories(ctx, categories, table); err != nil {
		logger.Fatal("seed categories", zap.Error(err))
	}
	if err := seedAdmin(ctx, users, cfg, adminRoleID, logger); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	logger.Info("seed complete",
		zap.Int("roles", len(domain.AllRoles)),
		zap.Int("areas", len(table.AreaNames())),
		zap.Int("categories", len(table.Catalog())))
}

func seedRoles(ctx context.Context, roles repository.RoleRepository) (string, error) {
	var adminID string
	for _, name := range domain.AllRoles {
		role := &domain.Role{Name: name, Permissions: rolePermissions[name], IsActive: true}
		if err := roles.Upsert(ctx, role); err != nil {
			return "", err
		}
		if name == domain.RoleAdmin {
			adminID = role.ID
		}
	}
	return adminID, nil
}

// seedCategories keeps the ids of subcategories and details that already
// exist so stored tickets keep resolving.
func seedCategories(ctx context.Context, categories repository.CategoryRepository, table *routing.Table) error {
	existing, err := categories.List(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]domain.Category, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c
	}

	for _, entry := range table.Catalog() {
		category := &domain.Category{Name: entry.Name}
		prior, found := byName[strings.ToLower(entry.Name)]
		if found {
			category.Description = prior.Description
			category.Color = prior.Color
		}
		for _, sub := range entry.Subcategories {
			cs := domain.CategorySubcategory{ID: uuid.NewString(), Name: sub.Name}
			var priorSub *domain.CategorySubcategory
			if found {
				priorSub = findSubcategory(prior.Subcategories, sub.Name)
			}
			if priorSub != nil {
				cs.ID = priorSub.ID
				cs.Description = priorSub.Description
				cs.Color = priorSub.Color
			}
			for _, detail := range sub.Details {
				d := domain.SubcategoryDetail{ID: uuid.NewString(), Name: detail}
				if priorSub != nil {
					for _, pd := range priorSub.Details {
						if strings.EqualFold(pd.Name, detail) {
							d.ID = pd.ID
							break
						}
					}
				}
				cs.Details = append(cs.Details, d)
			}
			category.Subcategories = append(category.Subcategories, cs)
		}
		if err := categories.Upsert(ctx, category); err != nil {
			return err
		}
	}
	return nil
}

func findSubcategory(subs []domain.CategorySubcategory, name string) *domain.CategorySubcategory {
	for i := range subs {
		if strings.EqualFold(subs[i].Name, name) {
			return &subs[i]
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, users repository.UserRepository, cfg *config.Config, roleID string, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Seed.AdminEmail))
	if cfg.Seed.AdminPassword == "" {
		logger.Warn("SEED_ADMIN_PASSWORD not set; skipping administrator")
		return nil
	}
	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		logger.Info("administrator already present", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.Seed.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Name:         cfg.Seed.AdminName,
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("administrator created", zap.String("email", email), zap.String("user_id", admin.ID))
	return nil
}
