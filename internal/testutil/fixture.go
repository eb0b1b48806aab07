package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/routing"
)

// Fixture bundles in-memory repositories seeded with the default routing
// catalog: one area per routed area name and one category per routed category.
type Fixture struct {
	Areas         *AreaRepo
	Categories    *CategoryRepo
	Roles         *RoleRepo
	Users         *UserRepo
	Tickets       *TicketRepo
	History       *HistoryRepo
	Comments      *CommentRepo
	Notifications *NotificationRepo

	Table *routing.Table
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	f := &Fixture{
		Areas:         NewAreaRepo(),
		Categories:    NewCategoryRepo(),
		Roles:         NewRoleRepo(),
		Users:         NewUserRepo(),
		Tickets:       NewTicketRepo(),
		History:       NewHistoryRepo(),
		Comments:      NewCommentRepo(),
		Notifications: NewNotificationRepo(),
		Table:         routing.Default(),
	}
	ctx := context.Background()

	for _, name := range f.Table.AreaNames() {
		require.NoError(t, f.Areas.Upsert(ctx, &domain.Area{Name: name}))
	}
	for _, role := range domain.AllRoles {
		require.NoError(t, f.Roles.Upsert(ctx, &domain.Role{Name: role, IsActive: true}))
	}
	for _, entry := range f.Table.Catalog() {
		category := &domain.Category{Name: entry.Name}
		for _, sub := range entry.Subcategories {
			cs := domain.CategorySubcategory{ID: uuid.NewString(), Name: sub.Name}
			for _, detail := range sub.Details {
				cs.Details = append(cs.Details, domain.SubcategoryDetail{ID: uuid.NewString(), Name: detail})
			}
			category.Subcategories = append(category.Subcategories, cs)
		}
		require.NoError(t, f.Categories.Upsert(ctx, category))
	}
	return f
}

// Area returns the seeded area with the given name.
func (f *Fixture) Area(t testing.TB, name string) *domain.Area {
	t.Helper()
	area, err := f.Areas.GetByName(context.Background(), name)
	require.NoError(t, err, name)
	return area
}

// Category returns the seeded category with the given name.
func (f *Fixture) Category(t testing.TB, name string) *domain.Category {
	t.Helper()
	categories, err := f.Categories.List(context.Background())
	require.NoError(t, err)
	for i := range categories {
		if categories[i].Name == name {
			return &categories[i]
		}
	}
	t.Fatalf("category %q not seeded", name)
	return nil
}

// AddUser stores a user with role and, when areaName is set, the matching area.
func (f *Fixture) AddUser(t testing.TB, name string, role domain.RoleName, areaName string) *domain.User {
	t.Helper()
	ctx := context.Background()
	r, err := f.Roles.GetByName(ctx, role)
	require.NoError(t, err)
	user := &domain.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		RoleID:   r.ID,
		Role:     role,
		IsActive: true,
	}
	if areaName != "" {
		area := f.Area(t, areaName)
		user.AreaID = &area.ID
	}
	require.NoError(t, f.Users.Create(ctx, user))
	return user
}

// Actor returns the actor view of u.
func Actor(u *domain.User) domain.Actor {
	return domain.Actor{ID: u.ID, Role: u.Role, AreaID: u.AreaID}
}
