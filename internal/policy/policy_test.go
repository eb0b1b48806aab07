package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestPermissionsMatrix(t *testing.T) {
	tech := strPtr("area-tech")
	finance := strPtr("area-finance")
	ticket := &domain.Ticket{ClientID: "client", AssignedTo: strPtr("agent"), AreaID: tech}

	tests := []struct {
		name  string
		actor domain.Actor
		want  Permissions
	}{
		{
			name:  "admin",
			actor: domain.Actor{ID: "root", Role: domain.RoleAdmin},
			want:  full(),
		},
		{
			name:  "creator",
			actor: domain.Actor{ID: "client", Role: domain.RoleUser},
			want:  Permissions{CanView: true, CanEdit: true, CanComment: true},
		},
		{
			name:  "manager creator",
			actor: domain.Actor{ID: "client", Role: domain.RoleManager},
			want:  Permissions{CanView: true, CanEdit: true, CanComment: true},
		},
		{
			name:  "assigned agent",
			actor: domain.Actor{ID: "agent", Role: domain.RoleSupport},
			want:  Permissions{CanView: true, CanEdit: true, CanChangeStatus: true, CanComment: true},
		},
		{
			name:  "unassigned agent",
			actor: domain.Actor{ID: "other-agent", Role: domain.RoleSupport},
			want:  Permissions{CanComment: true},
		},
		{
			name:  "supervisor same area",
			actor: domain.Actor{ID: "sup", Role: domain.RoleSupervisor, AreaID: strPtr("area-tech")},
			want:  Permissions{CanView: true, CanEdit: true, CanChangeStatus: true, CanAssign: true, CanComment: true},
		},
		{
			name:  "supervisor other area",
			actor: domain.Actor{ID: "sup", Role: domain.RoleSupervisor, AreaID: finance},
			want:  Permissions{},
		},
		{
			name:  "supervisor without area",
			actor: domain.Actor{ID: "sup", Role: domain.RoleSupervisor},
			want:  Permissions{},
		},
		{
			name:  "stranger",
			actor: domain.Actor{ID: "someone", Role: domain.RoleUser},
			want:  Permissions{},
		},
		{
			name:  "unknown role owning the ticket",
			actor: domain.Actor{ID: "client", Role: domain.RoleName("root")},
			want:  Permissions{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, For(tc.actor, ticket))
		})
	}
}

func TestSupervisorCannotSeeUnroutedTicket(t *testing.T) {
	ticket := &domain.Ticket{ClientID: "client"}
	got := For(domain.Actor{ID: "sup", Role: domain.RoleSupervisor, AreaID: strPtr("a")}, ticket)
	assert.False(t, got.CanView)
}

func TestListScope(t *testing.T) {
	area := strPtr("area-tech")

	assert.True(t, ListScope(domain.Actor{ID: "root", Role: domain.RoleAdmin}).All)

	sup := ListScope(domain.Actor{ID: "sup", Role: domain.RoleSupervisor, AreaID: area})
	assert.Equal(t, "area-tech", *sup.AreaID)
	assert.Nil(t, sup.ClientID)

	agent := ListScope(domain.Actor{ID: "agent", Role: domain.RoleSupport})
	assert.Equal(t, "agent", *agent.AssignedTo)

	for _, role := range []domain.RoleName{domain.RoleUser, domain.RoleManager} {
		s := ListScope(domain.Actor{ID: "u", Role: role})
		assert.Equal(t, "u", *s.ClientID)
		assert.False(t, s.All)
	}

	noArea := ListScope(domain.Actor{ID: "sup", Role: domain.RoleSupervisor})
	assert.Equal(t, "sup", *noArea.ClientID)
}

func TestIsStaff(t *testing.T) {
	assert.True(t, IsStaff(domain.RoleSupport))
	assert.True(t, IsStaff(domain.RoleSupervisor))
	assert.True(t, IsStaff(domain.RoleAdmin))
	assert.False(t, IsStaff(domain.RoleUser))
	assert.False(t, IsStaff(domain.RoleManager))
}
