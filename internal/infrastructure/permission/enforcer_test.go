package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/shared/config"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(config.RolesConfig{
		Staff:  "staff",
		Close:  "closer",
		Bypass: "vip",
	}, logger.NewNop())
	require.NoError(t, err)
	return e
}

func TestEnforcer_Can(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		name     string
		actor    permission.Actor
		resource permission.Resource
		action   permission.Action
		want     bool
	}{
		{
			name:     "close role may close",
			actor:    permission.Actor{UserID: "1", RoleIDs: []string{"closer"}},
			resource: permission.ResourceTicket,
			action:   permission.ActionClose,
			want:     true,
		},
		{
			name:     "staff alone may not close",
			actor:    permission.Actor{UserID: "1", RoleIDs: []string{"staff"}},
			resource: permission.ResourceTicket,
			action:   permission.ActionClose,
			want:     false,
		},
		{
			name:     "administrator may close",
			actor:    permission.Actor{UserID: "1", Administrator: true},
			resource: permission.ResourceTicket,
			action:   permission.ActionClose,
			want:     true,
		},
		{
			name:     "staff manages tickets",
			actor:    permission.Actor{UserID: "1", RoleIDs: []string{"other", "staff"}},
			resource: permission.ResourceTicket,
			action:   permission.ActionManage,
			want:     true,
		},
		{
			name:     "staff sends panels",
			actor:    permission.Actor{UserID: "1", RoleIDs: []string{"staff"}},
			resource: permission.ResourcePanel,
			action:   permission.ActionSend,
			want:     true,
		},
		{
			name:     "bypass role skips support hours",
			actor:    permission.Actor{UserID: "1", RoleIDs: []string{"vip"}},
			resource: permission.ResourceTicket,
			action:   permission.ActionBypassHours,
			want:     true,
		},
		{
			name:     "member without roles",
			actor:    permission.Actor{UserID: "1"},
			resource: permission.ResourceTicket,
			action:   permission.ActionClose,
			want:     false,
		},
		{
			name:     "role named admin is not the administrator capability",
			actor:    permission.Actor{UserID: "1", RoleIDs: []string{"admin"}},
			resource: permission.ResourceTicket,
			action:   permission.ActionClose,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Can(tt.actor, tt.resource, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnforcer_NoBypassRoleConfigured(t *testing.T) {
	e, err := NewEnforcer(config.RolesConfig{Staff: "staff", Close: "closer"}, logger.NewNop())
	require.NoError(t, err)

	ok, err := e.Can(permission.Actor{RoleIDs: []string{""}}, permission.ResourceTicket, permission.ActionBypassHours)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnforcer_AddPolicy(t *testing.T) {
	e := newTestEnforcer(t)
	actor := permission.Actor{RoleIDs: []string{"helper"}}

	ok, err := e.Can(actor, permission.ResourceTicket, permission.ActionManage)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.AddPolicy("helper", permission.ResourceTicket, permission.ActionManage))

	ok, err = e.Can(actor, permission.ResourceTicket, permission.ActionManage)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestActorHasRole(t *testing.T) {
	a := permission.Actor{RoleIDs: []string{"a", "b"}}
	assert.True(t, a.HasRole("b"))
	assert.False(t, a.HasRole("c"))
	assert.False(t, a.HasRole(""))
}
