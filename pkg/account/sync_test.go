package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosca-platform/tosca-core/pkg/keycloak"
)

func TestLevelFromRoles(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  PermissionLevel
	}{
		{name: "superadmin", roles: []string{"SUPERADMIN"}, want: PermissionSuperadmin},
		{name: "superadmin wins over admin", roles: []string{"ADMIN", "SUPERADMIN"}, want: PermissionSuperadmin},
		{name: "admin", roles: []string{"ADMIN", "citizen"}, want: PermissionAdmin},
		{name: "plain roles grant nothing", roles: []string{"citizen", "editor"}, want: PermissionNone},
		{name: "empty set", roles: nil, want: PermissionNone},
		{name: "case sensitive", roles: []string{"admin"}, want: PermissionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromRoles(keycloak.NewRoleSet(tt.roles...)))
		})
	}
}

func TestPermissionLevel_Flags(t *testing.T) {
	staff, super := PermissionSuperadmin.Flags()
	assert.True(t, staff)
	assert.True(t, super)

	staff, super = PermissionAdmin.Flags()
	assert.True(t, staff)
	assert.False(t, super)

	staff, super = PermissionNone.Flags()
	assert.False(t, staff)
	assert.False(t, super)
}

func TestSynchronizer_Apply_Promotion(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi"})
	s := NewSynchronizer(store, nil)

	changed, err := s.Apply(context.Background(), acct, keycloak.NewRoleSet("ADMIN"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, acct.IsStaff)
	assert.False(t, acct.IsSuperuser)

	stored, err := store.GetByID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsStaff)
	assert.False(t, stored.IsSuperuser)
}

func TestSynchronizer_Apply_Superadmin(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi"})
	s := NewSynchronizer(store, nil)

	changed, err := s.Apply(context.Background(), acct, keycloak.NewRoleSet("SUPERADMIN", "ADMIN"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, acct.IsStaff)
	assert.True(t, acct.IsSuperuser)
}

func TestSynchronizer_Apply_Idempotent(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi"})
	s := NewSynchronizer(store, nil)

	roles := keycloak.NewRoleSet("ADMIN")
	changed, err := s.Apply(context.Background(), acct, roles)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Apply(context.Background(), acct, roles)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, store.updateCalls, "second apply must not touch storage")
}

func TestSynchronizer_Apply_Demotion(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi", IsStaff: true, IsSuperuser: true})
	s := NewSynchronizer(store, nil)

	changed, err := s.Apply(context.Background(), acct, keycloak.NewRoleSet("citizen"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, acct.IsStaff)
	assert.False(t, acct.IsSuperuser)
}

func TestSynchronizer_Apply_StoreError(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi"})
	store.updateErr = context.DeadlineExceeded
	s := NewSynchronizer(store, nil)

	_, err := s.Apply(context.Background(), acct, keycloak.NewRoleSet("ADMIN"))
	require.Error(t, err)
	// Flags stay unchanged when the write fails.
	assert.False(t, acct.IsStaff)
}
