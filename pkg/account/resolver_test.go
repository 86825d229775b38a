package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
	"github.com/tosca-platform/tosca-core/pkg/keycloak"
)

func newResolver(store *fakeStore) *Resolver {
	return NewResolver(store, NewSynchronizer(store, nil), nil)
}

func testHint() IdentityHint {
	return IdentityHint{
		Provider:   "keycloak",
		Subject:    "sub-001",
		Username:   "mrossi",
		Email:      "m.rossi@example.org",
		GivenName:  "Mario",
		FamilyName: "Rossi",
	}
}

func TestResolver_AlreadyLinked(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi", IsStaff: true})
	store.seedLink("keycloak", "sub-001", acct.ID)
	r := newResolver(store)

	got, isNew, err := r.ResolveOrCreate(context.Background(), testHint(), keycloak.NewRoleSet("ADMIN"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, acct.ID, got.ID)
	assert.True(t, got.IsStaff)
	assert.Equal(t, 0, store.updateCalls, "flags already match, no write")
}

func TestResolver_AlreadyLinkedResyncsRoles(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi", IsStaff: true, IsSuperuser: true})
	store.seedLink("keycloak", "sub-001", acct.ID)
	r := newResolver(store)

	got, isNew, err := r.ResolveOrCreate(context.Background(), testHint(), keycloak.NewRoleSet())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.False(t, got.IsStaff, "revoked role demotes on next login")
	assert.False(t, got.IsSuperuser)
	assert.Equal(t, 1, store.updateCalls)

	stored, err := store.GetByID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsStaff)
	assert.False(t, stored.IsSuperuser)
}

func TestResolver_UsernameMatchLinks(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "mrossi"})
	r := newResolver(store)

	got, isNew, err := r.ResolveOrCreate(context.Background(), testHint(), keycloak.NewRoleSet("ADMIN"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, acct.ID, got.ID)
	assert.True(t, got.IsStaff, "permissions applied on link")

	link, err := store.GetLink(context.Background(), "keycloak", "sub-001")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, link.AccountID)
}

func TestResolver_UsernameBeatsEmail(t *testing.T) {
	store := newFakeStore()
	byUsername := store.seed(Account{Username: "mrossi", Email: "old@example.org"})
	store.seed(Account{Username: "other", Email: "m.rossi@example.org"})
	r := newResolver(store)

	got, isNew, err := r.ResolveOrCreate(context.Background(), testHint(), keycloak.NewRoleSet())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, byUsername.ID, got.ID,
		"exact username match wins even when the email matches another account")
}

func TestResolver_SingleEmailMatchLinks(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "legacy-name", Email: "M.Rossi@Example.ORG"})
	r := newResolver(store)

	hint := testHint()
	hint.Username = "mrossi" // no account has this username

	got, isNew, err := r.ResolveOrCreate(context.Background(), hint, keycloak.NewRoleSet())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, acct.ID, got.ID, "case-insensitive email match")

	link, err := store.GetLink(context.Background(), "keycloak", "sub-001")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, link.AccountID)
}

func TestResolver_AmbiguousEmailCreatesInstead(t *testing.T) {
	store := newFakeStore()
	first := store.seed(Account{Username: "one", Email: "m.rossi@example.org"})
	second := store.seed(Account{Username: "two", Email: "m.rossi@example.org"})
	r := newResolver(store)

	got, isNew, err := r.ResolveOrCreate(context.Background(), testHint(), keycloak.NewRoleSet())
	require.NoError(t, err)
	assert.True(t, isNew, "ambiguous email must never pick an existing account")
	assert.NotEqual(t, first.ID, got.ID)
	assert.NotEqual(t, second.ID, got.ID)
	assert.Equal(t, "mrossi", got.Username)
}

func TestResolver_CreatesWithHint(t *testing.T) {
	store := newFakeStore()
	r := newResolver(store)

	got, isNew, err := r.ResolveOrCreate(context.Background(), testHint(), keycloak.NewRoleSet("SUPERADMIN"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "mrossi", got.Username)
	assert.Equal(t, "m.rossi@example.org", got.Email)
	assert.Equal(t, "Mario", got.FirstName)
	assert.Equal(t, "Rossi", got.LastName)
	assert.True(t, got.IsStaff)
	assert.True(t, got.IsSuperuser)

	link, err := store.GetLink(context.Background(), "keycloak", "sub-001")
	require.NoError(t, err)
	assert.Equal(t, got.ID, link.AccountID)
}

func TestResolver_NoUsernameHintFails(t *testing.T) {
	store := newFakeStore()
	r := newResolver(store)

	hint := testHint()
	hint.Username = ""
	hint.Email = "nobody@example.org"

	_, _, err := r.ResolveOrCreate(context.Background(), hint, keycloak.NewRoleSet())
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeIdentityResolution, tcerr.GetCode(err))
}

func TestResolver_NoUsernameButSingleEmailMatch(t *testing.T) {
	store := newFakeStore()
	acct := store.seed(Account{Username: "legacy", Email: "m.rossi@example.org"})
	r := newResolver(store)

	hint := testHint()
	hint.Username = ""

	got, isNew, err := r.ResolveOrCreate(context.Background(), hint, keycloak.NewRoleSet())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, acct.ID, got.ID)
}

func TestResolver_CreateConflictSurfaces(t *testing.T) {
	store := newFakeStore()
	r := newResolver(store)

	// A concurrent creator won the race after the username lookup missed.
	hint := testHint()
	hint.Email = ""
	_, _, err := r.ResolveOrCreate(context.Background(), hint, keycloak.NewRoleSet())
	require.NoError(t, err)

	// A second resolve for a different subject with the same username
	// hint links instead of creating, so force the conflict directly.
	_, err = store.Create(context.Background(), &Account{Username: "mrossi"})
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeConflictAlreadyExists, tcerr.GetCode(err))
}
