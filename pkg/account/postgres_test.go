package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosca-platform/tosca-core/pkg/clients/postgres"
	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

var accountCols = []string{
	"id", "username", "email", "first_name", "last_name",
	"is_staff", "is_superuser", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(postgres.NewFromPool(mock, &postgres.Config{Database: "testdb"}))
}

func accountRow(id int64, username, email string, staff, super bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(accountCols).
		AddRow(id, username, email, "", "", staff, super, now, now)
}

func TestPostgresStore_GetByUsername(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("mrossi").
		WillReturnRows(accountRow(7, "mrossi", "m.rossi@example.org", true, false))

	acct, err := store.GetByUsername(context.Background(), "mrossi")
	require.NoError(t, err)
	assert.Equal(t, int64(7), acct.ID)
	assert.Equal(t, "mrossi", acct.Username)
	assert.True(t, acct.IsStaff)
}

func TestPostgresStore_GetByUsername_NotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE username").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeNotFoundAccount, tcerr.GetCode(err))
	assert.True(t, tcerr.IsNotFound(err))
}

func TestPostgresStore_FindByEmail(t *testing.T) {
	mock, store := newMockStore(t)

	now := time.Now()
	rows := pgxmock.NewRows(accountCols).
		AddRow(int64(1), "one", "shared@example.org", "", "", false, false, now, now).
		AddRow(int64(2), "two", "Shared@Example.org", "", "", false, false, now, now)
	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("shared@example.org").
		WillReturnRows(rows)

	matches, err := store.FindByEmail(context.Background(), "shared@example.org")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestPostgresStore_FindByEmail_NoMatches(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE LOWER\(email\)`).
		WithArgs("nobody@example.org").
		WillReturnRows(pgxmock.NewRows(accountCols))

	matches, err := store.FindByEmail(context.Background(), "nobody@example.org")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPostgresStore_Create(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("mrossi", "m.rossi@example.org", "Mario", "Rossi", false, false).
		WillReturnRows(accountRow(11, "mrossi", "m.rossi@example.org", false, false))

	created, err := store.Create(context.Background(), &Account{
		Username:  "mrossi",
		Email:     "m.rossi@example.org",
		FirstName: "Mario",
		LastName:  "Rossi",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestPostgresStore_Create_UsernameTaken(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("mrossi", "", "", "", false, false).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"})

	_, err := store.Create(context.Background(), &Account{Username: "mrossi"})
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeConflictAlreadyExists, tcerr.GetCode(err))
	assert.True(t, tcerr.IsConflict(err))
}

func TestPostgresStore_UpdateFlags(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("UPDATE accounts SET is_staff").
		WithArgs(true, false, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.UpdateFlags(context.Background(), 7, true, false)
	assert.NoError(t, err)
}

func TestPostgresStore_UpdateFlags_MissingAccount(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("UPDATE accounts SET is_staff").
		WithArgs(false, false, int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateFlags(context.Background(), 99, false, false)
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeNotFoundAccount, tcerr.GetCode(err))
}

func TestPostgresStore_GetLink(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM identity_links").
		WithArgs("keycloak", "sub-001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider", "subject", "account_id", "created_at"}).
			AddRow(int64(3), "keycloak", "sub-001", int64(7), time.Now()))

	link, err := store.GetLink(context.Background(), "keycloak", "sub-001")
	require.NoError(t, err)
	assert.Equal(t, int64(7), link.AccountID)
}

func TestPostgresStore_GetLink_NotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM identity_links").
		WithArgs("keycloak", "sub-unknown").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetLink(context.Background(), "keycloak", "sub-unknown")
	require.Error(t, err)
	assert.True(t, tcerr.IsNotFound(err))
}

func TestPostgresStore_CreateLink_Conflict(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("INSERT INTO identity_links").
		WithArgs("keycloak", "sub-001", int64(7)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.CreateLink(context.Background(), &IdentityLink{
		Provider: "keycloak", Subject: "sub-001", AccountID: 7,
	})
	require.Error(t, err)
	assert.True(t, tcerr.IsConflict(err))
}

func TestPostgresStore_GetByID_DatabaseError(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err := store.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, tcerr.CodeInternalDatabase, tcerr.GetCode(err))
}
