package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tosca-platform/tosca-core/pkg/clients/postgres"
	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// Schema is the DDL for the account tables. Applied by deployment
// migrations; integration tests use it to prepare a fresh database.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL DEFAULT '',
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
	is_superuser  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS accounts_email_lower_idx ON accounts (LOWER(email));

CREATE TABLE IF NOT EXISTS identity_links (
	id          BIGSERIAL PRIMARY KEY,
	provider    TEXT NOT NULL,
	subject     TEXT NOT NULL,
	account_id  BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (provider, subject)
);
`

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation.
const uniqueViolation = "23505"

const accountColumns = `id, username, email, first_name, last_name, is_staff, is_superuser, created_at, updated_at`

// PostgresStore implements [Store] on the platform PostgreSQL database.
type PostgresStore struct {
	db *postgres.Client
}

// NewPostgresStore creates a store over an established database client.
func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// GetByID returns the account with the given ID.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByUsername returns the account with the given exact username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// FindByEmail returns all accounts whose email matches case-insensitively.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) ([]*Account, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER($1) ORDER BY id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		acct := &Account{}
		if err := rows.Scan(&acct.ID, &acct.Username, &acct.Email,
			&acct.FirstName, &acct.LastName,
			&acct.IsStaff, &acct.IsSuperuser,
			&acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, tcerr.Wrap(err, tcerr.CodeInternalDatabase,
				"account: failed to scan account row")
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, tcerr.Wrap(err, tcerr.CodeInternalDatabase,
			"account: failed to read account rows")
	}
	return accounts, nil
}

// Create inserts a new account. Returns
// [tcerr.CodeConflictAlreadyExists] when the username is already taken,
// which is how the loser of a concurrent duplicate-create race learns
// it lost.
func (s *PostgresStore) Create(ctx context.Context, acct *Account) (*Account, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO accounts (username, email, first_name, last_name, is_staff, is_superuser)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+accountColumns,
		acct.Username, acct.Email, acct.FirstName, acct.LastName,
		acct.IsStaff, acct.IsSuperuser)

	created := &Account{}
	err := row.Scan(&created.ID, &created.Username, &created.Email,
		&created.FirstName, &created.LastName,
		&created.IsStaff, &created.IsSuperuser,
		&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, tcerr.Wrapf(err, tcerr.CodeConflictAlreadyExists,
				"account: username %q already exists", acct.Username)
		}
		return nil, tcerr.Wrap(err, tcerr.CodeInternalDatabase,
			"account: failed to create account")
	}
	return created, nil
}

// UpdateFlags persists the staff and superuser flags for an account.
func (s *PostgresStore) UpdateFlags(ctx context.Context, id int64, staff, superuser bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET is_staff = $1, is_superuser = $2, updated_at = now() WHERE id = $3`,
		staff, superuser, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tcerr.Newf(tcerr.CodeNotFoundAccount,
			"account: no account with id %d", id)
	}
	return nil
}

// GetLink returns the identity link for a (provider, subject) pair.
func (s *PostgresStore) GetLink(ctx context.Context, provider, subject string) (*IdentityLink, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, provider, subject, account_id, created_at
		 FROM identity_links WHERE provider = $1 AND subject = $2`,
		provider, subject)

	link := &IdentityLink{}
	err := row.Scan(&link.ID, &link.Provider, &link.Subject, &link.AccountID, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tcerr.Newf(tcerr.CodeNotFound,
				"account: no identity link for %s subject %q", provider, subject)
		}
		return nil, tcerr.Wrap(err, tcerr.CodeInternalDatabase,
			"account: failed to load identity link")
	}
	return link, nil
}

// CreateLink associates a (provider, subject) pair with an account.
func (s *PostgresStore) CreateLink(ctx context.Context, link *IdentityLink) (*IdentityLink, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO identity_links (provider, subject, account_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, provider, subject, account_id, created_at`,
		link.Provider, link.Subject, link.AccountID)

	created := &IdentityLink{}
	err := row.Scan(&created.ID, &created.Provider, &created.Subject,
		&created.AccountID, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, tcerr.Wrapf(err, tcerr.CodeConflictAlreadyExists,
				"account: identity %s/%s is already linked", link.Provider, link.Subject)
		}
		return nil, tcerr.Wrap(err, tcerr.CodeInternalDatabase,
			"account: failed to create identity link")
	}
	return created, nil
}

// scanAccount scans a single-account row, mapping pgx.ErrNoRows to the
// account not-found code.
func scanAccount(row pgx.Row) (*Account, error) {
	acct := &Account{}
	err := row.Scan(&acct.ID, &acct.Username, &acct.Email,
		&acct.FirstName, &acct.LastName,
		&acct.IsStaff, &acct.IsSuperuser,
		&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tcerr.New(tcerr.CodeNotFoundAccount, "account: account not found")
		}
		return nil, tcerr.Wrap(err, tcerr.CodeInternalDatabase,
			"account: failed to load account")
	}
	return acct, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
