// Package account manages local platform accounts and their links to
// identity provider subjects. It contains the role-to-permission
// synchronizer and the resolver that finds or creates an account for an
// external login.
package account

import (
	"context"
	"time"
)

// Account is a locally persisted platform account. Username is the
// durable identity anchor, set once from the provider's
// preferred_username and unique across accounts. Email is a secondary
// matching signal only: zero, one, or many accounts may share an email.
type Account struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdentityLink associates a (provider, subject) pair from the identity
// provider with exactly one local account.
type IdentityLink struct {
	ID        int64     `json:"id"`
	Provider  string    `json:"provider"`
	Subject   string    `json:"subject"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract for accounts and identity links.
//
// Lookup methods return [tcerr.CodeNotFoundAccount] (or
// [tcerr.CodeNotFound] for links) when no row matches. Create and
// CreateLink return [tcerr.CodeConflictAlreadyExists] on a uniqueness
// violation, which is how a concurrent duplicate-create race surfaces
// to exactly one of the two creators.
type Store interface {
	// GetByID returns the account with the given ID.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByUsername returns the account with the given exact username.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// FindByEmail returns all accounts whose email matches
	// case-insensitively. The result may hold zero, one, or many
	// accounts; callers decide what ambiguity means.
	FindByEmail(ctx context.Context, email string) ([]*Account, error)

	// Create inserts a new account and returns it with ID and
	// timestamps populated.
	Create(ctx context.Context, acct *Account) (*Account, error)

	// UpdateFlags persists the staff and superuser flags for an account.
	UpdateFlags(ctx context.Context, id int64, staff, superuser bool) error

	// GetLink returns the identity link for a (provider, subject) pair.
	GetLink(ctx context.Context, provider, subject string) (*IdentityLink, error)

	// CreateLink associates a (provider, subject) pair with an account.
	CreateLink(ctx context.Context, link *IdentityLink) (*IdentityLink, error)
}
