package auth

import (
	"context"
	"log/slog"

	"github.com/tosca-platform/tosca-core/pkg/account"
	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
	"github.com/tosca-platform/tosca-core/pkg/keycloak"
)

// Authenticator authenticates bearer tokens for the API path. It
// verifies the token, maps it to a local account keyed by the
// preferred_username claim (creating the account on first sight), and
// synchronizes the staff/superuser flags from the realm roles.
type Authenticator struct {
	verifier  *keycloak.Verifier
	store     account.Store
	extractor *keycloak.RoleExtractor
	sync      *account.Synchronizer
	logger    *slog.Logger
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates an Authenticator over the given verifier and
// account store.
func NewAuthenticator(verifier *keycloak.Verifier, store account.Store, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		verifier: verifier,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.extractor = keycloak.NewRoleExtractor(a.verifier, a.logger)
	a.sync = account.NewSynchronizer(store, a.logger)
	return a
}

// Authenticate verifies a raw bearer token and returns the principal it
// represents.
//
// The account is looked up by the token's preferred_username claim; a
// token without that claim cannot be mapped to an account and fails
// with [tcerr.CodeIdentityResolution]. An unknown username creates the
// account, seeded with the email and name claims. The staff and
// superuser flags are re-derived from the realm roles on every call, so
// a role granted or revoked in Keycloak takes effect on the next
// request.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	claims, err := a.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	username := claims.PreferredUsername()
	if username == "" {
		return nil, tcerr.Newf(tcerr.CodeIdentityResolution,
			"auth: token for subject %q has no preferred_username claim", claims.Subject())
	}

	acct, err := a.getOrCreate(ctx, username, claims)
	if err != nil {
		return nil, err
	}

	roles := a.extractor.FromClaims(claims)
	if _, err := a.sync.Apply(ctx, acct, roles); err != nil {
		return nil, err
	}

	return &Principal{Account: acct, Claims: claims, Roles: roles}, nil
}

// getOrCreate loads the account for a username, creating it when
// absent. Losing a concurrent create race falls back to loading the
// winner's row.
func (a *Authenticator) getOrCreate(ctx context.Context, username string, claims keycloak.ClaimSet) (*account.Account, error) {
	acct, err := a.store.GetByUsername(ctx, username)
	if err == nil {
		return acct, nil
	}
	if !tcerr.IsNotFound(err) {
		return nil, err
	}

	created, err := a.store.Create(ctx, &account.Account{
		Username:  username,
		Email:     claims.Email(),
		FirstName: claims.GivenName(),
		LastName:  claims.FamilyName(),
	})
	if err == nil {
		a.logger.Info("created account for first-seen token",
			slog.String("username", username),
			slog.String("subject", claims.Subject()))
		return created, nil
	}
	if tcerr.IsConflict(err) {
		return a.store.GetByUsername(ctx, username)
	}
	return nil, err
}
