package account

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
	"github.com/tosca-platform/tosca-core/pkg/keycloak"
)

// tracerName is the OpenTelemetry instrumentation scope name for this
// package.
const tracerName = "github.com/tosca-platform/tosca-core/pkg/account"

// IdentityHint carries the identity attributes an external login
// supplies for account resolution. Username comes from the provider's
// preferred_username claim and is the primary matching key; email is a
// secondary, best-effort signal.
type IdentityHint struct {
	// Provider identifies the identity provider (e.g., "keycloak").
	Provider string

	// Subject is the provider's stable user identifier (the sub claim).
	Subject string

	Username   string
	Email      string
	GivenName  string
	FamilyName string
}

// Resolver finds or creates the local account for an external identity.
//
// Matching precedence: an existing link wins outright; then exact
// username; then case-insensitive email when exactly one account
// matches. Multiple accounts sharing the hinted email are never
// auto-linked — the conflict is logged and resolution falls through to
// account creation.
type Resolver struct {
	store  Store
	sync   *Synchronizer
	logger *slog.Logger
	tracer trace.Tracer
}

// NewResolver creates an account resolver.
func NewResolver(store Store, sync *Synchronizer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		sync:   sync,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// ResolveOrCreate returns the local account for the hinted identity,
// creating one when nothing matches. The returned bool reports whether
// a new account was created.
//
// Error codes:
//   - [tcerr.CodeIdentityResolution] when nothing matches and the hint
//     has no username to create with
//   - storage errors pass through unchanged
func (r *Resolver) ResolveOrCreate(ctx context.Context, hint IdentityHint, roles keycloak.RoleSet) (*Account, bool, error) {
	ctx, span := r.tracer.Start(ctx, "account.ResolveOrCreate")
	defer span.End()
	span.SetAttributes(
		attribute.String("identity.provider", hint.Provider),
		attribute.String("identity.subject", hint.Subject),
	)

	// An existing link is authoritative; reload the account fresh.
	// Roles are re-asserted on every login, so a revoked realm role
	// demotes the account here too.
	link, err := r.store.GetLink(ctx, hint.Provider, hint.Subject)
	if err == nil {
		acct, err := r.store.GetByID(ctx, link.AccountID)
		if err != nil {
			return nil, false, err
		}
		if _, err := r.sync.Apply(ctx, acct, roles); err != nil {
			return nil, false, err
		}
		return acct, false, nil
	}
	if !tcerr.IsNotFound(err) {
		return nil, false, err
	}

	if hint.Username != "" {
		acct, err := r.store.GetByUsername(ctx, hint.Username)
		if err == nil {
			return r.adopt(ctx, acct, hint, roles)
		}
		if !tcerr.IsNotFound(err) {
			return nil, false, err
		}
	}

	if hint.Email != "" {
		matches, err := r.store.FindByEmail(ctx, hint.Email)
		if err != nil {
			return nil, false, err
		}
		switch len(matches) {
		case 0:
			// Fall through to creation.
		case 1:
			return r.adopt(ctx, matches[0], hint, roles)
		default:
			// Ambiguous email must never silently pick an account.
			r.logger.Warn("multiple accounts share the login email, not auto-linking",
				slog.String("code", string(tcerr.CodeConflictAmbiguousEmail)),
				slog.String("provider", hint.Provider),
				slog.String("subject", hint.Subject),
				slog.Int("matches", len(matches)))
		}
	}

	if hint.Username == "" {
		return nil, false, tcerr.New(tcerr.CodeIdentityResolution,
			"account: external identity has no username hint and matches no account")
	}

	acct, err := r.store.Create(ctx, &Account{
		Username:  hint.Username,
		Email:     hint.Email,
		FirstName: hint.GivenName,
		LastName:  hint.FamilyName,
	})
	if err != nil {
		return nil, false, err
	}

	r.logger.Info("created account for external identity",
		slog.String("username", acct.Username),
		slog.String("provider", hint.Provider))

	if _, err := r.link(ctx, acct, hint); err != nil {
		return nil, false, err
	}
	if _, err := r.sync.Apply(ctx, acct, roles); err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

// adopt links an existing account to the external identity and applies
// the asserted permissions.
func (r *Resolver) adopt(ctx context.Context, acct *Account, hint IdentityHint, roles keycloak.RoleSet) (*Account, bool, error) {
	if _, err := r.link(ctx, acct, hint); err != nil {
		return nil, false, err
	}
	if _, err := r.sync.Apply(ctx, acct, roles); err != nil {
		return nil, false, err
	}

	r.logger.Info("linked external identity to existing account",
		slog.String("username", acct.Username),
		slog.String("provider", hint.Provider))
	return acct, false, nil
}

func (r *Resolver) link(ctx context.Context, acct *Account, hint IdentityHint) (*IdentityLink, error) {
	return r.store.CreateLink(ctx, &IdentityLink{
		Provider:  hint.Provider,
		Subject:   hint.Subject,
		AccountID: acct.ID,
	})
}
