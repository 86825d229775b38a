package auth

import (
	"context"
	"log/slog"

	"github.com/tosca-platform/tosca-core/pkg/account"
	"github.com/tosca-platform/tosca-core/pkg/keycloak"
	"github.com/tosca-platform/tosca-core/pkg/session"
)

// Post-login redirect targets for the browser flow.
const (
	// StaffRedirectPath is where staff accounts land after login.
	StaffRedirectPath = "/admin/"

	// DefaultRedirectPath is where everyone else lands.
	DefaultRedirectPath = "/welcome/"

	// FailureRedirectPath is where a failed login is sent, back to the
	// login entry point.
	FailureRedirectPath = "/accounts/login/"
)

// Provider is the identity-link provider name recorded for accounts
// resolved through this package.
const Provider = "keycloak"

// LoginFlow finalizes a browser login: it takes the external-account
// payload produced by the identity-provider handshake, resolves it to a
// local account, synchronizes permissions, and opens a session.
type LoginFlow struct {
	resolver  *account.Resolver
	extractor *keycloak.RoleExtractor
	sessions  *session.Store
	cfg       keycloak.Config
	logger    *slog.Logger
}

// NewLoginFlow assembles the browser login flow. The verifier is used
// to check encoded ID tokens inside the external payload; pass the same
// instance the API path uses so both share one key set cache.
func NewLoginFlow(cfg keycloak.Config, verifier *keycloak.Verifier, store account.Store, sessions *session.Store, logger *slog.Logger) *LoginFlow {
	if logger == nil {
		logger = slog.Default()
	}
	sync := account.NewSynchronizer(store, logger)
	return &LoginFlow{
		resolver:  account.NewResolver(store, sync, logger),
		extractor: keycloak.NewRoleExtractor(verifier, logger),
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
	}
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Account      *account.Account
	Session      *session.Session
	RedirectPath string
	IsNew        bool
}

// Finalize resolves the external account to a local one, opens a
// session, and computes the post-login redirect. On error the caller
// should redirect to [FailureRedirectPath].
//
// Profile attributes are taken from the userinfo block when present and
// fall back to the ID token claims, since userinfo reflects profile
// edits made after the token was minted.
func (f *LoginFlow) Finalize(ctx context.Context, ext keycloak.ExternalAccount) (*LoginResult, error) {
	idClaims, _ := ext.IDToken.Claims()

	hint := account.IdentityHint{
		Provider:   Provider,
		Subject:    ext.Subject,
		Username:   pickClaim(ext.Userinfo, idClaims, "preferred_username"),
		Email:      pickClaim(ext.Userinfo, idClaims, "email"),
		GivenName:  pickClaim(ext.Userinfo, idClaims, "given_name"),
		FamilyName: pickClaim(ext.Userinfo, idClaims, "family_name"),
	}

	roles := f.extractor.FromExternalAccount(ctx, ext)

	acct, isNew, err := f.resolver.ResolveOrCreate(ctx, hint, roles)
	if err != nil {
		f.logger.Warn("login finalization failed",
			slog.String("subject", ext.Subject),
			slog.String("error", err.Error()))
		return nil, err
	}

	sess, err := f.sessions.Create(ctx, acct.ID, acct.Username, acct.IsStaff)
	if err != nil {
		return nil, err
	}

	redirect := DefaultRedirectPath
	if acct.IsStaff {
		redirect = StaffRedirectPath
	}

	f.logger.Info("login finalized",
		slog.String("username", acct.Username),
		slog.Bool("is_new", isNew),
		slog.String("redirect", redirect))

	return &LoginResult{
		Account:      acct,
		Session:      sess,
		RedirectPath: redirect,
		IsNew:        isNew,
	}, nil
}

// LogoutURL returns the Keycloak end-session URL for this realm and
// client. Browsers are sent here to terminate the provider-side session
// alongside the local one.
func (f *LoginFlow) LogoutURL(postLogoutRedirectURI string) string {
	return f.cfg.LogoutURL(postLogoutRedirectURI)
}

// pickClaim returns the named string claim from the preferred map,
// falling back to the secondary one.
func pickClaim(preferred, fallback map[string]any, name string) string {
	if s, ok := preferred[name].(string); ok && s != "" {
		return s
	}
	if s, ok := fallback[name].(string); ok && s != "" {
		return s
	}
	return ""
}
