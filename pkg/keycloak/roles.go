package keycloak

import (
	"context"
	"log/slog"
	"sort"
)

// RoleSet is an order-insensitive, duplicate-free collection of realm
// role names.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from role names.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the given role.
func (s RoleSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts the given role names into the set.
func (s RoleSet) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
}

// Names returns the role names in sorted order.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// roleSourceKind discriminates the forms a nested ID token can take in
// an identity provider payload.
type roleSourceKind int

const (
	roleSourceAbsent roleSourceKind = iota
	roleSourceEncoded
	roleSourceDecoded
)

// RoleSource is one place realm roles may live in an external identity
// payload. It takes exactly one of three forms: absent, a compact
// string-encoded token that must be verified before its claims can be
// read, or an already-decoded claim map.
//
// Use [EncodedToken], [DecodedClaims], or the zero value (absent) to
// construct one; [ParseRoleSource] builds one from a raw payload value.
type RoleSource struct {
	kind    roleSourceKind
	encoded string
	decoded map[string]any
}

// EncodedToken returns a RoleSource wrapping a compact string-encoded
// token. Its roles only become readable after verification.
func EncodedToken(token string) RoleSource {
	return RoleSource{kind: roleSourceEncoded, encoded: token}
}

// DecodedClaims returns a RoleSource wrapping an already-decoded claim
// map.
func DecodedClaims(claims map[string]any) RoleSource {
	return RoleSource{kind: roleSourceDecoded, decoded: claims}
}

// ParseRoleSource builds a RoleSource from a raw payload value: a
// string becomes an encoded token, a map becomes decoded claims, and
// anything else (including nil) is treated as absent.
func ParseRoleSource(v any) RoleSource {
	switch val := v.(type) {
	case string:
		if val == "" {
			return RoleSource{}
		}
		return EncodedToken(val)
	case map[string]any:
		return DecodedClaims(val)
	default:
		return RoleSource{}
	}
}

// IsAbsent reports whether the source carries no token at all.
func (r RoleSource) IsAbsent() bool { return r.kind == roleSourceAbsent }

// Claims returns the decoded claim map and true when the source is
// already decoded.
func (r RoleSource) Claims() (map[string]any, bool) {
	return r.decoded, r.kind == roleSourceDecoded
}

// Token returns the encoded token string and true when the source
// holds one.
func (r RoleSource) Token() (string, bool) {
	return r.encoded, r.kind == roleSourceEncoded
}

// ExternalAccount is the attribute payload delivered by the identity
// provider handshake for a browser login. RealmAccess is the top-level
// realm_access block of the access token; IDToken is the nested ID
// token, which providers deliver either string-encoded or as a decoded
// map; Userinfo is the separate userinfo block.
type ExternalAccount struct {
	Subject     string
	RealmAccess map[string]any
	IDToken     RoleSource
	Userinfo    map[string]any
}

// RoleExtractor collects realm roles from every location an identity
// payload can carry them. Sources that cannot be read (an encoded ID
// token that fails verification, a malformed block) are logged and
// skipped; extraction itself never fails.
type RoleExtractor struct {
	verifier *Verifier
	logger   *slog.Logger
}

// NewRoleExtractor creates a role extractor. The verifier is used to
// decode string-encoded nested ID tokens; it must not be nil.
func NewRoleExtractor(verifier *Verifier, logger *slog.Logger) *RoleExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleExtractor{verifier: verifier, logger: logger}
}

// FromClaims returns the realm roles of a single verified claim set.
// This is the bearer-token path, where the access token is the only
// role source.
func (e *RoleExtractor) FromClaims(claims ClaimSet) RoleSet {
	return NewRoleSet(claims.RealmRoles()...)
}

// FromExternalAccount returns the union of realm roles found in all
// three locations of an identity payload: the top-level realm_access
// block, the nested ID token, and the userinfo block. A role granted
// in any one location is effective.
func (e *RoleExtractor) FromExternalAccount(ctx context.Context, acct ExternalAccount) RoleSet {
	set := make(RoleSet)

	if acct.RealmAccess != nil {
		set.Add(realmRoles(map[string]any{"realm_access": acct.RealmAccess})...)
	}
	e.addFromSource(ctx, "id_token", acct.IDToken, set)
	if acct.Userinfo != nil {
		set.Add(realmRoles(acct.Userinfo)...)
	}

	return set
}

// addFromSource resolves one RoleSource and merges its roles into the
// set. Encoded tokens go through full verification; failures are
// logged at warn level and the source is skipped.
func (e *RoleExtractor) addFromSource(ctx context.Context, name string, src RoleSource, set RoleSet) {
	switch {
	case src.IsAbsent():
		return
	case src.kind == roleSourceDecoded:
		set.Add(realmRoles(src.decoded)...)
	case src.kind == roleSourceEncoded:
		claims, err := e.verifier.Verify(ctx, src.encoded)
		if err != nil {
			e.logger.Warn("skipping unreadable role source",
				slog.String("source", name),
				slog.String("error", err.Error()))
			return
		}
		set.Add(claims.RealmRoles()...)
	}
}
