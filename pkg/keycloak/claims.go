package keycloak

// ClaimSet is the decoded claim map of a verified token. It provides
// typed accessors for the claims the platform consumes; everything
// else remains reachable through plain map indexing.
type ClaimSet map[string]any

// stringClaim returns the named claim if it is a non-empty string.
func (c ClaimSet) stringClaim(name string) string {
	v, _ := c[name].(string)
	return v
}

// Subject returns the "sub" claim, the Keycloak user identifier.
func (c ClaimSet) Subject() string { return c.stringClaim("sub") }

// Issuer returns the "iss" claim.
func (c ClaimSet) Issuer() string { return c.stringClaim("iss") }

// PreferredUsername returns the "preferred_username" claim. Empty when
// the client was not configured to include it.
func (c ClaimSet) PreferredUsername() string { return c.stringClaim("preferred_username") }

// Email returns the "email" claim.
func (c ClaimSet) Email() string { return c.stringClaim("email") }

// GivenName returns the "given_name" claim.
func (c ClaimSet) GivenName() string { return c.stringClaim("given_name") }

// FamilyName returns the "family_name" claim.
func (c ClaimSet) FamilyName() string { return c.stringClaim("family_name") }

// AuthorizedParty returns the "azp" claim, the client the token was
// issued to.
func (c ClaimSet) AuthorizedParty() string { return c.stringClaim("azp") }

// Audiences returns the "aud" claim normalized to a slice. The claim
// may be encoded as a single string or as an array; both forms are
// handled. Returns nil when the claim is absent.
func (c ClaimSet) Audiences() []string {
	return audienceList(c["aud"])
}

// RealmRoles returns the realm role names from the "realm_access"
// block, or nil when the block is absent or malformed.
func (c ClaimSet) RealmRoles() []string {
	return realmRoles(map[string]any(c))
}

// audienceList normalizes a raw "aud" claim value to a string slice.
func audienceList(v any) []string {
	switch aud := v.(type) {
	case string:
		if aud == "" {
			return nil
		}
		return []string{aud}
	case []string:
		return aud
	case []any:
		out := make([]string, 0, len(aud))
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// realmRoles extracts realm role names from a claim map's
// "realm_access" block. Non-string entries are skipped.
func realmRoles(claims map[string]any) []string {
	access, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := access["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok && s != "" {
			roles = append(roles, s)
		}
	}
	return roles
}
