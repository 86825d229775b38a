package account

import (
	"context"
	"log/slog"

	"github.com/tosca-platform/tosca-core/pkg/keycloak"
)

// Realm role names that grant local privileges.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperadmin = "SUPERADMIN"
)

// PermissionLevel is the local privilege tier derived from a realm role
// set. Only its two boolean projections (staff, superuser) are
// persisted on the account.
type PermissionLevel int

const (
	// PermissionNone grants no backoffice access.
	PermissionNone PermissionLevel = iota

	// PermissionAdmin grants staff access without superuser rights.
	PermissionAdmin

	// PermissionSuperadmin grants staff and superuser rights.
	PermissionSuperadmin
)

// String returns the level name for logging.
func (l PermissionLevel) String() string {
	switch l {
	case PermissionSuperadmin:
		return "superadmin"
	case PermissionAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Flags returns the (staff, superuser) projection of the level.
func (l PermissionLevel) Flags() (staff, superuser bool) {
	switch l {
	case PermissionSuperadmin:
		return true, true
	case PermissionAdmin:
		return true, false
	default:
		return false, false
	}
}

// LevelFromRoles maps a role set to a permission level. SUPERADMIN wins
// over ADMIN; any other roles grant nothing.
func LevelFromRoles(roles keycloak.RoleSet) PermissionLevel {
	switch {
	case roles.Has(RoleSuperadmin):
		return PermissionSuperadmin
	case roles.Has(RoleAdmin):
		return PermissionAdmin
	default:
		return PermissionNone
	}
}

// Synchronizer reconciles an account's persisted privilege flags with
// the roles asserted by the identity provider.
type Synchronizer struct {
	store  Store
	logger *slog.Logger
}

// NewSynchronizer creates a permission synchronizer.
func NewSynchronizer(store Store, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, logger: logger}
}

// Apply computes the privilege flags for the role set and persists them
// on the account only when they differ from the stored values. The
// account is updated in place on success. Returns whether a write
// occurred; applying the same role set twice writes at most once.
//
// Apply runs on every bearer-authenticated request, so the no-change
// path must not touch storage.
func (s *Synchronizer) Apply(ctx context.Context, acct *Account, roles keycloak.RoleSet) (bool, error) {
	level := LevelFromRoles(roles)
	staff, superuser := level.Flags()

	if acct.IsStaff == staff && acct.IsSuperuser == superuser {
		return false, nil
	}

	if err := s.store.UpdateFlags(ctx, acct.ID, staff, superuser); err != nil {
		return false, err
	}

	s.logger.Info("synchronized account permissions",
		slog.String("username", acct.Username),
		slog.String("level", level.String()),
		slog.Bool("staff", staff),
		slog.Bool("superuser", superuser))

	acct.IsStaff = staff
	acct.IsSuperuser = superuser
	return true, nil
}
