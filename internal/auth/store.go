package auth

import (
	"context"
	"time"
)

// Store describes the persistence operations required by the auth
// core. Implementations map ErrNotFound for missing rows and wrap any
// other storage failure so callers never see driver detail.
type Store interface {
	// FindCredentialByEmail returns the credential record stored for
	// the email, exact match against the stored value.
	FindCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	FindIdentityByID(ctx context.Context, id string) (*Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (*Identity, error)

	CreateIdentity(ctx context.Context, email, name string) (*Identity, error)
	CreateCredential(ctx context.Context, identityID, email, passwordHash string) (*Credential, error)

	// UpdateIdentityName renames the identity and returns the updated
	// record.
	UpdateIdentityName(ctx context.Context, id, name string) (*Identity, error)
	// UpdateIdentityStatus sets the account status. ErrNotFound when
	// the identity does not exist.
	UpdateIdentityStatus(ctx context.Context, id string, status Status) error
	// UpdatePasswordHash replaces the stored password hash for the
	// identity's credential. ErrNotFound when none exists.
	UpdatePasswordHash(ctx context.Context, identityID, passwordHash string) error

	// RecordFailure increments the failure counter for the attempted
	// email and stamps the unlock deadline once the threshold is
	// reached, in a single conditional update. It succeeds (as a
	// no-op) when no credential exists for the email.
	RecordFailure(ctx context.Context, email string, threshold int, lockedUntil time.Time) error
	// ResetFailures clears the counters and the lock for the email.
	// ErrNotFound when no credential exists for the email.
	ResetFailures(ctx context.Context, email string) error
	// ClearLockByIdentity clears the counters and the lock for the
	// identity, the admin unlock path.
	ClearLockByIdentity(ctx context.Context, identityID string) error
	UpdateLastLogin(ctx context.Context, identityID string, at time.Time) error

	// ResolveRole returns the role name assigned to the identity.
	// ErrNotFound when the identity has no resolvable role.
	ResolveRole(ctx context.Context, identityID string) (Role, error)

	ListIdentities(ctx context.Context, limit, offset int) ([]*Identity, error)
	AppendSecurityEvent(ctx context.Context, event *SecurityEvent) error
	ListSecurityEvents(ctx context.Context, limit, offset int) ([]*SecurityEvent, error)
}
