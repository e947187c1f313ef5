package auth

import "time"

// Role is the coarse access level carried in token claims.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role grants access to the admin surface.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) String() string { return string(r) }

// Status is the administrative account state. Only active accounts can
// sign in.
type Status string

const (
	StatusActive    Status = "active"
	StatusDisabled  Status = "disabled"
	StatusSuspended Status = "suspended"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDisabled, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Identity is the business-facing user record. Authentication material
// lives on the companion Credential record.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleID    string    `json:"role_id,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential holds persisted authentication state for an identity: the
// password hash plus the lockout counters mutated on every sign-in
// attempt. Invariant: FailureCount is zero after any reset, and a
// populated LockedUntil implies FailureCount reached the lockout
// threshold.
type Credential struct {
	ID            string
	IdentityID    string
	Email         string
	PasswordHash  string
	EmailVerified bool
	FailureCount  int
	LockedUntil   *time.Time
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SecurityEvent is an append-only record of a security-relevant action
// (lockouts, admin unlocks, credential changes).
type SecurityEvent struct {
	ID         string            `json:"id"`
	OccurredAt time.Time         `json:"occurred_at"`
	ActorID    string            `json:"actor_id,omitempty"`
	Email      string            `json:"email,omitempty"`
	Action     string            `json:"action"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Profile is the identity's self-service view, joining the business
// record with the authentication state of its credential.
type Profile struct {
	User          *Identity  `json:"user"`
	Role          Role       `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	FailureCount  int        `json:"failure_count"`
	Locked        bool       `json:"locked"`
}

// LockState is the lockout status reported on the admin surface.
type LockState struct {
	Locked       bool       `json:"locked"`
	FailureCount int        `json:"failure_count"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
}
