package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"venomous.dev/internal/obs"
	"venomous.dev/internal/token"
)

// Service orchestrates credential authentication, the lockout state
// machine and token issuance. It is stateless between requests; the
// only shared state is the Store and the token signing secret.
type Service struct {
	store  Store
	tokens *token.Service
	hasher *Hasher
	policy LockoutPolicy
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithHasher overrides the password hasher, typically to lower the
// bcrypt cost in tests.
func WithHasher(h *Hasher) ServiceOption {
	return func(s *Service) error {
		if h == nil {
			return errors.New("auth: hasher is required")
		}
		s.hasher = h
		return nil
	}
}

// WithLockoutPolicy overrides the lockout threshold and window.
func WithLockoutPolicy(p LockoutPolicy) ServiceOption {
	return func(s *Service) error {
		s.policy = p
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service over the given store and token
// service.
func NewService(store Store, tokens *token.Service, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	svc := &Service{
		store:  store,
		tokens: tokens,
		hasher: NewHasher(0),
		policy: DefaultLockoutPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Policy returns the lockout policy in effect.
func (s *Service) Policy() LockoutPolicy { return s.policy }

// Authenticate verifies the email/password pair against the stored
// credential, driving the lockout state machine on the way. A missing
// credential still records a failure for the attempted email so that
// response timing does not reveal whether the account exists, and the
// caller always sees ErrInvalidCredentials rather than ErrNotFound.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Identity, Role, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	cred, err := s.store.FindCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = s.recordFailure(ctx, email)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	now := s.now()
	if s.policy.Locked(cred, now) {
		return nil, "", &AccountLockedError{Remaining: s.policy.Remaining(cred, now)}
	}
	if s.policy.LockExpired(cred, now) {
		// Auto-unlock: the window has elapsed, reset counters and let
		// this same attempt authenticate fresh.
		if err := s.store.ResetFailures(ctx, email); err != nil {
			return nil, "", err
		}
		s.policy.Unlock(cred, now)
	}

	match, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil {
		return nil, "", err
	}
	if !match {
		if err := s.recordFailure(ctx, email); err != nil {
			return nil, "", err
		}
		if cred.FailureCount+1 >= s.policy.threshold() {
			obs.LockoutTriggered()
			s.appendEvent(ctx, &SecurityEvent{
				Email:  email,
				Action: "account.locked",
				Metadata: map[string]string{
					"failure_count": strconv.Itoa(cred.FailureCount + 1),
				},
			})
			// The attempt that crosses the threshold is answered with
			// the lock, not with another invalid-credentials response.
			return nil, "", &AccountLockedError{Remaining: s.policy.window()}
		}
		return nil, "", ErrInvalidCredentials
	}

	if cred.FailureCount > 0 || cred.LockedUntil != nil {
		if err := s.store.ResetFailures(ctx, email); err != nil {
			return nil, "", err
		}
	}
	// Best effort; a failed stamp must not reject the sign-in.
	_ = s.store.UpdateLastLogin(ctx, cred.IdentityID, now)

	identity, err := s.store.FindIdentityByID(ctx, cred.IdentityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if identity.Status != StatusActive {
		return nil, "", ErrAccountDisabled
	}
	return identity, s.resolveRole(ctx, identity.ID), nil
}

// Register validates password strength and email uniqueness, then
// creates the identity and its credential record as a pair, identity
// first. A credential-creation failure is surfaced as-is; no partial
// rollback is attempted.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Identity, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := ValidateStrength(password); err != nil {
		return nil, err
	}

	if _, err := s.store.FindIdentityByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	identity, err := s.store.CreateIdentity(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.CreateCredential(ctx, identity.ID, email, hash); err != nil {
		return nil, err
	}
	return identity, nil
}

// SignUp registers the account and mints its first token.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (string, *Identity, Role, error) {
	identity, err := s.Register(ctx, email, password, name)
	if err != nil {
		return "", nil, "", err
	}
	role := s.resolveRole(ctx, identity.ID)
	signed, _, err := s.tokens.Issue(identity.ID, identity.Email, role.String())
	if err != nil {
		return "", nil, "", err
	}
	return signed, identity, role, nil
}

// SignIn authenticates and mints a token for the identity.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *Identity, Role, error) {
	identity, role, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, "", err
	}
	signed, _, err := s.tokens.Issue(identity.ID, identity.Email, role.String())
	if err != nil {
		return "", nil, "", err
	}
	return signed, identity, role, nil
}

// TokenInfo is the verified view of a presented token, with identity
// and role re-fetched from storage rather than trusted from claims.
type TokenInfo struct {
	Identity  *Identity
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifyToken checks the token signature and timestamps, then confirms
// the subject still exists. A token whose subject has been deleted is
// invalid even though its signature verifies.
func (s *Service) VerifyToken(ctx context.Context, signed string) (*TokenInfo, error) {
	claims, err := s.tokens.Verify(signed)
	if err != nil {
		return nil, err
	}
	identity, err := s.store.FindIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, err
	}
	return &TokenInfo{
		Identity:  identity,
		Role:      s.resolveRole(ctx, identity.ID),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RefreshToken verifies the presented token and issues a replacement
// with a fresh validity window. The role is re-resolved from storage,
// never copied from the old claims, so a role change between issuance
// and refresh takes effect immediately.
func (s *Service) RefreshToken(ctx context.Context, signed string) (string, time.Time, error) {
	claims, err := s.tokens.Verify(signed)
	if err != nil {
		return "", time.Time{}, err
	}
	identity, err := s.store.FindIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, token.ErrInvalidToken
		}
		return "", time.Time{}, err
	}
	return s.tokens.Issue(identity.ID, identity.Email, s.resolveRole(ctx, identity.ID).String())
}

// Profile returns the identity's self-service view, joining the
// business record with its credential state.
func (s *Service) Profile(ctx context.Context, identityID string) (*Profile, error) {
	identity, err := s.store.FindIdentityByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	cred, err := s.store.FindCredentialByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:          identity,
		Role:          s.resolveRole(ctx, identity.ID),
		EmailVerified: cred.EmailVerified,
		LastLogin:     cred.LastLogin,
		FailureCount:  cred.FailureCount,
		Locked:        s.policy.Locked(cred, s.now()),
	}, nil
}

// UpdateProfile renames the identity. Email changes are not supported;
// the email is the credential key.
func (s *Service) UpdateProfile(ctx context.Context, identityID, name string) (*Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.store.UpdateIdentityName(ctx, identityID, name)
}

// AdminResetPassword replaces the identity's password with a generated
// temporary one and returns it in plain text for out-of-band delivery.
func (s *Service) AdminResetPassword(ctx context.Context, identityID string) (string, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return "", fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	identity, err := s.store.FindIdentityByID(ctx, identityID)
	if err != nil {
		return "", err
	}
	temp, err := GenerateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(temp)
	if err != nil {
		return "", err
	}
	if err := s.store.UpdatePasswordHash(ctx, identityID, hash); err != nil {
		return "", err
	}
	s.appendEvent(ctx, &SecurityEvent{
		ActorID: actorID(ctx),
		Email:   identity.Email,
		Action:  "account.password_reset",
		Metadata: map[string]string{
			"identity_id": identityID,
		},
	})
	return temp, nil
}

// AdminSetStatus changes the account status. An administrator cannot
// move their own account out of the active state.
func (s *Service) AdminSetStatus(ctx context.Context, identityID string, status Status, reason string) error {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if actorID(ctx) == identityID && status != StatusActive {
		return fmt.Errorf("%w: cannot disable own account", ErrInvalidInput)
	}
	identity, err := s.store.FindIdentityByID(ctx, identityID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateIdentityStatus(ctx, identityID, status); err != nil {
		return err
	}
	meta := map[string]string{
		"identity_id": identityID,
		"status":      status.String(),
	}
	if reason != "" {
		meta["reason"] = reason
	}
	s.appendEvent(ctx, &SecurityEvent{
		ActorID:  actorID(ctx),
		Email:    identity.Email,
		Action:   "account.status_changed",
		Metadata: meta,
	})
	return nil
}

// AdminUnlock unconditionally clears the lockout state for the
// identity, bypassing time checks. Idempotent on unlocked records.
func (s *Service) AdminUnlock(ctx context.Context, identityID string) error {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	if err := s.store.ClearLockByIdentity(ctx, identityID); err != nil {
		return err
	}
	s.appendEvent(ctx, &SecurityEvent{
		ActorID: actorID(ctx),
		Action:  "account.unlocked",
		Metadata: map[string]string{
			"identity_id": identityID,
		},
	})
	return nil
}

// AdminUnlockByEmail clears the lockout state for the credential
// stored under the email.
func (s *Service) AdminUnlockByEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := s.store.ResetFailures(ctx, email); err != nil {
		return err
	}
	s.appendEvent(ctx, &SecurityEvent{
		ActorID: actorID(ctx),
		Email:   email,
		Action:  "account.unlocked",
	})
	return nil
}

// ListUsers pages over identities for the admin surface.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*Identity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListIdentities(ctx, limit, offset)
}

// SecurityEvents pages over the security event log, newest first.
func (s *Service) SecurityEvents(ctx context.Context, limit, offset int) ([]*SecurityEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListSecurityEvents(ctx, limit, offset)
}

// LockStatus reports the lockout state of the identity's credential.
func (s *Service) LockStatus(ctx context.Context, identityID string) (LockState, error) {
	identity, err := s.store.FindIdentityByID(ctx, identityID)
	if err != nil {
		return LockState{}, err
	}
	cred, err := s.store.FindCredentialByEmail(ctx, identity.Email)
	if err != nil {
		return LockState{}, err
	}
	state := LockState{
		Locked:       s.policy.Locked(cred, s.now()),
		FailureCount: cred.FailureCount,
	}
	if state.Locked {
		state.LockedUntil = cred.LockedUntil
	}
	return state, nil
}

// appendEvent records a security event, best effort. Event loss never
// fails the operation that produced it.
func (s *Service) appendEvent(ctx context.Context, event *SecurityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	_ = s.store.AppendSecurityEvent(ctx, event)
}

func actorID(ctx context.Context) string {
	id, _ := IdentityIDFromContext(ctx)
	return id
}

func (s *Service) recordFailure(ctx context.Context, email string) error {
	deadline := s.now().Add(s.policy.window())
	return s.store.RecordFailure(ctx, email, s.policy.threshold(), deadline)
}

// resolveRole maps the identity to its role claim, defaulting to
// RoleUser when resolution fails for any reason.
func (s *Service) resolveRole(ctx context.Context, identityID string) Role {
	role, err := s.store.ResolveRole(ctx, identityID)
	if err != nil || !role.Valid() {
		return RoleUser
	}
	return role
}
