package auth

import "time"

const (
	// DefaultLockThreshold is the number of consecutive failures that
	// locks a credential.
	DefaultLockThreshold = 5
	// DefaultLockWindow is how long a locked credential stays locked
	// before auto-unlock.
	DefaultLockWindow = 30 * time.Minute
)

// LockoutPolicy decides, from stored failure state and the current
// time, whether authentication may proceed. It hides the storage
// representation of the lock behind Locked/Remaining so callers never
// compare timestamps themselves.
type LockoutPolicy struct {
	Threshold int
	Window    time.Duration
}

// DefaultLockoutPolicy returns the policy used in production: five
// failures, thirty-minute auto-unlock.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockThreshold, Window: DefaultLockWindow}
}

func (p LockoutPolicy) threshold() int {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return DefaultLockThreshold
}

func (p LockoutPolicy) window() time.Duration {
	if p.Window > 0 {
		return p.Window
	}
	return DefaultLockWindow
}

// Locked reports whether the credential is locked at the given time.
// A credential whose unlock deadline has passed is no longer locked;
// the caller is expected to reset its counters via Unlock transitions.
func (p LockoutPolicy) Locked(cred *Credential, now time.Time) bool {
	if cred == nil || cred.LockedUntil == nil {
		return false
	}
	return now.Before(*cred.LockedUntil)
}

// LockExpired reports whether a previously locked credential has
// passed its unlock deadline and is eligible for auto-unlock.
func (p LockoutPolicy) LockExpired(cred *Credential, now time.Time) bool {
	if cred == nil || cred.LockedUntil == nil {
		return false
	}
	return !now.Before(*cred.LockedUntil)
}

// Remaining returns the time left until auto-unlock, zero when the
// credential is not locked.
func (p LockoutPolicy) Remaining(cred *Credential, now time.Time) time.Duration {
	if !p.Locked(cred, now) {
		return 0
	}
	return cred.LockedUntil.Sub(now)
}

// NextFailure computes the counter state after one more failed
// attempt: the incremented count and, when the count reaches the
// threshold, the unlock deadline to stamp.
func (p LockoutPolicy) NextFailure(failureCount int, now time.Time) (int, *time.Time) {
	next := failureCount + 1
	if next >= p.threshold() {
		until := now.Add(p.window())
		return next, &until
	}
	return next, nil
}

// RecordFailure applies a failed attempt to the in-memory record.
// Persistence layers apply the equivalent transition server-side in a
// single statement; this form backs the in-memory store and tests.
func (p LockoutPolicy) RecordFailure(cred *Credential, now time.Time) {
	count, until := p.NextFailure(cred.FailureCount, now)
	cred.FailureCount = count
	if until != nil {
		cred.LockedUntil = until
	}
	cred.UpdatedAt = now
}

// RecordSuccess resets the counters after a successful authentication.
// It is a no-op transition for a clean record.
func (p LockoutPolicy) RecordSuccess(cred *Credential, now time.Time) {
	if cred.FailureCount == 0 && cred.LockedUntil == nil {
		return
	}
	cred.FailureCount = 0
	cred.LockedUntil = nil
	cred.UpdatedAt = now
}

// Unlock unconditionally clears the lock, bypassing time checks.
// Safe to call on an unlocked record.
func (p LockoutPolicy) Unlock(cred *Credential, now time.Time) {
	cred.FailureCount = 0
	cred.LockedUntil = nil
	cred.UpdatedAt = now
}
