package auth

import (
	"testing"
	"time"
)

var lockoutBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNextFailureBelowThreshold(t *testing.T) {
	p := DefaultLockoutPolicy()
	for count := 0; count < DefaultLockThreshold-1; count++ {
		next, until := p.NextFailure(count, lockoutBase)
		if next != count+1 {
			t.Fatalf("NextFailure(%d) count = %d, want %d", count, next, count+1)
		}
		if until != nil {
			t.Fatalf("NextFailure(%d) stamped a deadline before the threshold", count)
		}
	}
}

func TestNextFailureReachesThreshold(t *testing.T) {
	p := DefaultLockoutPolicy()
	next, until := p.NextFailure(DefaultLockThreshold-1, lockoutBase)
	if next != DefaultLockThreshold {
		t.Fatalf("count = %d, want %d", next, DefaultLockThreshold)
	}
	if until == nil {
		t.Fatal("no deadline stamped at the threshold")
	}
	if want := lockoutBase.Add(DefaultLockWindow); !until.Equal(want) {
		t.Fatalf("deadline = %v, want %v", until, want)
	}
}

func TestLockedAndRemaining(t *testing.T) {
	p := DefaultLockoutPolicy()
	deadline := lockoutBase.Add(DefaultLockWindow)
	cred := &Credential{FailureCount: DefaultLockThreshold, LockedUntil: &deadline}

	if !p.Locked(cred, lockoutBase) {
		t.Fatal("credential with future deadline is not locked")
	}
	if got := p.Remaining(cred, lockoutBase); got != DefaultLockWindow {
		t.Fatalf("Remaining = %v, want %v", got, DefaultLockWindow)
	}

	// exactly at the deadline the lock has expired
	if p.Locked(cred, deadline) {
		t.Fatal("credential is still locked at its deadline")
	}
	if !p.LockExpired(cred, deadline) {
		t.Fatal("LockExpired false at the deadline")
	}
	if got := p.Remaining(cred, deadline); got != 0 {
		t.Fatalf("Remaining after expiry = %v, want 0", got)
	}
}

func TestLockedWithoutDeadline(t *testing.T) {
	p := DefaultLockoutPolicy()
	cred := &Credential{FailureCount: 3}
	if p.Locked(cred, lockoutBase) {
		t.Fatal("credential without a deadline reported locked")
	}
	if p.LockExpired(cred, lockoutBase) {
		t.Fatal("credential without a deadline reported expired")
	}
	if p.Locked(nil, lockoutBase) {
		t.Fatal("nil credential reported locked")
	}
}

func TestRecordFailureTransitions(t *testing.T) {
	p := LockoutPolicy{Threshold: 3, Window: 10 * time.Minute}
	cred := &Credential{}

	p.RecordFailure(cred, lockoutBase)
	p.RecordFailure(cred, lockoutBase)
	if cred.LockedUntil != nil {
		t.Fatal("locked before threshold")
	}
	p.RecordFailure(cred, lockoutBase)
	if cred.FailureCount != 3 {
		t.Fatalf("FailureCount = %d, want 3", cred.FailureCount)
	}
	if cred.LockedUntil == nil {
		t.Fatal("not locked at threshold")
	}
	if want := lockoutBase.Add(10 * time.Minute); !cred.LockedUntil.Equal(want) {
		t.Fatalf("LockedUntil = %v, want %v", cred.LockedUntil, want)
	}
}

func TestRecordSuccessResets(t *testing.T) {
	p := DefaultLockoutPolicy()
	deadline := lockoutBase.Add(time.Minute)
	cred := &Credential{FailureCount: 5, LockedUntil: &deadline}

	p.RecordSuccess(cred, lockoutBase)
	if cred.FailureCount != 0 || cred.LockedUntil != nil {
		t.Fatalf("RecordSuccess left state %d/%v", cred.FailureCount, cred.LockedUntil)
	}

	// clean record stays untouched
	stamp := cred.UpdatedAt
	p.RecordSuccess(cred, lockoutBase.Add(time.Hour))
	if !cred.UpdatedAt.Equal(stamp) {
		t.Fatal("RecordSuccess touched a clean record")
	}
}

func TestPolicyZeroValuesFallBack(t *testing.T) {
	var p LockoutPolicy
	if p.threshold() != DefaultLockThreshold {
		t.Fatalf("threshold = %d, want %d", p.threshold(), DefaultLockThreshold)
	}
	if p.window() != DefaultLockWindow {
		t.Fatalf("window = %v, want %v", p.window(), DefaultLockWindow)
	}
}
