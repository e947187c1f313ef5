package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrWeakPassword       = errors.New("auth: password too weak")
	ErrAccountLocked      = errors.New("auth: account locked")
	ErrAccountDisabled    = errors.New("auth: account disabled")
	ErrStorage            = errors.New("auth: storage failure")
)

// AccountLockedError reports a rejected attempt against a locked
// credential. Remaining is zero when no unlock deadline is known, in
// which case only an administrator can unlock the account.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	if e.Remaining <= 0 {
		return "auth: account locked, contact an administrator"
	}
	return fmt.Sprintf("auth: account locked, try again in %d minute(s)", e.RemainingMinutes())
}

func (e *AccountLockedError) Is(target error) bool { return target == ErrAccountLocked }

// RemainingMinutes reports the remaining lock time in whole minutes,
// truncated, with a floor of one minute while a deadline exists.
func (e *AccountLockedError) RemainingMinutes() int64 {
	if e.Remaining <= 0 {
		return 0
	}
	minutes := int64(e.Remaining / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// wrapStorage shields callers from driver-level detail while keeping
// the cause available for boundary logging.
func wrapStorage(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
