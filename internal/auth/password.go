package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength  = 8
	tempPasswordLength = 12
)

// Hasher wraps bcrypt with a configurable work factor.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher. A cost outside bcrypt's supported
// range falls back to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash derives a salted one-way hash of the password. Two calls with
// the same input produce different hashes.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash. Comparison
// timing is governed by bcrypt itself.
func (h *Hasher) Verify(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, fmt.Errorf("%w: password and hash are required", ErrInvalidInput)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("verify password: %w", err)
	}
	return true, nil
}

const tempPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateTempPassword produces a random alphanumeric password that
// satisfies ValidateStrength. The last two positions are forced to a
// letter and a digit so a purely alphabetic or numeric draw is
// impossible.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, tempPasswordLength)
	pick := func(charset string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return 0, fmt.Errorf("generate password: %w", err)
		}
		return charset[n.Int64()], nil
	}
	for i := range buf {
		c, err := pick(tempPasswordCharset)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	letter, err := pick(tempPasswordCharset[:52])
	if err != nil {
		return "", err
	}
	digit, err := pick(tempPasswordCharset[52:])
	if err != nil {
		return "", err
	}
	buf[len(buf)-2] = letter
	buf[len(buf)-1] = digit
	return string(buf), nil
}

// ValidateStrength enforces the minimum password policy: at least
// eight characters with one letter and one digit.
func ValidateStrength(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}
