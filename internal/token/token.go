// Package token signs, verifies and refreshes the bearer tokens used
// by the dashboard services. Tokens are stateless: validity is purely
// a function of the HMAC signature and the embedded timestamps.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is the fixed identifier stamped into every token.
	Issuer = "venomous-dashboard-auth"
	// DefaultTTL is the token lifetime when none is configured.
	DefaultTTL = 24 * time.Hour
)

var (
	// ErrMissingSecret means no signing secret was configured. This is
	// a startup-time fatal condition, never a per-request error.
	ErrMissingSecret = errors.New("token: signing secret is not configured")
	// ErrInvalidToken covers signature, issuer and format failures.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrTokenExpired means the token verified but its expiry passed.
	ErrTokenExpired = errors.New("token: token expired")
)

// Claims is the signed payload of a bearer token. A new token is
// always a new claim set; claims are never mutated after signing.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Config carries the signing parameters. Secret is required.
type Config struct {
	Secret string
	TTL    time.Duration
}

// Service signs and verifies tokens with a symmetric secret (HS256).
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service. It fails fast with
// ErrMissingSecret when the secret is empty.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	svc := &Service{
		secret: []byte(secret),
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultTTL
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for the subject with iat set to now and exp to
// now plus the configured TTL. The returned time is the expiry.
func (s *Service) Issue(subject, email, role string) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature, the issuer and the expiry. The expiry
// is re-checked explicitly even though the jwt library enforces it
// during parsing; a token the library accepts with a passed exp must
// still fail as expired.
func (s *Service) Verify(signed string) (*Claims, error) {
	signed = strings.TrimSpace(signed)
	if signed == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(signed, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != Issuer {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractSubject returns the subject of a verified token.
func (s *Service) ExtractSubject(signed string) (string, error) {
	claims, err := s.Verify(signed)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractEmail returns the email claim of a verified token.
func (s *Service) ExtractEmail(signed string) (string, error) {
	claims, err := s.Verify(signed)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// ExtractRole returns the role claim of a verified token.
func (s *Service) ExtractRole(signed string) (string, error) {
	claims, err := s.Verify(signed)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}
