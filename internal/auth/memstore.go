package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"venomous.dev/internal/ids"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store for local development and tests. All
// methods are safe for concurrent use.
type MemStore struct {
	mu          sync.Mutex
	identities  map[string]*Identity   // by id
	credentials map[string]*Credential // by email
	roles       map[string]Role        // identity id -> role
	events      []*SecurityEvent
	order       []string // identity ids in creation order
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		identities:  make(map[string]*Identity),
		credentials: make(map[string]*Credential),
		roles:       make(map[string]Role),
	}
}

func (m *MemStore) FindCredentialByEmail(_ context.Context, email string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (m *MemStore) FindIdentityByID(_ context.Context, id string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

func (m *MemStore) FindIdentityByEmail(_ context.Context, email string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ident := range m.identities {
		if ident.Email == email {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) CreateIdentity(_ context.Context, email, name string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ident := range m.identities {
		if ident.Email == email {
			return nil, ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	ident := &Identity{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.identities[ident.ID] = ident
	m.roles[ident.ID] = RoleUser
	m.order = append(m.order, ident.ID)
	cp := *ident
	return &cp, nil
}

func (m *MemStore) CreateCredential(_ context.Context, identityID, email, passwordHash string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[email]; ok {
		return nil, ErrAlreadyExists
	}
	now := time.Now().UTC()
	cred := &Credential{
		ID:           uuid.NewString(),
		IdentityID:   identityID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.credentials[email] = cred
	cp := *cred
	return &cp, nil
}

func (m *MemStore) UpdateIdentityName(_ context.Context, id, name string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	ident.Name = name
	ident.UpdatedAt = time.Now().UTC()
	cp := *ident
	return &cp, nil
}

func (m *MemStore) UpdateIdentityStatus(_ context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	ident.Status = status
	ident.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) UpdatePasswordHash(_ context.Context, identityID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cred := range m.credentials {
		if cred.IdentityID == identityID {
			cred.PasswordHash = passwordHash
			cred.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) RecordFailure(_ context.Context, email string, threshold int, lockedUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[email]
	if !ok {
		return nil
	}
	cred.FailureCount++
	if cred.FailureCount >= threshold {
		until := lockedUntil
		cred.LockedUntil = &until
	}
	cred.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) ResetFailures(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[email]
	if !ok {
		return ErrNotFound
	}
	cred.FailureCount = 0
	cred.LockedUntil = nil
	cred.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) ClearLockByIdentity(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cred := range m.credentials {
		if cred.IdentityID == identityID {
			cred.FailureCount = 0
			cred.LockedUntil = nil
			cred.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) UpdateLastLogin(_ context.Context, identityID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cred := range m.credentials {
		if cred.IdentityID == identityID {
			t := at
			cred.LastLogin = &t
			cred.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) ResolveRole(_ context.Context, identityID string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[identityID]
	if !ok {
		return "", ErrNotFound
	}
	return role, nil
}

// SetRole assigns a role directly, bypassing the registration default.
func (m *MemStore) SetRole(identityID string, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[identityID] = role
}

func (m *MemStore) ListIdentities(_ context.Context, limit, offset int) ([]*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.order) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(m.order) {
		end = len(m.order)
	}
	out := make([]*Identity, 0, end-offset)
	for _, id := range m.order[offset:end] {
		cp := *m.identities[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) AppendSecurityEvent(_ context.Context, event *SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	if cp.ID == "" {
		cp.ID = ids.New()
	}
	if cp.OccurredAt.IsZero() {
		cp.OccurredAt = time.Now().UTC()
	}
	m.events = append(m.events, &cp)
	return nil
}

func (m *MemStore) ListSecurityEvents(_ context.Context, limit, offset int) ([]*SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// newest first
	total := len(m.events)
	if offset >= total {
		return nil, nil
	}
	out := make([]*SecurityEvent, 0, total-offset)
	for i := total - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		cp := *m.events[i]
		out = append(out, &cp)
	}
	return out, nil
}
