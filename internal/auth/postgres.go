package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"venomous.dev/internal/ids"
)

// maxPoolConns caps the connection pool; acquiring a connection blocks
// the caller until one is free.
const maxPoolConns = 15

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// OpenDB connects to PostgreSQL through the pgx stdlib driver with a
// bounded pool.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, wrapStorage("open", err)
	}
	db.SetMaxOpenConns(maxPoolConns)
	db.SetMaxIdleConns(maxPoolConns)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Open connects and returns a store over the pool.
func Open(dsn string) (*PGStore, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Close() error { return s.db.Close() }

// Ping checks database connectivity for readiness probes.
func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PGStore) FindCredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, email, password_hash, email_verified, failure_count, locked_until, last_login, created_at, updated_at
		   from auth_credentials where email=$1`, email)
	var c Credential
	if err := row.Scan(&c.ID, &c.IdentityID, &c.Email, &c.PasswordHash, &c.EmailVerified,
		&c.FailureCount, &c.LockedUntil, &c.LastLogin, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("find credential", err)
	}
	return &c, nil
}

func (s *PGStore) FindIdentityByID(ctx context.Context, id string) (*Identity, error) {
	return s.findIdentity(ctx, `where id=$1`, id)
}

func (s *PGStore) FindIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.findIdentity(ctx, `where email=$1`, email)
}

func (s *PGStore) findIdentity(ctx context.Context, where string, arg any) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, name, role_id, status, created_at, updated_at from users `+where, arg)
	var u Identity
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("find identity", err)
	}
	return &u, nil
}

func (s *PGStore) CreateIdentity(ctx context.Context, email, name string) (*Identity, error) {
	u := Identity{ID: uuid.NewString(), Email: email, Name: name}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, role_id)
		 values($1, $2, $3, (select id from roles where name=$4))
		 returning role_id, status, created_at, updated_at`,
		u.ID, email, name, RoleUser.String())
	if err := row.Scan(&u.RoleID, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, wrapStorage("create identity", err)
	}
	return &u, nil
}

func (s *PGStore) CreateCredential(ctx context.Context, identityID, email, passwordHash string) (*Credential, error) {
	c := Credential{ID: uuid.NewString(), IdentityID: identityID, Email: email, PasswordHash: passwordHash}
	row := s.db.QueryRowContext(ctx,
		`insert into auth_credentials(id, user_id, email, password_hash, email_verified)
		 values($1, $2, $3, $4, false)
		 returning created_at, updated_at`,
		c.ID, identityID, email, passwordHash)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, wrapStorage("create credential", err)
	}
	return &c, nil
}

// RecordFailure increments the counter and stamps the unlock deadline
// in one statement, so concurrent attempts against the same credential
// cannot lose increments to a read-modify-write race. A no-op when no
// credential exists for the email.
func (s *PGStore) RecordFailure(ctx context.Context, email string, threshold int, lockedUntil time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_credentials
		    set failure_count = failure_count + 1,
		        locked_until = case when failure_count + 1 >= $2 then $3 else locked_until end,
		        updated_at = now()
		  where email = $1`,
		email, threshold, lockedUntil)
	if err != nil {
		return wrapStorage("record failure", err)
	}
	return nil
}

func (s *PGStore) ResetFailures(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`update auth_credentials
		    set failure_count = 0, locked_until = null, updated_at = now()
		  where email = $1`, email)
	if err != nil {
		return wrapStorage("reset failures", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ClearLockByIdentity(ctx context.Context, identityID string) error {
	res, err := s.db.ExecContext(ctx,
		`update auth_credentials
		    set failure_count = 0, locked_until = null, updated_at = now()
		  where user_id = $1`, identityID)
	if err != nil {
		return wrapStorage("clear lock", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateIdentityName(ctx context.Context, id, name string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`update users set name = $2, updated_at = now() where id = $1
		 returning id, email, name, role_id, status, created_at, updated_at`,
		id, name)
	var u Identity
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("update identity name", err)
	}
	return &u, nil
}

func (s *PGStore) UpdateIdentityStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`update users set status = $2, updated_at = now() where id = $1`,
		id, status.String())
	if err != nil {
		return wrapStorage("update identity status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdatePasswordHash(ctx context.Context, identityID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update auth_credentials set password_hash = $2, updated_at = now() where user_id = $1`,
		identityID, passwordHash)
	if err != nil {
		return wrapStorage("update password hash", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateLastLogin(ctx context.Context, identityID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_credentials set last_login = $2, updated_at = now() where user_id = $1`,
		identityID, at)
	if err != nil {
		return wrapStorage("update last login", err)
	}
	return nil
}

func (s *PGStore) ResolveRole(ctx context.Context, identityID string) (Role, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`select r.name from users u join roles r on r.id = u.role_id where u.id = $1`,
		identityID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", wrapStorage("resolve role", err)
	}
	return Role(name), nil
}

func (s *PGStore) ListIdentities(ctx context.Context, limit, offset int) ([]*Identity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, email, name, role_id, status, created_at, updated_at
		   from users order by created_at asc limit $1 offset $2`, limit, offset)
	if err != nil {
		return nil, wrapStorage("list identities", err)
	}
	defer rows.Close()

	var res []*Identity
	for rows.Next() {
		var u Identity
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.RoleID, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, wrapStorage("list identities", err)
		}
		res = append(res, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage("list identities", err)
	}
	return res, nil
}

func (s *PGStore) AppendSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	meta, _ := json.Marshal(event.Metadata)
	_, err := s.db.ExecContext(ctx,
		`insert into security_events(id, occurred_at, actor_id, email, action, metadata)
		 values($1,$2,$3,$4,$5,$6)`,
		event.ID, event.OccurredAt, event.ActorID, event.Email, event.Action, meta)
	if err != nil {
		return wrapStorage("append security event", err)
	}
	return nil
}

func (s *PGStore) ListSecurityEvents(ctx context.Context, limit, offset int) ([]*SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, occurred_at, actor_id, email, action, metadata
		   from security_events order by occurred_at desc limit $1 offset $2`, limit, offset)
	if err != nil {
		return nil, wrapStorage("list security events", err)
	}
	defer rows.Close()

	var res []*SecurityEvent
	for rows.Next() {
		var (
			ev   SecurityEvent
			meta []byte
		)
		if err := rows.Scan(&ev.ID, &ev.OccurredAt, &ev.ActorID, &ev.Email, &ev.Action, &meta); err != nil {
			return nil, wrapStorage("list security events", err)
		}
		_ = json.Unmarshal(meta, &ev.Metadata)
		res = append(res, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage("list security events", err)
	}
	return res, nil
}
