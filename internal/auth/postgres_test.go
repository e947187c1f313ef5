package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewPGStore(db), mock
}

func TestPGFindCredentialByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "email", "password_hash", "email_verified",
		"failure_count", "locked_until", "last_login", "created_at", "updated_at",
	}).AddRow("cred-1", "user-1", "alice@example.com", "$2a$04$hash", false,
		2, nil, nil, now, now)
	mock.ExpectQuery(`from auth_credentials where email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	cred, err := store.FindCredentialByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindCredentialByEmail: %v", err)
	}
	if cred.IdentityID != "user-1" || cred.FailureCount != 2 || cred.LockedUntil != nil {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestPGFindCredentialNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`from auth_credentials where email=\$1`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.FindCredentialByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRecordFailureSingleStatement(t *testing.T) {
	store, mock := newMockStore(t)
	deadline := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectExec(`update auth_credentials\s+set failure_count = failure_count \+ 1,\s+locked_until = case when failure_count \+ 1 >= \$2 then \$3 else locked_until end`).
		WithArgs("alice@example.com", 5, deadline).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.RecordFailure(context.Background(), "alice@example.com", 5, deadline); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
}

func TestPGRecordFailureUnknownEmail(t *testing.T) {
	store, mock := newMockStore(t)
	deadline := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	// zero rows affected is still success
	mock.ExpectExec(`update auth_credentials`).
		WithArgs("ghost@example.com", 5, deadline).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.RecordFailure(context.Background(), "ghost@example.com", 5, deadline); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
}

func TestPGResetFailures(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update auth_credentials\s+set failure_count = 0, locked_until = null`).
		WithArgs("alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.ResetFailures(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ResetFailures: %v", err)
	}
}

func TestPGResetFailuresUnknownEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update auth_credentials\s+set failure_count = 0, locked_until = null`).
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.ResetFailures(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGClearLockByIdentity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update auth_credentials\s+set failure_count = 0, locked_until = null`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.ClearLockByIdentity(context.Background(), "user-1"); err != nil {
		t.Fatalf("ClearLockByIdentity: %v", err)
	}

	mock.ExpectExec(`update auth_credentials`).
		WithArgs("no-such-user").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.ClearLockByIdentity(context.Background(), "no-such-user"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGCreateIdentity(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`insert into users\(id, email, name, role_id\)`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "Alice", "user").
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "status", "created_at", "updated_at"}).
			AddRow("role-1", "active", now, now))

	ident, err := store.CreateIdentity(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if ident.ID == "" || ident.RoleID != "role-1" || ident.Status != StatusActive {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestPGUpdatePasswordHash(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update auth_credentials set password_hash = \$2`).
		WithArgs("user-1", "$2a$04$newhash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.UpdatePasswordHash(context.Background(), "user-1", "$2a$04$newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}

	mock.ExpectExec(`update auth_credentials set password_hash = \$2`).
		WithArgs("ghost", "$2a$04$newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.UpdatePasswordHash(context.Background(), "ghost", "$2a$04$newhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGUpdateIdentityStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update users set status = \$2`).
		WithArgs("user-1", "disabled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.UpdateIdentityStatus(context.Background(), "user-1", StatusDisabled); err != nil {
		t.Fatalf("UpdateIdentityStatus: %v", err)
	}

	mock.ExpectExec(`update users set status = \$2`).
		WithArgs("ghost", "disabled").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.UpdateIdentityStatus(context.Background(), "ghost", StatusDisabled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGUpdateIdentityName(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`update users set name = \$2`).
		WithArgs("user-1", "Alice Cooper").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "role_id", "status", "created_at", "updated_at",
		}).AddRow("user-1", "alice@example.com", "Alice Cooper", "role-1", "active", now, now))

	ident, err := store.UpdateIdentityName(context.Background(), "user-1", "Alice Cooper")
	if err != nil {
		t.Fatalf("UpdateIdentityName: %v", err)
	}
	if ident.Name != "Alice Cooper" || ident.Status != StatusActive {
		t.Fatalf("unexpected identity: %+v", ident)
	}

	mock.ExpectQuery(`update users set name = \$2`).
		WithArgs("ghost", "Nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := store.UpdateIdentityName(context.Background(), "ghost", "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGResolveRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select r.name from users u join roles r`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("admin"))

	role, err := store.ResolveRole(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveRole: %v", err)
	}
	if role != RoleAdmin {
		t.Fatalf("role = %s, want %s", role, RoleAdmin)
	}

	mock.ExpectQuery(`select r.name from users u join roles r`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	if _, err := store.ResolveRole(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGStorageErrorsAreWrapped(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update auth_credentials`).
		WithArgs("alice@example.com", 5, sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.RecordFailure(context.Background(), "alice@example.com", 5, time.Now())
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}
