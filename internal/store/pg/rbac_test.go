package pg

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"lexdesk.org/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestFindUserByEmailDecodesDirectPermissions(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "coalesce", "created_at", "updated_at", "deleted_at"}).
		AddRow("u1", "lawyer@lexdesk.example", "hash", []byte(`["CASE_VIEW_ALL","CALENDAR_VIEW"]`), now, now, nil)
	mock.ExpectQuery("select id, email, password_hash.*from users.*lower\\(email\\)").
		WithArgs("Lawyer@lexdesk.example").
		WillReturnRows(rows)

	user, err := store.FindUserByEmail(context.Background(), "Lawyer@lexdesk.example")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if !slices.Equal(user.DirectPermissions, []string{"CASE_VIEW_ALL", "CALENDAR_VIEW"}) {
		t.Fatalf("unexpected direct permissions: %v", user.DirectPermissions)
	}
	if user.DeletedAt != nil {
		t.Fatal("unexpected deletion mark")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserMarksSoftDeleted(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "coalesce", "created_at", "updated_at", "deleted_at"}).
		AddRow("u2", "gone@lexdesk.example", "hash", []byte(`[]`), now, now, now)
	mock.ExpectQuery("select id, email, password_hash.*from users.*where id").
		WithArgs("u2").
		WillReturnRows(rows)

	user, err := store.FindUser(context.Background(), "u2")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if user.DeletedAt == nil {
		t.Fatal("expected deletion mark")
	}
}

func TestFindUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, email, password_hash.*from users").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.FindUser(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	// Second insert hits the conflict clause and affects zero rows; both
	// calls succeed.
	mock.ExpectExec("insert into user_roles.*on conflict \\(user_id, role_id\\) do nothing").
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into user_roles.*on conflict \\(user_id, role_id\\) do nothing").
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.AssignRole(context.Background(), "u1", "r1"); err != nil {
		t.Fatalf("first AssignRole: %v", err)
	}
	if err := store.AssignRole(context.Background(), "u1", "r1"); err != nil {
		t.Fatalf("repeat AssignRole: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGrantRolePermissionsUnknownKey(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id from permissions where key").
		WithArgs("NOT_A_PERMISSION").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.GrantRolePermissions(context.Background(), "r1", []string{"NOT_A_PERMISSION"})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceRolePermissionsRewritesSet(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from roles where id").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("delete from role_permissions where role_id").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("select id from permissions where key").
		WithArgs("CASE_VIEW_ALL").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("r1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ReplaceRolePermissions(context.Background(), "r1", []string{"CASE_VIEW_ALL"}); err != nil {
		t.Fatalf("ReplaceRolePermissions: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPermissionKeysForUserDistinct(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select distinct p.key.*from user_roles ur").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("CASE_VIEW_ALL").AddRow("CLIENT_VIEW"))

	keys, err := store.PermissionKeysForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("PermissionKeysForUser: %v", err)
	}
	if !slices.Equal(keys, []string{"CASE_VIEW_ALL", "CLIENT_VIEW"}) {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
