package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"identity_hub/internal/common"
	"identity_hub/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "username", "email", "password_hash", "role", "enabled", "version", "created_at", "updated_at"}

func newPgRepoWithMock(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPgUserRepository(db), mock
}

func sampleUser() *model.User {
	return &model.User{
		ID:           "8b7e1f0e-1111-4a4a-9c9c-000000000001",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         model.RoleUser,
		Enabled:      true,
	}
}

func TestPgCreate_Success(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	u := sampleUser()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*email,\s*password_hash,\s*role,\s*enabled\).*RETURNING\s+version,\s*created_at,\s*updated_at$`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Enabled).
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at", "updated_at"}).AddRow(int64(1), ts, ts))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, int64(1), u.Version)
	assert.Equal(t, ts, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreate_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_username_key", common.ErrDuplicateUsername},
		{"users_email_key", common.ErrDuplicateEmail},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock := newPgRepoWithMock(t)
			mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repo.Create(context.Background(), sampleUser())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPgCreate_UnknownConstraintIsConflict(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})

	err := repo.Create(context.Background(), sampleUser())
	require.Error(t, err)
	assert.Equal(t, common.KindConflict, common.KindOf(err))
}

func TestPgCreate_DBError(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleUser())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`pgUserRepository\.Create: .*db down`), err.Error())
	assert.Equal(t, common.KindInternal, common.KindOf(err))
}

func TestPgFindByUsername(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*username,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "alice", "alice@example.com", "h", "ADMIN", false, int64(7), ts, ts))

	got, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, model.RoleAdmin, got.Role)
	assert.False(t, got.Enabled)
	assert.Equal(t, int64(7), got.Version)
}

func TestPgFindByID_NotFound(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgExists(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\)$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\)$`).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	found, err := repo.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ExistsByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgList(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	ts := time.Now().UTC()
	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+ORDER\s+BY\s+created_at`).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "alice", "a@example.com", "h", "USER", true, int64(1), ts, ts).
			AddRow("u-2", "bob", "b@example.com", "h", "ADMIN", true, int64(3), ts, ts))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[1].Username)
}

func TestPgUpdate_BumpsVersion(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	u := sampleUser()
	u.Version = 1
	ts := time.Now().UTC()

	mock.ExpectQuery(`(?s)^UPDATE\s+users.*version\s*=\s*version\s*\+\s*1.*WHERE\s+id\s*=\s*\$1\s+AND\s+version\s*=\s*\$7.*RETURNING\s+version,\s*updated_at$`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Enabled, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(2), ts))

	require.NoError(t, repo.Update(context.Background(), u))
	assert.Equal(t, int64(2), u.Version)
	assert.Equal(t, ts, u.UpdatedAt)
}

func TestPgUpdate_NotFoundAndConflict(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	mock.ExpectQuery(`(?s)^UPDATE\s+users`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`^SELECT\s+EXISTS`).
		WithArgs(sampleUser().ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`(?s)^UPDATE\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	assert.ErrorIs(t, repo.Update(context.Background(), sampleUser()), common.ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), sampleUser()), common.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdate_StaleVersion(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	u := sampleUser()
	u.Version = 3

	mock.ExpectQuery(`(?s)^UPDATE\s+users`).
		WithArgs(u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Enabled, int64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`^SELECT\s+EXISTS`).
		WithArgs(u.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Update(context.Background(), u)
	assert.ErrorIs(t, err, common.ErrConcurrentUpdate)
	assert.Equal(t, common.KindConflict, common.KindOf(err))
	assert.Equal(t, int64(3), u.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_InvalidIDIsNotFound(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	invalid := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "42"`}
	u := sampleUser()
	u.ID = "42"

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).WithArgs("42").WillReturnError(invalid)
	mock.ExpectQuery(`(?s)^UPDATE\s+users`).WillReturnError(invalid)
	mock.ExpectExec(`^DELETE\s+FROM\s+users`).WithArgs("42").WillReturnError(invalid)

	_, err := repo.FindByID(context.Background(), "42")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), u), common.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "42"), common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDelete(t *testing.T) {
	repo, mock := newPgRepoWithMock(t)
	mock.ExpectExec(`^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u-2"), common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
