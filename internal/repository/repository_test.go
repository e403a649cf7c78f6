package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"buildbuddy-admin/internal/core/sequence"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPhaseMoveWritesSentinelFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPhaseRepository(db)

	items := []sequence.Item{{ID: 10, Seq: 1}, {ID: 11, Seq: 2}}
	plan, moved, err := sequence.Reorder(items, 11, sequence.Up)
	require.NoError(t, err)
	require.True(t, moved)

	update := regexp.QuoteMeta(`UPDATE "project_phases" SET "seq"=$1 WHERE id = $2`)
	mock.ExpectExec(update).WithArgs(-1, int64(11)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs(2, int64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs(1, int64(11)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, sequence.Apply(context.Background(), repo, plan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhaseMoveStopsOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPhaseRepository(db)

	plan, _, err := sequence.Reorder([]sequence.Item{{ID: 1, Seq: 1}, {ID: 2, Seq: 2}}, 1, sequence.Down)
	require.NoError(t, err)

	update := regexp.QuoteMeta(`UPDATE "project_phases" SET "seq"=$1 WHERE id = $2`)
	mock.ExpectExec(update).WithArgs(-1, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs(1, int64(2)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = sequence.Apply(context.Background(), repo, plan)
	require.Error(t, err)
	assert.Equal(t, pkgErrors.CodeConflict, pkgErrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateSeqMissingRowIsStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tasks" SET "seq"=$1 WHERE id = $2`)).
		WithArgs(3, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "tasks" WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := repo.UpdateSeq(context.Background(), 99, 3)
	assert.ErrorIs(t, err, pkgErrors.ErrStaleReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// MySQL 写入相同的值时报告 0 行受影响
func TestTaskUpdateSeqUnchangedValue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tasks" SET "seq"=$1 WHERE id = $2`)).
		WithArgs(4, int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "tasks" WHERE id = $1`)).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assert.NoError(t, repo.UpdateSeq(context.Background(), 12, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectLockForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProjectRepository(db)

	lock := `SELECT "id" FROM "projects" WHERE id = \$1 .*FOR UPDATE`
	mock.ExpectQuery(lock).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(lock).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, repo.LockForUpdate(context.Background(), 5))
	assert.ErrorIs(t, repo.LockForUpdate(context.Background(), 6), pkgErrors.ErrStaleReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteMarkAcceptedIsConditional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInviteRepository(db)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	stmt := regexp.QuoteMeta(`UPDATE "project_invites" SET "accepted_at"=$1,"updated_at"=$2 WHERE id = $3 AND accepted_at IS NULL`)
	mock.ExpectExec(stmt).WithArgs(at, sqlmock.AnyArg(), int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WithArgs(at, sqlmock.AnyArg(), int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkAccepted(context.Background(), 7, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkAccepted(context.Background(), 7, at)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteFindByTokenNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInviteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "project_invites" WHERE token = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByToken(context.Background(), "missing", false)
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
}

func TestWrapDBErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", gorm.ErrRecordNotFound, pkgErrors.CodeNotFound},
		{"rls", &pgconn.PgError{Code: "42501", Message: "new row violates row-level security policy"}, pkgErrors.CodeForbidden},
		{"unique", &pgconn.PgError{Code: "23505"}, pkgErrors.CodeConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, pkgErrors.CodeNotFound},
		{"deadline", context.DeadlineExceeded, pkgErrors.CodeUnavailable},
		{"other", errors.New("boom"), pkgErrors.CodeDatabaseError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, pkgErrors.CodeOf(wrapDBError("操作失败", tc.err)))
		})
	}
	assert.NoError(t, wrapDBError("操作失败", nil))
}
