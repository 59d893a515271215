package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func newScheduleRunRepoMock(t *testing.T) (*ScheduleRunRepository, sqlmock.Sqlmock, *recordingObserver, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	observer := &recordingObserver{}
	return NewScheduleRunRepository(sqlx.NewDb(db, "sqlmock"), observer), mock, observer, func() { db.Close() }
}

var summaryRowColumns = []string{"id", "status", "seed", "options", "statistics", "warning_count", "error_message", "created_by", "created_at", "started_at", "finished_at"}

func TestScheduleRunRepositoryCreate(t *testing.T) {
	repo, mock, observer, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_runs")).
		WithArgs(sqlmock.AnyArg(), string(models.RunStatusQueued), int64(42), sqlmock.AnyArg(), sqlmock.AnyArg(), 0, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.ScheduleRun{Seed: 42, Catalog: types.JSONText(`{"courses":[]}`)}
	require.NoError(t, repo.Create(context.Background(), run))

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.RunStatusQueued, run.Status)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, []string{"schedule_runs.create"}, observer.labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryCreateRequiresCatalog(t *testing.T) {
	repo, _, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	assert.Error(t, repo.Create(context.Background(), &models.ScheduleRun{}))
	assert.Error(t, repo.Create(context.Background(), nil))
}

func TestScheduleRunRepositoryFindByID(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(summaryRowColumns).
		AddRow("run-1", "FINISHED", int64(7), []byte(`{"refinement":"none"}`), []byte(`{"totalRequests":3}`), 2, nil, "user-1", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.FindByID(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFinished, run.Status)
	assert.Equal(t, int64(7), run.Seed)
	assert.Equal(t, "none", run.Options.Refinement)
	assert.Equal(t, 2, run.WarningCount)
	require.NotNil(t, run.CreatedBy)
	assert.Equal(t, "user-1", *run.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM schedule_runs WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRunRepositoryListWithStatus(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	status := models.RunStatusQueued
	filter := models.ScheduleRunFilter{Status: &status, Page: 2, PageSize: 10}
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_runs WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("QUEUED", 10, 10).
		WillReturnRows(sqlmock.NewRows(summaryRowColumns).
			AddRow("run-2", "QUEUED", int64(1), []byte(`{}`), nil, 0, nil, nil, time.Now(), nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedule_runs WHERE status = $1")).
		WithArgs("QUEUED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	runs, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	total, err := repo.Count(context.Background(), filter)
	require.NoError(t, err)

	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].StartedAt)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryListDefaultsPaging(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(summaryRowColumns))

	runs, err := repo.List(context.Background(), models.ScheduleRunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryLifecycle(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_runs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs("RUNNING", now, "run-1", "QUEUED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_runs SET status = $1, result = $2")).
		WithArgs("FINISHED", sqlmock.AnyArg(), sqlmock.AnyArg(), 3, now, "run-1", "RUNNING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRunning(context.Background(), "run-1", now))
	require.NoError(t, repo.SaveResult(context.Background(), "run-1", types.JSONText(`{}`), types.JSONText(`{}`), 3, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryMarkRunningAlreadyClaimed(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE schedule_runs SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRunning(context.Background(), "run-1", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRunRepositoryMarkFailed(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND status IN ($5, $6)")).
		WithArgs("FAILED", "malformed catalog: missing rooms", now, "run-1", "QUEUED", "RUNNING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), "run-1", "malformed catalog: missing rooms", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryRecoveryQueries(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_runs SET status = $1, started_at = NULL WHERE status = $2")).
		WithArgs("QUEUED", "RUNNING").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM schedule_runs WHERE status = $1 ORDER BY created_at ASC LIMIT $2")).
		WithArgs("QUEUED", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("run-1").AddRow("run-2"))

	requeued, err := repo.RequeueInterrupted(context.Background())
	require.NoError(t, err)
	ids, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(2), requeued)
	assert.Equal(t, []string{"run-1", "run-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryPayloads(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT catalog FROM schedule_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"catalog"}).AddRow([]byte(`{"courses":[]}`)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(result, 'null'::jsonb) FROM schedule_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow([]byte(`null`)))

	catalog, err := repo.LoadCatalog(context.Background(), "run-1")
	require.NoError(t, err)
	result, err := repo.LoadResult(context.Background(), "run-1")
	require.NoError(t, err)

	assert.JSONEq(t, `{"courses":[]}`, string(catalog))
	assert.Equal(t, "null", string(result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryDeleteNotFound(t *testing.T) {
	repo, mock, _, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_runs WHERE id = $1")).
		WithArgs("run-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "run-9"), sql.ErrNoRows)
}

func TestScheduleRunRepositoryRequeue(t *testing.T) {
	repo, mock, observer, cleanup := newScheduleRunRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("SET status = $1, started_at = NULL WHERE id = $2 AND status = $3")).
		WithArgs("QUEUED", "run-1", "RUNNING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Requeue(context.Background(), "run-1"))
	assert.Equal(t, []string{"schedule_runs.requeue_one"}, observer.labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}
