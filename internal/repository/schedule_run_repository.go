package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// QueryObserver receives the duration of each repository call.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

const runSummaryColumns = `id, status, seed, options, statistics, warning_count, error_message, created_by, created_at, started_at, finished_at`

// ScheduleRunRepository persists scheduling runs, their input catalog and result.
type ScheduleRunRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewScheduleRunRepository constructs repository. observer may be nil.
func NewScheduleRunRepository(db *sqlx.DB, observer QueryObserver) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db, observer: observer}
}

func (r *ScheduleRunRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// Create inserts a run. ID, status and creation time are filled when empty.
func (r *ScheduleRunRepository) Create(ctx context.Context, run *models.ScheduleRun) error {
	if run == nil {
		return fmt.Errorf("schedule run payload is nil")
	}
	if len(run.Catalog) == 0 {
		return fmt.Errorf("schedule run catalog is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	defer r.observe("schedule_runs.create", time.Now())

	const query = `
INSERT INTO schedule_runs (id, status, seed, options, catalog, warning_count, created_by, created_at)
VALUES (:id, :status, :seed, :options, :catalog, :warning_count, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("insert schedule run: %w", err)
	}
	return nil
}

// FindByID loads the run summary without its catalog and result payloads.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	defer r.observe("schedule_runs.find", time.Now())
	query := `SELECT ` + runSummaryColumns + ` FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadCatalog returns the stored input catalog of a run.
func (r *ScheduleRunRepository) LoadCatalog(ctx context.Context, id string) (types.JSONText, error) {
	defer r.observe("schedule_runs.catalog", time.Now())
	var payload types.JSONText
	if err := r.db.GetContext(ctx, &payload, `SELECT catalog FROM schedule_runs WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return payload, nil
}

// LoadResult returns the stored result of a run. It is empty until the run finishes.
func (r *ScheduleRunRepository) LoadResult(ctx context.Context, id string) (types.JSONText, error) {
	defer r.observe("schedule_runs.result", time.Now())
	var payload types.JSONText
	if err := r.db.GetContext(ctx, &payload, `SELECT COALESCE(result, 'null'::jsonb) FROM schedule_runs WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return payload, nil
}

func buildRunFilter(filter models.ScheduleRunFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns run summaries, newest first.
func (r *ScheduleRunRepository) List(ctx context.Context, filter models.ScheduleRunFilter) ([]models.ScheduleRun, error) {
	defer r.observe("schedule_runs.list", time.Now())
	page, size := normalisePage(filter.Page, filter.PageSize)
	where, args := buildRunFilter(filter)
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`SELECT %s FROM schedule_runs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		runSummaryColumns, where, len(args)-1, len(args))

	runs := make([]models.ScheduleRun, 0)
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// Count returns the number of runs matching filter.
func (r *ScheduleRunRepository) Count(ctx context.Context, filter models.ScheduleRunFilter) (int, error) {
	defer r.observe("schedule_runs.count", time.Now())
	where, args := buildRunFilter(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM schedule_runs`+where, args...); err != nil {
		return 0, fmt.Errorf("count schedule runs: %w", err)
	}
	return total, nil
}

// MarkRunning claims a queued run. It returns sql.ErrNoRows when the run is
// missing or no longer queued.
func (r *ScheduleRunRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	defer r.observe("schedule_runs.mark_running", time.Now())
	const query = `UPDATE schedule_runs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4`
	return r.expectOne(ctx, "mark schedule run running", query, models.RunStatusRunning, startedAt, id, models.RunStatusQueued)
}

// SaveResult stores the outcome of a running run and marks it finished.
func (r *ScheduleRunRepository) SaveResult(ctx context.Context, id string, result, statistics types.JSONText, warningCount int, finishedAt time.Time) error {
	defer r.observe("schedule_runs.save_result", time.Now())
	const query = `UPDATE schedule_runs
SET status = $1, result = $2, statistics = $3, warning_count = $4, error_message = NULL, finished_at = $5
WHERE id = $6 AND status = $7`
	return r.expectOne(ctx, "save schedule run result", query,
		models.RunStatusFinished, result, statistics, warningCount, finishedAt, id, models.RunStatusRunning)
}

// MarkFailed records the failure of a queued or running run.
func (r *ScheduleRunRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	defer r.observe("schedule_runs.mark_failed", time.Now())
	const query = `UPDATE schedule_runs SET status = $1, error_message = $2, finished_at = $3
WHERE id = $4 AND status IN ($5, $6)`
	return r.expectOne(ctx, "mark schedule run failed", query,
		models.RunStatusFailed, message, finishedAt, id, models.RunStatusQueued, models.RunStatusRunning)
}

// Requeue hands a claimed run back to the queue so a later attempt can claim it again.
func (r *ScheduleRunRepository) Requeue(ctx context.Context, id string) error {
	defer r.observe("schedule_runs.requeue_one", time.Now())
	const query = `UPDATE schedule_runs SET status = $1, started_at = NULL WHERE id = $2 AND status = $3`
	return r.expectOne(ctx, "requeue schedule run", query, models.RunStatusQueued, id, models.RunStatusRunning)
}

// RequeueInterrupted moves runs left RUNNING by a previous process back to QUEUED.
func (r *ScheduleRunRepository) RequeueInterrupted(ctx context.Context) (int64, error) {
	defer r.observe("schedule_runs.requeue", time.Now())
	const query = `UPDATE schedule_runs SET status = $1, started_at = NULL WHERE status = $2`
	result, err := r.db.ExecContext(ctx, query, models.RunStatusQueued, models.RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("requeue interrupted schedule runs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue rows affected: %w", err)
	}
	return affected, nil
}

// ListQueued returns the ids of queued runs, oldest first.
func (r *ScheduleRunRepository) ListQueued(ctx context.Context, limit int) ([]string, error) {
	defer r.observe("schedule_runs.list_queued", time.Now())
	if limit <= 0 {
		limit = 100
	}
	ids := make([]string, 0)
	const query = `SELECT id FROM schedule_runs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	if err := r.db.SelectContext(ctx, &ids, query, models.RunStatusQueued, limit); err != nil {
		return nil, fmt.Errorf("list queued schedule runs: %w", err)
	}
	return ids, nil
}

// Delete removes a run.
func (r *ScheduleRunRepository) Delete(ctx context.Context, id string) error {
	defer r.observe("schedule_runs.delete", time.Now())
	return r.expectOne(ctx, "delete schedule run", `DELETE FROM schedule_runs WHERE id = $1`, id)
}

func (r *ScheduleRunRepository) expectOne(ctx context.Context, action, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", action, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
