package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/dto"
	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-block-scheduler/pkg/errors"
	"github.com/noah-isme/sma-block-scheduler/pkg/export"
	"github.com/noah-isme/sma-block-scheduler/pkg/jobs"
)

// JobTypeScheduleRun tags queue jobs that execute a persisted run.
const JobTypeScheduleRun = "schedule_run"

type scheduleRunStore interface {
	Create(ctx context.Context, run *models.ScheduleRun) error
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	LoadCatalog(ctx context.Context, id string) (types.JSONText, error)
	LoadResult(ctx context.Context, id string) (types.JSONText, error)
	List(ctx context.Context, filter models.ScheduleRunFilter) ([]models.ScheduleRun, error)
	Count(ctx context.Context, filter models.ScheduleRunFilter) (int, error)
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	SaveResult(ctx context.Context, id string, result, statistics types.JSONText, warningCount int, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
	Requeue(ctx context.Context, id string) error
	RequeueInterrupted(ctx context.Context) (int64, error)
	ListQueued(ctx context.Context, limit int) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
	TryEnqueue(job jobs.Job) error
}

type runExporter interface {
	Generate(runID string, result *models.ScheduleRunResult, view export.View, format export.Format) (*ExportResult, error)
	DeleteRun(runID string) error
}

// errRunClaimed signals that another worker already owns the run.
var errRunClaimed = errors.New("schedule run already claimed")

// ScheduleRunConfig carries engine defaults and run limits.
type ScheduleRunConfig struct {
	Defaults   scheduler.Options
	RandomSeed bool
	RunTimeout time.Duration
}

// RunExecutor claims a persisted run, executes the engine on its catalog and
// stores the outcome. It is shared by synchronous requests and queue workers.
type RunExecutor struct {
	repo    scheduleRunStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ScheduleRunConfig
	now     func() time.Time
}

// NewRunExecutor constructs an executor. metrics may be nil.
func NewRunExecutor(repo scheduleRunStore, metrics *MetricsService, logger *zap.Logger, cfg ScheduleRunConfig) *RunExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	return &RunExecutor{repo: repo, metrics: metrics, logger: logger, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Execute runs the engine for a queued run. Engine and catalog failures are
// recorded on the run and returned as permanent errors; storage failures are
// returned as-is so the caller may retry.
func (e *RunExecutor) Execute(ctx context.Context, runID string) (*models.ScheduleRunResult, error) {
	run, err := e.repo.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobs.Permanent(appErrors.Clone(appErrors.ErrNotFound, "schedule run not found"))
		}
		return nil, fmt.Errorf("load schedule run: %w", err)
	}
	if err := e.repo.MarkRunning(ctx, runID, e.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errRunClaimed
		}
		return nil, err
	}
	log := e.logger.With(zap.String("run_id", runID), zap.Int64("seed", run.Seed))

	payload, err := e.repo.LoadCatalog(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var catalog models.Catalog
	if err := payload.Unmarshal(&catalog); err != nil {
		return nil, e.fail(ctx, runID, appErrors.Wrap(err, appErrors.ErrMalformedCatalog.Code, appErrors.ErrMalformedCatalog.Status, "stored catalog is unreadable"))
	}

	opts := e.cfg.Defaults.Apply(run.Options)
	opts.Seed = run.Seed
	runCtx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	log.Info("schedule run started")
	result, err := scheduler.NewEngine(opts, e.logger).Run(runCtx, &catalog)
	if err != nil {
		if errors.Is(err, scheduler.ErrMalformedCatalog) {
			err = appErrors.Clone(appErrors.ErrMalformedCatalog, err.Error())
		}
		return nil, e.fail(ctx, runID, err)
	}

	persisted := result.Persisted()
	resultJSON, err := json.Marshal(persisted)
	if err != nil {
		return nil, e.fail(ctx, runID, fmt.Errorf("encode result: %w", err))
	}
	statsJSON, err := json.Marshal(persisted.Statistics)
	if err != nil {
		return nil, e.fail(ctx, runID, fmt.Errorf("encode statistics: %w", err))
	}
	if err := e.repo.SaveResult(ctx, runID, resultJSON, statsJSON, len(persisted.Warnings), e.now()); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	e.metrics.ObserveRun(RunObservation{
		Status:         models.RunStatusFinished,
		Duration:       result.Duration,
		ResolutionRate: persisted.Statistics.ResolutionRatio(),
		Iterations:     persisted.Refinement.Iterations,
		Unresolved:     persisted.Statistics.TotalRequests - persisted.Statistics.ResolvedRequests,
	})
	log.Info("schedule run finished",
		zap.String("resolution_rate", persisted.Statistics.OverallResolutionRate),
		zap.Int("warnings", len(persisted.Warnings)),
	)
	return &persisted, nil
}

// fail records the failure on the run and returns err marked as permanent.
func (e *RunExecutor) fail(ctx context.Context, runID string, err error) error {
	e.MarkFailed(ctx, runID, err)
	return jobs.Permanent(err)
}

// MarkFailed stores the failure message of a run. A run that already left the
// QUEUED and RUNNING states is left untouched.
func (e *RunExecutor) MarkFailed(ctx context.Context, runID string, cause error) {
	if markErr := e.repo.MarkFailed(ctx, runID, cause.Error(), e.now()); markErr != nil {
		if !errors.Is(markErr, sql.ErrNoRows) {
			e.logger.Warn("failed to mark schedule run failed", zap.String("run_id", runID), zap.Error(markErr))
		}
		return
	}
	e.metrics.ObserveRun(RunObservation{Status: models.RunStatusFailed})
	e.logger.Warn("schedule run failed", zap.String("run_id", runID), zap.Error(cause))
}

// ScheduleRunService orchestrates schedule run submission and result views.
type ScheduleRunService struct {
	repo      scheduleRunStore
	executor  *RunExecutor
	queue     jobDispatcher
	exporter  runExporter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleRunConfig
}

// NewScheduleRunService constructs the service. cache and exporter may be nil.
func NewScheduleRunService(repo scheduleRunStore, executor *RunExecutor, queue jobDispatcher, exporter runExporter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg ScheduleRunConfig) *ScheduleRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleRunService{
		repo:      repo,
		executor:  executor,
		queue:     queue,
		exporter:  exporter,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Submit persists a QUEUED run and hands it to the worker queue.
func (s *ScheduleRunService) Submit(ctx context.Context, req dto.CreateRunRequest, actorID string) (*models.ScheduleRun, error) {
	run, err := s.create(ctx, req, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: run.ID, Type: JobTypeScheduleRun}); err != nil {
		s.executor.MarkFailed(ctx, run.ID, fmt.Errorf("enqueue schedule run: %w", err))
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrQueueFull.Code, appErrors.ErrQueueFull.Status, appErrors.ErrQueueFull.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue schedule run")
	}
	return run, nil
}

// RunSync persists a run and executes it inline.
func (s *ScheduleRunService) RunSync(ctx context.Context, req dto.CreateRunRequest, actorID string) (*models.ScheduleRun, *models.ScheduleRunResult, error) {
	run, err := s.create(ctx, req, actorID)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.executor.Execute(ctx, run.ID)
	if err != nil {
		if !jobs.IsPermanent(err) {
			s.executor.MarkFailed(ctx, run.ID, err)
		}
		return nil, nil, asAppError(err, "schedule run failed")
	}
	stored, err := s.Get(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return stored, result, nil
}

func (s *ScheduleRunService) create(ctx context.Context, req dto.CreateRunRequest, actorID string) (*models.ScheduleRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule run payload")
	}
	if req.Catalog != nil && len(req.Catalog.Blocks) == 0 {
		req.Catalog.Blocks = append([]models.Block(nil), models.DefaultBlocks...)
	}
	if err := scheduler.CheckCatalog(req.Catalog); err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedCatalog, err.Error())
	}
	payload, err := json.Marshal(req.Catalog)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "catalog could not be encoded")
	}
	options := req.Options.Model()
	run := &models.ScheduleRun{
		Status:  models.RunStatusQueued,
		Seed:    s.resolveSeed(options),
		Options: options,
		Catalog: payload,
	}
	if actorID != "" {
		run.CreatedBy = &actorID
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule run")
	}
	s.logger.Info("schedule run submitted", zap.String("run_id", run.ID), zap.Int64("seed", run.Seed))
	return run, nil
}

func (s *ScheduleRunService) resolveSeed(options models.RunOptions) int64 {
	switch {
	case options.Seed != nil:
		return *options.Seed
	case s.cfg.RandomSeed:
		return time.Now().UnixNano()
	default:
		return s.cfg.Defaults.Seed
	}
}

// Get returns the run summary.
func (s *ScheduleRunService) Get(ctx context.Context, id string) (*models.ScheduleRun, error) {
	run, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	return run, nil
}

// List returns run summaries, newest first.
func (s *ScheduleRunService) List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule run query")
	}
	filter := models.ScheduleRunFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.RunStatus(query.Status)
		filter.Status = &status
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	runs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count schedule runs")
	}
	return runs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Result returns the stored outcome of a finished run.
func (s *ScheduleRunService) Result(ctx context.Context, id string) (*models.ScheduleRunResult, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case models.RunStatusFinished:
	case models.RunStatusFailed:
		msg := "schedule run failed"
		if run.ErrorMessage != nil {
			msg = fmt.Sprintf("schedule run failed: %s", *run.ErrorMessage)
		}
		return nil, appErrors.Clone(appErrors.ErrRunNotFinished, msg)
	default:
		return nil, appErrors.Clone(appErrors.ErrRunNotFinished, fmt.Sprintf("schedule run is %s", run.Status))
	}

	payload, err := s.repo.LoadResult(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run result")
	}
	var result models.ScheduleRunResult
	if err := payload.Unmarshal(&result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored result is unreadable")
	}
	return &result, nil
}

// runView loads one derived view of a finished run through the cache.
func runView[T any](ctx context.Context, s *ScheduleRunService, id, view string, derive func(*models.ScheduleRunResult) T) (T, error) {
	var out T
	err := Remember(ctx, s.cache, RunViewKey(id, view), &out, func(ctx context.Context) (T, error) {
		result, err := s.Result(ctx, id)
		if err != nil {
			var zero T
			return zero, err
		}
		return derive(result), nil
	})
	return out, err
}

// Assignment returns the course assignment of a finished run.
func (s *ScheduleRunService) Assignment(ctx context.Context, id string) (*models.Assignment, error) {
	return runView(ctx, s, id, "assignment", func(r *models.ScheduleRunResult) *models.Assignment {
		if r.Assignment == nil {
			return models.NewAssignment()
		}
		return r.Assignment
	})
}

// StudentSchedules returns every student timetable ordered by student id.
func (s *ScheduleRunService) StudentSchedules(ctx context.Context, id string) ([]models.StudentSchedule, error) {
	return runView(ctx, s, id, "students", func(r *models.ScheduleRunResult) []models.StudentSchedule {
		out := make([]models.StudentSchedule, 0, len(r.StudentSchedules))
		for _, schedule := range r.StudentSchedules {
			out = append(out, schedule)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
		return out
	})
}

// StudentSchedule returns the timetable of one student.
func (s *ScheduleRunService) StudentSchedule(ctx context.Context, id, studentID string) (*models.StudentSchedule, error) {
	schedules, err := s.StudentSchedules(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := sort.Search(len(schedules), func(i int) bool { return schedules[i].StudentID >= studentID })
	if idx == len(schedules) || schedules[idx].StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in schedule run")
	}
	return &schedules[idx], nil
}

// LecturerSchedules returns every lecturer timetable ordered by lecturer id.
func (s *ScheduleRunService) LecturerSchedules(ctx context.Context, id string) ([]models.LecturerSchedule, error) {
	return runView(ctx, s, id, "lecturers", func(r *models.ScheduleRunResult) []models.LecturerSchedule {
		out := make([]models.LecturerSchedule, 0, len(r.LecturerSchedules))
		for _, schedule := range r.LecturerSchedules {
			out = append(out, schedule)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].LecturerID < out[j].LecturerID })
		return out
	})
}

// Statistics returns the fulfilment report of a finished run.
func (s *ScheduleRunService) Statistics(ctx context.Context, id string) (models.Statistics, error) {
	return runView(ctx, s, id, "statistics", func(r *models.ScheduleRunResult) models.Statistics {
		return r.Statistics
	})
}

// Warnings returns the data-quality warnings raised by a finished run.
func (s *ScheduleRunService) Warnings(ctx context.Context, id string) ([]models.Warning, error) {
	return runView(ctx, s, id, "warnings", func(r *models.ScheduleRunResult) []models.Warning {
		if r.Warnings == nil {
			return []models.Warning{}
		}
		return r.Warnings
	})
}

// Export renders a view of a finished run and returns its signed download link.
func (s *ScheduleRunService) Export(ctx context.Context, id string, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exports are not configured")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	result, err := s.Result(ctx, id)
	if err != nil {
		return nil, err
	}
	exported, err := s.exporter.Generate(id, result, export.View(req.View), export.Format(req.Format))
	if err != nil {
		return nil, err
	}
	return &dto.ExportResponse{
		View:      string(exported.View),
		Format:    string(exported.Format),
		URL:       exported.URL,
		ExpiresAt: exported.ExpiresAt,
	}, nil
}

// Delete removes a run together with its cached views and exports. Runs that
// are executing cannot be deleted.
func (s *ScheduleRunService) Delete(ctx context.Context, id string) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if run.Status == models.RunStatusRunning {
		return appErrors.Clone(appErrors.ErrConflict, "schedule run is in progress")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule run")
	}
	s.cache.InvalidateRun(ctx, id)
	if s.exporter != nil {
		if err := s.exporter.DeleteRun(id); err != nil {
			s.logger.Warn("failed to delete run exports", zap.String("run_id", id), zap.Error(err))
		}
	}
	return nil
}

// RecoverPending requeues runs interrupted by a restart and replays queued runs.
func (s *ScheduleRunService) RecoverPending(ctx context.Context) int {
	if requeued, err := s.repo.RequeueInterrupted(ctx); err != nil {
		s.logger.Warn("failed to requeue interrupted schedule runs", zap.Error(err))
	} else if requeued > 0 {
		s.logger.Info("interrupted schedule runs requeued", zap.Int64("count", requeued))
	}

	pending, err := s.repo.ListQueued(ctx, 100)
	if err != nil {
		s.logger.Warn("failed to recover queued schedule runs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, id := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: id, Type: JobTypeScheduleRun}); err != nil {
			s.logger.Warn("failed to requeue pending schedule run", zap.String("run_id", id), zap.Error(err))
			continue
		}
		recovered++
	}
	return recovered
}

// ScheduleRunWorker bridges queue jobs to the RunExecutor.
type ScheduleRunWorker struct {
	repo     scheduleRunStore
	executor *RunExecutor
	logger   *zap.Logger
}

// NewScheduleRunWorker constructs a worker.
func NewScheduleRunWorker(repo scheduleRunStore, executor *RunExecutor, logger *zap.Logger) *ScheduleRunWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRunWorker{repo: repo, executor: executor, logger: logger}
}

// Handle processes a queue job. Retryable failures hand the run back to the
// QUEUED state so the retry can claim it.
func (w *ScheduleRunWorker) Handle(ctx context.Context, job jobs.Job) error {
	_, err := w.executor.Execute(ctx, job.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errRunClaimed):
		w.logger.Info("schedule run already claimed", zap.String("run_id", job.ID))
		return nil
	case jobs.IsPermanent(err):
		return err
	}
	if requeueErr := w.repo.Requeue(ctx, job.ID); requeueErr != nil && !errors.Is(requeueErr, sql.ErrNoRows) {
		w.logger.Warn("failed to requeue schedule run", zap.String("run_id", job.ID), zap.Error(requeueErr))
	}
	return err
}

// OnDead marks runs failed once the queue gives up on them.
func (w *ScheduleRunWorker) OnDead(ctx context.Context, job jobs.Job, err error) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	w.executor.MarkFailed(ctx, job.ID, err)
}

func asAppError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
