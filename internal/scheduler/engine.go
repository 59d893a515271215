package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// Result is the outcome of an engine run.
type Result struct {
	Assignment        *models.Assignment
	StudentSchedules  map[string]models.StudentSchedule
	LecturerSchedules map[string]models.LecturerSchedule
	Statistics        models.Statistics
	Priorities        []models.CoursePriority
	Matrix            *ConstraintMatrix
	Warnings          []models.Warning
	Refinement        models.RefinementReport
	Seed              int64
	Duration          time.Duration
}

// Persisted converts the result into its stored representation.
func (r *Result) Persisted() models.ScheduleRunResult {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []models.Warning{}
	}
	var blocks []models.Block
	if r.Matrix != nil {
		blocks = r.Matrix.Blocks()
	}
	return models.ScheduleRunResult{
		Blocks:            blocks,
		Assignment:        r.Assignment,
		StudentSchedules:  r.StudentSchedules,
		LecturerSchedules: r.LecturerSchedules,
		Statistics:        r.Statistics,
		Warnings:          warnings,
		Priorities:        r.Priorities,
		Refinement:        r.Refinement,
		Seed:              r.Seed,
		DurationMs:        r.Duration.Milliseconds(),
	}
}

// Engine runs the scheduling pipeline. An Engine keeps no state between runs
// and is safe to share across goroutines.
type Engine struct {
	opts    Options
	logger  *zap.Logger
	refiner func(rng *rand.Rand) Refiner
}

// NewEngine constructs an engine. Unset options fall back to DefaultOptions.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts.withDefaults(), logger: logger}
}

// WithRefiner replaces the configured refinement stage. The factory receives
// the run's random source.
func (e *Engine) WithRefiner(factory func(rng *rand.Rand) Refiner) *Engine {
	clone := *e
	clone.refiner = factory
	return &clone
}

// Options returns the effective engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run schedules the catalog. Structural malformation fails the run; every
// data-quality issue is reported as a warning on the result.
func (e *Engine) Run(ctx context.Context, c *models.Catalog) (*Result, error) {
	if err := CheckCatalog(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	opts := e.opts
	rng := rand.New(rand.NewSource(opts.Seed))
	log := e.logger.With(zap.Int64("seed", opts.Seed))

	courses, warnings := prepareCourses(c.Courses, opts.DefaultSectionMax)
	warnings = append(warnings, requestTypeWarnings(c.Students)...)

	// --- Phase 1: demand and constraints ---
	priorities, demandWarnings := PrioritizeCourses(courses, c.Students)
	warnings = append(warnings, demandWarnings...)
	matrix := NewConstraintMatrix(courses, c.Blocks)
	log.Debug("constraint matrix initialised", zap.Int("courses", len(courses)), zap.Int("blocks", len(matrix.Blocks())))

	byCode := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		byCode[course.Code] = course
	}

	var tieBreaker TieBreaker = FirstTieBreaker{}
	if opts.TieBreak == TieBreakRandom {
		tieBreaker = NewRandomTieBreaker(rng)
	}

	// --- Phase 2: greedy placement ---
	assignment := models.NewAssignment()
	for _, priority := range priorities {
		course := byCode[priority.CourseCode]
		selection := SelectBlock(matrix, course.Code, tieBreaker, opts.PreferConflictFree)
		if selection.Degraded {
			warnings = append(warnings, models.Warning{
				Code:       models.WarningDegradedPlacement,
				Message:    fmt.Sprintf("course %s has no available block; placed at %s", course.Code, selection.Block),
				CourseCode: course.Code,
				Block:      selection.Block,
			})
		}
		sections := BuildSections(course, selection.Block, opts.Distribution)
		placement := PlaceStudents(sections, c.Students)
		assignment.Put(sections)
		matrix.RecordPlacement(course.Code, selection.Block)
		log.Debug("course placed",
			zap.String("course", course.Code),
			zap.String("block", string(selection.Block)),
			zap.Int("score", priority.Score),
			zap.Int("placed", placement.Placed),
			zap.Int("unplaced", len(placement.Unplaced)),
		)
	}

	// --- Phase 3: refinement ---
	problem := NewProblem(c.Students, matrix)
	unresolvedBefore := problem.UnresolvedCount(assignment)
	refined, report, err := e.buildRefiner(rng).Refine(ctx, problem, assignment)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && refined != nil:
		// An exhausted budget keeps the best assignment found so far.
		report.Converged = false
		report.Interrupted = true
		log.Warn("refinement stopped by deadline", zap.Int("iterations", report.Iterations))
	default:
		return nil, fmt.Errorf("refine assignment: %w", err)
	}
	report.UnresolvedBefore = unresolvedBefore
	report.UnresolvedAfter = problem.UnresolvedCount(refined)

	// --- Phase 4: views ---
	lecturerSchedules, collisions := BuildLecturerSchedules(c.Lecturers, refined, opts.Collision)
	warnings = append(warnings, collisions...)
	result := &Result{
		Assignment:        refined,
		StudentSchedules:  BuildStudentSchedules(c.Students, refined),
		LecturerSchedules: lecturerSchedules,
		Statistics:        BuildStatistics(c.Students, refined),
		Priorities:        priorities,
		Matrix:            matrix,
		Warnings:          warnings,
		Refinement:        report,
		Seed:              opts.Seed,
		Duration:          time.Since(start),
	}

	log.Info("schedule generated",
		zap.Int("courses", refined.Len()),
		zap.Int("requests", result.Statistics.TotalRequests),
		zap.Int("resolved", result.Statistics.ResolvedRequests),
		zap.String("resolution_rate", result.Statistics.OverallResolutionRate),
		zap.String("refinement", report.Strategy),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (e *Engine) buildRefiner(rng *rand.Rand) Refiner {
	if e.refiner != nil {
		return e.refiner(rng)
	}
	if e.opts.Refinement == RefinementNone {
		return NoopRefiner{}
	}
	return NewAnnealingRefiner(AnnealingConfig{
		MaxIterations:        e.opts.MaxIterations,
		InitialTemperature:   e.opts.InitialTemperature,
		CoolingRate:          e.opts.CoolingRate,
		StudentClashPenalty:  e.opts.StudentClashPenalty,
		LecturerClashPenalty: e.opts.LecturerClashPenalty,
		RoomClashPenalty:     e.opts.RoomClashPenalty,
	}, rng, e.logger)
}
