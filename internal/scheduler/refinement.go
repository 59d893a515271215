package scheduler

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// Refiner improves an assignment after the greedy placement phase. A refiner
// may mutate the assignment it receives and returns the assignment to keep.
//
// Each cycle selects an unresolved request, proposes a move, scores the delta
// against the objective, and either applies or rejects it. Implementations
// must terminate and must never push a section past its max capacity.
type Refiner interface {
	Name() string
	Refine(ctx context.Context, problem *Problem, assignment *models.Assignment) (*models.Assignment, models.RefinementReport, error)
}

// NoopRefiner keeps the greedy assignment and reports convergence.
type NoopRefiner struct{}

// Name implements Refiner.
func (NoopRefiner) Name() string { return string(RefinementNone) }

// Refine implements Refiner.
func (NoopRefiner) Refine(_ context.Context, _ *Problem, assignment *models.Assignment) (*models.Assignment, models.RefinementReport, error) {
	return assignment, models.RefinementReport{Strategy: string(RefinementNone), Converged: true}, nil
}

// AnnealingConfig tunes the simulated-annealing refiner.
type AnnealingConfig struct {
	MaxIterations        int
	InitialTemperature   float64
	CoolingRate          float64
	StudentClashPenalty  float64
	LecturerClashPenalty float64
	RoomClashPenalty     float64
}

// AnnealingRefiner is a simulated-annealing local search over seat, bump and
// relocate moves. The best assignment seen is returned.
type AnnealingRefiner struct {
	cfg    AnnealingConfig
	rng    *rand.Rand
	logger *zap.Logger
}

// NewAnnealingRefiner constructs the refiner. A nil rng is seeded with 1.
func NewAnnealingRefiner(cfg AnnealingConfig, rng *rand.Rand, logger *zap.Logger) *AnnealingRefiner {
	def := DefaultOptions()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.InitialTemperature <= 0 {
		cfg.InitialTemperature = def.InitialTemperature
	}
	if cfg.CoolingRate <= 0 || cfg.CoolingRate >= 1 {
		cfg.CoolingRate = def.CoolingRate
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnealingRefiner{cfg: cfg, rng: rng, logger: logger}
}

// Name implements Refiner.
func (r *AnnealingRefiner) Name() string { return string(RefinementAnnealing) }

// Refine implements Refiner.
func (r *AnnealingRefiner) Refine(ctx context.Context, problem *Problem, assignment *models.Assignment) (*models.Assignment, models.RefinementReport, error) {
	report := models.RefinementReport{Strategy: r.Name()}
	score := r.objective(problem, assignment)
	report.InitialObjective = score

	best := assignment.Clone()
	bestScore := score
	exhausted := make(map[requestKey]bool)
	temperature := r.cfg.InitialTemperature
	var stopErr error

	for report.Iterations < r.cfg.MaxIterations {
		if stopErr = ctx.Err(); stopErr != nil {
			break
		}

		// Seeking
		candidates := problem.unresolved(assignment, exhausted)
		if len(candidates) == 0 {
			report.Converged = true
			break
		}
		request := candidates[r.rng.Intn(len(candidates))]
		report.Iterations++

		moves := r.proposeMoves(problem, assignment, request)
		if len(moves) == 0 {
			exhausted[request.key()] = true
			report.Exhausted++
			temperature *= r.cfg.CoolingRate
			continue
		}

		// Evaluating
		chosen := moves[r.rng.Intn(len(moves))]
		chosen.apply()
		next := r.objective(problem, assignment)
		delta := next - score

		if r.accept(delta, temperature) {
			// Applying
			score = next
			report.Accepted++
			if score > bestScore {
				best = assignment.Clone()
				bestScore = score
			}
		} else {
			// Rejecting
			chosen.revert()
			report.Rejected++
		}
		temperature *= r.cfg.CoolingRate
	}

	if stopErr == nil && len(problem.unresolved(best, nil)) == 0 {
		report.Converged = true
	}
	report.FinalTemperature = temperature
	report.FinalObjective = bestScore
	r.logger.Debug("annealing refinement finished",
		zap.Int("iterations", report.Iterations),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Int("exhausted", report.Exhausted),
		zap.Float64("objective", bestScore),
		zap.Bool("interrupted", stopErr != nil),
	)
	return best, report, stopErr
}

// accept applies the annealing rule: improvements always pass, worsening moves
// pass with probability exp(delta/T) and neutral moves are rejected.
func (r *AnnealingRefiner) accept(delta, temperature float64) bool {
	if delta > 0 {
		return true
	}
	if delta == 0 || temperature <= 0 {
		return false
	}
	return r.rng.Float64() < math.Exp(delta/temperature)
}

func (r *AnnealingRefiner) objective(problem *Problem, assignment *models.Assignment) float64 {
	return problem.Objective(assignment, Penalties{
		Student:  r.cfg.StudentClashPenalty,
		Lecturer: r.cfg.LecturerClashPenalty,
		Room:     r.cfg.RoomClashPenalty,
	})
}

// --- Moves ---

type move struct {
	apply  func()
	revert func()
}

func (r *AnnealingRefiner) proposeMoves(problem *Problem, assignment *models.Assignment, request pendingRequest) []move {
	course, ok := assignment.Get(request.CourseCode)
	if !ok {
		return nil
	}
	var moves []move
	moves = append(moves, seatMoves(course, request)...)
	if m, ok := bumpMove(problem, course, request); ok {
		moves = append(moves, m)
	}
	moves = append(moves, relocateMoves(problem, course)...)
	return moves
}

// seatMoves enrol the student into any section with spare capacity.
func seatMoves(course *models.CourseAssignment, request pendingRequest) []move {
	var moves []move
	for _, section := range course.Sections {
		if !section.HasSpace() {
			continue
		}
		section := section
		moves = append(moves, move{
			apply: func() {
				section.Students = append(section.Students, request.StudentID)
			},
			revert: func() {
				section.Students = section.Students[:len(section.Students)-1]
			},
		})
	}
	return moves
}

// bumpMove replaces the weakest occupant of the course with the requesting
// student when the occupant's request weighs strictly less.
func bumpMove(problem *Problem, course *models.CourseAssignment, request pendingRequest) (move, bool) {
	var (
		target *models.Section
		slot   int
		lowest = request.Weight
	)
	for _, section := range course.Sections {
		for i, studentID := range section.Students {
			w := problem.weight(studentID, course.CourseCode)
			if w < lowest {
				lowest = w
				target = section
				slot = i
			}
		}
	}
	if target == nil {
		return move{}, false
	}
	displaced := target.Students[slot]
	return move{
		apply: func() {
			target.Students[slot] = request.StudentID
		},
		revert: func() {
			target.Students[slot] = displaced
		},
	}, true
}

// relocateMoves shift every section of the course to another compatible block.
func relocateMoves(problem *Problem, course *models.CourseAssignment) []move {
	if len(course.Sections) == 0 || problem.Matrix == nil {
		return nil
	}
	current := course.Sections[0].Block
	var moves []move
	for _, block := range problem.Matrix.Blocks() {
		if block == current || !problem.Matrix.Compatible(course.CourseCode, block) {
			continue
		}
		block := block
		previous := make([]models.Block, len(course.Sections))
		for i, section := range course.Sections {
			previous[i] = section.Block
		}
		moves = append(moves, move{
			apply: func() {
				for _, section := range course.Sections {
					section.Block = block
				}
			},
			revert: func() {
				for i, section := range course.Sections {
					section.Block = previous[i]
				}
			},
		})
	}
	return moves
}
