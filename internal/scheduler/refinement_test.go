package scheduler

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// refinementFixture places the given courses at fixed blocks with fixed rosters.
func refinementFixture(courses []models.Course, placed map[string]models.Block, rosters map[string][]string, students []models.Student) (*Problem, *models.Assignment) {
	matrix := NewConstraintMatrix(courses, models.DefaultBlocks)
	assignment := models.NewAssignment()
	for _, course := range courses {
		built := BuildSections(course, placed[course.Code], DistributionShared)
		built.Sections[0].Students = append(built.Sections[0].Students, rosters[course.Code]...)
		assignment.Put(built)
	}
	return NewProblem(students, matrix), assignment
}

func newTestAnnealer(maxIterations int) *AnnealingRefiner {
	return NewAnnealingRefiner(AnnealingConfig{
		MaxIterations:       maxIterations,
		InitialTemperature:  100,
		CoolingRate:         0.95,
		StudentClashPenalty: 2,
	}, rand.New(rand.NewSource(3)), nil)
}

func TestNoopRefinerKeepsAssignment(t *testing.T) {
	problem, assignment := refinementFixture(
		[]models.Course{newCourse("A", blocks("1A"), 1)},
		map[string]models.Block{"A": "1A"},
		nil,
		[]models.Student{newStudent("S1", request("A", models.RequestRequired))},
	)

	refined, report, err := NoopRefiner{}.Refine(context.Background(), problem, assignment)

	require.NoError(t, err)
	assert.Same(t, assignment, refined)
	assert.True(t, report.Converged)
	assert.Equal(t, "none", report.Strategy)
}

func TestAnnealingSeatsStudentWhenSpaceExists(t *testing.T) {
	problem, assignment := refinementFixture(
		[]models.Course{newCourse("A", blocks("1A"), 2)},
		map[string]models.Block{"A": "1A"},
		nil,
		[]models.Student{newStudent("S1", request("A", models.RequestRequired))},
	)

	refined, report, err := newTestAnnealer(100).Refine(context.Background(), problem, assignment)

	require.NoError(t, err)
	course, _ := refined.Get("A")
	assert.Equal(t, []string{"S1"}, course.Sections[0].Students)
	assert.Equal(t, 1, report.Accepted)
	assert.True(t, report.Converged)
	assert.Equal(t, 3.0, report.FinalObjective)
}

func TestAnnealingBumpsWeakerOccupant(t *testing.T) {
	students := []models.Student{
		newStudent("S1", request("A", models.RequestRequired)),
		newStudent("S2", request("A", models.RequestRecommended)),
	}
	problem, assignment := refinementFixture(
		[]models.Course{newCourse("A", blocks("1A"), 1)},
		map[string]models.Block{"A": "1A"},
		map[string][]string{"A": {"S2"}},
		students,
	)

	refined, report, err := newTestAnnealer(100).Refine(context.Background(), problem, assignment)

	require.NoError(t, err)
	course, _ := refined.Get("A")
	assert.Equal(t, []string{"S1"}, course.Sections[0].Students)
	assert.Equal(t, 1.0, report.InitialObjective)
	assert.Equal(t, 3.0, report.FinalObjective)
	assert.Equal(t, 1, report.Exhausted)
	assert.True(t, report.Converged)
}

func TestAnnealingRelocatesToRemoveStudentClash(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1A"), 1),
		newCourse("B", blocks("1A", "1B"), 1),
	}
	students := []models.Student{
		newStudent("S1", request("A", models.RequestRequired), request("B", models.RequestRequired)),
		newStudent("S2", request("B", models.RequestRecommended)),
	}
	problem, assignment := refinementFixture(courses,
		map[string]models.Block{"A": "1A", "B": "1A"},
		map[string][]string{"A": {"S1"}, "B": {"S1"}},
		students,
	)

	assert.Equal(t, 4.0, problem.Objective(assignment, Penalties{Student: 2}))

	refined, report, err := newTestAnnealer(20).Refine(context.Background(), problem, assignment)

	require.NoError(t, err)
	course, _ := refined.Get("B")
	assert.Equal(t, models.Block("1B"), course.Sections[0].Block)
	assert.Equal(t, 6.0, report.FinalObjective)
	assert.Equal(t, 20, report.Iterations)
	assert.False(t, report.Converged)
	assert.Equal(t, report.Iterations, report.Accepted+report.Rejected+report.Exhausted)
}

func TestAnnealingHonoursCancellation(t *testing.T) {
	problem, assignment := refinementFixture(
		[]models.Course{newCourse("A", blocks("1A"), 2)},
		map[string]models.Block{"A": "1A"},
		nil,
		[]models.Student{newStudent("S1", request("A", models.RequestRequired))},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, report, err := newTestAnnealer(100).Refine(ctx, problem, assignment)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Iterations)
}

func TestAnnealingAcceptRule(t *testing.T) {
	refiner := newTestAnnealer(1)

	assert.True(t, refiner.accept(1, 10))
	assert.False(t, refiner.accept(0, 10))
	assert.False(t, refiner.accept(-1, 0))

	accepted := 0
	for i := 0; i < 1000; i++ {
		if refiner.accept(-1000, 1) {
			accepted++
		}
	}
	assert.Zero(t, accepted)
}

func TestObjectiveCountsLecturerAndRoomClashes(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1A"), 2, withLecturers("L1"), withRooms("R1")),
		newCourse("B", blocks("1A"), 2, withLecturers("L1"), withRooms("R1")),
	}
	problem, assignment := refinementFixture(courses,
		map[string]models.Block{"A": "1A", "B": "1A"},
		map[string][]string{"A": {"S1"}},
		[]models.Student{newStudent("S1", request("A", models.RequestRequested))},
	)

	score := problem.Objective(assignment, Penalties{Student: 1, Lecturer: 3, Room: 5})

	assert.Equal(t, 2.0-3.0-5.0, score)
	assert.Equal(t, 0, problem.UnresolvedCount(assignment))
}
