package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

func TestBuildStudentSchedulesReasons(t *testing.T) {
	courses := []models.Course{newCourse("C1", blocks("1A"), 1, withRooms("R1"), withLecturers("L1"))}
	students := []models.Student{
		newStudent("S1", request("C1", models.RequestRequired), request("C9", models.RequestRequested)),
		newStudent("S2", request("C1", models.RequestRecommended)),
	}
	_, assignment := refinementFixture(courses, map[string]models.Block{"C1": "1A"}, map[string][]string{"C1": {"S1"}}, students)

	schedules := BuildStudentSchedules(students, assignment)

	require.Len(t, schedules, 2)
	s1 := schedules["S1"]
	require.Len(t, s1.AssignedCourses, 1)
	assert.Equal(t, models.AssignedCourse{
		CourseCode:    "C1",
		Title:         "Course C1",
		Block:         "1A",
		Room:          strPtr("R1"),
		Lecturer:      strPtr("L1"),
		SectionNumber: 1,
		Type:          models.RequestRequired,
	}, s1.AssignedCourses[0])
	require.Len(t, s1.UnresolvedRequests, 1)
	assert.Equal(t, models.ReasonCourseNotOffered, s1.UnresolvedRequests[0].Reason)
	assert.Equal(t, "C9", s1.UnresolvedRequests[0].CourseCode)

	s2 := schedules["S2"]
	assert.Empty(t, s2.AssignedCourses)
	require.Len(t, s2.UnresolvedRequests, 1)
	assert.Equal(t, models.ReasonNoAvailableSpace, s2.UnresolvedRequests[0].Reason)
	assert.Equal(t, models.RequestRecommended, s2.UnresolvedRequests[0].Type)
}

func TestBuildLecturerSchedulesCollisionPolicies(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("2A"), 3, withLecturers("L1"), withRooms("R1")),
		newCourse("B", blocks("2A"), 3, withLecturers("L1"), withRooms("R2")),
	}
	_, assignment := refinementFixture(courses,
		map[string]models.Block{"A": "2A", "B": "2A"},
		map[string][]string{"A": {"S1", "S2"}, "B": {"S3"}},
		nil,
	)
	lecturers := []models.Lecturer{{ID: "L1"}, {ID: "L2"}}

	first, warnings := BuildLecturerSchedules(lecturers, assignment, CollisionFirstWins)
	require.Len(t, warnings, 1)
	assert.Equal(t, models.WarningLecturerBlockCollision, warnings[0].Code)
	assert.Equal(t, "L1", warnings[0].LecturerID)
	assert.Equal(t, models.Block("2A"), warnings[0].Block)
	assert.Equal(t, models.LecturerBlockEntry{CourseCode: "A", Title: "Course A", Room: strPtr("R1"), EnrolledCount: 2, SectionNumber: 1}, first["L1"].Blocks["2A"])
	assert.Empty(t, first["L2"].Blocks)

	last, warnings := BuildLecturerSchedules(lecturers, assignment, CollisionLastWins)
	require.Len(t, warnings, 1)
	assert.Equal(t, "B", last["L1"].Blocks["2A"].CourseCode)
	assert.Equal(t, 1, last["L1"].Blocks["2A"].EnrolledCount)
}

func TestBuildLecturerSchedulesAddsUnlistedLecturers(t *testing.T) {
	courses := []models.Course{newCourse("A", blocks("3"), 3, withLecturers("L9"))}
	_, assignment := refinementFixture(courses, map[string]models.Block{"A": "3"}, nil, nil)

	schedules, warnings := BuildLecturerSchedules([]models.Lecturer{}, assignment, CollisionFirstWins)

	assert.Empty(t, warnings)
	require.Contains(t, schedules, "L9")
	assert.Equal(t, "A", schedules["L9"].Blocks["3"].CourseCode)
}

func TestBuildStatistics(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1A"), 1),
		newCourse("B", blocks("1B"), 5),
	}
	students := []models.Student{
		newStudent("S1", request("A", models.RequestRequired), request("B", models.RequestRequested)),
		newStudent("S2", request("A", models.RequestRequired), request("Z", models.RequestRecommended)),
	}
	_, assignment := refinementFixture(courses,
		map[string]models.Block{"A": "1A", "B": "1B"},
		map[string][]string{"A": {"S1"}, "B": {"S1"}},
		students,
	)

	stats := BuildStatistics(students, assignment)

	assert.Equal(t, 4, stats.TotalRequests)
	assert.Equal(t, 2, stats.ResolvedRequests)
	assert.Equal(t, "50.00%", stats.OverallResolutionRate)
	assert.Equal(t, models.RequestTypeStats{Total: 2, Resolved: 1, ResolutionRate: "50.00%"}, stats.ByType[models.RequestRequired])
	assert.Equal(t, models.RequestTypeStats{Total: 1, Resolved: 1, ResolutionRate: "100.00%"}, stats.ByType[models.RequestRequested])
	assert.Equal(t, models.RequestTypeStats{Total: 1, Resolved: 0, ResolutionRate: "0.00%"}, stats.ByType[models.RequestRecommended])
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, stats.CourseAssignments)
}

func TestBuildStatisticsBucketsUnknownRequestTypes(t *testing.T) {
	courses := []models.Course{newCourse("A", blocks("1A"), 5)}
	students := []models.Student{
		newStudent("S1", request("A", models.RequestRequired), request("A", models.RequestType("Elective"))),
		newStudent("S2", request("A", models.RequestType(""))),
	}
	_, assignment := refinementFixture(courses,
		map[string]models.Block{"A": "1A"},
		map[string][]string{"A": {"S1"}},
		students,
	)

	stats := BuildStatistics(students, assignment)

	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.ResolvedRequests)
	assert.Equal(t, models.RequestTypeStats{Total: 2, Resolved: 1, ResolutionRate: "50.00%"}, stats.ByType[models.RequestOther])
	total := 0
	for _, bucket := range stats.ByType {
		total += bucket.Total
	}
	assert.Equal(t, stats.TotalRequests, total)
}

func TestBuildStatisticsOmitsOtherBucketWhenAllTypesKnown(t *testing.T) {
	students := []models.Student{newStudent("S1", request("A", models.RequestRequired))}

	stats := BuildStatistics(students, models.NewAssignment())

	assert.NotContains(t, stats.ByType, models.RequestOther)
	assert.Len(t, stats.ByType, len(models.RequestTypes))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "66.67%", FormatRate(2, 3))
	assert.Equal(t, "100.00%", FormatRate(4, 4))
	assert.Equal(t, "0.00%", FormatRate(0, 0))
}

func strPtr(v string) *string {
	return &v
}
