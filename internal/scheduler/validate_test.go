package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

func TestCheckCatalogNamesMissingSet(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *models.Catalog)
		missing string
	}{
		{name: "blocks", mutate: func(c *models.Catalog) { c.Blocks = nil }, missing: "blocks"},
		{name: "courses", mutate: func(c *models.Catalog) { c.Courses = nil }, missing: "courses"},
		{name: "lecturers", mutate: func(c *models.Catalog) { c.Lecturers = nil }, missing: "lecturers"},
		{name: "rooms", mutate: func(c *models.Catalog) { c.Rooms = nil }, missing: "rooms"},
		{name: "students", mutate: func(c *models.Catalog) { c.Students = nil }, missing: "students"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCatalog([]models.Course{}, []models.Student{})
			tc.mutate(c)

			err := CheckCatalog(c)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedCatalog))
			assert.Contains(t, err.Error(), tc.missing)
		})
	}

	assert.NoError(t, CheckCatalog(newCatalog([]models.Course{}, []models.Student{})))
	assert.ErrorIs(t, CheckCatalog(nil), ErrMalformedCatalog)
}

func TestValidateCatalogReport(t *testing.T) {
	courses := []models.Course{
		newCourse("A", blocks("1A"), 1, withRooms("R1"), withLecturers("L1", "L2")),
		newCourse("B", blocks("1A", "1B"), 2, withSections(1)),
		newCourse("C", blocks("2A"), 0, withRooms("R2"), withLecturers("L3")),
		newCourse("A", blocks("4B"), 9),
	}
	courses[1].UnavailableBlocks = blocks("1B")
	students := []models.Student{
		newStudent("S1", request("A", models.RequestRequired), request("B", models.RequestRequired), request("X", models.RequestRequested)),
		newStudent("S2", request("A", models.RequestRequired), request("B", models.RequestRequired), request("X", models.RequestRequested)),
		newStudent("S3", request("A", "Elective"), request("B", models.RequestRequired)),
	}

	report, err := ValidateCatalog(newCatalog(courses, students), DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, report.MissingCourses)
	require.Len(t, report.OversubscribedCourses, 2)
	assert.Equal(t, "A", report.OversubscribedCourses[0].CourseCode)
	assert.Equal(t, 3.0, report.OversubscribedCourses[0].Ratio)
	assert.Equal(t, "B", report.OversubscribedCourses[1].CourseCode)
	assert.Equal(t, 1.5, report.OversubscribedCourses[1].Ratio)
	assert.Equal(t, []string{"B"}, report.CoursesWithoutRooms)
	assert.Equal(t, []string{"B"}, report.CoursesWithoutLecturers)
	require.Len(t, report.CoursesWithMultipleLecturers, 1)
	assert.Equal(t, []string{"L1", "L2"}, report.CoursesWithMultipleLecturers[0].LecturerIDs)
	assert.Equal(t, 3, report.Metadata.TotalStudents)
	assert.Equal(t, 8, report.Metadata.TotalRequests)

	codes := map[models.WarningCode]int{}
	for _, w := range report.Warnings {
		codes[w.Code]++
	}
	assert.Equal(t, 1, codes[models.WarningDuplicateCourse])
	assert.Equal(t, 1, codes[models.WarningMissingCapacity])
	assert.Equal(t, 1, codes[models.WarningBlockContradiction])
	assert.Equal(t, 2, codes[models.WarningUnknownCourse])
	assert.Equal(t, 1, codes[models.WarningUnknownRequestType])
	assert.Equal(t, 2, codes[models.WarningOversubscribed])
	assert.Equal(t, 1, codes[models.WarningMultipleLecturers])
}

func TestValidateCatalogRejectsMalformed(t *testing.T) {
	c := newCatalog([]models.Course{}, nil)

	report, err := ValidateCatalog(c, DefaultOptions())

	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrMalformedCatalog)
}
