package scheduler

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/pkg/catalog"
)

// CheckCatalog fails fast when a required entity set is missing. Empty sets are
// valid; nil sets and an empty block list are not.
func CheckCatalog(c *models.Catalog) error {
	switch {
	case c == nil:
		return malformed("catalog")
	case len(c.Blocks) == 0:
		return malformed("blocks")
	case c.Courses == nil:
		return malformed("courses")
	case c.Lecturers == nil:
		return malformed("lecturers")
	case c.Rooms == nil:
		return malformed("rooms")
	case c.Students == nil:
		return malformed("students")
	}
	return nil
}

// ValidateCatalog checks the catalog structure and reports data-quality issues
// without scheduling anything.
func ValidateCatalog(c *models.Catalog, opts Options) (*models.ValidationReport, error) {
	if err := CheckCatalog(c); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	courses, warnings := prepareCourses(c.Courses, opts.DefaultSectionMax)
	_, demandWarnings := PrioritizeCourses(courses, c.Students)
	warnings = append(warnings, demandWarnings...)
	warnings = append(warnings, requestTypeWarnings(c.Students)...)
	oversubscribed := oversubscribedCourses(courses, c.Students)
	warnings = append(warnings, oversubscriptionWarnings(oversubscribed)...)

	report := &models.ValidationReport{
		Metadata:                     catalog.BuildMetadata(c),
		MissingCourses:               missingCourses(courses, c.Students),
		OversubscribedCourses:        oversubscribed,
		CoursesWithoutRooms:          []string{},
		CoursesWithoutLecturers:      []string{},
		CoursesWithMultipleLecturers: []models.MultiLecturerCourse{},
		Warnings:                     warnings,
	}
	for _, course := range courses {
		if len(course.AssignedRooms) == 0 {
			report.CoursesWithoutRooms = append(report.CoursesWithoutRooms, course.Code)
		}
		switch lecturers := lo.Uniq(course.LecturerIDs); {
		case len(lecturers) == 0:
			report.CoursesWithoutLecturers = append(report.CoursesWithoutLecturers, course.Code)
		case len(lecturers) > 1:
			report.CoursesWithMultipleLecturers = append(report.CoursesWithMultipleLecturers, models.MultiLecturerCourse{
				CourseCode:  course.Code,
				LecturerIDs: lecturers,
			})
		}
	}
	if report.Warnings == nil {
		report.Warnings = []models.Warning{}
	}
	return report, nil
}

// prepareCourses drops duplicate course codes (first wins), resolves missing
// capacity and records per-course data-quality warnings. The input is not
// modified.
func prepareCourses(courses []models.Course, defaultMax int) ([]models.Course, []models.Warning) {
	prepared := make([]models.Course, 0, len(courses))
	seen := make(map[string]bool, len(courses))
	var warnings []models.Warning

	for _, course := range courses {
		if seen[course.Code] {
			warnings = append(warnings, models.Warning{
				Code:       models.WarningDuplicateCourse,
				Message:    fmt.Sprintf("course %s is listed more than once; the first entry is used", course.Code),
				CourseCode: course.Code,
			})
			continue
		}
		seen[course.Code] = true

		if course.SectionSizes.Max <= 0 {
			resolved := course.SectionSizes.Target
			if resolved <= 0 {
				resolved = defaultMax
			}
			warnings = append(warnings, models.Warning{
				Code:       models.WarningMissingCapacity,
				Message:    fmt.Sprintf("course %s has no maximum section size; using %d", course.Code, resolved),
				CourseCode: course.Code,
			})
			course.SectionSizes.Max = resolved
		}

		for _, block := range lo.Intersect(course.AvailableBlocks, course.UnavailableBlocks) {
			warnings = append(warnings, models.Warning{
				Code:       models.WarningBlockContradiction,
				Message:    fmt.Sprintf("course %s lists block %s as both available and unavailable", course.Code, block),
				CourseCode: course.Code,
				Block:      block,
			})
		}

		if len(course.AssignedRooms) == 0 {
			warnings = append(warnings, models.Warning{
				Code:       models.WarningNoRoom,
				Message:    fmt.Sprintf("course %s has no assigned room", course.Code),
				CourseCode: course.Code,
			})
		}
		switch lecturers := lo.Uniq(course.LecturerIDs); {
		case len(lecturers) == 0:
			warnings = append(warnings, models.Warning{
				Code:       models.WarningNoLecturer,
				Message:    fmt.Sprintf("course %s has no assigned lecturer", course.Code),
				CourseCode: course.Code,
			})
		case len(lecturers) > 1:
			warnings = append(warnings, models.Warning{
				Code:       models.WarningMultipleLecturers,
				Message:    fmt.Sprintf("course %s has %d lecturers; sections use %s unless distributed", course.Code, len(lecturers), lecturers[0]),
				CourseCode: course.Code,
			})
		}

		prepared = append(prepared, course)
	}
	return prepared, warnings
}

func requestTypeWarnings(students []models.Student) []models.Warning {
	var warnings []models.Warning
	for _, student := range students {
		for _, request := range student.Requests {
			if request.Type.Valid() {
				continue
			}
			warnings = append(warnings, models.Warning{
				Code:       models.WarningUnknownRequestType,
				Message:    fmt.Sprintf("student %s requested %s with unknown type %q", student.ID, request.CourseCode, request.Type),
				CourseCode: request.CourseCode,
				StudentID:  student.ID,
			})
		}
	}
	return warnings
}

func missingCourses(courses []models.Course, students []models.Student) []string {
	known := lo.KeyBy(courses, func(c models.Course) string { return c.Code })
	missing := []string{}
	for _, student := range students {
		for _, request := range student.Requests {
			if _, ok := known[request.CourseCode]; ok || request.CourseCode == "" {
				continue
			}
			if !lo.Contains(missing, request.CourseCode) {
				missing = append(missing, request.CourseCode)
			}
		}
	}
	return missing
}

// oversubscribedCourses lists courses with more requests than seats, ordered by
// the request to capacity ratio, highest first.
func oversubscribedCourses(courses []models.Course, students []models.Student) []models.OversubscribedCourse {
	demand := make(map[string]int, len(courses))
	for _, student := range students {
		for _, request := range student.Requests {
			demand[request.CourseCode]++
		}
	}
	out := []models.OversubscribedCourse{}
	for _, course := range courses {
		capacity := course.SectionSizes.Max * course.SectionCount()
		requests := demand[course.Code]
		if capacity <= 0 || requests <= capacity {
			continue
		}
		out = append(out, models.OversubscribedCourse{
			CourseCode: course.Code,
			Title:      course.Title,
			Requests:   requests,
			Capacity:   capacity,
			Ratio:      float64(requests) / float64(capacity),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}

func oversubscriptionWarnings(courses []models.OversubscribedCourse) []models.Warning {
	return lo.Map(courses, func(c models.OversubscribedCourse, _ int) models.Warning {
		return models.Warning{
			Code:       models.WarningOversubscribed,
			Message:    fmt.Sprintf("course %s has %d requests for %d seats", c.CourseCode, c.Requests, c.Capacity),
			CourseCode: c.CourseCode,
		}
	})
}
