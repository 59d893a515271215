package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// PrioritizeCourses scores every course by weighted request volume and returns
// the courses ordered by descending score. Equal scores keep catalog order.
// Requests for unknown course codes are left out of the tallies and reported.
func PrioritizeCourses(courses []models.Course, students []models.Student) ([]models.CoursePriority, []models.Warning) {
	priorities := make([]models.CoursePriority, len(courses))
	index := make(map[string]int, len(courses))
	for i, course := range courses {
		priorities[i] = models.CoursePriority{CourseCode: course.Code}
		if _, dup := index[course.Code]; !dup {
			index[course.Code] = i
		}
	}

	var warnings []models.Warning
	for _, student := range students {
		for _, request := range student.Requests {
			i, ok := index[request.CourseCode]
			if !ok {
				warnings = append(warnings, models.Warning{
					Code:       models.WarningUnknownCourse,
					Message:    fmt.Sprintf("student %s requested unknown course %s", student.ID, request.CourseCode),
					CourseCode: request.CourseCode,
					StudentID:  student.ID,
				})
				continue
			}
			switch request.Type {
			case models.RequestRequired:
				priorities[i].Required++
			case models.RequestRequested:
				priorities[i].Requested++
			case models.RequestRecommended:
				priorities[i].Recommended++
			}
		}
	}

	for i := range priorities {
		p := &priorities[i]
		p.Score = models.RequestRequired.Weight()*p.Required +
			models.RequestRequested.Weight()*p.Requested +
			models.RequestRecommended.Weight()*p.Recommended
	}

	sort.SliceStable(priorities, func(i, j int) bool {
		return priorities[i].Score > priorities[j].Score
	})
	return priorities, warnings
}
