package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// PlacementResult reports which students a placement pass could not seat.
type PlacementResult struct {
	Placed   int
	Unplaced []string
}

type courseRequest struct {
	studentID string
	kind      models.RequestType
}

// collectRequests gathers every request for a course in student order.
func collectRequests(code string, students []models.Student) []courseRequest {
	var out []courseRequest
	for _, student := range students {
		for _, request := range student.Requests {
			if request.CourseCode == code {
				out = append(out, courseRequest{studentID: student.ID, kind: request.Type})
			}
		}
	}
	return out
}

// PlaceStudents enrols the course's requesters into its sections. Requests are
// processed by descending request-type weight, keeping catalog order on ties.
// Each student goes to the non-full section with the fewest enrolled students,
// first in declaration order on ties. Students already enrolled in the course
// are skipped and no section ever exceeds its max capacity.
func PlaceStudents(course *models.CourseAssignment, students []models.Student) PlacementResult {
	requests := collectRequests(course.CourseCode, students)
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].kind.Weight() > requests[j].kind.Weight()
	})

	var result PlacementResult
	for _, request := range requests {
		if course.SectionFor(request.studentID) != nil {
			continue
		}
		target := leastEnrolled(course.Sections)
		if target == nil {
			result.Unplaced = append(result.Unplaced, request.studentID)
			continue
		}
		target.Students = append(target.Students, request.studentID)
		result.Placed++
	}
	return result
}

func leastEnrolled(sections []*models.Section) *models.Section {
	var best *models.Section
	for _, section := range sections {
		if !section.HasSpace() {
			continue
		}
		if best == nil || section.Enrolled() < best.Enrolled() {
			best = section
		}
	}
	return best
}
