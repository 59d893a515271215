package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// BuildStudentSchedules derives every student's timetable from the assignment.
// Students sharing an id are merged into one schedule.
func BuildStudentSchedules(students []models.Student, assignment *models.Assignment) map[string]models.StudentSchedule {
	schedules := make(map[string]models.StudentSchedule, len(students))
	for _, student := range students {
		schedule, ok := schedules[student.ID]
		if !ok {
			schedule = models.StudentSchedule{
				StudentID:          student.ID,
				CollegeYear:        student.CollegeYear,
				AssignedCourses:    []models.AssignedCourse{},
				UnresolvedRequests: []models.UnresolvedRequest{},
			}
		}
		for _, request := range student.Requests {
			course, offered := assignment.Get(request.CourseCode)
			if !offered {
				schedule.UnresolvedRequests = append(schedule.UnresolvedRequests, unresolvedFor(request, models.ReasonCourseNotOffered))
				continue
			}
			section := course.SectionFor(student.ID)
			if section == nil {
				schedule.UnresolvedRequests = append(schedule.UnresolvedRequests, unresolvedFor(request, models.ReasonNoAvailableSpace))
				continue
			}
			title := course.Title
			if title == "" {
				title = request.CourseTitle
			}
			schedule.AssignedCourses = append(schedule.AssignedCourses, models.AssignedCourse{
				CourseCode:    request.CourseCode,
				Title:         title,
				Block:         section.Block,
				Room:          section.Room,
				Lecturer:      section.Lecturer,
				SectionNumber: section.SectionNumber,
				Type:          request.Type,
			})
		}
		schedules[student.ID] = schedule
	}
	return schedules
}

func unresolvedFor(request models.Request, reason string) models.UnresolvedRequest {
	return models.UnresolvedRequest{
		CourseCode: request.CourseCode,
		Title:      request.CourseTitle,
		Type:       request.Type,
		Reason:     reason,
	}
}

// BuildLecturerSchedules maps each lecturer's blocks to the section taught
// there. Every catalog lecturer gets a schedule, and lecturers that only appear
// on sections are added too. When two sections of one lecturer share a block
// the policy decides which entry stays and a warning records the collision.
func BuildLecturerSchedules(lecturers []models.Lecturer, assignment *models.Assignment, policy CollisionPolicy) (map[string]models.LecturerSchedule, []models.Warning) {
	schedules := make(map[string]models.LecturerSchedule, len(lecturers))
	for _, lecturer := range lecturers {
		if _, ok := schedules[lecturer.ID]; !ok {
			schedules[lecturer.ID] = models.LecturerSchedule{
				LecturerID: lecturer.ID,
				Blocks:     map[models.Block]models.LecturerBlockEntry{},
			}
		}
	}

	var warnings []models.Warning
	for _, course := range assignment.Courses() {
		for _, section := range course.Sections {
			if section.Lecturer == nil {
				continue
			}
			id := *section.Lecturer
			schedule, ok := schedules[id]
			if !ok {
				schedule = models.LecturerSchedule{LecturerID: id, Blocks: map[models.Block]models.LecturerBlockEntry{}}
				schedules[id] = schedule
			}
			entry := models.LecturerBlockEntry{
				CourseCode:    course.CourseCode,
				Title:         course.Title,
				Room:          section.Room,
				EnrolledCount: section.Enrolled(),
				SectionNumber: section.SectionNumber,
			}
			existing, taken := schedule.Blocks[section.Block]
			if taken {
				warnings = append(warnings, models.Warning{
					Code: models.WarningLecturerBlockCollision,
					Message: fmt.Sprintf("lecturer %s teaches %s section %d and %s section %d in block %s (%s)",
						id, existing.CourseCode, existing.SectionNumber, course.CourseCode, section.SectionNumber, section.Block, policy),
					CourseCode: course.CourseCode,
					LecturerID: id,
					Block:      section.Block,
				})
				if policy != CollisionLastWins {
					continue
				}
			}
			schedule.Blocks[section.Block] = entry
		}
	}
	return schedules, warnings
}

// BuildStatistics computes fulfilment figures over every request of every
// student. Rates are percentages with two decimals. Requests of an unknown type
// are counted under RequestOther, which only appears when such requests exist.
func BuildStatistics(students []models.Student, assignment *models.Assignment) models.Statistics {
	stats := models.Statistics{
		ByType:            make(map[models.RequestType]models.RequestTypeStats, len(models.RequestTypes)),
		CourseAssignments: make(map[string]int, assignment.Len()),
	}
	totals := make(map[models.RequestType][2]int, len(models.RequestTypes))

	for _, student := range students {
		for _, request := range student.Requests {
			resolved := false
			if course, ok := assignment.Get(request.CourseCode); ok {
				resolved = course.SectionFor(student.ID) != nil
			}
			kind := request.Type
			if !kind.Valid() {
				kind = models.RequestOther
			}
			stats.TotalRequests++
			counts := totals[kind]
			counts[0]++
			if resolved {
				stats.ResolvedRequests++
				counts[1]++
			}
			totals[kind] = counts
		}
	}

	stats.OverallResolutionRate = FormatRate(stats.ResolvedRequests, stats.TotalRequests)
	for _, kind := range models.RequestTypes {
		counts := totals[kind]
		stats.ByType[kind] = models.RequestTypeStats{
			Total:          counts[0],
			Resolved:       counts[1],
			ResolutionRate: FormatRate(counts[1], counts[0]),
		}
	}
	if other, ok := totals[models.RequestOther]; ok {
		stats.ByType[models.RequestOther] = models.RequestTypeStats{
			Total:          other[0],
			Resolved:       other[1],
			ResolutionRate: FormatRate(other[1], other[0]),
		}
	}
	for _, course := range assignment.Courses() {
		stats.CourseAssignments[course.CourseCode] = course.Enrolled()
	}
	return stats
}

// FormatRate renders resolved/total as a percentage string such as "66.67%".
// An empty total renders as "0.00%".
func FormatRate(resolved, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(resolved)/float64(total)*100)
}
