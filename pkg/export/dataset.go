// Package export renders schedule views as CSV or PDF tables.
package export

import (
	"sort"
	"strconv"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// View names an exportable schedule view.
type View string

const (
	ViewStudents   View = "students"
	ViewLecturers  View = "lecturers"
	ViewAssignment View = "assignment"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	switch v {
	case ViewStudents, ViewLecturers, ViewAssignment:
		return true
	}
	return false
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

const (
	colStudent  = "Student"
	colYear     = "Year"
	colLecturer = "Lecturer"
	colCourse   = "Course"
	colTitle    = "Title"
	colBlock    = "Block"
	colRoom     = "Room"
	colSection  = "Section"
	colType     = "Type"
	colStatus   = "Status"
	colEnrolled = "Enrolled"
	colCapacity = "Capacity"
)

// StudentDataset lists every assigned course and unresolved request per student,
// ordered by student id.
func StudentDataset(schedules map[string]models.StudentSchedule) Dataset {
	data := Dataset{
		Title:   "Student timetables",
		Headers: []string{colStudent, colYear, colCourse, colTitle, colBlock, colRoom, colLecturer, colSection, colType, colStatus},
	}
	for _, id := range sortedKeys(schedules) {
		schedule := schedules[id]
		for _, course := range schedule.AssignedCourses {
			data.Rows = append(data.Rows, map[string]string{
				colStudent:  schedule.StudentID,
				colYear:     schedule.CollegeYear,
				colCourse:   course.CourseCode,
				colTitle:    course.Title,
				colBlock:    string(course.Block),
				colRoom:     deref(course.Room),
				colLecturer: deref(course.Lecturer),
				colSection:  strconv.Itoa(course.SectionNumber),
				colType:     string(course.Type),
				colStatus:   "Assigned",
			})
		}
		for _, request := range schedule.UnresolvedRequests {
			data.Rows = append(data.Rows, map[string]string{
				colStudent: schedule.StudentID,
				colYear:    schedule.CollegeYear,
				colCourse:  request.CourseCode,
				colTitle:   request.Title,
				colType:    string(request.Type),
				colStatus:  request.Reason,
			})
		}
	}
	return data
}

// LecturerDataset lists the teaching entries of each lecturer in block order.
func LecturerDataset(schedules map[string]models.LecturerSchedule, blocks []models.Block) Dataset {
	data := Dataset{
		Title:   "Lecturer timetables",
		Headers: []string{colLecturer, colBlock, colCourse, colTitle, colRoom, colSection, colEnrolled},
	}
	for _, id := range sortedKeys(schedules) {
		schedule := schedules[id]
		for _, block := range orderedBlocks(schedule.Blocks, blocks) {
			entry := schedule.Blocks[block]
			data.Rows = append(data.Rows, map[string]string{
				colLecturer: schedule.LecturerID,
				colBlock:    string(block),
				colCourse:   entry.CourseCode,
				colTitle:    entry.Title,
				colRoom:     deref(entry.Room),
				colSection:  strconv.Itoa(entry.SectionNumber),
				colEnrolled: strconv.Itoa(entry.EnrolledCount),
			})
		}
	}
	return data
}

// AssignmentDataset lists every section of the assignment in placement order.
func AssignmentDataset(assignment *models.Assignment) Dataset {
	data := Dataset{
		Title:   "Course assignments",
		Headers: []string{colCourse, colTitle, colSection, colBlock, colRoom, colLecturer, colEnrolled, colCapacity},
	}
	if assignment == nil {
		return data
	}
	for _, course := range assignment.Courses() {
		for _, section := range course.Sections {
			data.Rows = append(data.Rows, map[string]string{
				colCourse:   course.CourseCode,
				colTitle:    course.Title,
				colSection:  strconv.Itoa(section.SectionNumber),
				colBlock:    string(section.Block),
				colRoom:     deref(section.Room),
				colLecturer: deref(section.Lecturer),
				colEnrolled: strconv.Itoa(section.Enrolled()),
				colCapacity: strconv.Itoa(section.Capacity.Max),
			})
		}
	}
	return data
}

// orderedBlocks returns the blocks present in entries, following the catalog
// order first and then any extra blocks alphabetically.
func orderedBlocks(entries map[models.Block]models.LecturerBlockEntry, order []models.Block) []models.Block {
	result := make([]models.Block, 0, len(entries))
	seen := make(map[models.Block]bool, len(entries))
	for _, block := range order {
		if _, ok := entries[block]; ok && !seen[block] {
			result = append(result, block)
			seen[block] = true
		}
	}
	var extra []models.Block
	for block := range entries {
		if !seen[block] {
			extra = append(extra, block)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(result, extra...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
