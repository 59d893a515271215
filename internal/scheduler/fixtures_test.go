package scheduler

import (
	"fmt"
	"math/rand"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

func blocks(values ...string) []models.Block {
	out := make([]models.Block, len(values))
	for i, v := range values {
		out[i] = models.Block(v)
	}
	return out
}

type courseOpt func(*models.Course)

func withLecturers(ids ...string) courseOpt {
	return func(c *models.Course) { c.LecturerIDs = ids }
}

func withRooms(rooms ...string) courseOpt {
	return func(c *models.Course) { c.AssignedRooms = rooms }
}

func withSections(n int) courseOpt {
	return func(c *models.Course) { c.NumberOfSections = n }
}

func newCourse(code string, available []models.Block, max int, opts ...courseOpt) models.Course {
	c := models.Course{
		Code:             code,
		Title:            "Course " + code,
		AvailableBlocks:  available,
		SectionSizes:     models.SectionSizes{Min: 1, Target: max, Max: max},
		NumberOfSections: 1,
		AssignedRooms:    []string{},
		LecturerIDs:      []string{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func request(code string, kind models.RequestType) models.Request {
	return models.Request{CourseCode: code, CourseTitle: "Course " + code, Type: kind}
}

func newStudent(id string, requests ...models.Request) models.Student {
	return models.Student{ID: id, CollegeYear: "1", Requests: requests}
}

func newCatalog(courses []models.Course, students []models.Student) *models.Catalog {
	lecturers := []models.Lecturer{}
	seen := map[string]bool{}
	for _, course := range courses {
		for _, id := range course.LecturerIDs {
			if !seen[id] {
				seen[id] = true
				lecturers = append(lecturers, models.Lecturer{ID: id, CourseCodes: []string{course.Code}})
			}
		}
	}
	return &models.Catalog{
		Blocks:    append([]models.Block(nil), models.DefaultBlocks...),
		Courses:   courses,
		Lecturers: lecturers,
		Rooms:     []models.Room{},
		Students:  students,
	}
}

// randomCatalog builds a reproducible catalog with contention for seats,
// lecturers and rooms.
func randomCatalog(seed int64, courseCount, studentCount int) *models.Catalog {
	rng := rand.New(rand.NewSource(seed))
	all := models.DefaultBlocks
	types := models.RequestTypes

	courses := make([]models.Course, courseCount)
	for i := range courses {
		var available []models.Block
		for _, b := range all {
			if rng.Intn(3) == 0 {
				available = append(available, b)
			}
		}
		courses[i] = newCourse(fmt.Sprintf("C%02d", i), available, 1+rng.Intn(4),
			withSections(rng.Intn(3)),
			withLecturers(fmt.Sprintf("L%d", rng.Intn(4))),
			withRooms(fmt.Sprintf("R%d", rng.Intn(3))),
		)
	}

	students := make([]models.Student, studentCount)
	for i := range students {
		var requests []models.Request
		for j := 0; j < 1+rng.Intn(4); j++ {
			code := fmt.Sprintf("C%02d", rng.Intn(courseCount+1))
			requests = append(requests, request(code, types[rng.Intn(len(types))]))
		}
		students[i] = newStudent(fmt.Sprintf("S%03d", i), requests...)
	}
	return newCatalog(courses, students)
}
