package scheduler

import "github.com/noah-isme/sma-block-scheduler/internal/models"

// Problem is the read-only context of a run shared with the refinement stage.
type Problem struct {
	Students []models.Student
	Matrix   *ConstraintMatrix

	weights map[requestKey]int
}

// NewProblem indexes request weights per (student, course). When a student
// requests the same course more than once the strongest request counts.
func NewProblem(students []models.Student, matrix *ConstraintMatrix) *Problem {
	p := &Problem{Students: students, Matrix: matrix, weights: make(map[requestKey]int)}
	for _, student := range students {
		for _, request := range student.Requests {
			key := requestKey{studentID: student.ID, courseCode: request.CourseCode}
			if w := request.Type.Weight(); w >= p.weights[key] {
				p.weights[key] = w
			}
		}
	}
	return p
}

type requestKey struct {
	studentID  string
	courseCode string
}

// pendingRequest is an unresolved (student, course) pair with its weight.
type pendingRequest struct {
	StudentID  string
	CourseCode string
	Weight     int
}

func (r pendingRequest) key() requestKey {
	return requestKey{studentID: r.StudentID, courseCode: r.CourseCode}
}

func (p *Problem) weight(studentID, courseCode string) int {
	return p.weights[requestKey{studentID: studentID, courseCode: courseCode}]
}

// unresolved lists the (student, course) pairs whose course is offered but
// which hold no seat, in catalog order. Pairs in skip are left out.
func (p *Problem) unresolved(assignment *models.Assignment, skip map[requestKey]bool) []pendingRequest {
	var out []pendingRequest
	seen := make(map[requestKey]bool)
	for _, student := range p.Students {
		for _, request := range student.Requests {
			key := requestKey{studentID: student.ID, courseCode: request.CourseCode}
			if seen[key] || skip[key] {
				continue
			}
			seen[key] = true
			course, ok := assignment.Get(request.CourseCode)
			if !ok || course.SectionFor(student.ID) != nil {
				continue
			}
			out = append(out, pendingRequest{StudentID: student.ID, CourseCode: request.CourseCode, Weight: p.weights[key]})
		}
	}
	return out
}

// UnresolvedCount returns the number of requests without a seat, including
// requests for courses that were never offered.
func (p *Problem) UnresolvedCount(assignment *models.Assignment) int {
	count := 0
	for _, student := range p.Students {
		for _, request := range student.Requests {
			course, ok := assignment.Get(request.CourseCode)
			if !ok || course.SectionFor(student.ID) == nil {
				count++
			}
		}
	}
	return count
}

// Penalties weigh block clashes in the objective.
type Penalties struct {
	Student  float64
	Lecturer float64
	Room     float64
}

// Objective scores an assignment: the summed weight of seated (student, course)
// pairs minus weighted clashes. A clash is every distinct course beyond the
// first that a student, lecturer or room holds in the same block.
func (p *Problem) Objective(assignment *models.Assignment, penalties Penalties) float64 {
	var resolved float64
	students := newClashCounter()
	lecturers := newClashCounter()
	rooms := newClashCounter()

	for _, course := range assignment.Courses() {
		for _, section := range course.Sections {
			for _, studentID := range section.Students {
				resolved += float64(p.weight(studentID, course.CourseCode))
				students.add(studentID, section.Block, course.CourseCode)
			}
			if section.Lecturer != nil {
				lecturers.add(*section.Lecturer, section.Block, course.CourseCode)
			}
			if section.Room != nil {
				rooms.add(*section.Room, section.Block, course.CourseCode)
			}
		}
	}

	return resolved -
		penalties.Student*float64(students.clashes()) -
		penalties.Lecturer*float64(lecturers.clashes()) -
		penalties.Room*float64(rooms.clashes())
}

type clashKey struct {
	owner string
	block models.Block
}

type clashCounter map[clashKey]map[string]struct{}

func newClashCounter() clashCounter {
	return make(clashCounter)
}

func (c clashCounter) add(owner string, block models.Block, courseCode string) {
	key := clashKey{owner: owner, block: block}
	courses, ok := c[key]
	if !ok {
		courses = make(map[string]struct{})
		c[key] = courses
	}
	courses[courseCode] = struct{}{}
}

func (c clashCounter) clashes() int {
	total := 0
	for _, courses := range c {
		if len(courses) > 1 {
			total += len(courses) - 1
		}
	}
	return total
}
