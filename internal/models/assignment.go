package models

import (
	"encoding/json"
	"math"
	"sort"
)

// Section is one concrete offering of a course bound to a block.
type Section struct {
	CourseCode    string       `json:"courseCode"`
	SectionNumber int          `json:"sectionNumber"`
	Block         Block        `json:"block"`
	Room          *string      `json:"room"`
	Lecturer      *string      `json:"lecturer"`
	Students      []string     `json:"students"`
	Capacity      SectionSizes `json:"capacity"`
}

// Enrolled returns the number of students on the roster.
func (s *Section) Enrolled() int {
	return len(s.Students)
}

// HasSpace reports whether another student fits under the max capacity.
func (s *Section) HasSpace() bool {
	return len(s.Students) < s.Capacity.Max
}

// Contains reports whether the student is enrolled in the section.
func (s *Section) Contains(studentID string) bool {
	for _, id := range s.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// RoomNumber returns the room or an empty string.
func (s *Section) RoomNumber() string {
	if s.Room == nil {
		return ""
	}
	return *s.Room
}

// LecturerID returns the lecturer or an empty string.
func (s *Section) LecturerID() string {
	if s.Lecturer == nil {
		return ""
	}
	return *s.Lecturer
}

// CourseAssignment groups the sections created for one course.
type CourseAssignment struct {
	CourseCode string     `json:"courseCode"`
	Title      string     `json:"title"`
	Sections   []*Section `json:"sections"`
}

// SectionFor returns the section holding the student, if any.
func (c *CourseAssignment) SectionFor(studentID string) *Section {
	for _, section := range c.Sections {
		if section.Contains(studentID) {
			return section
		}
	}
	return nil
}

// Enrolled returns the number of students across every section of the course.
func (c *CourseAssignment) Enrolled() int {
	total := 0
	for _, section := range c.Sections {
		total += section.Enrolled()
	}
	return total
}

// Assignment maps course codes to their sections. Iteration follows insertion
// order so every view derived from it is stable.
type Assignment struct {
	order   []string
	courses map[string]*CourseAssignment
}

// NewAssignment returns an empty assignment store.
func NewAssignment() *Assignment {
	return &Assignment{courses: make(map[string]*CourseAssignment)}
}

// Put stores or replaces the sections of a course.
func (a *Assignment) Put(course *CourseAssignment) {
	if course == nil {
		return
	}
	if _, ok := a.courses[course.CourseCode]; !ok {
		a.order = append(a.order, course.CourseCode)
	}
	a.courses[course.CourseCode] = course
}

// Get returns the sections placed for a course.
func (a *Assignment) Get(code string) (*CourseAssignment, bool) {
	course, ok := a.courses[code]
	return course, ok
}

// Codes returns the course codes in placement order.
func (a *Assignment) Codes() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Courses returns the placed courses in placement order.
func (a *Assignment) Courses() []*CourseAssignment {
	out := make([]*CourseAssignment, 0, len(a.order))
	for _, code := range a.order {
		out = append(out, a.courses[code])
	}
	return out
}

// Len returns the number of placed courses.
func (a *Assignment) Len() int {
	return len(a.order)
}

// Clone deep-copies the assignment so refinement can snapshot and restore state.
func (a *Assignment) Clone() *Assignment {
	clone := NewAssignment()
	for _, code := range a.order {
		src := a.courses[code]
		dst := &CourseAssignment{CourseCode: src.CourseCode, Title: src.Title, Sections: make([]*Section, len(src.Sections))}
		for i, section := range src.Sections {
			cp := *section
			cp.Students = append([]string(nil), section.Students...)
			if section.Room != nil {
				room := *section.Room
				cp.Room = &room
			}
			if section.Lecturer != nil {
				lecturer := *section.Lecturer
				cp.Lecturer = &lecturer
			}
			dst.Sections[i] = &cp
		}
		clone.Put(dst)
	}
	return clone
}

// placedCourse is the stored form of a course. Placement is the 1-based
// position in placement order; JSON objects (and jsonb columns) do not keep key
// order, so the position travels with each course.
type placedCourse struct {
	CourseAssignment
	Placement int `json:"placement"`
}

// MarshalJSON encodes the assignment as an object keyed by course code.
func (a *Assignment) MarshalJSON() ([]byte, error) {
	if a == nil || a.courses == nil {
		return []byte("{}"), nil
	}
	out := make(map[string]placedCourse, len(a.order))
	for i, code := range a.order {
		out[code] = placedCourse{CourseAssignment: *a.courses[code], Placement: i + 1}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object keyed by course code and restores placement
// order. Courses without a placement sort after placed ones by course code.
func (a *Assignment) UnmarshalJSON(data []byte) error {
	var stored map[string]*placedCourse
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	codes := make([]string, 0, len(stored))
	for code := range stored {
		codes = append(codes, code)
	}
	position := func(code string) int {
		if stored[code] == nil || stored[code].Placement <= 0 {
			return math.MaxInt
		}
		return stored[code].Placement
	}
	sort.Slice(codes, func(i, j int) bool {
		pi, pj := position(codes[i]), position(codes[j])
		if pi != pj {
			return pi < pj
		}
		return codes[i] < codes[j]
	})
	a.order = codes
	a.courses = make(map[string]*CourseAssignment, len(stored))
	for code, entry := range stored {
		course := &CourseAssignment{}
		if entry != nil {
			*course = entry.CourseAssignment
		}
		if course.CourseCode == "" {
			course.CourseCode = code
		}
		a.courses[code] = course
	}
	return nil
}
