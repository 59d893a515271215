package models

import "time"

// Block identifies one of the fixed scheduling slots of the timetable.
type Block string

// DefaultBlocks is the block set used when a catalog does not declare its own.
var DefaultBlocks = []Block{"1A", "1B", "2A", "2B", "3", "4A", "4B"}

// RequestType classifies how strongly a student needs a course.
type RequestType string

const (
	RequestRequired    RequestType = "Required"
	RequestRequested   RequestType = "Requested"
	RequestRecommended RequestType = "Recommended"

	// RequestOther buckets statistics for requests whose type is not known.
	RequestOther RequestType = "Other"
)

// RequestTypes lists the known request types from strongest to weakest.
var RequestTypes = []RequestType{RequestRequired, RequestRequested, RequestRecommended}

// Weight returns the placement priority of the request type. Unknown types weigh 0.
func (t RequestType) Weight() int {
	switch t {
	case RequestRequired:
		return 3
	case RequestRequested:
		return 2
	case RequestRecommended:
		return 1
	default:
		return 0
	}
}

// Valid reports whether t is one of the known request types.
func (t RequestType) Valid() bool {
	return t.Weight() > 0
}

// SectionSizes bounds the roster of a single section.
type SectionSizes struct {
	Min    int `json:"min" yaml:"min"`
	Target int `json:"target" yaml:"target"`
	Max    int `json:"max" yaml:"max"`
}

// Course is an offering in the catalog. It is read-only once ingested.
type Course struct {
	Code              string       `json:"courseCode" yaml:"courseCode"`
	Title             string       `json:"title" yaml:"title"`
	Length            int          `json:"length" yaml:"length"`
	Priority          string       `json:"priority" yaml:"priority"`
	AvailableBlocks   []Block      `json:"availableBlocks" yaml:"availableBlocks"`
	UnavailableBlocks []Block      `json:"unavailableBlocks" yaml:"unavailableBlocks"`
	SectionSizes      SectionSizes `json:"sectionSizes" yaml:"sectionSizes"`
	NumberOfSections  int          `json:"numberOfSections" yaml:"numberOfSections"`
	TotalCredits      float64      `json:"totalCredits" yaml:"totalCredits"`
	AssignedRooms     []string     `json:"assignedRooms" yaml:"assignedRooms"`
	LecturerIDs       []string     `json:"lecturerIds" yaml:"lecturerIds"`
}

// SectionCount returns the configured number of sections, defaulting to 1.
func (c Course) SectionCount() int {
	if c.NumberOfSections < 1 {
		return 1
	}
	return c.NumberOfSections
}

// IsAvailable reports whether block is listed in the course's available blocks.
func (c Course) IsAvailable(block Block) bool {
	for _, b := range c.AvailableBlocks {
		if b == block {
			return true
		}
	}
	return false
}

// LecturerSection is one teaching assignment of a lecturer.
type LecturerSection struct {
	CourseCode    string `json:"courseCode" yaml:"courseCode"`
	SectionNumber int    `json:"sectionNumber" yaml:"sectionNumber"`
	StartTerm     string `json:"startTerm" yaml:"startTerm"`
}

// Lecturer teaches one or more courses.
type Lecturer struct {
	ID          string            `json:"lecturerId" yaml:"lecturerId"`
	CourseCodes []string          `json:"courseCodes" yaml:"courseCodes"`
	Sections    []LecturerSection `json:"sections" yaml:"sections"`
}

// RoomOccupancy records a course section booked into a room for a term.
type RoomOccupancy struct {
	CourseCode    string `json:"courseCode" yaml:"courseCode"`
	CourseTitle   string `json:"courseTitle" yaml:"courseTitle"`
	SectionNumber int    `json:"sectionNumber" yaml:"sectionNumber"`
	TermName      string `json:"termName" yaml:"termName"`
}

// Room is a physical teaching space.
type Room struct {
	Number          string          `json:"roomNumber" yaml:"roomNumber"`
	AssignedCourses []RoomOccupancy `json:"assignedCourses" yaml:"assignedCourses"`
}

// Request is a single student's demand for a course.
type Request struct {
	CourseCode  string      `json:"courseCode" yaml:"courseCode"`
	CourseTitle string      `json:"courseTitle" yaml:"courseTitle"`
	Type        RequestType `json:"type" yaml:"type"`
	StartTerm   string      `json:"startTerm" yaml:"startTerm"`
	Length      int         `json:"length" yaml:"length"`
	Priority    string      `json:"priority" yaml:"priority"`
	Department  string      `json:"department" yaml:"department"`
	Credits     float64     `json:"credits" yaml:"credits"`
}

// Student owns an ordered list of course requests.
type Student struct {
	ID          string    `json:"studentId" yaml:"studentId"`
	CollegeYear string    `json:"collegeYear" yaml:"collegeYear"`
	Requests    []Request `json:"requests" yaml:"requests"`
}

// Catalog is the normalized input of a scheduling run.
// A nil entity list means the set is missing; an empty list is a valid empty set.
type Catalog struct {
	Blocks    []Block    `json:"blocks" yaml:"blocks"`
	Courses   []Course   `json:"courses" yaml:"courses"`
	Lecturers []Lecturer `json:"lecturers" yaml:"lecturers"`
	Rooms     []Room     `json:"rooms" yaml:"rooms"`
	Students  []Student  `json:"students" yaml:"students"`
}

// CatalogMetadata summarises a catalog.
type CatalogMetadata struct {
	TotalStudents  int           `json:"totalStudents" yaml:"totalStudents"`
	TotalLecturers int           `json:"totalLecturers" yaml:"totalLecturers"`
	TotalCourses   int           `json:"totalCourses" yaml:"totalCourses"`
	TotalRooms     int           `json:"totalRooms" yaml:"totalRooms"`
	TotalRequests  int           `json:"totalRequests" yaml:"totalRequests"`
	Blocks         []Block       `json:"blocks" yaml:"blocks"`
	RequestTypes   []RequestType `json:"requestTypes" yaml:"requestTypes"`
	GeneratedOn    time.Time     `json:"generatedOn" yaml:"generatedOn"`
}
