package models

// Reasons attached to unresolved requests.
const (
	ReasonNoAvailableSpace = "No available space"
	ReasonCourseNotOffered = "Course not offered"
)

// AssignedCourse is a resolved request in a student's timetable.
type AssignedCourse struct {
	CourseCode    string      `json:"courseCode"`
	Title         string      `json:"title"`
	Block         Block       `json:"block"`
	Room          *string     `json:"room"`
	Lecturer      *string     `json:"lecturer"`
	SectionNumber int         `json:"sectionNumber"`
	Type          RequestType `json:"type"`
}

// UnresolvedRequest is a request that could not be placed.
type UnresolvedRequest struct {
	CourseCode string      `json:"courseCode"`
	Title      string      `json:"title"`
	Type       RequestType `json:"type"`
	Reason     string      `json:"reason"`
}

// StudentSchedule is the timetable of a single student.
type StudentSchedule struct {
	StudentID          string              `json:"studentId"`
	CollegeYear        string              `json:"collegeYear"`
	AssignedCourses    []AssignedCourse    `json:"assignedCourses"`
	UnresolvedRequests []UnresolvedRequest `json:"unresolvedRequests"`
}

// LecturerBlockEntry is what a lecturer teaches in one block.
type LecturerBlockEntry struct {
	CourseCode    string  `json:"courseCode"`
	Title         string  `json:"title"`
	Room          *string `json:"room"`
	EnrolledCount int     `json:"enrolledCount"`
	SectionNumber int     `json:"sectionNumber"`
}

// LecturerSchedule maps blocks to the section a lecturer teaches there.
type LecturerSchedule struct {
	LecturerID string                       `json:"lecturerId"`
	Blocks     map[Block]LecturerBlockEntry `json:"blocks"`
}

// RequestTypeStats summarises fulfilment for one request type.
type RequestTypeStats struct {
	Total          int    `json:"total"`
	Resolved       int    `json:"resolved"`
	ResolutionRate string `json:"resolutionRate"`
}

// Statistics is the aggregate fulfilment report of a run.
type Statistics struct {
	TotalRequests         int                              `json:"totalRequests"`
	ResolvedRequests      int                              `json:"resolvedRequests"`
	OverallResolutionRate string                           `json:"overallResolutionRate"`
	ByType                map[RequestType]RequestTypeStats `json:"byPriority"`
	CourseAssignments     map[string]int                   `json:"courseAssignments"`
}
