package models

// WarningCode classifies a non-fatal data-quality finding.
type WarningCode string

const (
	WarningUnknownCourse          WarningCode = "UNKNOWN_COURSE"
	WarningUnknownRequestType     WarningCode = "UNKNOWN_REQUEST_TYPE"
	WarningDuplicateCourse        WarningCode = "DUPLICATE_COURSE"
	WarningNoRoom                 WarningCode = "NO_ROOM"
	WarningNoLecturer             WarningCode = "NO_LECTURER"
	WarningMultipleLecturers      WarningCode = "MULTIPLE_LECTURERS"
	WarningMissingCapacity        WarningCode = "MISSING_CAPACITY"
	WarningBlockContradiction     WarningCode = "BLOCK_CONTRADICTION"
	WarningOversubscribed         WarningCode = "OVERSUBSCRIBED"
	WarningDegradedPlacement      WarningCode = "DEGRADED_PLACEMENT"
	WarningLecturerBlockCollision WarningCode = "LECTURER_BLOCK_COLLISION"
)

// Warning is surfaced alongside results instead of failing the run.
type Warning struct {
	Code       WarningCode `json:"code"`
	Message    string      `json:"message"`
	CourseCode string      `json:"courseCode,omitempty"`
	StudentID  string      `json:"studentId,omitempty"`
	LecturerID string      `json:"lecturerId,omitempty"`
	Block      Block       `json:"block,omitempty"`
}

// OversubscribedCourse reports a course whose demand exceeds its seats.
type OversubscribedCourse struct {
	CourseCode string  `json:"courseCode"`
	Title      string  `json:"title"`
	Requests   int     `json:"requests"`
	Capacity   int     `json:"capacity"`
	Ratio      float64 `json:"ratio"`
}

// MultiLecturerCourse lists a course taught by more than one lecturer.
type MultiLecturerCourse struct {
	CourseCode  string   `json:"courseCode"`
	LecturerIDs []string `json:"lecturerIds"`
}

// ValidationReport is the data-quality summary of a catalog.
type ValidationReport struct {
	Metadata                     CatalogMetadata        `json:"metadata"`
	MissingCourses               []string               `json:"missingCourses"`
	OversubscribedCourses        []OversubscribedCourse `json:"oversubscribedCourses"`
	CoursesWithoutRooms          []string               `json:"coursesWithoutRooms"`
	CoursesWithoutLecturers      []string               `json:"coursesWithoutLecturers"`
	CoursesWithMultipleLecturers []MultiLecturerCourse  `json:"coursesWithMultipleLecturers"`
	Warnings                     []Warning              `json:"warnings"`
}
