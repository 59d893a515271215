package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus captures the lifecycle of a persisted scheduling run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "QUEUED"
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// RunOptions stores the engine options a run was requested with. Zero values
// fall back to the server configuration.
type RunOptions struct {
	Seed               *int64  `json:"seed,omitempty"`
	TieBreak           string  `json:"tieBreak,omitempty"`
	Refinement         string  `json:"refinement,omitempty"`
	MaxIterations      int     `json:"maxIterations,omitempty"`
	InitialTemperature float64 `json:"initialTemperature,omitempty"`
	CoolingRate        float64 `json:"coolingRate,omitempty"`
	CollisionPolicy    string  `json:"collisionPolicy,omitempty"`
	DistributionPolicy string  `json:"distributionPolicy,omitempty"`
	PreferConflictFree *bool   `json:"preferConflictFree,omitempty"`
}

// Value marshals options to JSON for persistence.
func (o RunOptions) Value() (driver.Value, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal run options: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB payload into the options struct.
func (o *RunOptions) Scan(value interface{}) error {
	if value == nil {
		*o = RunOptions{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for RunOptions", value)
	}
	if len(data) == 0 {
		*o = RunOptions{}
		return nil
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("unmarshal run options: %w", err)
	}
	return nil
}

// ScheduleRun is a persisted scheduling run and its outcome.
type ScheduleRun struct {
	ID           string         `db:"id" json:"id"`
	Status       RunStatus      `db:"status" json:"status"`
	Seed         int64          `db:"seed" json:"seed"`
	Options      RunOptions     `db:"options" json:"options"`
	Catalog      types.JSONText `db:"catalog" json:"-"`
	Result       types.JSONText `db:"result" json:"-"`
	Statistics   types.JSONText `db:"statistics" json:"statistics,omitempty"`
	WarningCount int            `db:"warning_count" json:"warning_count"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	StartedAt    *time.Time     `db:"started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
}

// ScheduleRunFilter scopes run listings.
type ScheduleRunFilter struct {
	Status   *RunStatus
	Page     int
	PageSize int
}

// CoursePriority is the demand score computed for a course.
type CoursePriority struct {
	CourseCode  string `json:"courseCode"`
	Required    int    `json:"required"`
	Requested   int    `json:"requested"`
	Recommended int    `json:"recommended"`
	Score       int    `json:"score"`
}

// RefinementReport summarises a refinement pass.
type RefinementReport struct {
	Strategy         string  `json:"strategy"`
	Iterations       int     `json:"iterations"`
	Accepted         int     `json:"accepted"`
	Rejected         int     `json:"rejected"`
	Exhausted        int     `json:"exhausted"`
	FinalTemperature float64 `json:"finalTemperature"`
	InitialObjective float64 `json:"initialObjective"`
	FinalObjective   float64 `json:"finalObjective"`
	UnresolvedBefore int     `json:"unresolvedBefore"`
	UnresolvedAfter  int     `json:"unresolvedAfter"`
	Converged        bool    `json:"converged"`
	// Interrupted is set when the run deadline stopped refinement early.
	Interrupted bool `json:"interrupted,omitempty"`
}

// ScheduleRunResult is the serialised outcome stored with a finished run.
type ScheduleRunResult struct {
	Blocks            []Block                     `json:"blocks"`
	Assignment        *Assignment                 `json:"assignment"`
	StudentSchedules  map[string]StudentSchedule  `json:"studentSchedules"`
	LecturerSchedules map[string]LecturerSchedule `json:"lecturerSchedules"`
	Statistics        Statistics                  `json:"statistics"`
	Warnings          []Warning                   `json:"warnings"`
	Priorities        []CoursePriority            `json:"priorities"`
	Refinement        RefinementReport            `json:"refinement"`
	Seed              int64                       `json:"seed"`
	DurationMs        int64                       `json:"durationMs"`
}

// ResolutionRatio returns resolved/total requests as a fraction in [0, 1].
func (s Statistics) ResolutionRatio() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.ResolvedRequests) / float64(s.TotalRequests)
}
