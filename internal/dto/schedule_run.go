package dto

import (
	"time"

	"github.com/noah-isme/sma-block-scheduler/internal/models"
)

// RunOptionsRequest overrides engine settings for a single run.
type RunOptionsRequest struct {
	Seed               *int64  `json:"seed"`
	TieBreak           string  `json:"tieBreak" validate:"omitempty,oneof=random first"`
	Refinement         string  `json:"refinement" validate:"omitempty,oneof=none annealing"`
	MaxIterations      int     `json:"maxIterations" validate:"omitempty,min=1,max=100000"`
	InitialTemperature float64 `json:"initialTemperature" validate:"omitempty,gt=0"`
	CoolingRate        float64 `json:"coolingRate" validate:"omitempty,gt=0,lt=1"`
	CollisionPolicy    string  `json:"collisionPolicy" validate:"omitempty,oneof=first_wins last_wins"`
	DistributionPolicy string  `json:"distributionPolicy" validate:"omitempty,oneof=shared round_robin"`
	PreferConflictFree *bool   `json:"preferConflictFree"`
}

// Model converts the request into persisted run options.
func (r RunOptionsRequest) Model() models.RunOptions {
	return models.RunOptions{
		Seed:               r.Seed,
		TieBreak:           r.TieBreak,
		Refinement:         r.Refinement,
		MaxIterations:      r.MaxIterations,
		InitialTemperature: r.InitialTemperature,
		CoolingRate:        r.CoolingRate,
		CollisionPolicy:    r.CollisionPolicy,
		DistributionPolicy: r.DistributionPolicy,
		PreferConflictFree: r.PreferConflictFree,
	}
}

// CreateRunRequest submits a catalog for scheduling.
type CreateRunRequest struct {
	Catalog *models.Catalog   `json:"catalog" validate:"required"`
	Options RunOptionsRequest `json:"options"`
}

// ScheduleRunQuery filters run listings.
type ScheduleRunQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=QUEUED RUNNING FINISHED FAILED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ScheduleRunResponse is returned for run creation. Result is only set for
// synchronous runs.
type ScheduleRunResponse struct {
	Run    *models.ScheduleRun       `json:"run"`
	Result *models.ScheduleRunResult `json:"result,omitempty"`
}

// ExportRequest asks for a rendered view of a finished run.
type ExportRequest struct {
	View   string `json:"view" validate:"required,oneof=students lecturers assignment"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportResponse carries the signed download link of an export.
type ExportResponse struct {
	View      string    `json:"view"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
