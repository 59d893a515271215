package scheduler

import (
	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/pkg/config"
)

// OptionsFromConfig maps the scheduler configuration section onto engine options.
// Invalid values are left for the engine to replace with defaults.
func OptionsFromConfig(cfg config.SchedulerConfig) Options {
	return Options{
		Seed:                 cfg.Seed,
		TieBreak:             TieBreak(cfg.TieBreak),
		PreferConflictFree:   cfg.PreferConflictFree,
		Distribution:         DistributionPolicy(cfg.Distribution),
		Collision:            CollisionPolicy(cfg.CollisionPolicy),
		DefaultSectionMax:    cfg.DefaultSectionMax,
		Refinement:           RefinementKind(cfg.Refinement),
		MaxIterations:        cfg.MaxIterations,
		InitialTemperature:   cfg.InitialTemperature,
		CoolingRate:          cfg.CoolingRate,
		StudentClashPenalty:  cfg.StudentClashPenalty,
		LecturerClashPenalty: cfg.LecturerClashPenalty,
		RoomClashPenalty:     cfg.RoomClashPenalty,
	}
}

// Apply overlays the non-zero fields of a run request on top of o.
func (o Options) Apply(run models.RunOptions) Options {
	if run.Seed != nil {
		o.Seed = *run.Seed
	}
	if run.TieBreak != "" {
		o.TieBreak = TieBreak(run.TieBreak)
	}
	if run.Refinement != "" {
		o.Refinement = RefinementKind(run.Refinement)
	}
	if run.MaxIterations > 0 {
		o.MaxIterations = run.MaxIterations
	}
	if run.InitialTemperature > 0 {
		o.InitialTemperature = run.InitialTemperature
	}
	if run.CoolingRate > 0 {
		o.CoolingRate = run.CoolingRate
	}
	if run.CollisionPolicy != "" {
		o.Collision = CollisionPolicy(run.CollisionPolicy)
	}
	if run.DistributionPolicy != "" {
		o.Distribution = DistributionPolicy(run.DistributionPolicy)
	}
	if run.PreferConflictFree != nil {
		o.PreferConflictFree = *run.PreferConflictFree
	}
	return o
}
