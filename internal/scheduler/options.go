package scheduler

import (
	"errors"
	"fmt"
)

// ErrMalformedCatalog is returned when a required entity set of the catalog is missing.
var ErrMalformedCatalog = errors.New("malformed catalog")

func malformed(set string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedCatalog, set)
}

// TieBreak selects how the block selector resolves equally compatible blocks.
type TieBreak string

const (
	TieBreakRandom TieBreak = "random"
	TieBreakFirst  TieBreak = "first"
)

// RefinementKind names a refinement strategy.
type RefinementKind string

const (
	RefinementNone      RefinementKind = "none"
	RefinementAnnealing RefinementKind = "annealing"
)

// CollisionPolicy decides which section a lecturer schedule keeps when two
// sections of the same lecturer land in one block.
type CollisionPolicy string

const (
	CollisionFirstWins CollisionPolicy = "first_wins"
	CollisionLastWins  CollisionPolicy = "last_wins"
)

// DistributionPolicy decides how rooms and lecturers spread across sections.
type DistributionPolicy string

const (
	DistributionShared     DistributionPolicy = "shared"
	DistributionRoundRobin DistributionPolicy = "round_robin"
)

// DefaultSectionMax is the capacity applied to courses without any size bounds.
const DefaultSectionMax = 25

// Options configures a single engine run.
type Options struct {
	Seed               int64
	TieBreak           TieBreak
	PreferConflictFree bool
	Distribution       DistributionPolicy
	Collision          CollisionPolicy
	DefaultSectionMax  int

	Refinement           RefinementKind
	MaxIterations        int
	InitialTemperature   float64
	CoolingRate          float64
	StudentClashPenalty  float64
	LecturerClashPenalty float64
	RoomClashPenalty     float64
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		TieBreak:             TieBreakRandom,
		Distribution:         DistributionShared,
		Collision:            CollisionFirstWins,
		DefaultSectionMax:    DefaultSectionMax,
		Refinement:           RefinementAnnealing,
		MaxIterations:        100,
		InitialTemperature:   100,
		CoolingRate:          0.95,
		StudentClashPenalty:  2,
		LecturerClashPenalty: 3,
		RoomClashPenalty:     3,
	}
}

// withDefaults fills unset or invalid fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	switch o.TieBreak {
	case TieBreakRandom, TieBreakFirst:
	default:
		o.TieBreak = def.TieBreak
	}
	switch o.Distribution {
	case DistributionShared, DistributionRoundRobin:
	default:
		o.Distribution = def.Distribution
	}
	switch o.Collision {
	case CollisionFirstWins, CollisionLastWins:
	default:
		o.Collision = def.Collision
	}
	switch o.Refinement {
	case RefinementNone, RefinementAnnealing:
	default:
		o.Refinement = def.Refinement
	}
	if o.DefaultSectionMax <= 0 {
		o.DefaultSectionMax = def.DefaultSectionMax
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.InitialTemperature <= 0 {
		o.InitialTemperature = def.InitialTemperature
	}
	if o.CoolingRate <= 0 || o.CoolingRate >= 1 {
		o.CoolingRate = def.CoolingRate
	}
	if o.StudentClashPenalty < 0 {
		o.StudentClashPenalty = def.StudentClashPenalty
	}
	if o.LecturerClashPenalty < 0 {
		o.LecturerClashPenalty = def.LecturerClashPenalty
	}
	if o.RoomClashPenalty < 0 {
		o.RoomClashPenalty = def.RoomClashPenalty
	}
	return o
}
