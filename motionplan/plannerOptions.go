package motionplan

import (
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/mdi-inspection/mdi/spatialmath"
)

// default values for planner configuration.
const (
	// Number of planner iterations before giving up.
	defaultPlanIter = 2000

	// Probability of sampling the goal instead of a uniform point.
	defaultGoalBias = 0.1

	// Probability of trying a straight connection from a new node to the goal.
	defaultProbabilityOfTestingFullPathToGoal = 0.05

	// Distance in metres the tree extends toward a sample in one step.
	defaultStepSize = 0.5

	// Distance in metres at which a node counts as having reached the goal.
	defaultGoalTolerance = 0.25

	// Margin in metres added around start, goal and map when no sampling bounds are configured.
	defaultBoundsMargin = 10.0
)

// PlannerConfig holds the tuning parameters of an RRT run.
type PlannerConfig struct {
	Start r3.Vector
	// Goal is required for goal directed planning and ignored in next-best-view mode.
	Goal *r3.Vector

	GoalBias                           float64
	ProbabilityOfTestingFullPathToGoal float64
	StepSize                           float64
	GoalTolerance                      float64
	MaxIterations                      int

	// Bounds is the sampling region. The zero box means a region derived from the start, the goal
	// and the map.
	Bounds spatialmath.BoundingBox
	// TreatUnknownAsFree lets segments cross voxels that were never observed. By default they block.
	TreatUnknownAsFree bool
	// OptimizeWaypoints shortcuts the returned path where a straight segment is free.
	OptimizeWaypoints bool
	// Seed seeds the sampler so runs are reproducible.
	Seed int64
}

// NewPlannerConfig returns a configuration with default tuning parameters.
func NewPlannerConfig(start r3.Vector, goal *r3.Vector) *PlannerConfig {
	cfg := &PlannerConfig{
		Start:                              start,
		GoalBias:                           defaultGoalBias,
		ProbabilityOfTestingFullPathToGoal: defaultProbabilityOfTestingFullPathToGoal,
		StepSize:                           defaultStepSize,
		GoalTolerance:                      defaultGoalTolerance,
		MaxIterations:                      defaultPlanIter,
		Seed:                               1,
	}
	if goal != nil {
		g := *goal
		cfg.Goal = &g
	}
	return cfg
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate returns a *ConfigurationError for every out of range parameter, combined.
func (cfg *PlannerConfig) Validate() error {
	var errs error
	if !spatialmath.IsFiniteVector(cfg.Start) {
		errs = multierr.Append(errs, newConfigurationError("start", cfg.Start, "must be finite"))
	}
	if cfg.Goal != nil && !spatialmath.IsFiniteVector(*cfg.Goal) {
		errs = multierr.Append(errs, newConfigurationError("goal", *cfg.Goal, "must be finite"))
	}
	if !(cfg.GoalBias >= 0 && cfg.GoalBias <= 1) {
		errs = multierr.Append(errs, newConfigurationError("goal_bias", cfg.GoalBias, "must be in [0, 1]"))
	}
	if !(cfg.ProbabilityOfTestingFullPathToGoal >= 0 && cfg.ProbabilityOfTestingFullPathToGoal <= 1) {
		errs = multierr.Append(errs, newConfigurationError(
			"probability_of_testing_full_path_from_new_node_to_goal",
			cfg.ProbabilityOfTestingFullPathToGoal,
			"must be in [0, 1]",
		))
	}
	if !(cfg.StepSize > 0) || !finite(cfg.StepSize) {
		errs = multierr.Append(errs, newConfigurationError("step_size", cfg.StepSize, "must be positive"))
	}
	if !(cfg.GoalTolerance >= 0) || !finite(cfg.GoalTolerance) {
		errs = multierr.Append(errs, newConfigurationError("goal_tolerance", cfg.GoalTolerance, "must be non-negative"))
	}
	if cfg.MaxIterations <= 0 {
		errs = multierr.Append(errs, newConfigurationError("max_iterations", cfg.MaxIterations, "must be positive"))
	}
	if !cfg.Bounds.IsZero() && !cfg.Bounds.Valid() {
		errs = multierr.Append(errs, newConfigurationError("bounds", cfg.Bounds, "min must not exceed max"))
	}
	return errs
}

// samplingBounds returns the configured bounds or the box around the given points and the observed
// map, padded by defaultBoundsMargin.
func (cfg *PlannerConfig) samplingBounds(mapBounds spatialmath.BoundingBox, haveMap bool, pts ...r3.Vector) spatialmath.BoundingBox {
	if !cfg.Bounds.IsZero() {
		return cfg.Bounds
	}
	box := spatialmath.BoundingBoxFromPoints(append([]r3.Vector{cfg.Start}, pts...)...)
	if haveMap {
		box = box.Union(mapBounds)
	}
	return box.Pad(defaultBoundsMargin)
}
