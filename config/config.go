// Package config defines the planning requests and responses exchanged with the inspection service
// and turns them into planner, scorer and spline parameters.
package config

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/mdi-inspection/mdi/gain"
	"github.com/mdi-inspection/mdi/motionplan"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// Mode selects what a planning request optimizes for.
type Mode string

// The planning modes.
const (
	ModeGoal Mode = "goal"
	ModeNBV  Mode = "nbv"
)

// Point is a position in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector converts p to an r3.Vector.
func (p Point) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// PointFromVector converts v to a Point.
func PointFromVector(v r3.Vector) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// PointsFromVectors converts every vector to a Point.
func PointsFromVectors(vs []r3.Vector) []Point {
	pts := make([]Point, 0, len(vs))
	for _, v := range vs {
		pts = append(pts, PointFromVector(v))
	}
	return pts
}

// Bounds is an axis aligned sampling region.
type Bounds struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// RRTConfig holds the tree growth parameters of a request. Zero or missing values take the planner
// defaults, which is why the parameters that may legitimately be zero are pointers.
type RRTConfig struct {
	Start *Point `json:"start"`
	Goal  *Point `json:"goal,omitempty"`

	MaxIterations                      int      `json:"max_iterations,omitempty"`
	GoalBias                           *float64 `json:"goal_bias,omitempty"`
	ProbabilityOfTestingFullPathToGoal *float64 `json:"probability_of_testing_full_path_from_new_node_to_goal,omitempty"`
	StepSize                           float64  `json:"step_size,omitempty"`
	GoalTolerance                      *float64 `json:"goal_tolerance,omitempty"`
	Seed                               int64    `json:"seed,omitempty"`
	Bounds                             *Bounds  `json:"bounds,omitempty"`
	TreatUnknownAsFree                 bool     `json:"treat_unknown_as_free,omitempty"`
	OptimizeWaypoints                  bool     `json:"optimize_waypoints,omitempty"`
}

// PlannerConfig merges the request over the planner defaults.
func (c *RRTConfig) PlannerConfig() *motionplan.PlannerConfig {
	var start r3.Vector
	if c.Start != nil {
		start = c.Start.Vector()
	}
	var goal *r3.Vector
	if c.Goal != nil {
		g := c.Goal.Vector()
		goal = &g
	}
	cfg := motionplan.NewPlannerConfig(start, goal)
	if c.MaxIterations != 0 {
		cfg.MaxIterations = c.MaxIterations
	}
	if c.GoalBias != nil {
		cfg.GoalBias = *c.GoalBias
	}
	if c.ProbabilityOfTestingFullPathToGoal != nil {
		cfg.ProbabilityOfTestingFullPathToGoal = *c.ProbabilityOfTestingFullPathToGoal
	}
	if c.StepSize != 0 {
		cfg.StepSize = c.StepSize
	}
	if c.GoalTolerance != nil {
		cfg.GoalTolerance = *c.GoalTolerance
	}
	if c.Seed != 0 {
		cfg.Seed = c.Seed
	}
	if c.Bounds != nil {
		cfg.Bounds = spatialmath.BoundingBox{Min: c.Bounds.Min.Vector(), Max: c.Bounds.Max.Vector()}
	}
	cfg.TreatUnknownAsFree = c.TreatUnknownAsFree
	cfg.OptimizeWaypoints = c.OptimizeWaypoints
	return cfg
}

// Validate ensures all parts of the config are valid.
func (c *RRTConfig) Validate(path string) error {
	if c.Start == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "start")
	}
	if err := c.PlannerConfig().Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// DepthRange is the near and far distance of a camera in metres.
type DepthRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FOVConfig describes the inspection camera. Angles are in degrees.
type FOVConfig struct {
	Horizontal float64    `json:"horizontal"`
	Vertical   float64    `json:"vertical"`
	Pitch      float64    `json:"pitch,omitempty"`
	DepthRange DepthRange `json:"depth_range"`
}

// NBVConfig holds the gain weights and stopping threshold of a next-best-view request.
type NBVConfig struct {
	// Target is the object of interest every view is aimed at. Requests without one aim at
	// rrt_config.goal.
	Target                  *Point  `json:"target"`
	WeightFree              float64 `json:"weight_free"`
	WeightOccupied          float64 `json:"weight_occupied"`
	WeightUnknown           float64 `json:"weight_unknown"`
	WeightDistanceToObject  float64 `json:"weight_distance_to_object"`
	GainOfInterestThreshold float64 `json:"gain_of_interest_threshold"`
	// Reshape names the function applied to the raw gain. Empty means identity.
	Reshape string `json:"reshape,omitempty"`
}

// Weights returns the gain weights of the request.
func (c *NBVConfig) Weights() (gain.Weights, error) {
	reshape, err := gain.ReshapeByName(c.Reshape)
	if err != nil {
		return gain.Weights{}, err
	}
	return gain.Weights{
		Free:             c.WeightFree,
		Occupied:         c.WeightOccupied,
		Unknown:          c.WeightUnknown,
		DistanceToTarget: c.WeightDistanceToObject,
		Reshape:          reshape,
	}, nil
}

// Validate ensures all parts of the config are valid.
func (c *NBVConfig) Validate(path string) error {
	w, err := c.Weights()
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if err := w.Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if math.IsNaN(c.GainOfInterestThreshold) || math.IsInf(c.GainOfInterestThreshold, 0) {
		return utils.NewConfigValidationError(path, errors.New("gain_of_interest_threshold must be finite"))
	}
	return nil
}

// SplineConfig asks for the returned path to be smoothed into a Bezier curve.
type SplineConfig struct {
	Resolution int `json:"resolution,omitempty"`
	// Spacing resamples the curve every Spacing metres. Zero returns every sample.
	Spacing float64 `json:"spacing,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *SplineConfig) Validate(path string) error {
	if c.Resolution < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("resolution must not be negative, got %d", c.Resolution))
	}
	if c.Spacing < 0 || math.IsNaN(c.Spacing) || math.IsInf(c.Spacing, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("spacing must be finite and not negative, got %v", c.Spacing))
	}
	return nil
}

// PlanRequest is one planning request.
type PlanRequest struct {
	ID     string        `json:"id,omitempty"`
	Mode   Mode          `json:"mode"`
	RRT    RRTConfig     `json:"rrt_config"`
	FOV    *FOVConfig    `json:"fov,omitempty"`
	NBV    *NBVConfig    `json:"nbv_config,omitempty"`
	Spline *SplineConfig `json:"spline,omitempty"`
}

// Validate ensures all parts of the request are valid. An empty mode means goal.
func (r *PlanRequest) Validate(path string) error {
	switch r.Mode {
	case "", ModeGoal:
		if r.RRT.Goal == nil {
			return utils.NewConfigValidationFieldRequiredError(joinPath(path, "rrt_config"), "goal")
		}
	case ModeNBV:
		if r.FOV == nil {
			return utils.NewConfigValidationFieldRequiredError(path, "fov")
		}
		if r.NBV == nil {
			return utils.NewConfigValidationFieldRequiredError(path, "nbv_config")
		}
		if r.NBVTarget() == nil {
			return utils.NewConfigValidationFieldRequiredError(joinPath(path, "nbv_config"), "target")
		}
		if err := r.NBV.Validate(joinPath(path, "nbv_config")); err != nil {
			return err
		}
		if _, err := r.NBVPlannerConfig(); err != nil {
			return utils.NewConfigValidationError(joinPath(path, "fov"), err)
		}
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown mode %q", r.Mode))
	}
	if err := r.RRT.Validate(joinPath(path, "rrt_config")); err != nil {
		return err
	}
	if r.Spline != nil {
		return r.Spline.Validate(joinPath(path, "spline"))
	}
	return nil
}

// NBVTarget returns nbv_config.target, or rrt_config.goal when the request names no target.
func (r *PlanRequest) NBVTarget() *Point {
	if r.NBV != nil && r.NBV.Target != nil {
		return r.NBV.Target
	}
	return r.RRT.Goal
}

// NBVPlannerConfig returns the camera and threshold of an nbv request.
func (r *PlanRequest) NBVPlannerConfig() (motionplan.NBVConfig, error) {
	target := r.NBVTarget()
	if r.FOV == nil || r.NBV == nil || target == nil {
		return motionplan.NBVConfig{}, errors.New("next-best-view requests need fov, nbv_config and a target")
	}
	cfg := motionplan.NBVConfig{
		Target:                  target.Vector(),
		Horizontal:              spatialmath.AngleFromDegrees(r.FOV.Horizontal),
		Vertical:                spatialmath.AngleFromDegrees(r.FOV.Vertical),
		Pitch:                   spatialmath.AngleFromDegrees(r.FOV.Pitch),
		Depth:                   spatialmath.DepthRange{Min: r.FOV.DepthRange.Min, Max: r.FOV.DepthRange.Max},
		GainOfInterestThreshold: r.NBV.GainOfInterestThreshold,
	}
	return cfg, cfg.Validate()
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", path, field)
}
