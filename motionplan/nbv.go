package motionplan

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/mdi-inspection/mdi/gain"
	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// GainEvaluator scores a camera view against an occupancy map. *gain.Scorer implements it.
type GainEvaluator interface {
	Evaluate(fov *spatialmath.FieldOfView, m octree.Map) (gain.Result, error)
}

// NBVConfig describes the camera and the stopping condition of a next-best-view run.
type NBVConfig struct {
	// Target is the point of interest every candidate view is aimed at.
	Target     r3.Vector
	Horizontal spatialmath.Angle
	Vertical   spatialmath.Angle
	// Pitch tilts the camera about its local Y axis after it is turned toward the target.
	Pitch spatialmath.Angle
	Depth spatialmath.DepthRange
	// GainOfInterestThreshold ends the run at the first view whose gain reaches it.
	GainOfInterestThreshold float64
}

// Validate checks the camera model by building a view at the origin.
func (c NBVConfig) Validate() error {
	var errs error
	if !spatialmath.IsFiniteVector(c.Target) {
		errs = multierr.Append(errs, newConfigurationError("target", c.Target, "must be finite"))
	}
	if !finite(c.Pitch.Radians()) {
		errs = multierr.Append(errs, newConfigurationError("pitch", c.Pitch.Degrees(), "must be finite"))
	}
	if !finite(c.GainOfInterestThreshold) {
		errs = multierr.Append(errs, newConfigurationError("gain_of_interest_threshold", c.GainOfInterestThreshold, "must be finite"))
	}
	if _, err := spatialmath.NewFieldOfView(
		spatialmath.NewPoseFromPoint(r3.Vector{}), c.Horizontal, c.Vertical, c.Depth, nil,
	); err != nil {
		errs = multierr.Append(errs, newConfigurationError("fov", c, err.Error()))
	}
	return errs
}

// ViewFrom returns the view from position turned toward the target with the configured pitch.
func (c NBVConfig) ViewFrom(position r3.Vector) (*spatialmath.FieldOfView, error) {
	dir := c.Target.Sub(position)
	yaw := spatialmath.AngleFromRadians(math.Atan2(dir.Y, dir.X))
	pose := spatialmath.NewPose(position, spatialmath.NewOrientationFromYawPitch(yaw, c.Pitch))
	target := c.Target
	return spatialmath.NewFieldOfView(pose, c.Horizontal, c.Vertical, c.Depth, &target)
}

// NBVResult is the outcome of a next-best-view run.
type NBVResult struct {
	// Waypoints lead from the start to the chosen view.
	Waypoints Waypoints
	// FoundSufficientGain is false when the result is the best-effort fallback.
	FoundSufficientGain bool
	BestGain            float64
	BestNode            int
	BestView            *spatialmath.FieldOfView
	Iterations          int
	Tree                *Tree
}

type nbvTracker struct {
	cfg       NBVConfig
	evaluator GainEvaluator
	m         octree.Map
	tree      *Tree
	logger    logging.Logger

	bestGain float64
	bestNode int
	bestView *spatialmath.FieldOfView

	found     bool
	foundAt   int
	foundGain float64
	foundView *spatialmath.FieldOfView
}

// score evaluates the view from node i and records it as the best when it beats the current best.
func (t *nbvTracker) score(i int) {
	n := t.tree.nodes[i]
	fov, err := t.cfg.ViewFrom(n.Position)
	if err != nil {
		t.logger.Warnw("could not build view", "node", i, "error", err)
		return
	}
	t.tree.setOrientation(i, fov.Pose().Orientation())
	result, err := t.evaluator.Evaluate(fov, t.m)
	if err != nil {
		t.logger.Warnw("gain evaluation failed", "node", i, "error", err)
		return
	}
	t.logger.Debugw("evaluated view", "node", i, "gain", result.Gain, "voxels", result.Voxels)
	if result.Gain > t.bestGain {
		t.bestGain = result.Gain
		t.bestNode = i
		t.bestView = fov
	}
	if !t.found && result.Gain >= t.cfg.GainOfInterestThreshold {
		t.found = true
		t.foundAt = i
		t.foundGain = result.Gain
		t.foundView = fov
	}
}

// NextBestView grows a tree from cfg.Start and scores a view from every node, the start included. The
// goal and the direct connection probability of cfg are ignored. It stops at the first view whose gain
// reaches the threshold. When the iteration budget runs out first, the result holds the path to the
// best view seen with FoundSufficientGain unset and the error is a *PlanningFailure.
func NextBestView(
	ctx context.Context,
	cfg *PlannerConfig,
	nbv NBVConfig,
	evaluator GainEvaluator,
	m octree.Map,
	logger logging.Logger,
	opts ...Option,
) (*NBVResult, error) {
	if cfg == nil {
		return nil, newConfigurationError("config", nil, "is required")
	}
	if evaluator == nil {
		return nil, newConfigurationError("gain_evaluator", nil, "is required for next-best-view planning")
	}
	if err := nbv.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("nbv")
	}

	runCfg := *cfg
	runCfg.Goal = nil
	runCfg.ProbabilityOfTestingFullPathToGoal = 0
	if runCfg.Bounds.IsZero() {
		var mapBounds spatialmath.BoundingBox
		haveMap := false
		if m != nil {
			mapBounds, haveMap = m.Bounds()
		}
		runCfg.Bounds = runCfg.samplingBounds(mapBounds, haveMap, nbv.Target)
	}
	mp, err := NewRRTPlanner(&runCfg, m, logger, opts...)
	if err != nil {
		return nil, err
	}

	tracker := &nbvTracker{
		cfg:       nbv,
		evaluator: evaluator,
		m:         mp.m,
		tree:      mp.tree,
		logger:    logger,
		bestGain:  math.Inf(-1),
		foundAt:   -1,
	}
	mp.nodeHook = tracker.score
	tracker.score(0)

	for !tracker.found && mp.iterations < runCfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			failure := mp.failure(err)
			failure.BestGain = tracker.bestGain
			result, resErr := tracker.result(mp)
			if resErr != nil {
				return nil, failure
			}
			failure.Partial = result.Waypoints
			return result, failure
		}
		mp.GrowOneStep()
	}

	result, err := tracker.result(mp)
	if err != nil {
		return nil, err
	}
	if tracker.found {
		mp.logPath("found view with sufficient gain", result.Waypoints)
		return result, nil
	}
	logger.Infow("no view reached the gain threshold, using the best view found",
		"iterations", mp.iterations, "best_gain", tracker.bestGain, "threshold", nbv.GainOfInterestThreshold)
	failure := mp.failure(nil)
	failure.Partial = result.Waypoints
	failure.BestGain = tracker.bestGain
	return result, failure
}

func (t *nbvTracker) result(mp *RRTPlanner) (*NBVResult, error) {
	node, gainAt, view := t.bestNode, t.bestGain, t.bestView
	if t.found {
		node, gainAt, view = t.foundAt, t.foundGain, t.foundView
	}
	waypoints, err := mp.tree.Backtrack(node)
	if err != nil {
		return nil, err
	}
	return &NBVResult{
		Waypoints:           waypoints,
		FoundSufficientGain: t.found,
		BestGain:            gainAt,
		BestNode:            node,
		BestView:            view,
		Iterations:          mp.iterations,
		Tree:                mp.tree,
	}, nil
}
