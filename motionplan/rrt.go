// Package motionplan grows rapidly exploring random trees through the free space of an occupancy map.
// RRTPlanner reaches a goal position; NextBestView grows the same tree while scoring every new node as
// a camera viewpoint and stops at the first view whose gain is high enough.
package motionplan

import (
	"context"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/octree"
)

// Step describes the outcome of one growth step.
type Step struct {
	Sample  r3.Vector
	Nearest int
	// Added is the index of the new node, or -1 when the step was rejected.
	Added int
	// Reached is set when the goal was reached by this step. GoalNode is then the node to backtrack from.
	Reached  bool
	GoalNode int
}

// Option configures an RRTPlanner.
type Option func(*RRTPlanner)

// WithObserver adds an observer that is notified of tree growth and collision checks.
func WithObserver(o Observer) Option {
	return func(mp *RRTPlanner) {
		mp.observers = append(mp.observers, o)
	}
}

// WithRandSource replaces the sampler seeded from the configuration.
func WithRandSource(r *rand.Rand) Option {
	return func(mp *RRTPlanner) {
		mp.randseed = r
	}
}

// RRTPlanner grows a single tree from the start. It is not safe for concurrent use.
type RRTPlanner struct {
	cfg    PlannerConfig
	logger logging.Logger
	m      octree.Map
	tree   *Tree
	bounds r3.Vector
	lo     r3.Vector

	mapUnavailable bool
	iterations     int
	goalNode       int
	reached        bool

	randseed  *rand.Rand
	observers []Observer
	// nodeHook is the mandatory per-node collaborator of next-best-view runs.
	nodeHook func(index int)
}

// NewRRTPlanner validates cfg and returns a planner over m. A nil map is treated as unavailable:
// every query answers occupied and failures match ErrMapUnavailable.
func NewRRTPlanner(cfg *PlannerConfig, m octree.Map, logger logging.Logger, opts ...Option) (*RRTPlanner, error) {
	if cfg == nil {
		return nil, newConfigurationError("config", nil, "is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("rrt")
	}

	mp := &RRTPlanner{
		cfg:      *cfg,
		logger:   logger,
		m:        m,
		tree:     NewTree(cfg.Start),
		goalNode: -1,
	}
	if cfg.Goal != nil {
		g := *cfg.Goal
		mp.cfg.Goal = &g
	}
	if octree.IsUnavailable(m) {
		mp.mapUnavailable = true
		mp.m = octree.Unavailable()
		logger.Warn("no occupancy map available, treating all space as occupied")
	}

	var extra []r3.Vector
	if mp.cfg.Goal != nil {
		extra = append(extra, *mp.cfg.Goal)
	}
	mapBounds, haveMap := mp.m.Bounds()
	box := mp.cfg.samplingBounds(mapBounds, haveMap, extra...)
	mp.lo = box.Min
	mp.bounds = box.Size()

	//nolint:gosec
	mp.randseed = rand.New(rand.NewSource(cfg.Seed))
	for _, opt := range opts {
		opt(mp)
	}
	return mp, nil
}

// Tree returns the tree grown so far. Callers must not modify it.
func (mp *RRTPlanner) Tree() *Tree {
	return mp.tree
}

// Iterations returns how many growth steps have run.
func (mp *RRTPlanner) Iterations() int {
	return mp.iterations
}

// MapUnavailable reports whether the planner runs without an occupancy map.
func (mp *RRTPlanner) MapUnavailable() bool {
	return mp.mapUnavailable
}

func (mp *RRTPlanner) sample() r3.Vector {
	//nolint:gosec
	if mp.cfg.Goal != nil && mp.randseed.Float64() < mp.cfg.GoalBias {
		return *mp.cfg.Goal
	}
	return r3.Vector{
		X: mp.lo.X + mp.randseed.Float64()*mp.bounds.X,
		Y: mp.lo.Y + mp.randseed.Float64()*mp.bounds.Y,
		Z: mp.lo.Z + mp.randseed.Float64()*mp.bounds.Z,
	}
}

// checkPath reports whether the straight segment is free and notifies observers of the check. Query
// errors block the segment.
func (mp *RRTPlanner) checkPath(from, to r3.Vector) bool {
	result, err := octree.CheckSegment(mp.m, from, to, mp.cfg.TreatUnknownAsFree)
	if err != nil {
		mp.logger.Debugw("occupancy query failed, treating segment as blocked", "error", err)
	}
	for _, o := range mp.observers {
		o.Raycast(from, to, result.Free)
	}
	return result.Free
}

// GrowOneStep samples a point, extends the nearest node toward it by at most the step size and adds
// the new node when the segment is free. In goal mode it then checks whether the goal was reached,
// either within tolerance or, with the configured probability, by a free straight connection.
func (mp *RRTPlanner) GrowOneStep() Step {
	mp.iterations++
	target := mp.sample()
	nearest, dist := nearestNeighbor(mp.tree, target)
	step := Step{Sample: target, Nearest: nearest, Added: -1, GoalNode: -1}
	if dist == 0 {
		return step
	}

	from := mp.tree.nodes[nearest].Position
	newPos := target
	if dist > mp.cfg.StepSize {
		newPos = from.Add(target.Sub(from).Mul(mp.cfg.StepSize / dist))
	}
	if !mp.checkPath(from, newPos) {
		return step
	}

	idx, err := mp.tree.Add(nearest, newPos)
	if err != nil {
		mp.logger.Errorw("failed to add node", "error", err)
		return step
	}
	step.Added = idx
	mp.logger.Debugw("grew node", "index", idx, "parent", nearest, "position", newPos)
	for _, o := range mp.observers {
		o.NodeCreated(mp.tree.nodes[nearest], mp.tree.nodes[idx], idx)
	}
	if mp.nodeHook != nil {
		mp.nodeHook(idx)
	}

	if mp.cfg.Goal == nil {
		return step
	}
	goal := *mp.cfg.Goal
	if newPos.Distance(goal) <= mp.cfg.GoalTolerance {
		mp.markReached(&step, idx)
		return step
	}
	//nolint:gosec
	if mp.cfg.ProbabilityOfTestingFullPathToGoal > 0 && mp.randseed.Float64() < mp.cfg.ProbabilityOfTestingFullPathToGoal {
		if mp.checkPath(newPos, goal) {
			goalIdx, err := mp.tree.Add(idx, goal)
			if err == nil {
				for _, o := range mp.observers {
					o.NodeCreated(mp.tree.nodes[idx], mp.tree.nodes[goalIdx], goalIdx)
				}
				mp.markReached(&step, goalIdx)
			}
		}
	}
	return step
}

func (mp *RRTPlanner) markReached(step *Step, idx int) {
	step.Reached = true
	step.GoalNode = idx
	mp.reached = true
	mp.goalNode = idx
}

// Plan grows the tree until the goal is reached or MaxIterations steps have run, checking ctx between
// steps. On success the path ends at the goal: when the reaching node lies within tolerance but not
// on the goal, the goal is appended if that last segment is free. On failure a *PlanningFailure holds
// the path to the node nearest the goal.
func (mp *RRTPlanner) Plan(ctx context.Context) (Waypoints, error) {
	if mp.cfg.Goal == nil {
		return nil, newConfigurationError("goal", nil, "is required for goal directed planning")
	}
	goal := *mp.cfg.Goal

	for !mp.reached && mp.iterations < mp.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return nil, mp.failure(err)
		}
		mp.GrowOneStep()
	}
	if !mp.reached {
		failure := mp.failure(nil)
		mp.logger.Infow("no path found", "iterations", mp.iterations, "nodes", mp.tree.Len())
		return nil, failure
	}

	waypoints, err := mp.tree.Backtrack(mp.goalNode)
	if err != nil {
		return nil, err
	}
	last := waypoints[len(waypoints)-1]
	if last != goal && mp.checkPath(last, goal) {
		waypoints = append(waypoints, goal)
	}
	if mp.cfg.OptimizeWaypoints {
		waypoints = mp.optimizeWaypoints(waypoints)
	}
	mp.logPath("found path", waypoints)
	return waypoints, nil
}

func (mp *RRTPlanner) failure(cause error) *PlanningFailure {
	failure := &PlanningFailure{
		Iterations:     mp.iterations,
		BestGain:       math.NaN(),
		MapUnavailable: mp.mapUnavailable,
		Cause:          cause,
	}
	if mp.cfg.Goal != nil {
		nearest, _ := nearestNeighbor(mp.tree, *mp.cfg.Goal)
		if partial, err := mp.tree.Backtrack(nearest); err == nil {
			failure.Partial = partial
		}
	}
	return failure
}

func (mp *RRTPlanner) logPath(msg string, waypoints Waypoints) {
	lengths := waypoints.SegmentLengths()
	if len(lengths) == 0 {
		mp.logger.Infow(msg, "iterations", mp.iterations, "nodes", mp.tree.Len(), "waypoints", len(waypoints))
		return
	}
	mp.logger.Infow(msg,
		"iterations", mp.iterations,
		"nodes", mp.tree.Len(),
		"waypoints", len(waypoints),
		"length", floats.Sum(lengths),
		"mean_segment", stat.Mean(lengths, nil),
		"max_segment", floats.Max(lengths),
	)
}
