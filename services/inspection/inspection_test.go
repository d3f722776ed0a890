package inspection

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/mdi-inspection/mdi/config"
	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/motionplan"
	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/spatialmath"
)

func newTestMap(t *testing.T, logger logging.Logger) octree.Octree {
	t.Helper()
	tree, err := octree.New(r3.Vector{Z: 1}, 16, 0.2, logger)
	test.That(t, err, test.ShouldBeNil)
	// a post between start and goal
	for z := 0.; z < 2; z += 0.1 {
		test.That(t, tree.Update(r3.Vector{X: 2, Z: z}, true), test.ShouldBeNil)
	}
	return tree
}

// goalRequest flies around the post of newTestMap, the only mapped space.
func goalRequest() *config.PlanRequest {
	bias := 0.2
	return &config.PlanRequest{
		ID:   "goal-1",
		Mode: config.ModeGoal,
		RRT: config.RRTConfig{
			Start:              &config.Point{Z: 1},
			Goal:               &config.Point{X: 4, Z: 1},
			MaxIterations:      5000,
			GoalBias:           &bias,
			StepSize:           0.5,
			Bounds:             &config.Bounds{Min: config.Point{X: -2, Y: -3}, Max: config.Point{X: 6, Y: 3, Z: 2}},
			TreatUnknownAsFree: true,
		},
	}
}

func nbvRequest(threshold float64) *config.PlanRequest {
	return &config.PlanRequest{
		ID:   "nbv-1",
		Mode: config.ModeNBV,
		RRT: config.RRTConfig{
			Start:              &config.Point{Z: 1},
			MaxIterations:      200,
			Bounds:             &config.Bounds{Min: config.Point{X: -2, Y: -3}, Max: config.Point{X: 6, Y: 3, Z: 2}},
			TreatUnknownAsFree: true,
		},
		FOV: &config.FOVConfig{Horizontal: 60, Vertical: 45, DepthRange: config.DepthRange{Min: 0.3, Max: 2}},
		NBV: &config.NBVConfig{
			Target:                  &config.Point{X: 2, Z: 1},
			WeightUnknown:           1,
			WeightDistanceToObject:  0.1,
			GainOfInterestThreshold: threshold,
		},
	}
}

type failingProvider struct{}

func (failingProvider) FetchMap(ctx context.Context) (octree.Map, error) {
	return nil, errors.New("map server timed out")
}

func (failingProvider) ClearRegion(ctx context.Context, box spatialmath.BoundingBox) (int, error) {
	return 0, errors.New("map server timed out")
}

func (failingProvider) Reset(ctx context.Context) error {
	return errors.New("map server timed out")
}

func TestMemoryMapProvider(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	provider := NewMemoryMapProvider(newTestMap(t, logger), logger)

	snapshot, err := provider.FetchMap(ctx)
	test.That(t, err, test.ShouldBeNil)
	state, err := snapshot.Query(r3.Vector{X: 2, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, octree.Occupied)

	// snapshots are independent of the master map
	n, err := provider.ClearRegion(ctx, spatialmath.NewBoundingBox(r3.Vector{X: 1.5, Y: -0.5}, r3.Vector{X: 2.5, Y: 0.5, Z: 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldBeGreaterThan, 0)
	state, err = snapshot.Query(r3.Vector{X: 2, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, octree.Occupied)

	fresh, err := provider.FetchMap(ctx)
	test.That(t, err, test.ShouldBeNil)
	state, err = fresh.Query(r3.Vector{X: 2, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, octree.Free)

	test.That(t, provider.Reset(ctx), test.ShouldBeNil)
	fresh, err = provider.FetchMap(ctx)
	test.That(t, err, test.ShouldBeNil)
	state, err = fresh.Query(r3.Vector{X: 2, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, octree.Unknown)

	_, err = provider.ClearRegion(ctx, spatialmath.BoundingBox{Min: r3.Vector{X: 1}})
	test.That(t, err, test.ShouldNotBeNil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = provider.FetchMap(cancelled)
	test.That(t, err, test.ShouldBeError, context.Canceled)

	empty := NewMemoryMapProvider(nil, logger)
	m, err := empty.FetchMap(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldBeNil)
	test.That(t, empty.Reset(ctx), test.ShouldNotBeNil)
	_, err = empty.ClearRegion(ctx, spatialmath.NewBoundingBox(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindPath(t *testing.T) {
	logger := logging.NewTestLogger(t)
	svc := NewService(NewMemoryMapProvider(newTestMap(t, logger), logger), logger)

	req := goalRequest()
	req.Spline = &config.SplineConfig{Resolution: 40, Spacing: 0.25}
	resp, err := svc.Plan(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Success, test.ShouldBeTrue)
	test.That(t, resp.ID, test.ShouldEqual, "goal-1")
	test.That(t, resp.Error, test.ShouldBeEmpty)
	test.That(t, resp.Waypoints[0], test.ShouldResemble, config.Point{Z: 1})
	test.That(t, resp.Waypoints[len(resp.Waypoints)-1], test.ShouldResemble, config.Point{X: 4, Z: 1})
	test.That(t, resp.FoundNBVWithSufficientGain, test.ShouldBeNil)
	test.That(t, resp.Iterations, test.ShouldBeGreaterThan, 0)

	test.That(t, len(resp.Smoothed), test.ShouldBeGreaterThan, 2)
	test.That(t, resp.Smoothed[0], test.ShouldResemble, config.Point{Z: 1})
	test.That(t, resp.Smoothed[len(resp.Smoothed)-1], test.ShouldResemble, config.Point{X: 4, Z: 1})
}

func TestFindPathWithoutMap(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, provider := range []MapProvider{NewMemoryMapProvider(nil, logger), failingProvider{}, nil} {
		svc := NewService(provider, logger)
		req := goalRequest()
		req.RRT.MaxIterations = 20
		resp, err := svc.Plan(context.Background(), req)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, resp.Success, test.ShouldBeFalse)
		test.That(t, resp.MapUnavailable, test.ShouldBeTrue)
		test.That(t, resp.Error, test.ShouldContainSubstring, motionplan.ErrMapUnavailable.Error())
		test.That(t, resp.Waypoints, test.ShouldResemble, []config.Point{{Z: 1}})
		test.That(t, resp.Iterations, test.ShouldEqual, 20)
	}
}

func TestPlanErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	svc := NewService(NewMemoryMapProvider(newTestMap(t, logger), logger), logger)

	_, err := svc.Plan(context.Background(), nil)
	test.That(t, err, test.ShouldNotBeNil)

	req := goalRequest()
	req.RRT.StepSize = -1
	_, err = svc.Plan(context.Background(), req)
	var cfgErr *motionplan.ConfigurationError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Plan(ctx, goalRequest())
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestNextBestView(t *testing.T) {
	logger := logging.NewTestLogger(t)
	svc := NewService(NewMemoryMapProvider(newTestMap(t, logger), logger), logger)

	resp, err := svc.Plan(context.Background(), nbvRequest(-1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Success, test.ShouldBeTrue)
	test.That(t, *resp.FoundNBVWithSufficientGain, test.ShouldBeTrue)
	test.That(t, resp.BestGain, test.ShouldNotBeNil)
	// the start already clears a negative threshold
	test.That(t, resp.Waypoints, test.ShouldResemble, []config.Point{{Z: 1}})

	resp, err = svc.Plan(context.Background(), nbvRequest(100))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Success, test.ShouldBeFalse)
	test.That(t, *resp.FoundNBVWithSufficientGain, test.ShouldBeFalse)
	test.That(t, *resp.BestGain, test.ShouldBeLessThan, 100)
	test.That(t, resp.Error, test.ShouldNotBeEmpty)
	test.That(t, resp.Iterations, test.ShouldEqual, 200)
	test.That(t, resp.Waypoints[0], test.ShouldResemble, config.Point{Z: 1})
}

func TestObserverFactory(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var mu sync.Mutex
	created := map[string]int{}
	factory := func(id string) motionplan.Observer {
		return motionplan.ObserverFuncs{OnNodeCreated: func(parent, node motionplan.Node, index int) {
			mu.Lock()
			defer mu.Unlock()
			created[id]++
		}}
	}
	svc := NewService(NewMemoryMapProvider(newTestMap(t, logger), logger), logger, WithObserverFactory(factory))
	resp, err := svc.Plan(context.Background(), goalRequest())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Success, test.ShouldBeTrue)
	test.That(t, created["goal-1"], test.ShouldBeGreaterThanOrEqualTo, len(resp.Waypoints)-1)
}

func TestConcurrentRequests(t *testing.T) {
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	provider := NewMemoryMapProvider(newTestMap(t, logger), logger)
	svc := NewService(provider, logger)

	var wg sync.WaitGroup
	responses := make([]*config.PlanResponse, 6)
	errs := make([]error, 6)
	for i := range responses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := goalRequest()
			req.RRT.Seed = int64(i + 1)
			responses[i], errs[i] = svc.Plan(context.Background(), req)
		}(i)
	}
	var clearErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, clearErr = provider.ClearRegion(context.Background(), spatialmath.NewBoundingBox(r3.Vector{X: -1, Y: -1}, r3.Vector{X: 1, Y: 1, Z: 2}))
	}()
	wg.Wait()

	test.That(t, clearErr, test.ShouldBeNil)

	for i := range responses {
		test.That(t, errs[i], test.ShouldBeNil)
		test.That(t, responses[i].Success, test.ShouldBeTrue)
	}
}

func TestPlanAll(t *testing.T) {
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	svc := NewService(NewMemoryMapProvider(newTestMap(t, logger), logger), logger)

	reqs := make([]*config.PlanRequest, 4)
	for i := range reqs {
		reqs[i] = goalRequest()
		reqs[i].ID = fmt.Sprintf("goal-%d", i)
		reqs[i].RRT.Seed = int64(i + 10)
	}
	responses, err := svc.PlanAll(context.Background(), reqs, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, responses, test.ShouldHaveLength, 4)
	for i, resp := range responses {
		test.That(t, resp.ID, test.ShouldEqual, reqs[i].ID)
		test.That(t, resp.Success, test.ShouldBeTrue)
	}

	bad := goalRequest()
	bad.ID = "bad"
	bad.RRT.Goal = nil
	_, err = svc.PlanAll(context.Background(), []*config.PlanRequest{goalRequest(), bad}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "request 1 (bad)")
}

func TestDoCommand(t *testing.T) {
	logger := logging.NewTestLogger(t)
	svc := NewService(NewMemoryMapProvider(newTestMap(t, logger), logger), logger)
	ctx := context.Background()

	out, err := svc.DoCommand(ctx, map[string]interface{}{
		"command": CommandPlan,
		"mode":    "goal",
		"rrt_config": map[string]interface{}{
			"start":          map[string]interface{}{"x": 0.0, "y": 0.0, "z": 1.0},
			"goal":           map[string]interface{}{"x": 4.0, "y": 0.0, "z": 1.0},
			"max_iterations": 5000.0,
			"step_size":      0.5,
		},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out["success"], test.ShouldEqual, true)
	test.That(t, out["id"], test.ShouldNotBeEmpty)
	waypoints, ok := out["waypoints"].([]interface{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(waypoints), test.ShouldBeGreaterThan, 1)

	out, err = svc.DoCommand(ctx, map[string]interface{}{
		"command": CommandClearRegion,
		"min":     map[string]interface{}{"x": 1.5, "y": -0.5, "z": 0.0},
		"max":     map[string]interface{}{"x": 2.5, "y": 0.5, "z": 2.0},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out["cleared"], test.ShouldBeGreaterThan, 0)

	_, err = svc.DoCommand(ctx, map[string]interface{}{"command": CommandReset})
	test.That(t, err, test.ShouldBeNil)

	_, err = svc.DoCommand(ctx, map[string]interface{}{"command": "fly"})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = svc.DoCommand(ctx, map[string]interface{}{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = svc.DoCommand(ctx, map[string]interface{}{"command": CommandPlan, "rrt_config": map[string]interface{}{}})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewService(nil, logger).DoCommand(ctx, map[string]interface{}{"command": CommandReset})
	test.That(t, err, test.ShouldNotBeNil)
}
