// Package inspection answers planning requests against a shared occupancy map. Every request runs
// on its own map snapshot and its own tree, so requests may be served concurrently.
package inspection

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-viper/mapstructure/v2"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mdi-inspection/mdi/config"
	"github.com/mdi-inspection/mdi/gain"
	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/motionplan"
	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/spatialmath"
	"github.com/mdi-inspection/mdi/spline"
)

// Option configures a Service.
type Option func(*Service)

// WithObserverFactory attaches a fresh observer to every planning run. The factory is called once per
// request with the request id.
func WithObserverFactory(f func(id string) motionplan.Observer) Option {
	return func(s *Service) {
		s.observerFactory = f
	}
}

// Service plans paths and next-best views.
type Service struct {
	provider        MapProvider
	logger          logging.Logger
	observerFactory func(id string) motionplan.Observer
}

// NewService returns a Service reading maps from provider.
func NewService(provider MapProvider, logger logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewBlankLogger("inspection")
	}
	s := &Service{provider: provider, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot fetches the map for one run. A failed fetch is logged and the run goes ahead without a
// map, which the planner treats as occupied everywhere.
func (s *Service) snapshot(ctx context.Context, logger logging.Logger) octree.Map {
	if s.provider == nil {
		return nil
	}
	m, err := s.provider.FetchMap(ctx)
	if err != nil {
		logger.Warnw("failed to fetch occupancy map", "error", err)
		return nil
	}
	return m
}

func (s *Service) plannerOptions(id string) []motionplan.Option {
	if s.observerFactory == nil {
		return nil
	}
	if o := s.observerFactory(id); o != nil {
		return []motionplan.Option{motionplan.WithObserver(o)}
	}
	return nil
}

// Plan validates req and dispatches on its mode.
func (s *Service) Plan(ctx context.Context, req *config.PlanRequest) (*config.PlanResponse, error) {
	if req == nil {
		return nil, pkgerrors.New("no planning request")
	}
	if err := req.Validate("request"); err != nil {
		return nil, err
	}
	if req.Mode == config.ModeNBV {
		return s.NextBestView(ctx, req)
	}
	return s.FindPath(ctx, req)
}

// PlanAll answers reqs concurrently, running at most limit requests at a time; limit <= 0 means no
// limit. Responses are in request order. The first request that errors cancels the others.
func (s *Service) PlanAll(ctx context.Context, reqs []*config.PlanRequest, limit int) ([]*config.PlanResponse, error) {
	responses := make([]*config.PlanResponse, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := s.Plan(gctx, req)
			if err != nil {
				id := ""
				if req != nil {
					id = req.ID
				}
				return pkgerrors.Wrapf(err, "request %d (%s)", i, id)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

// FindPath plans from the request's start to its goal. A path that could not be found is reported in
// the response, not as an error; the error is reserved for invalid requests and cancellation.
func (s *Service) FindPath(ctx context.Context, req *config.PlanRequest) (*config.PlanResponse, error) {
	logger := s.logger.Sublogger(req.ID)
	if req.RRT.Goal == nil {
		return nil, pkgerrors.New("find path needs rrt_config.goal")
	}
	m := s.snapshot(ctx, logger)
	mp, err := motionplan.NewRRTPlanner(req.RRT.PlannerConfig(), m, logger, s.plannerOptions(req.ID)...)
	if err != nil {
		return nil, err
	}
	logger.Infow("finding path", "start", req.RRT.Start.Vector(), "goal", req.RRT.Goal.Vector())

	resp := config.NewPlanResponse(req)
	waypoints, err := mp.Plan(ctx)
	resp.Iterations = mp.Iterations()
	resp.MapUnavailable = mp.MapUnavailable()
	if err != nil {
		return s.failed(ctx, resp, err)
	}
	resp.Success = true
	resp.SetWaypoints(waypoints)
	if err := smooth(resp, req.Spline, waypoints); err != nil {
		return nil, err
	}
	return resp, nil
}

// NextBestView grows a tree from the request's start toward the most informative view of its target.
// A run that only found a best-effort view answers with success unset, the fallback path and its gain.
func (s *Service) NextBestView(ctx context.Context, req *config.PlanRequest) (*config.PlanResponse, error) {
	logger := s.logger.Sublogger(req.ID)
	nbv, err := req.NBVPlannerConfig()
	if err != nil {
		return nil, err
	}
	weights, err := req.NBV.Weights()
	if err != nil {
		return nil, err
	}
	scorer, err := gain.NewScorer(weights)
	if err != nil {
		return nil, err
	}
	m := s.snapshot(ctx, logger)
	logger.Infow("searching next best view", "start", req.RRT.Start.Vector(), "target", nbv.Target)

	resp := config.NewPlanResponse(req)
	result, err := motionplan.NextBestView(ctx, req.RRT.PlannerConfig(), nbv, scorer, m, logger, s.plannerOptions(req.ID)...)
	if result != nil {
		resp.Iterations = result.Iterations
		resp.SetWaypoints(result.Waypoints)
		resp.SetGain(result.FoundSufficientGain, result.BestGain)
	}
	if err != nil {
		return s.failed(ctx, resp, err)
	}
	resp.Success = true
	if err := smooth(resp, req.Spline, result.Waypoints); err != nil {
		return nil, err
	}
	return resp, nil
}

// failed turns a planning failure into an unsuccessful response. Other errors are returned as is.
func (s *Service) failed(ctx context.Context, resp *config.PlanResponse, err error) (*config.PlanResponse, error) {
	var failure *motionplan.PlanningFailure
	if !errors.As(err, &failure) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, err
	}
	resp.Error = err.Error()
	resp.Iterations = failure.Iterations
	resp.MapUnavailable = failure.MapUnavailable
	if len(failure.Partial) > 0 {
		resp.SetWaypoints(failure.Partial)
	}
	return resp, nil
}

func smooth(resp *config.PlanResponse, cfg *config.SplineConfig, waypoints motionplan.Waypoints) error {
	if cfg == nil || len(waypoints) == 0 {
		return nil
	}
	resolution := cfg.Resolution
	if resolution == 0 {
		resolution = spline.DefaultResolution
	}
	s, err := spline.Build(waypoints, resolution)
	if err != nil {
		return err
	}
	points := s.Points()
	if cfg.Spacing > 0 {
		if points, err = s.Resample(cfg.Spacing); err != nil {
			return err
		}
	}
	resp.Smoothed = config.PointsFromVectors(points)
	return nil
}

// The commands understood by DoCommand.
const (
	CommandPlan        = "plan"
	CommandClearRegion = "clear_region"
	CommandReset       = "reset"
)

// DoCommand serves requests received as attribute maps. The "command" key selects plan, clear_region
// or reset; the remaining keys are the arguments of the command.
func (s *Service) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, ok := cmd["command"].(string)
	if !ok {
		return nil, pkgerrors.New(`missing "command"`)
	}
	args := make(map[string]interface{}, len(cmd))
	for k, v := range cmd {
		if k != "command" {
			args[k] = v
		}
	}

	switch name {
	case CommandPlan:
		req, err := config.FromMap(args)
		if err != nil {
			return nil, err
		}
		resp, err := s.Plan(ctx, req)
		if err != nil {
			return nil, err
		}
		return responseToMap(resp)
	case CommandClearRegion:
		var box config.Bounds
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &box})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(args); err != nil {
			return nil, err
		}
		if s.provider == nil {
			return nil, pkgerrors.New("no map provider")
		}
		n, err := s.provider.ClearRegion(ctx, spatialmath.BoundingBox{Min: box.Min.Vector(), Max: box.Max.Vector()})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"cleared": n}, nil
	case CommandReset:
		if s.provider == nil {
			return nil, pkgerrors.New("no map provider")
		}
		if err := s.provider.Reset(ctx); err != nil {
			return nil, err
		}
		return map[string]interface{}{}, nil
	default:
		return nil, pkgerrors.Errorf("unknown command %q", name)
	}
}

// responseToMap goes through json so the map holds only plain json values.
func responseToMap(resp *config.PlanResponse) (map[string]interface{}, error) {
	buf, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}
