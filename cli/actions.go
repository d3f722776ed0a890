package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/mdi-inspection/mdi/config"
	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/motionplan"
	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/pointcloud"
	"github.com/mdi-inspection/mdi/services/inspection"
	"github.com/mdi-inspection/mdi/spline"
	"github.com/mdi-inspection/mdi/visualization"
)

// newLogger logs to the app's error writer so stdout only carries command output, and also to
// --log-file when given. The returned func closes the log file.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("mdi")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}
	if fn := c.Path(flagLogFile); fn != "" {
		appender, closer := logging.NewFileAppender(fn)
		logger.AddAppender(appender)
		return logger, func() { utils.UncheckedErrorFunc(closer.Close) }
	}
	return logger, func() {}
}

func newProgress(c *cli.Context, steps []*Step) *ProgressManager {
	return NewProgressManager(c.App.ErrWriter, steps, WithProgressOutput(c.Bool(flagProgress)))
}

func parsePlane(s string) (visualization.Plane, error) {
	switch strings.ToLower(s) {
	case "xy":
		return visualization.PlaneXY, nil
	case "xz":
		return visualization.PlaneXZ, nil
	case "yz":
		return visualization.PlaneYZ, nil
	}
	return visualization.PlaneXY, errors.Errorf("unknown plane %q, expected xy, xz or yz", s)
}

// loadMap builds an octree from the scan at the --map path.
func loadMap(c *cli.Context, logger logging.Logger) (octree.Octree, error) {
	cloud, err := pointcloud.NewFromFile(c.Path(flagMap), logger)
	if err != nil {
		return nil, err
	}
	return octree.NewFromPointCloud(cloud, c.Float64(flagResolution), c.Float64(flagMaxRange), logger.Sublogger("octree"))
}

// PlanAction answers the requests in --request against the map built from --map. Several requests
// are planned concurrently and answered with a json array in request order.
func PlanAction(c *cli.Context) error {
	logger, closeLog := newLogger(c)
	defer closeLog()
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
	defer cancel()

	plane, err := parsePlane(c.String(flagPlane))
	if err != nil {
		return Errorf(c.App.ErrWriter, "%v", err)
	}
	paths := c.StringSlice(flagRequest)
	if len(paths) > 1 && c.IsSet(flagPNG) {
		return Errorf(c.App.ErrWriter, "--%s needs a single --%s", flagPNG, flagRequest)
	}

	pm := newProgress(c, []*Step{
		{ID: "request", Message: "Reading requests", IndentLevel: 1},
		{ID: "map", Message: "Building occupancy map", IndentLevel: 1},
		{ID: "plan", Message: "Planning", IndentLevel: 1},
		{ID: "render", Message: "Rendering png", IndentLevel: 1},
	})
	defer pm.Stop()

	//nolint:errcheck
	_ = pm.Start("request")
	reqs := make([]*config.PlanRequest, 0, len(paths))
	for _, path := range paths {
		req, err := config.Read(path)
		if err != nil {
			//nolint:errcheck
			_ = pm.Fail("request", err)
			return Errorf(c.App.ErrWriter, "%v", err)
		}
		reqs = append(reqs, req)
	}
	//nolint:errcheck
	_ = pm.CompleteWithMessage("request", fmt.Sprintf("Read %d request(s)", len(reqs)))

	var tree octree.Octree
	if c.IsSet(flagMap) {
		//nolint:errcheck
		_ = pm.Start("map")
		if tree, err = loadMap(c, logger); err != nil {
			//nolint:errcheck
			_ = pm.Fail("map", err)
			return Errorf(c.App.ErrWriter, "%v", err)
		}
		//nolint:errcheck
		_ = pm.CompleteWithMessage("map", fmt.Sprintf("Built occupancy map with %d voxels", tree.Size()))
	} else {
		warningf(c.App.ErrWriter, "no --map given, every collision check will fail")
	}

	var opts []inspection.Option
	var recorder *visualization.Recorder
	if c.IsSet(flagPNG) {
		recorder = visualization.NewRecorder()
		opts = append(opts, inspection.WithObserverFactory(func(string) motionplan.Observer {
			return recorder
		}))
	}
	svc := inspection.NewService(inspection.NewMemoryMapProvider(tree, logger), logger.Sublogger("inspection"), opts...)

	//nolint:errcheck
	_ = pm.Start("plan")
	responses, err := svc.PlanAll(ctx, reqs, c.Int(flagParallel))
	if err != nil {
		//nolint:errcheck
		_ = pm.Fail("plan", err)
		return Errorf(c.App.ErrWriter, "%v", err)
	}
	failed := 0
	for _, resp := range responses {
		if !resp.Success {
			failed++
			warningf(c.App.ErrWriter, "planning %s failed: %s", resp.ID, resp.Error)
		}
	}
	if failed == 0 {
		//nolint:errcheck
		_ = pm.Complete("plan")
	} else {
		//nolint:errcheck
		_ = pm.Fail("plan", errors.Errorf("%d of %d requests failed", failed, len(responses)))
	}

	if recorder != nil {
		resp := responses[0]
		//nolint:errcheck
		_ = pm.Start("render")
		err := recorder.SavePNG(c.Path(flagPNG), visualization.PlotOptions{
			Plane:     plane,
			Title:     string(resp.Mode) + " " + resp.ID,
			Waypoints: pointsToVectors(resp.Waypoints),
			Smoothed:  pointsToVectors(resp.Smoothed),
			Blocked:   c.Bool(flagBlocked),
		})
		if err != nil {
			//nolint:errcheck
			_ = pm.Fail("render", err)
			return Errorf(c.App.ErrWriter, "%v", err)
		}
		//nolint:errcheck
		_ = pm.Complete("render")
	}

	return writePlanResponses(c, responses)
}

func writePlanResponses(c *cli.Context, responses []*config.PlanResponse) (err error) {
	if c.Bool(flagTable) {
		for _, resp := range responses {
			printf(c.App.Writer, "%s", responseSummary(resp))
			printf(c.App.Writer, "%s", waypointTable(resp.Waypoints))
		}
		return nil
	}

	w := c.App.Writer
	if out := c.Path(flagOutput); out != "" {
		//nolint:gosec
		f, createErr := os.Create(out)
		if createErr != nil {
			return Errorf(c.App.ErrWriter, "%v", createErr)
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
			if err == nil {
				infof(c.App.ErrWriter, "wrote %d response(s) to %s", len(responses), out)
			}
		}()
		w = f
	}
	if len(responses) == 1 {
		return config.WriteResponse(w, responses[0])
	}
	return config.WriteResponses(w, responses)
}

func pointsToVectors(points []config.Point) motionplan.Waypoints {
	if len(points) == 0 {
		return nil
	}
	vs := make(motionplan.Waypoints, 0, len(points))
	for _, p := range points {
		vs = append(vs, p.Vector())
	}
	return vs
}

func readPoints(path string) ([]config.Point, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var points []config.Point
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, errors.Wrapf(err, "cannot parse points in %q", path)
	}
	return points, nil
}

// SplineAction fits a Bezier curve through the points in --points and prints its samples.
func SplineAction(c *cli.Context) error {
	points, err := readPoints(c.Path(flagPoints))
	if err != nil {
		return Errorf(c.App.ErrWriter, "%v", err)
	}
	s, err := spline.Build(pointsToVectors(points), c.Int(flagSamples))
	if err != nil {
		return Errorf(c.App.ErrWriter, "%v", err)
	}
	samples := s.Points()
	if spacing := c.Float64(flagSpacing); spacing > 0 {
		if samples, err = s.Resample(spacing); err != nil {
			return Errorf(c.App.ErrWriter, "%v", err)
		}
	}
	out := config.PointsFromVectors(samples)

	if c.Bool(flagTable) {
		infof(c.App.ErrWriter, "arc length %s m", formatCoord(s.ArcLength()))
		printf(c.App.Writer, "%s", waypointTable(out))
		return nil
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// MapAction prints how many voxels of the map built from --map are free or occupied.
func MapAction(c *cli.Context) error {
	logger, closeLog := newLogger(c)
	defer closeLog()
	pm := newProgress(c, []*Step{{ID: "map", Message: "Building occupancy map", IndentLevel: 1}})
	defer pm.Stop()

	//nolint:errcheck
	_ = pm.Start("map")
	tree, err := loadMap(c, logger)
	if err != nil {
		//nolint:errcheck
		_ = pm.Fail("map", err)
		return Errorf(c.App.ErrWriter, "%v", err)
	}
	//nolint:errcheck
	_ = pm.Complete("map")

	if box, ok := tree.Bounds(); ok {
		infof(c.App.ErrWriter, "observed space spans %v to %v", box.Min, box.Max)
	} else {
		warningf(c.App.ErrWriter, "the scan observed no space")
	}
	printf(c.App.Writer, "%s", mapTable(tree))
	return nil
}

// SchemaAction prints the json schema of planning requests, or of responses with --response.
func SchemaAction(c *cli.Context) error {
	schema := config.RequestSchema()
	if c.Bool(flagResponse) {
		schema = config.ResponseSchema()
	}
	data, err := config.MarshalSchema(schema)
	if err != nil {
		return Errorf(c.App.ErrWriter, "%v", err)
	}
	printf(c.App.Writer, "%s", data)
	return nil
}
