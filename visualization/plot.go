package visualization

import (
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plane selects the two axes a 3D scene is projected onto.
type Plane int

// The projection planes.
const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) project(v r3.Vector) (float64, float64) {
	switch p {
	case PlaneXZ:
		return v.X, v.Z
	case PlaneYZ:
		return v.Y, v.Z
	default:
		return v.X, v.Y
	}
}

func (p Plane) labels() (string, string) {
	switch p {
	case PlaneXZ:
		return "x (m)", "z (m)"
	case PlaneYZ:
		return "y (m)", "z (m)"
	default:
		return "x (m)", "y (m)"
	}
}

var (
	treeColor     = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	blockedColor  = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	pathColor     = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	smoothedColor = color.RGBA{R: 40, G: 170, B: 80, A: 255}
)

// segments draws many unconnected line segments in one plotter.
type segments struct {
	segs  []Segment
	plane Plane
	style draw.LineStyle
}

func (s *segments) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, seg := range s.segs {
		x0, y0 := s.plane.project(seg.From)
		x1, y1 := s.plane.project(seg.To)
		c.StrokeLine2(s.style, trX(x0), trY(y0), trX(x1), trY(y1))
	}
}

func (s *segments) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, seg := range s.segs {
		for _, v := range []r3.Vector{seg.From, seg.To} {
			x, y := s.plane.project(v)
			xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
			ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
		}
	}
	return xmin, xmax, ymin, ymax
}

func (s *segments) Thumbnail(c *draw.Canvas) {
	y := c.Center().Y
	c.StrokeLine2(s.style, c.Min.X, y, c.Max.X, y)
}

// PlotOptions selects what is drawn on top of the recorded tree.
type PlotOptions struct {
	Plane Plane
	Title string
	// Waypoints is the planned path.
	Waypoints []r3.Vector
	// Smoothed is the sampled spline through the path.
	Smoothed []r3.Vector
	// Blocked draws the collision checks that hit an obstacle.
	Blocked bool
}

func (opts PlotOptions) xys(pts []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, 0, len(pts))
	for _, p := range pts {
		x, y := opts.Plane.project(p)
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	return xys
}

// Plot renders the recorded tree and the optional path and spline.
func (r *Recorder) Plot(opts PlotOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text, p.Y.Label.Text = opts.Plane.labels()
	p.Add(plotter.NewGrid())

	if edges := r.Edges(); len(edges) > 0 {
		tree := &segments{segs: edges, plane: opts.Plane, style: draw.LineStyle{Color: treeColor, Width: vg.Points(0.5)}}
		p.Add(tree)
		p.Legend.Add("tree", tree)
	}
	if opts.Blocked {
		var blocked []Segment
		for _, rc := range r.Raycasts() {
			if !rc.Free {
				blocked = append(blocked, rc.Segment)
			}
		}
		if len(blocked) > 0 {
			rays := &segments{segs: blocked, plane: opts.Plane, style: draw.LineStyle{
				Color: blockedColor, Width: vg.Points(0.5), Dashes: []vg.Length{vg.Points(2), vg.Points(2)},
			}}
			p.Add(rays)
			p.Legend.Add("blocked", rays)
		}
	}
	if len(opts.Smoothed) > 1 {
		line, err := plotter.NewLine(opts.xys(opts.Smoothed))
		if err != nil {
			return nil, errors.Wrap(err, "invalid spline points")
		}
		line.Color = smoothedColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("spline", line)
	}
	if len(opts.Waypoints) > 0 {
		xys := opts.xys(opts.Waypoints)
		points, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, errors.Wrap(err, "invalid waypoints")
		}
		points.Color = pathColor
		points.Shape = draw.CircleGlyph{}
		if len(xys) > 1 {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, errors.Wrap(err, "invalid waypoints")
			}
			line.Color = pathColor
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add("path", line, points)
		}
		p.Add(points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// plotSize is the side of the square image.
const plotSize = 8 * vg.Inch

// SavePNG renders the plot to a png file.
func (r *Recorder) SavePNG(path string, opts PlotOptions) error {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return errors.Errorf("expected a .png file, got %q", path)
	}
	p, err := r.Plot(opts)
	if err != nil {
		return err
	}
	return p.Save(plotSize, plotSize, path)
}

// WritePNG renders the plot as png to w.
func (r *Recorder) WritePNG(w io.Writer, opts PlotOptions) error {
	p, err := r.Plot(opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotSize, plotSize, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
