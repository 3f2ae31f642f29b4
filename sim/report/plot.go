// Package report turns a finished run into its outputs: the console summary,
// the journal block, the per-request records and the plot.
package report

import (
	"bytes"
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/cachestudy/cachesim/sim"
)

// Plot dimensions.
var (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 9 * vg.Inch
)

// seriesXY extracts one value per time-series bucket, at the bucket start in
// seconds.
func seriesXY(r *sim.Result, value func(sim.Sample) float64) plotter.XYs {
	xys := make(plotter.XYs, len(r.Series))
	for i, s := range r.Series {
		xys[i].X = float64(s.Start) / sim.TicksPerSecond
		xys[i].Y = value(s)
	}
	return xys
}

// responseTimeXY extracts one response-time statistic of every bucket that
// answered at least one request, at the bucket start in seconds.
func responseTimeXY(r *sim.Result, value func(sim.Distribution) float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(r.Series))
	for _, s := range r.Series {
		if len(s.ResponseTimes) == 0 {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(s.Start) / sim.TicksPerSecond, Y: value(s.ResponseTime())})
	}
	return xys
}

func p50(d sim.Distribution) float64 { return d.P50 }
func p99(d sim.Distribution) float64 { return d.P99 }

// Panels builds the plot panels of a run, top to bottom: hit rate, stampede
// activity, and per-bucket p50/p99 response time. The top title carries the
// parameter caption so the chart is self-describing.
func Panels(p sim.Params, r *sim.Result) ([]*plot.Plot, error) {
	top := plot.New()
	top.Title.Text = fmt.Sprintf("cachesim  %s\nhit rate %.1f%%  concurrent misses %d  stale serves %d  stale sets %d",
		p.Caption(), 100*r.HitRate(), r.ConcurrentMisses, r.ServedStale, r.StaleSets)
	top.X.Label.Text = "time (s)"
	top.Y.Label.Text = "hit rate"
	top.Y.Min, top.Y.Max = 0, 1
	top.Add(plotter.NewGrid())
	hit, err := plotter.NewLine(seriesXY(r, sim.Sample.HitRate))
	if err != nil {
		return nil, fmt.Errorf("hit rate line: %w", err)
	}
	hit.Color = plotutil.Color(0)
	top.Add(hit)

	activity := plot.New()
	activity.X.Label.Text = "time (s)"
	activity.Y.Label.Text = fmt.Sprintf("per %s", p.Config().SampleInterval)
	activity.Y.Min = 0
	activity.Legend.Top = true
	activity.Legend.Left = true
	activity.Add(plotter.NewGrid())
	err = plotutil.AddLines(activity,
		"concurrent misses", seriesXY(r, func(s sim.Sample) float64 { return float64(s.ConcurrentMisses) }),
		"served stale", seriesXY(r, func(s sim.Sample) float64 { return float64(s.ServedStale) }),
		"recomputes", seriesXY(r, func(s sim.Sample) float64 { return float64(s.Recomputes) }),
	)
	if err != nil {
		return nil, fmt.Errorf("activity lines: %w", err)
	}

	latency := plot.New()
	latency.X.Label.Text = "time (s)"
	latency.Y.Label.Text = "response time (ms)"
	latency.Y.Min = 0
	latency.Legend.Top = true
	latency.Legend.Left = true
	latency.Add(plotter.NewGrid())
	// a run where nothing was answered leaves the panel empty
	if median := responseTimeXY(r, p50); len(median) > 0 {
		err = plotutil.AddLines(latency, "p50", median, "p99", responseTimeXY(r, p99))
		if err != nil {
			return nil, fmt.Errorf("response time lines: %w", err)
		}
	}
	return []*plot.Plot{top, activity, latency}, nil
}

// RenderPNG draws the panels of a run, stacked, into a PNG image.
func RenderPNG(p sim.Params, r *sim.Result) ([]byte, error) {
	panels, err := Panels(p, r)
	if err != nil {
		return nil, err
	}
	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		plots[i] = []*plot.Plot{panel}
	}

	img := vgimg.New(PlotWidth, PlotHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(12),
		PadY:      vg.Points(12),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPlot renders the run's plot and stores it at name. Every failure is
// a PlotRenderError.
func RenderPlot(fsys billy.Filesystem, name string, p sim.Params, r *sim.Result) error {
	png, err := RenderPNG(p, r)
	if err != nil {
		return sim.PlotRenderError(err, name)
	}
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return sim.PlotRenderError(err, name)
		}
	}
	return sim.PlotRenderError(util.WriteFile(fsys, name, png, 0o644), name)
}
