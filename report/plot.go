// Package report renders interval files as PNG band charts.
package report

import (
	"context"
	"image/color"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/metrics"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

// Chart size.
const (
	Width  = 8 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	bandColor   = color.RGBA{R: 70, G: 130, B: 180, A: 90}
	boundColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	targetColor = color.RGBA{R: 220, G: 50, B: 50, A: 255}
)

// Band draws lower and upper bounds against the row index with the area
// between them filled. actual, when non-nil, is drawn as points.
func Band(title string, lower, upper, actual []float64) (*plot.Plot, error) {
	if len(lower) != len(upper) {
		return nil, errors.NewDimensionError("report.Band", len(lower), len(upper), 0)
	}
	if actual != nil && len(actual) != len(lower) {
		return nil, errors.NewDimensionError("report.Band", len(lower), len(actual), 0)
	}
	if len(lower) == 0 {
		return nil, errors.NewValueError("report.Band", "no intervals to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Test row"
	p.Y.Label.Text = "Prediction interval"

	lo := make(plotter.XYs, len(lower))
	hi := make(plotter.XYs, len(upper))
	for i := range lower {
		lo[i] = plotter.XY{X: float64(i), Y: lower[i]}
		hi[i] = plotter.XY{X: float64(i), Y: upper[i]}
	}

	// Outline of the band: along the lower bound, back along the upper.
	outline := make(plotter.XYs, 0, 2*len(lower))
	outline = append(outline, lo...)
	for i := len(hi) - 1; i >= 0; i-- {
		outline = append(outline, hi[i])
	}
	band, err := plotter.NewPolygon(outline)
	if err != nil {
		return nil, errors.Wrap(err, "band polygon")
	}
	band.Color = bandColor
	band.LineStyle.Width = 0
	p.Add(band)

	for name, pts := range map[string]plotter.XYs{"lower_bound": lo, "upper_bound": hi} {
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line", name)
		}
		l.Color = boundColor
		l.LineStyle.Width = vg.Points(1)
		p.Add(l)
	}

	if actual != nil {
		pts := make(plotter.XYs, len(actual))
		for i, v := range actual {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, "target scatter")
		}
		s.Color = targetColor
		s.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add("TARGET", s)
	}
	return p, nil
}

// PNGPath is the interval file path with a .png extension.
func PNGPath(intervalsPath string) string {
	return strings.TrimSuffix(intervalsPath, ".csv") + ".png"
}

// Run is the plot stage. It renders cfg.IntervalsPath() next to itself and
// returns the PNG path. When cfg.TestData names a file with TARGET the
// actual values are overlaid and the empirical coverage is logged.
func Run(ctx context.Context, cfg *config.Config) (string, error) {
	if err := cfg.Require(config.StagePlot); err != nil {
		return "", err
	}
	src := cfg.IntervalsPath()
	lower, upper, err := dataset.ReadIntervals(src)
	if err != nil {
		return "", err
	}

	logger := log.GetLoggerWithName("report")
	var actual []float64
	if cfg.TestData != "" {
		test, err := dataset.ReadCSV(cfg.TestData)
		if err != nil {
			return "", err
		}
		if test.Has(dataset.TargetColumn) && len(lower) > 0 && test.Len() == len(lower) {
			y, err := test.Target()
			if err != nil {
				return "", err
			}
			actual = y.RawMatrix().Data
			intervals := mat.NewDense(len(lower), 2, nil)
			intervals.SetCol(0, lower)
			intervals.SetCol(1, upper)
			coverage, err := metrics.IntervalCoverage(y, intervals)
			if err != nil {
				return "", err
			}
			logger.Info("Empirical coverage", log.CoverageKey, coverage)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	title := cfg.ProblemType + " / " + cfg.Model + " / " + cfg.Dataset
	p, err := Band(title, lower, upper, actual)
	if err != nil {
		return "", err
	}
	dst := PNGPath(src)
	if err := p.Save(Width, Height, dst); err != nil {
		return "", errors.NewArtifactError(dst, err)
	}
	logger.Info("Interval chart saved", log.PathKey, dst, log.SamplesKey, len(lower))
	return dst, nil
}
