// Package chart renders basket computations as PNG line charts.
package chart

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/vicanso/go-charts/v2"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/basket"
)

const (
	defaultWidth  = 900
	defaultHeight = 500
)

// ErrNoData is returned for results without points.
var ErrNoData = errors.New("nothing to chart")

// Options controls the picture size.
type Options struct {
	Width  int
	Height int
}

// Render draws the basket index with its long and short averages. Sides
// without instruments are omitted.
func Render(res *basket.Result, opts Options) ([]byte, error) {
	if res == nil || len(res.Basket) < 2 {
		return nil, ErrNoData
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}

	values := [][]float64{pointValues(res.Basket)}
	names := []string{"Basket"}
	for _, side := range []domain.Position{domain.PositionLong, domain.PositionShort} {
		agg := res.Aggregate(side)
		if len(agg) != len(res.Basket) {
			continue
		}
		values = append(values, pointValues(agg))
		names = append(names, sideName(side))
	}

	yMin, yMax := bounds(values)
	labels := timeLabels(res.Basket, res.Resolution)

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = max(len(labels)/3, 3)
	}

	s := res.Statistics
	subtitle := fmt.Sprintf("Return: %.2f%% | Sharpe: %.2f | Vol: %.2f%% | MaxDD: %.2f%%",
		s.TotalReturn, s.SharpeRatio, s.AnnualizedVolatility, s.MaxDrawdown)

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Basket index (%s)", res.Resolution), subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render chart")
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate chart bytes")
	}
	return buf, nil
}

func sideName(p domain.Position) string {
	if p == domain.PositionLong {
		return "Long"
	}
	return "Short"
}

func pointValues(points []domain.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// bounds returns the y range of all lines padded by 5%.
func bounds(values [][]float64) (float64, float64) {
	minVal, maxVal := values[0][0], values[0][0]
	for _, line := range values {
		for _, v := range line {
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	return minVal - padding, maxVal + padding
}

func timeLabels(points []domain.Point, r domain.Resolution) []string {
	layout := "01-02 15:04"
	if r.PeriodsPerYear() <= domain.Resolution1d.PeriodsPerYear() {
		layout = "2006-01-02"
	}
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = time.UnixMilli(p.Time).UTC().Format(layout)
	}
	return out
}
