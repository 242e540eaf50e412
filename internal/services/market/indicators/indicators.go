// Package indicators computes trend overlays for basket index series.
// It uses the cinar/indicator library for EMA, MACD and RSI.
package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/perpbasket/internal/domain"
)

const (
	// DefaultPeriod is the EMA period used when none is requested.
	DefaultPeriod = 20
	// RSIPeriod is the RSI lookback.
	RSIPeriod = 14
	// macdSlowPeriod is the longest lookback of MACD.
	macdSlowPeriod = 26
)

// ErrNotEnoughData is returned when a series is shorter than the indicator lookback.
var ErrNotEnoughData = errors.New("not enough data points")

// Overlay holds indicator series aligned to the tail of the source series.
// Indicators without enough data are left empty.
type Overlay struct {
	Period int            `json:"period"`
	EMA    []domain.Point `json:"ema"`
	RSI    []domain.Point `json:"rsi"`
	MACD   []domain.Point `json:"macd"`
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("invalid EMA period %d", period)
	}
	if len(values) < period {
		return nil, errors.Wrapf(ErrNotEnoughData, "EMA%d needs %d, got %d", period, period, len(values))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values))), nil
}

// CalculateMACD calculates the MACD line.
func CalculateMACD(values []float64) ([]float64, error) {
	if len(values) < macdSlowPeriod {
		return nil, errors.Wrapf(ErrNotEnoughData, "MACD needs %d, got %d", macdSlowPeriod, len(values))
	}

	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(values))

	// signal channel must be drained or Compute blocks
	go func() {
		for range signalChan {
		}
	}()

	return helper.ChanToSlice(macdChan), nil
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Errorf("invalid RSI period %d", period)
	}
	if len(values) < period+1 {
		return nil, errors.Wrapf(ErrNotEnoughData, "RSI%d needs %d, got %d", period, period+1, len(values))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(values))), nil
}

// Compute builds the overlay of series. Only the EMA is mandatory: a
// series shorter than period fails with ErrNotEnoughData.
func Compute(series []domain.Point, period int) (*Overlay, error) {
	if period <= 0 {
		period = DefaultPeriod
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	ema, err := CalculateEMA(values, period)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to calculate EMA%d", period)
	}

	overlay := &Overlay{
		Period: period,
		EMA:    alignTail(series, ema),
		RSI:    []domain.Point{},
		MACD:   []domain.Point{},
	}

	if rsi, err := CalculateRSI(values, RSIPeriod); err == nil {
		overlay.RSI = alignTail(series, rsi)
	}
	if macd, err := CalculateMACD(values); err == nil {
		overlay.MACD = alignTail(series, macd)
	}

	return overlay, nil
}

// alignTail pairs indicator values with the timestamps of the last
// len(values) points of series. Indicators drop their warmup period.
func alignTail(series []domain.Point, values []float64) []domain.Point {
	if len(values) > len(series) {
		values = values[len(values)-len(series):]
	}
	offset := len(series) - len(values)
	out := make([]domain.Point, len(values))
	for i, v := range values {
		out[i] = domain.Point{Time: series[offset+i].Time, Value: v}
	}
	return out
}
