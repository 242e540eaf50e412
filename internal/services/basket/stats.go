package basket

import (
	"math"

	"github.com/vadiminshakov/perpbasket/internal/domain"
)

// Returns converts an index series based at 100 into returns based at 1.0.
func Returns(series []domain.Point) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value / domain.IndexBase
	}
	return out
}

// PeriodDeltas returns r[i]/r[i-1]-1 for i >= 1. A zero previous value
// yields a zero delta.
func PeriodDeltas(returns []float64) []float64 {
	if len(returns) < 2 {
		return nil
	}
	out := make([]float64, len(returns)-1)
	for i := 1; i < len(returns); i++ {
		if returns[i-1] == 0 {
			continue
		}
		out[i-1] = returns[i]/returns[i-1] - 1
	}
	return out
}

// AnnualizedVolatility is the annualized sample deviation of deltas in
// percent. Deltas are assumed to have a mean of zero.
func AnnualizedVolatility(deltas []float64, periodsPerYear float64) float64 {
	if len(deltas) < 2 {
		return 0
	}
	var sum float64
	for _, d := range deltas {
		sum += d * d
	}
	variance := sum / float64(len(deltas)-1)
	return math.Sqrt(variance*periodsPerYear) * 100
}

// MaxDrawdown returns the largest peak-to-trough decline of returns in
// percent. Points are ignored while the running peak is not positive.
func MaxDrawdown(returns []float64) float64 {
	peak := math.Inf(-1)
	var maxDD float64
	for _, r := range returns {
		if r > peak {
			peak = r
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - r) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

// SharpeRatio is total return over volatility without a risk-free rate.
// Zero or non-finite volatility gives 0.
func SharpeRatio(totalReturn, volatility float64) float64 {
	if volatility == 0 || math.IsNaN(volatility) || math.IsInf(volatility, 0) {
		return 0
	}
	return totalReturn / volatility
}

// IndividualReturns returns the raw first-to-last close change of every
// symbol in percent, ignoring weight and side.
func IndividualReturns(basket domain.Basket, candles [][]domain.Candle) []domain.IndividualReturn {
	out := make([]domain.IndividualReturn, 0, len(basket))
	for i, sel := range basket {
		seq := candles[i]
		if len(seq) == 0 || seq[0].Close == 0 {
			out = append(out, domain.IndividualReturn{Symbol: sel.Symbol})
			continue
		}
		out = append(out, domain.IndividualReturn{
			Symbol: sel.Symbol,
			Return: (seq[len(seq)-1].Close/seq[0].Close - 1) * 100,
		})
	}
	return out
}

// ComputeStatistics derives basket statistics from the basket index series.
func ComputeStatistics(series []domain.Point, resolution domain.Resolution, basket domain.Basket, candles [][]domain.Candle) domain.Statistics {
	stats := domain.ZeroStatistics()
	stats.IndividualReturns = IndividualReturns(basket, candles)
	if len(series) == 0 {
		return stats
	}

	returns := Returns(series)
	stats.TotalReturn = (returns[len(returns)-1] - returns[0]) * 100
	stats.AnnualizedVolatility = AnnualizedVolatility(PeriodDeltas(returns), resolution.PeriodsPerYear())
	stats.SharpeRatio = SharpeRatio(stats.TotalReturn, stats.AnnualizedVolatility)
	stats.MaxDrawdown = MaxDrawdown(returns)

	return stats
}
