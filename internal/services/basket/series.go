package basket

import (
	"sort"

	"github.com/vadiminshakov/perpbasket/internal/domain"
)

// Combine builds the component series and the basket index from the
// candles of every basket entry, aligned by position. candles[i] belongs
// to basket[i]. The timeline is taken from the first entry.
func Combine(basket domain.Basket, candles [][]domain.Candle) ([]domain.ComponentSeries, []domain.Point, error) {
	n := -1
	for i, seq := range candles {
		if len(seq) == 0 {
			return nil, nil, &FetchError{Symbol: basket[i].Symbol, Err: ErrInsufficientData}
		}
		if seq[0].Close <= 0 {
			return nil, nil, &FetchError{Symbol: basket[i].Symbol, Err: ErrInvalidPrice}
		}
		if n < 0 || len(seq) < n {
			n = len(seq)
		}
	}
	if n <= 0 {
		return []domain.ComponentSeries{}, []domain.Point{}, nil
	}

	components := make([]domain.ComponentSeries, len(basket))
	for j, sel := range basket {
		components[j] = domain.ComponentSeries{Symbol: sel.Symbol, Data: make([]domain.Point, n)}
	}
	series := make([]domain.Point, n)
	timeline := candles[0]

	for i := 0; i < n; i++ {
		var value float64
		for j, sel := range basket {
			seq := candles[j]
			pct := (seq[i].Close/seq[0].Close - 1) * 100
			components[j].Data[i] = domain.Point{Time: seq[i].Time, Value: pct + domain.IndexBase}
			value += pct * (sel.Weight / 100) * sel.Position.Multiplier()
		}
		series[i] = domain.Point{Time: timeline[i].Time, Value: value + domain.IndexBase}
	}

	sortPoints(series)
	for j := range components {
		sortPoints(components[j].Data)
	}

	return components, series, nil
}

func sortPoints(points []domain.Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
}
