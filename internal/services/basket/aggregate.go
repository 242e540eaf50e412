package basket

import (
	"github.com/vadiminshakov/perpbasket/internal/domain"
)

// Aggregate averages the component series of every instrument on side.
// It returns an empty series when no instrument is on that side.
func Aggregate(basket domain.Basket, components []domain.ComponentSeries, side domain.Position) []domain.Point {
	var members []domain.ComponentSeries
	for _, c := range components {
		idx := basket.Index(c.Symbol)
		if idx < 0 || basket[idx].Position != side {
			continue
		}
		members = append(members, c)
	}
	if len(members) == 0 {
		return []domain.Point{}
	}

	n := len(members[0].Data)
	for _, m := range members[1:] {
		if len(m.Data) < n {
			n = len(m.Data)
		}
	}

	out := make([]domain.Point, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, m := range members {
			sum += m.Data[i].Value - domain.IndexBase
		}
		out[i] = domain.Point{
			Time:  members[0].Data[i].Time,
			Value: sum/float64(len(members)) + domain.IndexBase,
		}
	}
	return out
}

// Aggregate returns the long or short average series of the result.
func (r *Result) Aggregate(side domain.Position) []domain.Point {
	return Aggregate(r.Selections, r.Components, side)
}
