// Package allocator keeps the weights of a basket consistent while the user
// adds, removes and edits instruments.
//
// Two policies coexist. RebalanceAll re-derives every weight from scratch
// (even split, 50/50 between sides when both are present) and is applied
// after every structural change: Add, Remove and ChangePosition. ChangeWeight
// is incremental and keeps earlier manual edits, but the next structural
// change overrides them.
//
// All functions are pure: the input basket is never modified.
package allocator

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/perpbasket/internal/domain"
)

const (
	// TotalWeight every non-empty basket sums to.
	TotalWeight = 100.0
	// SideWeight each side holds when the basket is dollar-neutral.
	SideWeight = 50.0
	// Tolerance accepted between the weight sum and TotalWeight.
	Tolerance = 0.01

	weightPlaces = 2
)

var (
	ErrEmptySymbol     = errors.New("symbol is empty")
	ErrUnknownSymbol   = errors.New("symbol is not in the basket")
	ErrInvalidPosition = errors.New("position must be long or short")
	ErrInvalidWeight   = errors.New("weight is not a number")
)

// Add inserts symbol with the given side and rebalances. When symbol is
// already in the basket it is removed instead.
func Add(basket domain.Basket, symbol string, position domain.Position) (domain.Basket, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if !position.IsValid() {
		return nil, errors.Wrapf(ErrInvalidPosition, "got %q", position)
	}

	if basket.Contains(symbol) {
		return Remove(basket, symbol), nil
	}

	out := basket.Clone()
	out = append(out, domain.Selection{Symbol: symbol, Position: position})

	return RebalanceAll(out), nil
}

// Remove deletes symbol and rebalances the rest. Unknown symbols leave the
// basket unchanged.
func Remove(basket domain.Basket, symbol string) domain.Basket {
	idx := basket.Index(symbol)
	if idx < 0 {
		return basket.Clone()
	}

	out := make(domain.Basket, 0, len(basket)-1)
	out = append(out, basket[:idx]...)
	out = append(out, basket[idx+1:]...)

	return RebalanceAll(out)
}

// ChangePosition flips symbol to the given side and rebalances.
func ChangePosition(basket domain.Basket, symbol string, position domain.Position) (domain.Basket, error) {
	if !position.IsValid() {
		return nil, errors.Wrapf(ErrInvalidPosition, "got %q", position)
	}
	idx := basket.Index(symbol)
	if idx < 0 {
		return nil, errors.Wrapf(ErrUnknownSymbol, "%s", domain.NormalizeSymbol(symbol))
	}

	out := basket.Clone()
	out[idx].Position = position

	return RebalanceAll(out), nil
}

// RebalanceAll splits weights evenly: 50/50 across sides when both sides are
// present, otherwise 100 across the single side. Manual edits are discarded.
func RebalanceAll(basket domain.Basket) domain.Basket {
	if len(basket) == 0 {
		return domain.Basket{}
	}

	longs := len(basket.Side(domain.PositionLong))
	shorts := len(basket) - longs

	out := basket.Clone()
	if longs == 0 || shorts == 0 {
		even := TotalWeight / float64(len(out))
		for i := range out {
			out[i].Weight = even
		}
		return out
	}

	longWeight := SideWeight / float64(longs)
	shortWeight := SideWeight / float64(shorts)
	for i := range out {
		if out[i].Position == domain.PositionLong {
			out[i].Weight = longWeight
		} else {
			out[i].Weight = shortWeight
		}
	}

	return out
}

// ChangeWeight sets symbol's weight and redistributes the difference across
// all other instruments in proportion to their current weights, so the total
// returns to 100. Weights are rounded to two decimals only at the end.
func ChangeWeight(basket domain.Basket, symbol string, weight float64) (domain.Basket, error) {
	if math.IsNaN(weight) {
		return nil, ErrInvalidWeight
	}
	idx := basket.Index(symbol)
	if idx < 0 {
		return nil, errors.Wrapf(ErrUnknownSymbol, "%s", domain.NormalizeSymbol(symbol))
	}

	out := basket.Clone()
	if len(out) == 1 {
		out[0].Weight = TotalWeight
		return out, nil
	}

	weight = clamp(weight, 0, TotalWeight)
	delta := weight - out[idx].Weight
	out[idx].Weight = weight

	var othersTotal float64
	for i := range out {
		if i != idx {
			othersTotal += out[i].Weight
		}
	}

	if othersTotal > 0 {
		for i := range out {
			if i == idx {
				continue
			}
			share := out[i].Weight / othersTotal
			out[i].Weight = math.Max(0, out[i].Weight-delta*share)
		}
	}

	if total := sum(out); total != TotalWeight {
		correction := (TotalWeight - total) / float64(len(out))
		for i := range out {
			out[i].Weight = math.Max(0, out[i].Weight+correction)
		}
	}

	roundWeights(out)

	return out, nil
}

// SideWeightSum returns the summed weight of one side.
func SideWeightSum(basket domain.Basket, position domain.Position) float64 {
	return sum(basket.Side(position))
}

// Sum returns the summed weight of the whole basket.
func Sum(basket domain.Basket) float64 {
	return sum(basket)
}

// Validate reports whether the weights add up to 100 within Tolerance.
// An empty basket is valid.
func Validate(basket domain.Basket) bool {
	if len(basket) == 0 {
		return true
	}
	return math.Abs(sum(basket)-TotalWeight) <= Tolerance+1e-9
}

func sum(basket domain.Basket) float64 {
	var total float64
	for _, s := range basket {
		total += s.Weight
	}
	return total
}

// roundWeights rounds to cents and folds the rounding residual into the
// largest weight, keeping the total at exactly 100.00.
func roundWeights(basket domain.Basket) {
	hundred := decimal.NewFromFloat(TotalWeight)
	total := decimal.Zero
	largest := 0

	rounded := make([]decimal.Decimal, len(basket))
	for i := range basket {
		rounded[i] = decimal.NewFromFloat(basket[i].Weight).Round(weightPlaces)
		total = total.Add(rounded[i])
		if rounded[i].GreaterThan(rounded[largest]) {
			largest = i
		}
	}

	if residual := hundred.Sub(total); !residual.IsZero() {
		fixed := rounded[largest].Add(residual)
		if fixed.IsNegative() {
			fixed = decimal.Zero
		}
		rounded[largest] = fixed
	}

	for i := range basket {
		basket[i].Weight = rounded[i].InexactFloat64()
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
