// Package workspace owns the single mutable basket of the application.
// Edits go through the allocator, computations through the basket builder.
// A failed refresh keeps the last good result and records the error.
//
// A refresh publishes only if nothing changed the basket or its query
// while it ran: a newer refresh, an edit, a resolution or range change and
// Clear all make it stale.
package workspace

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/allocator"
	"github.com/vadiminshakov/perpbasket/internal/services/basket"
)

// ErrSuperseded is returned by Refresh when the basket or its query changed
// while it was running. Its result is discarded.
var ErrSuperseded = errors.New("basket computation superseded by a newer request")

// Builder computes a basket.
type Builder interface {
	Build(ctx context.Context, b domain.Basket, q basket.Query) (*basket.Result, error)
}

// Snapshot is a consistent copy of the basket and its weight sums.
type Snapshot struct {
	Selections  domain.Basket      `json:"selections"`
	Resolution  domain.Resolution  `json:"resolution"`
	Range       domain.CandleRange `json:"range"`
	TotalWeight float64            `json:"totalWeight"`
	LongWeight  float64            `json:"longWeight"`
	ShortWeight float64            `json:"shortWeight"`
	Valid       bool               `json:"valid"`
}

// State is the last published computation. Error is set when the latest
// refresh failed; Result then still holds the previous good computation.
type State struct {
	Result *basket.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Workspace is safe for concurrent use.
type Workspace struct {
	builder Builder
	l       *zap.Logger

	mu         sync.Mutex
	selections domain.Basket
	resolution domain.Resolution
	limit      int
	window     domain.CandleRange
	result     *basket.Result
	lastErr    error
	generation uint64
}

// New creates an empty workspace computing baskets at resolution with up
// to limit candles per symbol.
func New(builder Builder, resolution domain.Resolution, limit int, l *zap.Logger) (*Workspace, error) {
	if !resolution.IsValid() {
		return nil, errors.Wrapf(domain.ErrInvalidResolution, "%q", resolution)
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Workspace{
		builder:    builder,
		l:          l,
		selections: domain.Basket{},
		resolution: resolution,
		limit:      limit,
	}, nil
}

// Load replaces the basket with b as is, keeping its weights.
func (w *Workspace) Load(b domain.Basket) error {
	normalized := make(domain.Basket, 0, len(b))
	for _, s := range b {
		if !s.Position.IsValid() {
			return errors.Wrapf(allocator.ErrInvalidPosition, "%s: %q", s.Symbol, s.Position)
		}
		s.Symbol = domain.NormalizeSymbol(s.Symbol)
		if normalized.Contains(s.Symbol) {
			return errors.Errorf("duplicate symbol %s", s.Symbol)
		}
		normalized = append(normalized, s)
	}
	if len(normalized) > 0 && !allocator.Validate(normalized) {
		return errors.Errorf("weights sum to %.2f, want %.0f", allocator.Sum(normalized), allocator.TotalWeight)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.selections = normalized
	w.generation++
	return nil
}

// Snapshot returns the current basket.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	return Snapshot{
		Selections:  w.selections.Clone(),
		Resolution:  w.resolution,
		Range:       w.window,
		TotalWeight: allocator.Sum(w.selections),
		LongWeight:  allocator.SideWeightSum(w.selections, domain.PositionLong),
		ShortWeight: allocator.SideWeightSum(w.selections, domain.PositionShort),
		Valid:       allocator.Validate(w.selections),
	}
}

// Add toggles symbol in the basket and rebalances.
func (w *Workspace) Add(symbol string, position domain.Position) (Snapshot, error) {
	return w.edit(func(b domain.Basket) (domain.Basket, error) {
		return allocator.Add(b, symbol, position)
	})
}

// Remove deletes symbol and rebalances.
func (w *Workspace) Remove(symbol string) (Snapshot, error) {
	return w.edit(func(b domain.Basket) (domain.Basket, error) {
		return allocator.Remove(b, symbol), nil
	})
}

// ChangePosition moves symbol to the other side and rebalances.
func (w *Workspace) ChangePosition(symbol string, position domain.Position) (Snapshot, error) {
	return w.edit(func(b domain.Basket) (domain.Basket, error) {
		return allocator.ChangePosition(b, symbol, position)
	})
}

// ChangeWeight sets the weight of symbol, adjusting the others.
func (w *Workspace) ChangeWeight(symbol string, weight float64) (Snapshot, error) {
	return w.edit(func(b domain.Basket) (domain.Basket, error) {
		return allocator.ChangeWeight(b, symbol, weight)
	})
}

// Rebalance discards manual weights and splits evenly.
func (w *Workspace) Rebalance() Snapshot {
	s, _ := w.edit(func(b domain.Basket) (domain.Basket, error) {
		return allocator.RebalanceAll(b), nil
	})
	return s
}

func (w *Workspace) edit(fn func(domain.Basket) (domain.Basket, error)) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := fn(w.selections)
	if err != nil {
		return w.snapshotLocked(), err
	}
	if next == nil {
		next = domain.Basket{}
	}
	w.selections = next
	w.generation++
	return w.snapshotLocked(), nil
}

// SetResolution changes the candle interval of later refreshes.
func (w *Workspace) SetResolution(r domain.Resolution) error {
	if !r.IsValid() {
		return errors.Wrapf(domain.ErrInvalidResolution, "%q", r)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resolution = r
	w.generation++
	return nil
}

// SetRange limits later refreshes to the time window r. A zero range
// returns to the last limit candles.
func (w *Workspace) SetRange(r domain.CandleRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.window = r
	w.generation++
	return nil
}

// Clear empties the basket and drops the published result. Refreshes
// already running are discarded.
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selections = domain.Basket{}
	w.result = nil
	w.lastErr = nil
	w.generation++
}

// State returns the last published computation.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{Result: w.result}
	if w.lastErr != nil {
		st.Error = w.lastErr.Error()
	}
	return st
}

// Refresh recomputes the current basket. The builder runs without the
// lock held; the result is published only if the workspace did not change
// meanwhile.
func (w *Workspace) Refresh(ctx context.Context) (*basket.Result, error) {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	selections := w.selections.Clone()
	q := basket.Query{Resolution: w.resolution, Limit: w.limit, Range: w.window}
	w.mu.Unlock()

	res, err := w.builder.Build(ctx, selections, q)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		w.l.Info("discarding superseded basket computation", zap.Uint64("generation", gen))
		return nil, ErrSuperseded
	}
	if err != nil {
		w.lastErr = err
		w.l.Warn("basket refresh failed, keeping last result", zap.Error(err))
		return nil, err
	}

	w.result = res
	w.lastErr = nil
	return res, nil
}
