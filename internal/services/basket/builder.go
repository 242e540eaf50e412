// Package basket turns a weighted long/short basket of perpetual futures
// into normalized index series and summary statistics.
package basket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/market/collector"
)

// DefaultRequestTimeout bounds a single candle request.
const DefaultRequestTimeout = 10 * time.Second

// Query selects the candle window used for every symbol of the basket.
type Query struct {
	Resolution domain.Resolution
	Limit      int
	Range      domain.CandleRange
}

// Result is one immutable computation of a basket.
type Result struct {
	ID         string                   `json:"id"`
	Resolution domain.Resolution        `json:"resolution"`
	Selections domain.Basket            `json:"selections"`
	Basket     []domain.Point           `json:"basketData"`
	Components []domain.ComponentSeries `json:"componentData"`
	Statistics domain.Statistics        `json:"statistics"`
	ComputedAt time.Time                `json:"computedAt"`
}

// Builder fetches candles for a basket and combines them.
type Builder struct {
	provider       collector.KlineProvider
	l              *zap.Logger
	requestTimeout time.Duration
	now            func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRequestTimeout bounds every candle request. Non-positive values disable the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Builder) {
		b.requestTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.l = l
		}
	}
}

// NewBuilder creates a Builder reading candles from provider.
func NewBuilder(provider collector.KlineProvider, opts ...Option) *Builder {
	b := &Builder{
		provider:       provider,
		l:              zap.NewNop(),
		requestTimeout: DefaultRequestTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the component series, the basket index and its statistics.
// An empty basket yields an empty result without touching the provider.
// Any failed or empty symbol fails the whole computation with a *FetchError.
func (b *Builder) Build(ctx context.Context, basket domain.Basket, q Query) (*Result, error) {
	if !q.Resolution.IsValid() {
		return nil, errors.Wrapf(domain.ErrInvalidResolution, "%q", q.Resolution)
	}

	basket = basket.Clone()
	if len(basket) == 0 {
		return b.result(domain.Basket{}, q.Resolution, []domain.ComponentSeries{}, []domain.Point{}, domain.ZeroStatistics()), nil
	}

	candles, err := b.fetch(ctx, basket, q)
	if err != nil {
		b.l.Error("failed to fetch basket data", zap.Strings("symbols", basket.Symbols()), zap.Error(err))
		return nil, err
	}

	components, series, err := Combine(basket, candles)
	if err != nil {
		b.l.Error("failed to combine basket data", zap.Error(err))
		return nil, err
	}

	stats := ComputeStatistics(series, q.Resolution, basket, candles)
	res := b.result(basket, q.Resolution, components, series, stats)

	b.l.Info("basket computed",
		zap.String("id", res.ID),
		zap.String("resolution", q.Resolution.String()),
		zap.Int("instruments", len(basket)),
		zap.Int("points", len(series)),
		zap.Float64("total_return", stats.TotalReturn))

	return res, nil
}

func (b *Builder) fetch(ctx context.Context, basket domain.Basket, q Query) ([][]domain.Candle, error) {
	candles := make([][]domain.Candle, len(basket))
	cq := collector.CandleQuery{Resolution: q.Resolution, Limit: q.Limit, Range: q.Range}

	g, gctx := errgroup.WithContext(ctx)
	for i, sel := range basket {
		g.Go(func() error {
			fctx := gctx
			if b.requestTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, b.requestTimeout)
				defer cancel()
			}

			seq, err := b.provider.GetCandles(fctx, sel.Symbol, cq)
			if err != nil {
				return &FetchError{Symbol: sel.Symbol, Err: err}
			}
			if len(seq) == 0 {
				return &FetchError{Symbol: sel.Symbol, Err: ErrInsufficientData}
			}
			candles[i] = seq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return candles, nil
}

func (b *Builder) result(basket domain.Basket, res domain.Resolution, components []domain.ComponentSeries, series []domain.Point, stats domain.Statistics) *Result {
	return &Result{
		ID:         uuid.NewString(),
		Resolution: res,
		Selections: basket,
		Basket:     series,
		Components: components,
		Statistics: stats,
		ComputedAt: b.now(),
	}
}
