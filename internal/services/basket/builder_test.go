package basket

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/market/collector"
)

type fakeProvider struct {
	mu      sync.Mutex
	candles map[string][]domain.Candle
	errs    map[string]error
	delay   time.Duration
	calls   atomic.Int32
	queries []collector.CandleQuery
}

func (f *fakeProvider) GetCandles(ctx context.Context, symbol string, q collector.CandleQuery) ([]domain.Candle, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.candles[symbol], nil
}

func closes(start int64, step int64, prices ...float64) []domain.Candle {
	out := make([]domain.Candle, len(prices))
	for i, p := range prices {
		out[i] = domain.Candle{Time: start + int64(i)*step, Open: p, High: p, Low: p, Close: p}
	}
	return out
}

func longShort() domain.Basket {
	return domain.Basket{
		{Symbol: "BTCUSDT", Position: domain.PositionLong, Weight: 50},
		{Symbol: "ETHUSDT", Position: domain.PositionShort, Weight: 50},
	}
}

func TestBuilder_Build(t *testing.T) {
	t.Run("long btc short eth", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(1000, 60, 100, 110),
			"ETHUSDT": closes(1000, 60, 200, 190),
		}}

		res, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution1h})
		require.NoError(t, err)

		require.Len(t, res.Components, 2)
		assert.Equal(t, "BTCUSDT", res.Components[0].Symbol)
		assert.InDelta(t, 110, res.Components[0].Data[1].Value, 1e-9)
		assert.InDelta(t, 95, res.Components[1].Data[1].Value, 1e-9)

		require.Len(t, res.Basket, 2)
		assert.Equal(t, domain.Point{Time: 1000, Value: 100}, res.Basket[0])
		assert.Equal(t, int64(1060), res.Basket[1].Time)
		assert.InDelta(t, 107.5, res.Basket[1].Value, 1e-9)

		assert.InDelta(t, 7.5, res.Statistics.TotalReturn, 1e-9)
		require.Len(t, res.Statistics.IndividualReturns, 2)
		assert.Equal(t, "BTCUSDT", res.Statistics.IndividualReturns[0].Symbol)
		assert.InDelta(t, 10, res.Statistics.IndividualReturns[0].Return, 1e-9)
		assert.Equal(t, "ETHUSDT", res.Statistics.IndividualReturns[1].Symbol)
		assert.InDelta(t, -5, res.Statistics.IndividualReturns[1].Return, 1e-9)
		assert.NotEmpty(t, res.ID)
		assert.Equal(t, domain.Resolution1h, res.Resolution)
	})

	t.Run("empty basket does not fetch", func(t *testing.T) {
		p := &fakeProvider{}

		res, err := NewBuilder(p).Build(context.Background(), nil, Query{Resolution: domain.Resolution1h})
		require.NoError(t, err)

		assert.Equal(t, int32(0), p.calls.Load())
		assert.Empty(t, res.Basket)
		assert.NotNil(t, res.Basket)
		assert.Empty(t, res.Components)
		assert.NotNil(t, res.Components)
		assert.Equal(t, domain.ZeroStatistics(), res.Statistics)
	})

	t.Run("every series starts at the index base", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(0, 1, 37000, 36000, 38000, 39000),
			"ETHUSDT": closes(0, 1, 2100, 2300, 2050, 1900),
		}}

		res, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution1d})
		require.NoError(t, err)

		assert.Equal(t, 100.0, res.Basket[0].Value)
		for _, c := range res.Components {
			assert.Equal(t, 100.0, c.Data[0].Value, c.Symbol)
		}
	})

	t.Run("sequences are truncated to the shortest", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(0, 10, 100, 101, 102, 103, 104),
			"ETHUSDT": closes(0, 10, 100, 99, 98),
		}}

		res, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution1h})
		require.NoError(t, err)

		assert.Len(t, res.Basket, 3)
		for _, c := range res.Components {
			assert.Len(t, c.Data, 3)
		}
		// individual returns use the full window
		assert.InDelta(t, 4, res.Statistics.IndividualReturns[0].Return, 1e-9)
	})

	t.Run("identical input gives identical output", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(0, 1, 100, 104, 99, 120, 117),
			"ETHUSDT": closes(0, 1, 50, 51, 48, 49, 55),
		}}
		b := NewBuilder(p)

		first, err := b.Build(context.Background(), longShort(), Query{Resolution: domain.Resolution4h})
		require.NoError(t, err)
		second, err := b.Build(context.Background(), longShort(), Query{Resolution: domain.Resolution4h})
		require.NoError(t, err)

		assert.Equal(t, first.Basket, second.Basket)
		assert.Equal(t, first.Components, second.Components)
		assert.Equal(t, first.Statistics, second.Statistics)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("one failed symbol fails the basket", func(t *testing.T) {
		p := &fakeProvider{
			candles: map[string][]domain.Candle{"BTCUSDT": closes(0, 1, 100, 110)},
			errs:    map[string]error{"ETHUSDT": errors.New("connection reset")},
		}

		res, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution1h})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrDataFetch)

		var fetchErr *FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, "ETHUSDT", fetchErr.Symbol)
		assert.Contains(t, err.Error(), "failed to fetch basket data")
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("empty candle sequence is insufficient data", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(0, 1, 100, 110),
			"ETHUSDT": {},
		}}

		_, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution1h})
		assert.ErrorIs(t, err, ErrDataFetch)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("non positive first close is rejected", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(0, 1, 0, 110),
			"ETHUSDT": closes(0, 1, 100, 110),
		}}

		_, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution1h})
		assert.ErrorIs(t, err, ErrDataFetch)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("request timeout surfaces as a fetch failure", func(t *testing.T) {
		p := &fakeProvider{
			candles: map[string][]domain.Candle{"BTCUSDT": closes(0, 1, 100, 110)},
			delay:   time.Second,
		}

		basket := domain.Basket{{Symbol: "BTCUSDT", Position: domain.PositionLong, Weight: 100}}
		_, err := NewBuilder(p, WithRequestTimeout(10*time.Millisecond)).
			Build(context.Background(), basket, Query{Resolution: domain.Resolution1h})
		assert.ErrorIs(t, err, ErrDataFetch)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("invalid resolution is rejected before fetching", func(t *testing.T) {
		p := &fakeProvider{}

		_, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: "2d"})
		assert.ErrorIs(t, err, domain.ErrInvalidResolution)
		assert.Equal(t, int32(0), p.calls.Load())
	})

	t.Run("query is forwarded to the provider", func(t *testing.T) {
		p := &fakeProvider{candles: map[string][]domain.Candle{
			"BTCUSDT": closes(0, 1, 100, 110),
			"ETHUSDT": closes(0, 1, 100, 110),
		}}
		rng := domain.CandleRange{Start: 1, End: 2}

		_, err := NewBuilder(p).Build(context.Background(), longShort(), Query{Resolution: domain.Resolution15m, Limit: 42, Range: rng})
		require.NoError(t, err)

		require.Len(t, p.queries, 2)
		for _, q := range p.queries {
			assert.Equal(t, collector.CandleQuery{Resolution: domain.Resolution15m, Limit: 42, Range: rng}, q)
		}
	})
}

func TestResult_Aggregate(t *testing.T) {
	p := &fakeProvider{candles: map[string][]domain.Candle{
		"BTCUSDT": closes(0, 1, 100, 110),
		"SOLUSDT": closes(0, 1, 100, 130),
		"ETHUSDT": closes(0, 1, 200, 190),
	}}
	basket := domain.Basket{
		{Symbol: "BTCUSDT", Position: domain.PositionLong, Weight: 25},
		{Symbol: "SOLUSDT", Position: domain.PositionLong, Weight: 25},
		{Symbol: "ETHUSDT", Position: domain.PositionShort, Weight: 50},
	}

	res, err := NewBuilder(p).Build(context.Background(), basket, Query{Resolution: domain.Resolution1h})
	require.NoError(t, err)

	long := res.Aggregate(domain.PositionLong)
	require.Len(t, long, 2)
	assert.Equal(t, 100.0, long[0].Value)
	assert.InDelta(t, 120, long[1].Value, 1e-9)

	short := res.Aggregate(domain.PositionShort)
	require.Len(t, short, 2)
	assert.InDelta(t, 95, short[1].Value, 1e-9)

	oneSided := &Result{Selections: basket[:2], Components: res.Components[:2]}
	assert.Empty(t, oneSided.Aggregate(domain.PositionShort))
}
