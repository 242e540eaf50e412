package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/perpbasket/internal/clients"
	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/pkg/retrier"
)

const klinesBody = `[
  [1700000000000, "100.0", "112.5", "99.1", "110.0", "12.3", 1700003599999, "1300.1", 42, "6.1", "650.2", "0"],
  [1700003600000, "110.0", "111.0", "104.0", "105.5", "10.0", 1700007199999, "1050.0", 40, "5.0", "525.0", "0"]
]`

const exchangeInfoBody = `{
  "timezone": "UTC",
  "serverTime": 1700000000000,
  "symbols": [
    {"symbol": "BTCUSDT", "pair": "BTCUSDT", "pricePrecision": 2, "quantityPrecision": 3, "underlyingSubType": ["PoW"], "quoteAsset": "USDT"},
    {"symbol": "ETHBTC", "pair": "ETHBTC", "pricePrecision": 6, "quantityPrecision": 3, "underlyingSubType": [], "quoteAsset": "BTC"},
    {"symbol": "PEPEUSDT", "pair": "PEPEUSDT", "pricePrecision": 7, "quantityPrecision": 0, "underlyingSubType": [], "quoteAsset": "USDT"}
  ]
}`

const tickersBody = `[
  {"symbol": "ETHUSDT", "lastPrice": "2000", "priceChangePercent": "-1.5", "volume": "1000"},
  {"symbol": "BTCUSDT", "lastPrice": "40000", "priceChangePercent": "2.25", "volume": "100"},
  {"symbol": "ETHBTC", "lastPrice": "0.05", "priceChangePercent": "0.1", "volume": "999999"},
  {"symbol": "DOGEUSDT", "lastPrice": "0.1", "priceChangePercent": "10", "volume": "5000000"}
]`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *BinanceProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := clients.NewBinanceFuturesClient(srv.URL, 5*time.Second)
	return NewBinanceProvider(client, nil, retrier.WithInitialInterval(time.Millisecond), retrier.WithMaxRetries(2))
}

func TestBinanceProvider_GetCandles(t *testing.T) {
	t.Run("parses klines and forwards the query", func(t *testing.T) {
		var query atomic.Value
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
			query.Store(r.URL.Query())
			_, _ = w.Write([]byte(klinesBody))
		})

		candles, err := p.GetCandles(context.Background(), "btc", CandleQuery{Resolution: domain.Resolution1h})
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, domain.Candle{Time: 1700000000000, Open: 100, High: 112.5, Low: 99.1, Close: 110}, candles[0])
		assert.Equal(t, 105.5, candles[1].Close)

		q := query.Load().(url.Values)
		assert.Equal(t, []string{"BTCUSDT"}, q["symbol"])
		assert.Equal(t, []string{"1h"}, q["interval"])
		assert.Equal(t, []string{"500"}, q["limit"])
	})

	t.Run("time range replaces the limit", func(t *testing.T) {
		var query atomic.Value
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			query.Store(r.URL.Query())
			_, _ = w.Write([]byte(klinesBody))
		})

		_, err := p.GetCandles(context.Background(), "ETHUSDT", CandleQuery{
			Resolution: domain.Resolution1d,
			Limit:      100,
			Range:      domain.CandleRange{Start: 1700000000000, End: 1700600000000},
		})
		require.NoError(t, err)

		q := query.Load().(url.Values)
		assert.Equal(t, []string{"1700000000000"}, q["startTime"])
		assert.Equal(t, []string{"1700600000000"}, q["endTime"])
		assert.Empty(t, q["limit"])
	})

	t.Run("retries transport failures", func(t *testing.T) {
		var calls atomic.Int32
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(klinesBody))
		})

		candles, err := p.GetCandles(context.Background(), "BTC", CandleQuery{Resolution: domain.Resolution5m})
		require.NoError(t, err)
		assert.Len(t, candles, 2)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("api errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1121, "msg": "Invalid symbol."}`))
		})

		_, err := p.GetCandles(context.Background(), "NOPE", CandleQuery{Resolution: domain.Resolution1h})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NOPEUSDT")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("invalid resolution is rejected locally", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})

		_, err := p.GetCandles(context.Background(), "BTC", CandleQuery{Resolution: "7m"})
		assert.ErrorIs(t, err, domain.ErrInvalidResolution)
	})
}

func TestBinanceProvider_GetSymbolMetadata(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/exchangeInfo", r.URL.Path)
		_, _ = w.Write([]byte(exchangeInfoBody))
	})

	infos, err := p.GetSymbolMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.SymbolInfo{
		"BTCUSDT":  {PricePrecision: 2, QuantityPrecision: 3, Category: "PoW"},
		"PEPEUSDT": {PricePrecision: 7, QuantityPrecision: 0, Category: "Unknown"},
	}, infos)
}

func TestBinanceProvider_GetTickers(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/24hr", r.URL.Path)
		_, _ = w.Write([]byte(tickersBody))
	})

	tickers, err := p.GetTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 3)

	// ordered by lastPrice*volume: 4e6, 2e6, 5e5
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, "ETHUSDT", tickers[1].Symbol)
	assert.Equal(t, "DOGEUSDT", tickers[2].Symbol)
	assert.Equal(t, 2.25, tickers[0].PriceChangePercent)
}
