//go:build integration

package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/perpbasket/internal/clients"
	"github.com/vadiminshakov/perpbasket/internal/domain"
)

// TestBinanceProvider_Integration calls the public Binance futures API.
// To run this test, use: go test -tags=integration -v ./...
func TestBinanceProvider_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	p := NewBinanceProvider(clients.NewBinanceFuturesClient("", 10*time.Second), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("returns hourly candles for BTC", func(t *testing.T) {
		candles, err := p.GetCandles(ctx, "BTC", CandleQuery{Resolution: domain.Resolution1h, Limit: 24})
		require.NoError(t, err)
		require.Len(t, candles, 24)
		for i := 1; i < len(candles); i++ {
			assert.Greater(t, candles[i].Time, candles[i-1].Time)
		}
		assert.Greater(t, candles[0].Close, 0.0)
	})

	t.Run("returns metadata", func(t *testing.T) {
		infos, err := p.GetSymbolMetadata(ctx)
		require.NoError(t, err)
		assert.Contains(t, infos, "BTCUSDT")
	})

	t.Run("returns tickers", func(t *testing.T) {
		tickers, err := p.GetTickers(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, tickers)
		t.Logf("most traded: %s", tickers[0].Symbol)
	})
}
