// Package collector provides the market data collaborators of the basket
// engine: historical candles, symbol metadata and 24h tickers.
package collector

import (
	"context"

	"github.com/vadiminshakov/perpbasket/internal/domain"
)

// DefaultLimit number of candles requested when no time range is given.
const DefaultLimit = 500

// CandleQuery selects the candles of one symbol. Limit is ignored when
// Range has a bound set.
type CandleQuery struct {
	Resolution domain.Resolution
	Limit      int
	Range      domain.CandleRange
}

// KlineProvider defines the interface for fetching candles.
type KlineProvider interface {
	// GetCandles returns candles of symbol in ascending time order.
	GetCandles(ctx context.Context, symbol string, q CandleQuery) ([]domain.Candle, error)
}

// MetadataProvider returns display metadata keyed by symbol.
type MetadataProvider interface {
	GetSymbolMetadata(ctx context.Context) (map[string]domain.SymbolInfo, error)
}

// TickerProvider returns the tradable universe with 24h statistics.
type TickerProvider interface {
	GetTickers(ctx context.Context) ([]domain.Ticker, error)
}

// MarketData bundles every collaborator the application needs.
type MarketData interface {
	KlineProvider
	MetadataProvider
	TickerProvider
}
