package collector

import (
	"context"
	"sort"
	"strings"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/pkg/retrier"
)

const unknownCategory = "Unknown"

// Binance error codes worth another attempt: disconnected, too many
// requests, backend timeout.
var retryableCodes = map[int64]bool{-1001: true, -1003: true, -1007: true}

// BinanceProvider implements MarketData on top of Binance USDT-M futures.
type BinanceProvider struct {
	client  *futures.Client
	retrier *retrier.Retrier
	l       *zap.Logger
}

// NewBinanceProvider creates a new Binance futures market data provider.
// API errors (unknown symbol, bad interval) are not retried.
func NewBinanceProvider(client *futures.Client, l *zap.Logger, opts ...retrier.Option) *BinanceProvider {
	if l == nil {
		l = zap.NewNop()
	}
	opts = append([]retrier.Option{
		retrier.WithRetryIf(retryable),
		retrier.WithOnRetry(func(attempt int, err error) {
			l.Warn("retrying binance request", zap.Int("attempt", attempt), zap.Error(err))
		}),
	}, opts...)

	return &BinanceProvider{
		client:  client,
		retrier: retrier.New(opts...),
		l:       l,
	}
}

// GetCandles fetches klines from Binance.
func (p *BinanceProvider) GetCandles(ctx context.Context, symbol string, q CandleQuery) ([]domain.Candle, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if !q.Resolution.IsValid() {
		return nil, errors.Wrapf(domain.ErrInvalidResolution, "%q", q.Resolution)
	}

	klines, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]*futures.Kline, error) {
		svc := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(q.Resolution.String())
		if q.Range.Start > 0 {
			svc = svc.StartTime(q.Range.Start)
		}
		if q.Range.End > 0 {
			svc = svc.EndTime(q.Range.End)
		}
		if q.Range.IsZero() {
			limit := q.Limit
			if limit <= 0 {
				limit = DefaultLimit
			}
			svc = svc.Limit(limit)
		}
		return svc.Do(ctx)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		open, err := parsePrice(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := parsePrice(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := parsePrice(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		closePrice, err := parsePrice(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}

		result[i] = domain.Candle{
			Time:  k.OpenTime,
			Open:  open,
			High:  high,
			Low:   low,
			Close: closePrice,
		}
	}

	p.l.Debug("fetched klines",
		zap.String("symbol", symbol),
		zap.String("resolution", q.Resolution.String()),
		zap.Int("count", len(result)))

	return result, nil
}

// GetSymbolMetadata returns precision and category of every USDT contract.
func (p *BinanceProvider) GetSymbolMetadata(ctx context.Context) (map[string]domain.SymbolInfo, error) {
	info, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) (*futures.ExchangeInfo, error) {
		return p.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch exchange info from Binance")
	}

	result := make(map[string]domain.SymbolInfo, len(info.Symbols))
	for _, s := range info.Symbols {
		if !strings.HasSuffix(s.Symbol, domain.QuoteAsset) {
			continue
		}
		category := unknownCategory
		if len(s.UnderlyingSubType) > 0 && s.UnderlyingSubType[0] != "" {
			category = s.UnderlyingSubType[0]
		}
		result[s.Symbol] = domain.SymbolInfo{
			PricePrecision:    s.PricePrecision,
			QuantityPrecision: s.QuantityPrecision,
			Category:          category,
		}
	}

	return result, nil
}

// GetTickers returns USDT contracts ordered by 24h quote volume, largest first.
func (p *BinanceProvider) GetTickers(ctx context.Context) ([]domain.Ticker, error) {
	stats, err := retrier.DoWithData(p.retrier, ctx, func(ctx context.Context) ([]*futures.PriceChangeStats, error) {
		return p.client.NewListPriceChangeStatsService().Do(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch 24h tickers from Binance")
	}

	result := make([]domain.Ticker, 0, len(stats))
	for _, s := range stats {
		if !strings.HasSuffix(s.Symbol, domain.QuoteAsset) {
			continue
		}
		last, err := parsePrice(s.LastPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse last price of %s", s.Symbol)
		}
		change, err := parsePrice(s.PriceChangePercent)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse price change of %s", s.Symbol)
		}
		volume, err := parsePrice(s.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume of %s", s.Symbol)
		}
		result = append(result, domain.Ticker{
			Symbol:             s.Symbol,
			LastPrice:          last,
			PriceChangePercent: change,
			Volume:             volume,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].QuoteVolume() > result[j].QuoteVolume()
	})

	return result, nil
}

// retryable reports whether err is transient. Error responses without a
// Binance code come from proxies and gateways, not from the API itself.
func retryable(err error) bool {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.Code == 0 || retryableCodes[apiErr.Code]
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
