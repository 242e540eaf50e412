package clients

import (
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// NewBinanceFuturesClient creates a USDT-M futures client without API keys:
// klines, exchange info and tickers are public endpoints.
// An empty baseURL keeps the library default.
func NewBinanceFuturesClient(baseURL string, httpTimeout time.Duration) *futures.Client {
	client := binance.NewFuturesClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	if httpTimeout > 0 {
		client.HTTPClient = &http.Client{Timeout: httpTimeout}
	}
	return client
}
