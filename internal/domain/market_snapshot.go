package domain

import "github.com/shopspring/decimal"

// defaultPricePrecision is used when the exchange did not report one.
const defaultPricePrecision = 2

// SymbolInfo display metadata of a perpetual contract.
type SymbolInfo struct {
	PricePrecision    int    `json:"pricePrecision"`
	QuantityPrecision int    `json:"quantityPrecision"`
	Category          string `json:"category"`
}

// Ticker 24h rolling statistics of a contract.
type Ticker struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"lastPrice"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	Volume             float64 `json:"volume"`
}

// QuoteVolume returns the traded volume expressed in the quote asset.
func (t Ticker) QuoteVolume() float64 {
	return t.Volume * t.LastPrice
}

// FormatPrice renders price with the precision the exchange uses for symbol.
func FormatPrice(price float64, symbol string, infos map[string]SymbolInfo) string {
	precision := defaultPricePrecision
	if info, ok := infos[NormalizeSymbol(symbol)]; ok && info.PricePrecision > 0 {
		precision = info.PricePrecision
	}
	return decimal.NewFromFloat(price).StringFixed(int32(precision))
}
