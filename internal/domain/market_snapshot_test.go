package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	infos := map[string]SymbolInfo{
		"BTCUSDT":  {PricePrecision: 1},
		"PEPEUSDT": {PricePrecision: 7},
		"ZEROUSDT": {PricePrecision: 0},
	}

	assert.Equal(t, "43000.1", FormatPrice(43000.14, "BTC", infos))
	assert.Equal(t, "0.0000012", FormatPrice(0.0000012, "PEPEUSDT", infos))
	assert.Equal(t, "1.50", FormatPrice(1.5, "ZEROUSDT", infos))
	assert.Equal(t, "2300.46", FormatPrice(2300.456, "ETHUSDT", nil))
}

func TestTicker_QuoteVolume(t *testing.T) {
	assert.Equal(t, 500.0, Ticker{LastPrice: 2.5, Volume: 200}.QuoteVolume())
}
