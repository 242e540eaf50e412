// Package domain defines core data structures used throughout the basket engine.
package domain

import "strings"

// QuoteAsset is the settlement asset of every perpetual contract we trade against.
const QuoteAsset = "USDT"

// NormalizeSymbol upper-cases s and appends the quote asset when missing,
// so "btc" and "BTCUSDT" denote the same instrument.
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || strings.HasSuffix(s, QuoteAsset) {
		return s
	}
	return s + QuoteAsset
}

// BaseAsset returns the symbol without the quote asset suffix.
func BaseAsset(symbol string) string {
	return strings.TrimSuffix(NormalizeSymbol(symbol), QuoteAsset)
}
