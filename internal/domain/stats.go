package domain

// IndividualReturn raw performance of one instrument over the fetched window, in percent.
type IndividualReturn struct {
	Symbol string  `json:"symbol"`
	Return float64 `json:"return"`
}

// Statistics summary risk figures of a basket index. All values except
// SharpeRatio are percentages.
type Statistics struct {
	TotalReturn          float64            `json:"totalReturn"`
	AnnualizedVolatility float64            `json:"annualizedVolatility"`
	SharpeRatio          float64            `json:"sharpeRatio"`
	MaxDrawdown          float64            `json:"maxDrawdown"`
	IndividualReturns    []IndividualReturn `json:"individualReturns"`
}

// ZeroStatistics returns the statistics reported for an empty basket.
func ZeroStatistics() Statistics {
	return Statistics{IndividualReturns: []IndividualReturn{}}
}
