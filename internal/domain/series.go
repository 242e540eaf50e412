package domain

// Point single observation of a normalized index. Value 100 is the base.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// ComponentSeries normalized index of one basket instrument.
type ComponentSeries struct {
	Symbol string  `json:"symbol"`
	Data   []Point `json:"data"`
}

// IndexBase value every normalized series starts from.
const IndexBase = 100.0
