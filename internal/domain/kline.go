package domain

import "github.com/pkg/errors"

// Candle OHLC candlestick. Time is the open time in exchange-native milliseconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// CandleRange optional time window of a candle request, in milliseconds.
// Zero values mean "unbounded".
type CandleRange struct {
	Start int64 `json:"start,omitempty" yaml:"start,omitempty"`
	End   int64 `json:"end,omitempty" yaml:"end,omitempty"`
}

// IsZero reports whether no bound is set.
func (r CandleRange) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// ErrInvalidRange is returned for windows with a negative bound or an end
// that does not follow the start.
var ErrInvalidRange = errors.New("invalid candle range")

// Validate checks the bounds. Either bound may be left unset.
func (r CandleRange) Validate() error {
	if r.Start < 0 || r.End < 0 {
		return errors.Wrapf(ErrInvalidRange, "negative bound in %d..%d", r.Start, r.End)
	}
	if r.Start > 0 && r.End > 0 && r.Start >= r.End {
		return errors.Wrapf(ErrInvalidRange, "start %d must be before end %d", r.Start, r.End)
	}
	return nil
}
