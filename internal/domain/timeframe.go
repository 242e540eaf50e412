package domain

import "github.com/pkg/errors"

// Resolution candle interval code as understood by the exchange.
type Resolution string

const (
	Resolution1m  Resolution = "1m"
	Resolution3m  Resolution = "3m"
	Resolution5m  Resolution = "5m"
	Resolution15m Resolution = "15m"
	Resolution30m Resolution = "30m"
	Resolution1h  Resolution = "1h"
	Resolution2h  Resolution = "2h"
	Resolution4h  Resolution = "4h"
	Resolution6h  Resolution = "6h"
	Resolution8h  Resolution = "8h"
	Resolution12h Resolution = "12h"
	Resolution1d  Resolution = "1d"
	Resolution3d  Resolution = "3d"
	Resolution1w  Resolution = "1w"
	Resolution1M  Resolution = "1M"
)

// DefaultPeriodsPerYear is used for resolutions missing from the table.
const DefaultPeriodsPerYear = 365.0

// ErrInvalidResolution is returned for interval codes the exchange does not know.
var ErrInvalidResolution = errors.New("invalid resolution")

var periodsPerYear = map[Resolution]float64{
	Resolution1m:  24 * 60 * 365,
	Resolution3m:  24 * 20 * 365,
	Resolution5m:  24 * 12 * 365,
	Resolution15m: 24 * 4 * 365,
	Resolution30m: 24 * 2 * 365,
	Resolution1h:  24 * 365,
	Resolution2h:  12 * 365,
	Resolution4h:  6 * 365,
	Resolution6h:  4 * 365,
	Resolution8h:  3 * 365,
	Resolution12h: 2 * 365,
	Resolution1d:  365,
	Resolution3d:  365.0 / 3,
	Resolution1w:  52,
	Resolution1M:  12,
}

// Resolutions returns every supported resolution, shortest first.
func Resolutions() []Resolution {
	return []Resolution{
		Resolution1m, Resolution3m, Resolution5m, Resolution15m, Resolution30m,
		Resolution1h, Resolution2h, Resolution4h, Resolution6h, Resolution8h, Resolution12h,
		Resolution1d, Resolution3d, Resolution1w, Resolution1M,
	}
}

// ParseResolution validates s against the supported interval codes.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if !r.IsValid() {
		return "", errors.Wrapf(ErrInvalidResolution, "%q", s)
	}
	return r, nil
}

// String returns the string representation.
func (r Resolution) String() string {
	return string(r)
}

// IsValid checks if the Resolution value is supported.
func (r Resolution) IsValid() bool {
	_, ok := periodsPerYear[r]
	return ok
}

// PeriodsPerYear returns how many candles of this resolution fit in a year.
// Crypto trades around the clock, so a year is 365 full days.
func (r Resolution) PeriodsPerYear() float64 {
	if v, ok := periodsPerYear[r]; ok {
		return v
	}
	return DefaultPeriodsPerYear
}
