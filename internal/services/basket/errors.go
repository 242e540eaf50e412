package basket

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDataFetch matches every failure to obtain usable candles for a basket.
	ErrDataFetch = errors.New("failed to fetch basket data")
	// ErrInsufficientData is returned when a symbol has no candles at all.
	ErrInsufficientData = errors.New("no candles returned")
	// ErrInvalidPrice is returned when the first close of a symbol is not positive.
	ErrInvalidPrice = errors.New("initial close price is not positive")
)

// FetchError reports which symbol broke a basket computation.
// errors.Is(err, ErrDataFetch) holds for every FetchError.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDataFetch, e.Symbol, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes FetchError match ErrDataFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrDataFetch
}
