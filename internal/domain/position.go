package domain

// Position side of an instrument inside a basket.
type Position string

const (
	// PositionLong gains when the instrument price rises.
	PositionLong Position = "long"
	// PositionShort gains when the instrument price falls.
	PositionShort Position = "short"
)

// String returns the string representation.
func (p Position) String() string {
	return string(p)
}

// IsValid checks if the Position value is valid.
func (p Position) IsValid() bool {
	return p == PositionLong || p == PositionShort
}

// Multiplier returns +1 for long and -1 for short.
func (p Position) Multiplier() float64 {
	if p == PositionShort {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (p Position) Opposite() Position {
	if p == PositionShort {
		return PositionLong
	}
	return PositionShort
}
