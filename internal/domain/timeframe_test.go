package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolution_PeriodsPerYear(t *testing.T) {
	tests := []struct {
		resolution Resolution
		expected   float64
	}{
		{Resolution1m, 525600},
		{Resolution5m, 105120},
		{Resolution1h, 8760},
		{Resolution4h, 2190},
		{Resolution1d, 365},
		{Resolution3d, 365.0 / 3},
		{Resolution1w, 52},
		{Resolution1M, 12},
		{Resolution("10d"), DefaultPeriodsPerYear},
	}

	for _, tt := range tests {
		t.Run(tt.resolution.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resolution.PeriodsPerYear())
		})
	}
}

func TestParseResolution(t *testing.T) {
	r, err := ParseResolution("15m")
	require.NoError(t, err)
	assert.Equal(t, Resolution15m, r)

	_, err = ParseResolution("15M")
	assert.ErrorIs(t, err, ErrInvalidResolution)

	for _, r := range Resolutions() {
		assert.True(t, r.IsValid(), r)
	}
	assert.Len(t, Resolutions(), 15)
}
