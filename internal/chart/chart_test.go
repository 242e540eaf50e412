package chart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/basket"
)

func TestRender(t *testing.T) {
	const hour = int64(3600_000)
	res := &basket.Result{
		Resolution: domain.Resolution1h,
		Selections: domain.Basket{
			{Symbol: "BTCUSDT", Position: domain.PositionLong, Weight: 50},
			{Symbol: "ETHUSDT", Position: domain.PositionShort, Weight: 50},
		},
		Basket: []domain.Point{{Time: 0, Value: 100}, {Time: hour, Value: 107.5}, {Time: 2 * hour, Value: 103}},
		Components: []domain.ComponentSeries{
			{Symbol: "BTCUSDT", Data: []domain.Point{{Time: 0, Value: 100}, {Time: hour, Value: 110}, {Time: 2 * hour, Value: 104}}},
			{Symbol: "ETHUSDT", Data: []domain.Point{{Time: 0, Value: 100}, {Time: hour, Value: 95}, {Time: 2 * hour, Value: 98}}},
		},
		Statistics: domain.Statistics{TotalReturn: 3},
	}

	buf, err := Render(res, Options{Width: 400, Height: 300})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf, []byte("\x89PNG")), "not a png")

	_, err = Render(&basket.Result{Basket: []domain.Point{{Time: 0, Value: 100}}}, Options{})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Render(nil, Options{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestTimeLabels(t *testing.T) {
	points := []domain.Point{{Time: 1700000000000}}

	assert.Equal(t, []string{"11-14 22:13"}, timeLabels(points, domain.Resolution1h))
	assert.Equal(t, []string{"2023-11-14"}, timeLabels(points, domain.Resolution1d))
	assert.Equal(t, []string{"2023-11-14"}, timeLabels(points, domain.Resolution1w))
}

func TestBounds(t *testing.T) {
	lo, hi := bounds([][]float64{{100, 110}, {90, 100}})
	assert.InDelta(t, 89, lo, 1e-9)
	assert.InDelta(t, 111, hi, 1e-9)

	lo, hi = bounds([][]float64{{100, 100}})
	assert.InDelta(t, 95, lo, 1e-9)
	assert.InDelta(t, 105, hi, 1e-9)
}
