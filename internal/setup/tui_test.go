package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/perpbasket/config"
	"github.com/vadiminshakov/perpbasket/internal/domain"
)

func TestBuildBasket(t *testing.T) {
	b, err := BuildBasket(Answers{Longs: "btc, eth", Shorts: "SOLUSDT"})
	require.NoError(t, err)
	assert.Equal(t, domain.Basket{
		{Symbol: "BTCUSDT", Position: domain.PositionLong, Weight: 25},
		{Symbol: "ETHUSDT", Position: domain.PositionLong, Weight: 25},
		{Symbol: "SOLUSDT", Position: domain.PositionShort, Weight: 50},
	}, b)

	_, err = BuildBasket(Answers{Longs: "BTC", Shorts: "BTCUSDT"})
	assert.ErrorContains(t, err, "listed twice")

	_, err = BuildBasket(Answers{Longs: " , "})
	assert.Error(t, err)
}

func TestBuildConfig(t *testing.T) {
	t.Run("even split", func(t *testing.T) {
		tmp, err := BuildConfig(Answers{Resolution: "4h", Longs: "BTC", Shorts: "ETH"})
		require.NoError(t, err)
		assert.Equal(t, "4h", tmp.Resolution)
		require.Len(t, tmp.Basket, 2)
		assert.Equal(t, 50.0, *tmp.Basket[0].Weight)
		assert.Equal(t, "short", tmp.Basket[1].Position)
	})

	t.Run("custom weights", func(t *testing.T) {
		tmp, err := BuildConfig(Answers{
			Resolution: "1d",
			Longs:      "BTC",
			Shorts:     "ETH",
			Weights:    map[string]string{"BTCUSDT": "70", "ETHUSDT": "30.00"},
		})
		require.NoError(t, err)
		assert.Equal(t, 70.0, *tmp.Basket[0].Weight)
		assert.Equal(t, 30.0, *tmp.Basket[1].Weight)
	})

	t.Run("custom weights must sum to 100", func(t *testing.T) {
		_, err := BuildConfig(Answers{
			Resolution: "1d",
			Longs:      "BTC",
			Shorts:     "ETH",
			Weights:    map[string]string{"BTCUSDT": "70", "ETHUSDT": "20"},
		})
		assert.Error(t, err)
	})

	t.Run("invalid resolution", func(t *testing.T) {
		_, err := BuildConfig(Answers{Resolution: "2d", Longs: "BTC"})
		assert.ErrorIs(t, err, domain.ErrInvalidResolution)
	})
}

func TestWriteConfig(t *testing.T) {
	tmp, err := BuildConfig(Answers{Resolution: "1h", Longs: "BTC", Shorts: "ETH"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), config.DefaultSetupOutput)
	require.NoError(t, WriteConfig(path, tmp))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got config.ConfigTmp
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, tmp, got)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateWeight("12.5"))
	assert.Error(t, validateWeight("-1"))
	assert.Error(t, validateWeight("101"))
	assert.Error(t, validateWeight("abc"))

	assert.NoError(t, validateSymbols("BTC, eth1000"))
	assert.Error(t, validateSymbols("BTC-PERP"))
}
