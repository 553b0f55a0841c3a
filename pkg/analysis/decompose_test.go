package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// weeklySeries builds a daily series with a repeating 7-day shape on top of a
// linear trend.
func weeklySeries(weeks int, slope float64) []types.DailyStats {
	shape := []float64{100, 120, 140, 160, 140, 120, 100}
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

	var daily []types.DailyStats
	for i := 0; i < weeks*7; i++ {
		daily = append(daily, types.DailyStats{
			Day:       start.AddDate(0, 0, i),
			EnergyKWH: shape[i%7] + slope*float64(i),
		})
	}
	return daily
}

func TestDecompose(t *testing.T) {
	t.Run("series too short", func(t *testing.T) {
		_, err := Decompose(weeklySeries(1, 0), 7)
		require.ErrorContains(t, err, "too short")
	})

	t.Run("period too small", func(t *testing.T) {
		_, err := Decompose(weeklySeries(4, 0), 1)
		require.ErrorContains(t, err, "at least 2")
	})

	t.Run("additive identity holds", func(t *testing.T) {
		d, err := Decompose(weeklySeries(8, 2), 7)
		require.NoError(t, err)
		require.Len(t, d.Observed, 56)
		require.Len(t, d.Trend, 56)
		require.Len(t, d.Seasonal, 56)
		require.Len(t, d.Residual, 56)
		for i := range d.Observed {
			got := d.Trend[i] + d.Seasonal[i] + d.Residual[i]
			assert.InDelta(t, d.Observed[i], got, 1e-9)
		}
	})

	t.Run("seasonal component is centered and periodic", func(t *testing.T) {
		d, err := Decompose(weeklySeries(8, 0), 7)
		require.NoError(t, err)

		var sum float64
		for p := 0; p < 7; p++ {
			sum += d.Seasonal[p]
			// same position next week carries the same seasonal value
			assert.InDelta(t, d.Seasonal[p], d.Seasonal[p+7], 1e-9)
		}
		assert.InDelta(t, 0, sum, 1e-9)
		// the mid-week bump shows up as the seasonal peak
		assert.Greater(t, d.Seasonal[3], d.Seasonal[0])
	})

	t.Run("trend follows a linear series", func(t *testing.T) {
		d, err := Decompose(weeklySeries(8, 10), 7)
		require.NoError(t, err)
		// interior trend should rise roughly 10/day, residuals near zero
		mid := len(d.Trend) / 2
		assert.InDelta(t, 10, d.Trend[mid+1]-d.Trend[mid], 0.5)
		for i := 7; i < len(d.Residual)-7; i++ {
			assert.True(t, math.Abs(d.Residual[i]) < 5, "residual %d too large: %f", i, d.Residual[i])
		}
	})

	t.Run("edges are extrapolated", func(t *testing.T) {
		d, err := Decompose(weeklySeries(8, 10), 7)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(d.Trend[0]))
		assert.NotZero(t, d.Trend[0])
		assert.Greater(t, d.Trend[len(d.Trend)-1], d.Trend[0])
	})
}
