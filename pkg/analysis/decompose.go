package analysis

import (
	"fmt"
	"time"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// Decompose splits the daily energy series into trend, seasonal and residual
// components using an additive model. The trend is a centered moving average
// over one seasonal period, linearly extrapolated at the edges so every index
// has a value; the seasonal component is the mean detrended value for each
// position in the period, centered around zero.
func Decompose(daily []types.DailyStats, period int) (types.Decomposition, error) {
	if period < 2 {
		return types.Decomposition{}, fmt.Errorf("decomposition period must be at least 2, got %d", period)
	}
	if len(daily) < 2*period {
		return types.Decomposition{}, fmt.Errorf("series too short for decomposition: %d days, need at least %d", len(daily), 2*period)
	}

	n := len(daily)
	d := types.Decomposition{
		Days:     make([]time.Time, n),
		Observed: make([]float64, n),
		Period:   period,
	}
	for i, day := range daily {
		d.Days[i] = day.Day
		d.Observed[i] = day.EnergyKWH
	}

	d.Trend = movingAverageTrend(d.Observed, period)

	// seasonal means of the detrended series, per position in the period
	seasonalMean := make([]float64, period)
	seasonalCount := make([]int, period)
	for i := range d.Observed {
		seasonalMean[i%period] += d.Observed[i] - d.Trend[i]
		seasonalCount[i%period]++
	}
	var center float64
	for p := 0; p < period; p++ {
		if seasonalCount[p] > 0 {
			seasonalMean[p] /= float64(seasonalCount[p])
		}
		center += seasonalMean[p]
	}
	center /= float64(period)

	d.Seasonal = make([]float64, n)
	d.Residual = make([]float64, n)
	for i := range d.Observed {
		d.Seasonal[i] = seasonalMean[i%period] - center
		d.Trend[i] += center
		d.Residual[i] = d.Observed[i] - d.Trend[i] - d.Seasonal[i]
	}

	return d, nil
}

// movingAverageTrend computes a centered moving average with window = period.
// For an even period the two outermost samples get half weight, keeping the
// average centered. Edges without a full window are filled by extending the
// straight line through the first and last fully-averaged points.
func movingAverageTrend(xs []float64, period int) []float64 {
	n := len(xs)
	trend := make([]float64, n)

	half := period / 2
	first, last := -1, -1
	for i := half; i < n-half; i++ {
		var sum float64
		if period%2 == 1 {
			for j := i - half; j <= i+half; j++ {
				sum += xs[j]
			}
			trend[i] = sum / float64(period)
		} else {
			sum = xs[i-half]/2 + xs[i+half]/2
			for j := i - half + 1; j < i+half; j++ {
				sum += xs[j]
			}
			trend[i] = sum / float64(period)
		}
		if first < 0 {
			first = i
		}
		last = i
	}

	if first < 0 || first == last {
		// no full window anywhere, degenerate flat trend
		var mean float64
		for _, x := range xs {
			mean += x
		}
		mean /= float64(n)
		for i := range trend {
			trend[i] = mean
		}
		return trend
	}

	slope := (trend[last] - trend[first]) / float64(last-first)
	for i := 0; i < first; i++ {
		trend[i] = trend[first] - slope*float64(first-i)
	}
	for i := last + 1; i < n; i++ {
		trend[i] = trend[last] + slope*float64(i-last)
	}
	return trend
}
