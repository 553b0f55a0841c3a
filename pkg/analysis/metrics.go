package analysis

import (
	"math"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// capacityFactor is actual energy over the rated-capacity ideal for the
// elapsed hours. Bounded to [0, 1]; degenerate inputs yield 0.
func capacityFactor(energyKWH, ratedKW, hours float64) float64 {
	if ratedKW <= 0 || hours <= 0 {
		return 0
	}
	cf := energyKWH / (ratedKW * hours)
	if cf < 0 {
		return 0
	}
	if cf > 1 {
		return 1
	}
	return cf
}

// performanceRatio is actual energy over the irradiation-limited ideal:
// irradiation (kWh/m²) times the rated capacity at 1 kW/m² STC conditions.
func performanceRatio(energyKWH, irradiationKWHM2, ratedKW float64) float64 {
	ideal := irradiationKWHM2 * ratedKW
	if ideal <= 0 {
		return 0
	}
	return energyKWH / ideal
}

// Correlate computes Pearson coefficients between power and the weather
// covariates over the samples that carry them.
func Correlate(ms []types.Measurement) types.Correlations {
	var power, irr, temp []float64
	for _, m := range ms {
		if !m.HasWeather {
			continue
		}
		power = append(power, m.PowerKW)
		irr = append(irr, m.IrradianceWM2)
		temp = append(temp, m.ModuleTempC)
	}
	if len(power) < 2 {
		return types.Correlations{}
	}
	return types.Correlations{
		PowerIrradiance: pearson(power, irr),
		PowerModuleTemp: pearson(power, temp),
		Available:       true,
	}
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 || len(xs) != len(ys) {
		return 0
	}

	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
