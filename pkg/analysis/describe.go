package analysis

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// Describe builds the descriptive-statistics table (mean, stddev, quartiles,
// extremes) for the series columns. Weather columns are included only when
// the dataset carries them.
func Describe(ms []types.Measurement) dataframe.DataFrame {
	power := make([]float64, len(ms))
	energy := make([]float64, len(ms))
	var irr, temp []float64

	hasWeather := false
	for _, m := range ms {
		if m.HasWeather {
			hasWeather = true
			break
		}
	}

	for i, m := range ms {
		power[i] = m.PowerKW
		energy[i] = m.EnergyKWH
	}
	if hasWeather {
		irr = make([]float64, len(ms))
		temp = make([]float64, len(ms))
		for i, m := range ms {
			irr[i] = m.IrradianceWM2
			temp[i] = m.ModuleTempC
		}
	}

	cols := []series.Series{
		series.New(power, series.Float, "power_kw"),
		series.New(energy, series.Float, "energy_kwh"),
	}
	if hasWeather {
		cols = append(cols,
			series.New(irr, series.Float, "irradiance_wm2"),
			series.New(temp, series.Float, "module_temp_c"),
		)
	}

	return dataframe.New(cols...).Describe()
}
