package analysis

import (
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// Result holds everything one pass over the compiled series produces.
type Result struct {
	Daily         []types.DailyStats
	Monthly       []types.MonthlyStats
	Years         []types.YearTotal
	Profile       types.HourlyProfile
	Correlations  types.Correlations
	Decomposition types.Decomposition
	Describe      dataframe.DataFrame
	Summary       types.Summary
}

// Run computes the full set of descriptive statistics for the series.
// An empty series is an error, not a zero-valued result.
func Run(ms []types.Measurement, report types.DatasetReport, settings types.Settings) (Result, error) {
	if len(ms) == 0 {
		return Result{}, fmt.Errorf("no measurements to analyze")
	}

	var r Result
	r.Daily = Daily(ms, settings)
	r.Monthly = Monthly(r.Daily, settings)
	r.Years = YearTotals(r.Daily)
	r.Profile = Profile(ms)
	r.Correlations = Correlate(ms)
	r.Describe = Describe(ms)

	// The decomposition needs two full periods; short series simply skip it.
	if d, err := Decompose(r.Daily, settings.DecompositionPeriodDays); err == nil {
		r.Decomposition = d
	} else {
		slog.Debug("skipping decomposition", slog.Any("reason", err))
	}

	r.Summary = summarize(ms, r, report, settings)
	return r, nil
}

func summarize(ms []types.Measurement, r Result, report types.DatasetReport, settings types.Settings) types.Summary {
	s := types.Summary{
		Correlations: r.Correlations,
		Dataset:      report,
		TopYears:     TopYears(r.Daily, settings.TopYears),
	}

	var hours, prNum, prDenom float64
	for _, d := range r.Daily {
		s.TotalEnergyKWH += d.EnergyKWH
		if d.PeakPowerKW > s.PeakPowerKW {
			s.PeakPowerKW = d.PeakPowerKW
		}
		hours += float64(d.SampleCount) * sampleInterval(settings).Hours()
		if d.IrradianceAvailable && d.PerformanceRatio > 0 {
			prNum += d.EnergyKWH
			prDenom += d.EnergyKWH / d.PerformanceRatio
		}
	}
	if len(r.Daily) > 0 {
		s.MeanDailyKWH = s.TotalEnergyKWH / float64(len(r.Daily))
	}
	s.CapacityFactor = capacityFactor(s.TotalEnergyKWH, settings.RatedCapacityKW, hours)
	if prDenom > 0 {
		s.IrradianceAvailable = true
		s.PerformanceRatio = prNum / prDenom
	}

	if report.Rows == 0 {
		s.Dataset.Rows = len(ms)
	}
	if report.Start.IsZero() && len(ms) > 0 {
		s.Dataset.Start = ms[0].Timestamp
		s.Dataset.End = ms[len(ms)-1].Timestamp
	}
	return s
}
