// Package analysis computes descriptive statistics over a compiled
// production series: period aggregates, capacity factor, performance ratio,
// generation profiles, correlations and a seasonal decomposition.
package analysis

import (
	"sort"
	"time"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// Daily aggregates the series into per-day stats, sorted by day.
func Daily(ms []types.Measurement, settings types.Settings) []types.DailyStats {
	type acc struct {
		energy     float64
		peak       float64
		irradiance float64 // Wh/m² accumulated
		hours      float64
		samples    int
		weather    bool
	}

	interval := sampleInterval(settings)
	byDay := make(map[time.Time]*acc)
	for _, m := range ms {
		day := truncateDay(m.Timestamp)
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		a.energy += m.EnergyKWH
		if m.PowerKW > a.peak {
			a.peak = m.PowerKW
		}
		a.hours += interval.Hours()
		a.samples++
		if m.HasWeather {
			a.weather = true
			a.irradiance += m.IrradianceWM2 * interval.Hours()
		}
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]types.DailyStats, 0, len(days))
	for _, day := range days {
		a := byDay[day]
		d := types.DailyStats{
			Day:         day,
			EnergyKWH:   a.energy,
			PeakPowerKW: a.peak,
			SampleCount: a.samples,
		}
		d.CapacityFactor = capacityFactor(a.energy, settings.RatedCapacityKW, a.hours)
		if a.weather {
			d.IrradianceAvailable = true
			d.PerformanceRatio = performanceRatio(a.energy, a.irradiance/1000, settings.RatedCapacityKW)
		}
		out = append(out, d)
	}
	return out
}

// Monthly rolls daily stats up into per-month stats, sorted by month.
func Monthly(daily []types.DailyStats, settings types.Settings) []types.MonthlyStats {
	type acc struct {
		energy  float64
		peak    float64
		days    int
		hours   float64
		prNum   float64 // energy over days with irradiance
		prDenom float64 // irradiation-limited ideal over those days
		weather bool
	}

	byMonth := make(map[time.Time]*acc)
	for _, d := range daily {
		month := time.Date(d.Day.Year(), d.Day.Month(), 1, 0, 0, 0, 0, d.Day.Location())
		a := byMonth[month]
		if a == nil {
			a = &acc{}
			byMonth[month] = a
		}
		a.energy += d.EnergyKWH
		if d.PeakPowerKW > a.peak {
			a.peak = d.PeakPowerKW
		}
		a.days++
		a.hours += float64(d.SampleCount) * sampleInterval(settings).Hours()
		if d.IrradianceAvailable && d.PerformanceRatio > 0 {
			a.weather = true
			a.prNum += d.EnergyKWH
			a.prDenom += d.EnergyKWH / d.PerformanceRatio
		}
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]types.MonthlyStats, 0, len(months))
	for _, month := range months {
		a := byMonth[month]
		s := types.MonthlyStats{
			Month:        month,
			EnergyKWH:    a.energy,
			PeakPowerKW:  a.peak,
			DaysWithData: a.days,
		}
		if a.days > 0 {
			s.MeanDailyKWH = a.energy / float64(a.days)
		}
		s.CapacityFactor = capacityFactor(a.energy, settings.RatedCapacityKW, a.hours)
		if a.weather && a.prDenom > 0 {
			s.IrradianceAvailable = true
			s.PerformanceRatio = a.prNum / a.prDenom
		}
		out = append(out, s)
	}
	return out
}

// YearTotals returns total generation per calendar year, sorted by year.
func YearTotals(daily []types.DailyStats) []types.YearTotal {
	byYear := make(map[int]float64)
	for _, d := range daily {
		byYear[d.Day.Year()] += d.EnergyKWH
	}
	years := make([]types.YearTotal, 0, len(byYear))
	for y, e := range byYear {
		years = append(years, types.YearTotal{Year: y, EnergyKWH: e})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })
	return years
}

// TopYears returns the n years with the highest generation, best first.
func TopYears(daily []types.DailyStats, n int) []types.YearTotal {
	years := YearTotals(daily)
	sort.Slice(years, func(i, j int) bool { return years[i].EnergyKWH > years[j].EnergyKWH })
	if n > 0 && len(years) > n {
		years = years[:n]
	}
	return years
}

// Profile derives the mean hourly generation shape of the plant, normalized
// so the peak hour is 1.0.
func Profile(ms []types.Measurement) types.HourlyProfile {
	var sum [24]float64
	var count [24]int
	for _, m := range ms {
		h := m.Timestamp.Hour()
		sum[h] += m.EnergyKWH
		count[h]++
	}

	var p types.HourlyProfile
	var maxMean float64
	for h := 0; h < 24; h++ {
		if count[h] == 0 {
			continue
		}
		mean := sum[h] / float64(count[h])
		p.MeanEnergyKWH[h] = mean
		if mean > maxMean {
			maxMean = mean
			p.PeakHour = h
		}
	}
	if maxMean > 0 {
		for h := 0; h < 24; h++ {
			p.Factor[h] = p.MeanEnergyKWH[h] / maxMean
		}
	}
	return p
}

func sampleInterval(settings types.Settings) time.Duration {
	d, err := time.ParseDuration(settings.SampleInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
