package types

import "time"

const (
	CurrentDailyStatsVersion   = 1
	CurrentMonthlyStatsVersion = 1
)

// Measurement is a single recorded production sample from the plant meter.
// Power is the average AC power over the sampling interval, after cleaning
// (negative readings clamped to zero) and loss factors have been applied.
type Measurement struct {
	Timestamp time.Time `json:"timestamp"`
	// PowerKW is the average generated power over the interval (kW).
	PowerKW float64 `json:"powerKW"`
	// EnergyKWH is PowerKW integrated over the sampling interval (kWh).
	EnergyKWH float64 `json:"energyKWH"`
	// IrradianceWM2 is the plane-of-array irradiance (W/m²), if recorded.
	IrradianceWM2 float64 `json:"irradianceWM2,omitempty"`
	// ModuleTempC is the module temperature (°C), if recorded.
	ModuleTempC float64 `json:"moduleTempC,omitempty"`
	// HasWeather is true when the irradiance/temperature columns were present.
	HasWeather bool `json:"hasWeather,omitempty"`
}

// DailyStats is the aggregate for a single calendar day.
type DailyStats struct {
	// Day is midnight at the start of the day in the plant's timezone.
	Day time.Time `json:"day"`

	EnergyKWH      float64 `json:"energyKWH"`
	PeakPowerKW    float64 `json:"peakPowerKW"`
	CapacityFactor float64 `json:"capacityFactor"`

	// PerformanceRatio is energy relative to the irradiation-limited ideal.
	// Only meaningful when IrradianceAvailable is true.
	PerformanceRatio    float64 `json:"performanceRatio,omitempty"`
	IrradianceAvailable bool    `json:"irradianceAvailable,omitempty"`

	// SampleCount is the number of measurements that contributed to the day.
	SampleCount int `json:"sampleCount"`
}

// MonthlyStats is the aggregate for a single calendar month.
type MonthlyStats struct {
	// Month is midnight on the first of the month in the plant's timezone.
	Month time.Time `json:"month"`

	EnergyKWH           float64 `json:"energyKWH"`
	MeanDailyKWH        float64 `json:"meanDailyKWH"`
	PeakPowerKW         float64 `json:"peakPowerKW"`
	CapacityFactor      float64 `json:"capacityFactor"`
	DaysWithData        int     `json:"daysWithData"`
	PerformanceRatio    float64 `json:"performanceRatio,omitempty"`
	IrradianceAvailable bool    `json:"irradianceAvailable,omitempty"`
}

// YearTotal is the total generation for one calendar year.
type YearTotal struct {
	Year      int     `json:"year"`
	EnergyKWH float64 `json:"energyKWH"`
}

// HourlyProfile is the mean generation shape of the plant by hour of day.
type HourlyProfile struct {
	// MeanEnergyKWH holds the mean per-interval energy for each hour [0-23].
	MeanEnergyKWH [24]float64 `json:"meanEnergyKWH"`
	// Factor holds the same shape normalized so the peak hour is 1.0.
	Factor [24]float64 `json:"factor"`
	// PeakHour is the hour with the highest mean generation.
	PeakHour int `json:"peakHour"`
}

// Correlations holds Pearson coefficients between power and the weather covariates.
type Correlations struct {
	PowerIrradiance float64 `json:"powerIrradiance"`
	PowerModuleTemp float64 `json:"powerModuleTemp"`
	// Available is false when the dataset carries no weather columns.
	Available bool `json:"available"`
}

// Decomposition is an additive decomposition of the daily energy series.
// For every index i: Observed[i] = Trend[i] + Seasonal[i] + Residual[i].
type Decomposition struct {
	Days     []time.Time `json:"days"`
	Observed []float64   `json:"observed"`
	Trend    []float64   `json:"trend"`
	Seasonal []float64   `json:"seasonal"`
	Residual []float64   `json:"residual"`
	// Period is the seasonal period in days used for the decomposition.
	Period int `json:"period"`
}

// DatasetReport describes what survived cleaning when a dataset was compiled.
type DatasetReport struct {
	Files          int       `json:"files"`
	Rows           int       `json:"rows"`
	Discarded      int       `json:"discarded"`
	ClampedToZero  int       `json:"clampedToZero"`
	OutOfOrder     int       `json:"outOfOrder"`
	Duplicates     int       `json:"duplicates"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	WeatherColumns bool      `json:"weatherColumns"`
}

// Summary is the headline view of an analysis over the whole series.
type Summary struct {
	TotalEnergyKWH      float64       `json:"totalEnergyKWH"`
	MeanDailyKWH        float64       `json:"meanDailyKWH"`
	PeakPowerKW         float64       `json:"peakPowerKW"`
	CapacityFactor      float64       `json:"capacityFactor"`
	PerformanceRatio    float64       `json:"performanceRatio,omitempty"`
	IrradianceAvailable bool          `json:"irradianceAvailable,omitempty"`
	TopYears            []YearTotal   `json:"topYears"`
	Correlations        Correlations  `json:"correlations"`
	Dataset             DatasetReport `json:"dataset"`
}

// AnalysisRun records one execution of the pipeline, successful or not.
type AnalysisRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Summary    Summary   `json:"summary"`
	DaysStored int       `json:"daysStored"`
	Artifacts  []string  `json:"artifacts,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
}
