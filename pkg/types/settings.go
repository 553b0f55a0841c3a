package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// Settings represents the plant configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// PlantName identifies the installation in reports.
	PlantName string `json:"plantName"`

	// RatedCapacityKW is the nameplate AC capacity of the plant (kW).
	RatedCapacityKW float64 `json:"ratedCapacityKW"`

	// Timezone is the IANA timezone the plant records timestamps in.
	Timezone string `json:"timezone"`

	// Loss factors applied to every sample when compiling the dataset.
	TransformerLoss  float64 `json:"transformerLoss"`
	TransmissionLoss float64 `json:"transmissionLoss"`

	// SampleInterval is the cadence of the source data, e.g. "1h" or "30m".
	SampleInterval string `json:"sampleInterval"`

	// DatasetName filters input files by substring, e.g. "Solcast".
	DatasetName string `json:"datasetName"`

	// TopYears is how many years the top-generation ranking includes.
	TopYears int `json:"topYears"`

	// DecompositionPeriodDays is the seasonal period for the daily series.
	DecompositionPeriodDays int `json:"decompositionPeriodDays"`
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.PlantName == "" {
				s.PlantName = "Pecém I"
				migrated = true
			}
			if s.RatedCapacityKW == 0 {
				s.RatedCapacityKW = 3500
				migrated = true
			}
			if s.Timezone == "" {
				s.Timezone = "America/Fortaleza"
				migrated = true
			}
			if s.TransformerLoss == 0 {
				s.TransformerLoss = 0.003
				migrated = true
			}
			if s.TransmissionLoss == 0 {
				s.TransmissionLoss = 0.01
				migrated = true
			}
			if s.SampleInterval == "" {
				s.SampleInterval = "1h"
				migrated = true
			}
		case 2:
			// version 2: add dataset name and top years
			if s.DatasetName == "" {
				s.DatasetName = "Solcast"
				migrated = true
			}
			if s.TopYears == 0 {
				s.TopYears = 3
				migrated = true
			}
		case 3:
			// version 3: add decomposition period, default to a yearly season
			if s.DecompositionPeriodDays == 0 {
				s.DecompositionPeriodDays = 365
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
