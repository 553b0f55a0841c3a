package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSettings(t *testing.T) {
	t.Run("v1: initial defaults", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Pecém I", s.PlantName)
		assert.Equal(t, 3500.0, s.RatedCapacityKW)
		assert.Equal(t, "America/Fortaleza", s.Timezone)
		assert.Equal(t, 0.003, s.TransformerLoss)
		assert.Equal(t, 0.01, s.TransmissionLoss)
		assert.Equal(t, "1h", s.SampleInterval)
	})

	t.Run("v1 to v2: dataset name and top years", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 1)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Solcast", s.DatasetName)
		assert.Equal(t, 3, s.TopYears)
	})

	t.Run("v2 to v3: decomposition period", func(t *testing.T) {
		s, changed, err := MigrateSettings(Settings{}, 2)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 365, s.DecompositionPeriodDays)
	})

	t.Run("preserves non-zero values", func(t *testing.T) {
		old := Settings{
			PlantName:       "Pecém II",
			RatedCapacityKW: 5000,
			Timezone:        "UTC",
			SampleInterval:  "30m",
		}
		s, changed, err := MigrateSettings(old, 0)
		require.NoError(t, err)
		assert.True(t, changed) // loss factors still default
		assert.Equal(t, "Pecém II", s.PlantName)
		assert.Equal(t, 5000.0, s.RatedCapacityKW)
		assert.Equal(t, "UTC", s.Timezone)
		assert.Equal(t, "30m", s.SampleInterval)
	})

	t.Run("current version is a no-op", func(t *testing.T) {
		old := Settings{PlantName: "x"}
		s, changed, err := MigrateSettings(old, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, old, s)
	})

	t.Run("future version errors", func(t *testing.T) {
		_, _, err := MigrateSettings(Settings{}, -2)
		require.Error(t, err)
	})
}
