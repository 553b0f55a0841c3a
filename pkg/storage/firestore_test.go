package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvwatch/pvwatch/pkg/types"
)

func TestFirestoreProvider(t *testing.T) {
	// Check if emulator is running or configured
	// We assume it is running on localhost:8087 as per task
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")

	// Use a test project ID
	projectID := "test-project-id"

	// Use a random database for isolation
	randDB := fmt.Sprintf("test-db-%d", time.Now().UnixNano())
	f := &FirestoreProvider{
		projectID: projectID,
		database:  randDB,
	}

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
	})

	t.Run("SettingsDefaultsWhenMissing", func(t *testing.T) {
		_, version, err := f.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, version)
	})

	t.Run("Settings", func(t *testing.T) {
		settings, _, err := types.MigrateSettings(types.Settings{}, 0)
		require.NoError(t, err)
		settings.TopYears = 5

		require.NoError(t, f.SetSettings(ctx, settings, 1))

		gotSettings, version, err := f.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)
		assert.Equal(t, settings.PlantName, gotSettings.PlantName)
		assert.Equal(t, settings.RatedCapacityKW, gotSettings.RatedCapacityKW)
		assert.Equal(t, 5, gotSettings.TopYears)

		t.Run("StaleVersionRejected", func(t *testing.T) {
			err := f.SetSettings(ctx, settings, 0)
			assert.ErrorIs(t, err, ErrVersionMismatch)
		})
	})

	t.Run("DailyStats", func(t *testing.T) {
		day1 := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
		day2 := day1.AddDate(0, 0, 1)
		day3 := day1.AddDate(0, 0, 2)
		stats := []types.DailyStats{
			{Day: day1, EnergyKWH: 18000, PeakPowerKW: 3100, CapacityFactor: 0.21, SampleCount: 24},
			{Day: day2, EnergyKWH: 17500, PeakPowerKW: 3050, CapacityFactor: 0.20, SampleCount: 24},
			{Day: day3, EnergyKWH: 19000, PeakPowerKW: 3200, CapacityFactor: 0.22, SampleCount: 24},
		}
		require.NoError(t, f.UpsertDailyStats(ctx, stats, types.CurrentDailyStatsVersion))

		t.Run("RangeFiltering", func(t *testing.T) {
			// End is exclusive so day3 should not be returned
			got, err := f.GetDailyStats(ctx, day1, day3)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, day1, got[0].Day.UTC())
			assert.Equal(t, day2, got[1].Day.UTC())
			assert.Equal(t, 18000.0, got[0].EnergyKWH)
		})

		t.Run("UpsertOverwrite", func(t *testing.T) {
			updated := stats[1]
			updated.EnergyKWH = 16000
			require.NoError(t, f.UpsertDailyStats(ctx, []types.DailyStats{updated}, types.CurrentDailyStatsVersion))

			got, err := f.GetDailyStats(ctx, day2, day3)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 16000.0, got[0].EnergyKWH)
		})

		t.Run("MissingDay", func(t *testing.T) {
			err := f.UpsertDailyStats(ctx, []types.DailyStats{{EnergyKWH: 1}}, types.CurrentDailyStatsVersion)
			assert.ErrorContains(t, err, "missing day")
		})
	})

	t.Run("MonthlyStats", func(t *testing.T) {
		jun := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
		jul := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
		stats := []types.MonthlyStats{
			{Month: jun, EnergyKWH: 520000, PeakPowerKW: 3200},
			{Month: jul, EnergyKWH: 510000, PeakPowerKW: 3150},
		}
		require.NoError(t, f.UpsertMonthlyStats(ctx, stats, types.CurrentMonthlyStatsVersion))

		got, err := f.GetMonthlyStats(ctx, jun, jul)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, jun, got[0].Month.UTC())
		assert.Equal(t, 520000.0, got[0].EnergyKWH)
	})

	t.Run("AnalysisRuns", func(t *testing.T) {
		now := time.Now().Truncate(time.Second).UTC()
		r1 := types.AnalysisRun{
			ID:        "run-1",
			StartedAt: now.Add(-2 * time.Hour),
			Summary:   types.Summary{TotalEnergyKWH: 100},
		}
		r2 := types.AnalysisRun{
			ID:        "run-2",
			StartedAt: now,
			Summary:   types.Summary{TotalEnergyKWH: 200},
		}
		require.NoError(t, f.InsertAnalysisRun(ctx, r1))
		require.NoError(t, f.InsertAnalysisRun(ctx, r2))

		t.Run("History", func(t *testing.T) {
			runs, err := f.GetAnalysisRuns(ctx, now.Add(-3*time.Hour), now.Add(time.Minute))
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "run-1", runs[0].ID)
			assert.Equal(t, "run-2", runs[1].ID)
		})

		t.Run("HistoryExcludesOutOfRange", func(t *testing.T) {
			runs, err := f.GetAnalysisRuns(ctx, now.Add(-time.Hour), now.Add(time.Minute))
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, "run-2", runs[0].ID)
		})

		t.Run("Latest", func(t *testing.T) {
			latest, err := f.GetLatestAnalysisRun(ctx)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, "run-2", latest.ID)
			assert.Equal(t, 200.0, latest.Summary.TotalEnergyKWH)
		})

		t.Run("MissingID", func(t *testing.T) {
			err := f.InsertAnalysisRun(ctx, types.AnalysisRun{StartedAt: now})
			assert.ErrorContains(t, err, "missing id")
		})
	})
}
