package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"

	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/storage"
	"github.com/pvwatch/pvwatch/pkg/types"
)

// seed fills the Firestore emulator with a year of plausible generation data
// so the API can be exercised without real exports.
func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	db := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	settings, _, err := types.MigrateSettings(types.Settings{}, 0)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to build settings", "error", err)
		os.Exit(1)
	}
	if err := db.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed settings", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load timezone", "error", err)
		os.Exit(1)
	}

	year := time.Now().Year() - 1
	start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)

	var daily []types.DailyStats
	monthlyEnergy := map[time.Time]*types.MonthlyStats{}

	for day := start; day.Year() == year; day = day.AddDate(0, 0, 1) {
		// dry-season months generate more, with day-to-day cloud jitter
		seasonal := 1.0 + 0.15*math.Cos(2*math.Pi*float64(day.YearDay())/365.0)
		jitter := 0.85 + rng.Float64()*0.3
		energy := 16500.0 * seasonal * jitter
		peak := settings.RatedCapacityKW * (0.85 + rng.Float64()*0.1)

		d := types.DailyStats{
			Day:            day,
			EnergyKWH:      energy,
			PeakPowerKW:    peak,
			CapacityFactor: energy / (settings.RatedCapacityKW * 24),
			SampleCount:    24,
		}
		daily = append(daily, d)

		month := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		m, ok := monthlyEnergy[month]
		if !ok {
			m = &types.MonthlyStats{Month: month}
			monthlyEnergy[month] = m
		}
		m.EnergyKWH += energy
		m.DaysWithData++
		if peak > m.PeakPowerKW {
			m.PeakPowerKW = peak
		}
	}

	var monthly []types.MonthlyStats
	var total, peak float64
	for _, m := range monthlyEnergy {
		m.MeanDailyKWH = m.EnergyKWH / float64(m.DaysWithData)
		m.CapacityFactor = m.EnergyKWH / (settings.RatedCapacityKW * 24 * float64(m.DaysWithData))
		monthly = append(monthly, *m)
		total += m.EnergyKWH
		if m.PeakPowerKW > peak {
			peak = m.PeakPowerKW
		}
	}

	if err := db.UpsertDailyStats(ctx, daily, types.CurrentDailyStatsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed daily stats", "error", err)
		os.Exit(1)
	}
	if err := db.UpsertMonthlyStats(ctx, monthly, types.CurrentMonthlyStatsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed monthly stats", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	run := types.AnalysisRun{
		ID:         uuid.NewString(),
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Summary: types.Summary{
			TotalEnergyKWH: total,
			MeanDailyKWH:   total / float64(len(daily)),
			PeakPowerKW:    peak,
			CapacityFactor: total / (settings.RatedCapacityKW * 24 * float64(len(daily))),
			TopYears:       []types.YearTotal{{Year: year, EnergyKWH: total}},
			Dataset: types.DatasetReport{
				Files: 1,
				Rows:  len(daily) * 24,
				Start: start,
				End:   start.AddDate(1, 0, 0),
			},
		},
		DaysStored: len(daily),
	}
	if err := db.InsertAnalysisRun(ctx, run); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed analysis run", "error", err)
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded mock data")
	if err := db.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
	}
}
