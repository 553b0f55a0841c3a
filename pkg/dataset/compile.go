package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/types"
)

// compiledName returns the file name for a compiled dataset.
func compiledName(datasetName string) string {
	return fmt.Sprintf("compiled_%s.csv", strings.ToLower(datasetName))
}

// ListFiles returns the raw export files whose names contain datasetName,
// sorted so multi-file datasets compile in a stable order.
func (s *Source) ListFiles(datasetName string) ([]string, error) {
	entries, err := os.ReadDir(s.inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", s.inputDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.Contains(e.Name(), datasetName) {
			files = append(files, filepath.Join(s.inputDir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files matching %q in %s", ErrNoFiles, datasetName, s.inputDir)
	}
	return files, nil
}

// Compile reads every matching export, cleans the rows and merges them into a
// single time series ordered by timestamp. The compiled series is written to
// the output directory and reused on subsequent calls unless the Source was
// configured to recompile.
func (s *Source) Compile(ctx context.Context, settings types.Settings) ([]types.Measurement, types.DatasetReport, error) {
	compiledPath := filepath.Join(s.outputDir, compiledName(settings.DatasetName))
	if !s.recompile {
		if ms, report, err := loadCompiled(compiledPath); err == nil {
			log.Ctx(ctx).InfoContext(ctx, "reusing compiled dataset",
				slog.String("path", compiledPath), slog.Int("rows", len(ms)))
			return ms, report, nil
		}
	}

	interval, err := time.ParseDuration(settings.SampleInterval)
	if err != nil || interval <= 0 {
		return nil, types.DatasetReport{}, fmt.Errorf("invalid sample interval %q: %w", settings.SampleInterval, err)
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, types.DatasetReport{}, fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}

	files, err := s.ListFiles(settings.DatasetName)
	if err != nil {
		return nil, types.DatasetReport{}, err
	}

	lossFactor := (1 - settings.TransformerLoss) * (1 - settings.TransmissionLoss)
	parser := &solcastParser{loc: loc}

	var report types.DatasetReport
	report.Files = len(files)

	var measurements []types.Measurement
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, types.DatasetReport{}, fmt.Errorf("opening %s: %w", path, err)
		}
		parsed, err := parser.Parse(f)
		f.Close()
		if err != nil {
			return nil, types.DatasetReport{}, fmt.Errorf("parsing %s: %w", path, err)
		}

		report.Discarded += parsed.discarded
		report.OutOfOrder += parsed.outOfOrder
		report.Duplicates += parsed.duplicates
		if parsed.hasWeather {
			report.WeatherColumns = true
		}

		for _, row := range parsed.rows {
			m, clamped := toMeasurement(row, interval, lossFactor)
			if clamped {
				report.ClampedToZero++
			}
			measurements = append(measurements, m)
		}

		log.Ctx(ctx).DebugContext(ctx, "parsed export",
			slog.String("path", path),
			slog.Int("rows", len(parsed.rows)),
			slog.Int("discarded", parsed.discarded))
	}

	if len(measurements) == 0 {
		return nil, report, fmt.Errorf("%w (discarded %d rows)", ErrNoData, report.Discarded)
	}

	// Files can cover disjoint ranges in any order; merge them by time and
	// drop cross-file duplicates, keeping the first occurrence.
	sort.SliceStable(measurements, func(i, j int) bool {
		return measurements[i].Timestamp.Before(measurements[j].Timestamp)
	})
	deduped := measurements[:1]
	for _, m := range measurements[1:] {
		if m.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			report.Duplicates++
			continue
		}
		deduped = append(deduped, m)
	}
	measurements = deduped

	report.Rows = len(measurements)
	report.Start = measurements[0].Timestamp
	report.End = measurements[len(measurements)-1].Timestamp

	if err := writeCompiled(compiledPath, measurements, report); err != nil {
		return nil, report, err
	}
	log.Ctx(ctx).InfoContext(ctx, "compiled dataset",
		slog.String("path", compiledPath),
		slog.Int("rows", report.Rows),
		slog.Int("discarded", report.Discarded))

	return measurements, report, nil
}

// compiled CSV columns
var compiledHeader = []string{"timestamp", "power_kw", "energy_kwh", "irradiance_wm2", "module_temp_c", "has_weather"}

func writeCompiled(path string, ms []types.Measurement, report types.DatasetReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating compiled file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	// First line carries the cleaning report so a reused file keeps its counts.
	if err := w.Write([]string{"#report",
		strconv.Itoa(report.Files),
		strconv.Itoa(report.Discarded),
		strconv.Itoa(report.ClampedToZero),
		strconv.Itoa(report.OutOfOrder),
		strconv.Itoa(report.Duplicates),
	}); err != nil {
		return err
	}
	if err := w.Write(compiledHeader); err != nil {
		return err
	}
	for _, m := range ms {
		rec := []string{
			m.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(m.PowerKW, 'f', -1, 64),
			strconv.FormatFloat(m.EnergyKWH, 'f', -1, 64),
			strconv.FormatFloat(m.IrradianceWM2, 'f', -1, 64),
			strconv.FormatFloat(m.ModuleTempC, 'f', -1, 64),
			strconv.FormatBool(m.HasWeather),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing compiled file: %w", err)
	}
	return nil
}

func loadCompiled(path string) ([]types.Measurement, types.DatasetReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.DatasetReport{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var report types.DatasetReport

	first, err := r.Read()
	if err != nil {
		return nil, report, fmt.Errorf("reading compiled file: %w", err)
	}
	if len(first) == 6 && first[0] == "#report" {
		report.Files, _ = strconv.Atoi(first[1])
		report.Discarded, _ = strconv.Atoi(first[2])
		report.ClampedToZero, _ = strconv.Atoi(first[3])
		report.OutOfOrder, _ = strconv.Atoi(first[4])
		report.Duplicates, _ = strconv.Atoi(first[5])
		// consume the header row
		if _, err := r.Read(); err != nil {
			return nil, report, fmt.Errorf("reading compiled header: %w", err)
		}
	}

	var ms []types.Measurement
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if len(rec) < len(compiledHeader) {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			continue
		}
		power, err1 := strconv.ParseFloat(rec[1], 64)
		energy, err2 := strconv.ParseFloat(rec[2], 64)
		ghi, err3 := strconv.ParseFloat(rec[3], 64)
		tmod, err4 := strconv.ParseFloat(rec[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		hasWeather, _ := strconv.ParseBool(rec[5])
		if hasWeather {
			report.WeatherColumns = true
		}
		ms = append(ms, types.Measurement{
			Timestamp:     ts,
			PowerKW:       power,
			EnergyKWH:     energy,
			IrradianceWM2: ghi,
			ModuleTempC:   tmod,
			HasWeather:    hasWeather,
		})
	}
	if len(ms) == 0 {
		return nil, report, ErrNoData
	}
	report.Rows = len(ms)
	report.Start = ms[0].Timestamp
	report.End = ms[len(ms)-1].Timestamp
	return ms, report, nil
}
