package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// solcastMetadataRows is the number of metadata lines before the column header
// in a Solcast production export.
const solcastMetadataRows = 11

// solcastTimeLayout is the timestamp layout used by the exports (dd/mm/yy hh:mm).
const solcastTimeLayout = "02/01/06 15:04"

// solcastParser parses a Solcast production export: Latin-1 encoded,
// semicolon-separated, decimal commas, 11 metadata rows before the header.
//
// Expected header (weather columns optional):
//
//	Timestamp;kW;Ghi (W/m2);Tmod (C)
type solcastParser struct {
	loc *time.Location
}

type parsedFile struct {
	rows []rawRow
	// counts of rows rejected during parsing
	discarded  int
	outOfOrder int
	duplicates int
	hasWeather bool
}

// rawRow is a single parsed record before unit conversion and loss factors.
type rawRow struct {
	ts         time.Time
	powerKW    float64
	irradiance float64
	moduleTemp float64
	hasWeather bool
}

func (p *solcastParser) Parse(r io.Reader) (parsedFile, error) {
	br := bufio.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))

	// The metadata block is free-form and can confuse the CSV reader, skip it.
	for i := 0; i < solcastMetadataRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return parsedFile{}, fmt.Errorf("file ended inside metadata block (line %d): %w", i+1, err)
			}
			return parsedFile{}, fmt.Errorf("skipping metadata: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return parsedFile{}, fmt.Errorf("reading header: %w", err)
	}
	cols, err := locateColumns(header)
	if err != nil {
		return parsedFile{}, err
	}

	var out parsedFile
	out.hasWeather = cols.irradiance >= 0

	var lastTS time.Time
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken line counts as discarded, not fatal.
			out.discarded++
			continue
		}

		row, err := p.parseRecord(record, cols)
		if err != nil {
			out.discarded++
			continue
		}

		// Source order must be non-decreasing in time for the series to make
		// sense; violations are dropped rather than silently reordered.
		if !lastTS.IsZero() {
			if row.ts.Before(lastTS) {
				out.outOfOrder++
				continue
			}
			if row.ts.Equal(lastTS) {
				out.duplicates++
				continue
			}
		}
		lastTS = row.ts

		out.rows = append(out.rows, row)
	}

	return out, nil
}

type columnIndexes struct {
	timestamp  int
	power      int
	irradiance int
	moduleTemp int
}

func locateColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{timestamp: -1, power: -1, irradiance: -1, moduleTemp: -1}
	for i, name := range header {
		n := strings.ToLower(strings.TrimSpace(name))
		switch {
		case n == "timestamp" || n == "time" || i == 0 && cols.timestamp < 0:
			cols.timestamp = i
		case n == "kw" || strings.HasPrefix(n, "kw "):
			cols.power = i
		case strings.HasPrefix(n, "ghi") || strings.Contains(n, "irradiance"):
			cols.irradiance = i
		case strings.HasPrefix(n, "tmod") || strings.Contains(n, "temp"):
			cols.moduleTemp = i
		}
	}
	if cols.timestamp < 0 {
		return cols, fmt.Errorf("header missing timestamp column: %v", header)
	}
	if cols.power < 0 {
		return cols, fmt.Errorf("header missing kW column: %v", header)
	}
	return cols, nil
}

func (p *solcastParser) parseRecord(record []string, cols columnIndexes) (rawRow, error) {
	if len(record) <= cols.power {
		return rawRow{}, fmt.Errorf("expected at least %d fields, got %d", cols.power+1, len(record))
	}

	ts, err := time.ParseInLocation(solcastTimeLayout, strings.TrimSpace(record[cols.timestamp]), p.loc)
	if err != nil {
		return rawRow{}, fmt.Errorf("parsing timestamp: %w", err)
	}

	power, err := parseDecimalComma(record[cols.power])
	if err != nil {
		return rawRow{}, fmt.Errorf("parsing kW: %w", err)
	}

	row := rawRow{ts: ts, powerKW: power}

	if cols.irradiance >= 0 && cols.irradiance < len(record) {
		ghi, err := parseDecimalComma(record[cols.irradiance])
		if err != nil {
			return rawRow{}, fmt.Errorf("parsing irradiance: %w", err)
		}
		row.irradiance = ghi
		row.hasWeather = true
	}
	if cols.moduleTemp >= 0 && cols.moduleTemp < len(record) {
		tmod, err := parseDecimalComma(record[cols.moduleTemp])
		if err != nil {
			return rawRow{}, fmt.Errorf("parsing module temperature: %w", err)
		}
		row.moduleTemp = tmod
		row.hasWeather = true
	}

	return row, nil
}

// parseDecimalComma parses a float that uses a comma as the decimal separator.
func parseDecimalComma(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// toMeasurement converts a raw row into a cleaned Measurement: negative power
// clamps to zero and the loss factors scale what the plant actually delivers.
func toMeasurement(row rawRow, interval time.Duration, lossFactor float64) (types.Measurement, bool) {
	clamped := false
	power := row.powerKW
	if power < 0 {
		power = 0
		clamped = true
	}
	power *= lossFactor

	return types.Measurement{
		Timestamp:     row.ts,
		PowerKW:       power,
		EnergyKWH:     power * interval.Hours(),
		IrradianceWM2: row.irradiance,
		ModuleTempC:   row.moduleTemp,
		HasWeather:    row.hasWeather,
	}, clamped
}
