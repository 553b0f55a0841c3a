package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pvwatch/pvwatch/pkg/analysis"
	"github.com/pvwatch/pvwatch/pkg/types"
)

const (
	summarySheet  = "Summary"
	dailySheet    = "Daily"
	monthlySheet  = "Monthly"
	describeSheet = "Describe"
)

// workbook writes the analysis into an Excel workbook with summary, daily,
// monthly and describe sheets.
func (r *Renderer) workbook(res analysis.Result, settings types.Settings) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("renaming summary sheet: %w", err)
	}

	s := res.Summary
	summaryRows := [][]interface{}{
		{"Plant", settings.PlantName},
		{"Rated Capacity (kW)", settings.RatedCapacityKW},
		{"Period Start", s.Dataset.Start.Format("2006-01-02")},
		{"Period End", s.Dataset.End.Format("2006-01-02")},
		{"Total Energy (MWh)", s.TotalEnergyKWH / 1000},
		{"Mean Daily Energy (kWh)", s.MeanDailyKWH},
		{"Peak Power (kW)", s.PeakPowerKW},
		{"Capacity Factor", s.CapacityFactor},
		{"Rows", s.Dataset.Rows},
		{"Discarded Rows", s.Dataset.Discarded},
		{"Clamped Negative Rows", s.Dataset.ClampedToZero},
	}
	if s.IrradianceAvailable {
		summaryRows = append(summaryRows, []interface{}{"Performance Ratio", s.PerformanceRatio})
	}
	if s.Correlations.Available {
		summaryRows = append(summaryRows,
			[]interface{}{"Corr(power, irradiance)", s.Correlations.PowerIrradiance},
			[]interface{}{"Corr(power, module temp)", s.Correlations.PowerModuleTemp})
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return "", fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(dailySheet); err != nil {
		return "", err
	}
	dailyHeader := []interface{}{"Day", "Energy (kWh)", "Peak Power (kW)", "Capacity Factor", "Performance Ratio", "Samples"}
	if err := f.SetSheetRow(dailySheet, "A1", &dailyHeader); err != nil {
		return "", err
	}
	for i, d := range res.Daily {
		row := []interface{}{d.Day.Format("2006-01-02"), d.EnergyKWH, d.PeakPowerKW, d.CapacityFactor, d.PerformanceRatio, d.SampleCount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(dailySheet, cell, &row); err != nil {
			return "", fmt.Errorf("writing daily row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(monthlySheet); err != nil {
		return "", err
	}
	monthlyHeader := []interface{}{"Month", "Energy (kWh)", "Mean Daily (kWh)", "Peak Power (kW)", "Capacity Factor", "Days"}
	if err := f.SetSheetRow(monthlySheet, "A1", &monthlyHeader); err != nil {
		return "", err
	}
	for i, m := range res.Monthly {
		row := []interface{}{m.Month.Format("2006-01"), m.EnergyKWH, m.MeanDailyKWH, m.PeakPowerKW, m.CapacityFactor, m.DaysWithData}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(monthlySheet, cell, &row); err != nil {
			return "", fmt.Errorf("writing monthly row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(describeSheet); err != nil {
		return "", err
	}
	for i, rec := range res.Describe.Records() {
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(describeSheet, cell, &row); err != nil {
			return "", fmt.Errorf("writing describe row %d: %w", i+1, err)
		}
	}

	path := r.path("analysis.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	return path, nil
}
