package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// markdownSummary writes the headline metrics and data quality counts to a
// markdown report.
func (r *Renderer) markdownSummary(s types.Summary, settings types.Settings) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s — Generation Analysis\n\n", settings.PlantName)
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		s.Dataset.Start.Format("2006-01-02"), s.Dataset.End.Format("2006-01-02"))

	b.WriteString("## Headline metrics\n\n")
	fmt.Fprintf(&b, "- Total energy: %.1f MWh\n", s.TotalEnergyKWH/1000)
	fmt.Fprintf(&b, "- Mean daily energy: %.1f kWh\n", s.MeanDailyKWH)
	fmt.Fprintf(&b, "- Peak power: %.1f kW (rated %.0f kW)\n", s.PeakPowerKW, settings.RatedCapacityKW)
	fmt.Fprintf(&b, "- Capacity factor: %.3f\n", s.CapacityFactor)
	if s.IrradianceAvailable {
		fmt.Fprintf(&b, "- Performance ratio: %.3f\n", s.PerformanceRatio)
	}
	if s.Correlations.Available {
		fmt.Fprintf(&b, "- Corr(power, irradiance): %.3f\n", s.Correlations.PowerIrradiance)
		fmt.Fprintf(&b, "- Corr(power, module temp): %.3f\n", s.Correlations.PowerModuleTemp)
	}

	if len(s.TopYears) > 0 {
		b.WriteString("\n## Top years\n\n")
		b.WriteString("| Rank | Year | Energy (MWh) |\n")
		b.WriteString("|------|------|-------------|\n")
		for i, y := range s.TopYears {
			fmt.Fprintf(&b, "| %d | %d | %.1f |\n", i+1, y.Year, y.EnergyKWH/1000)
		}
	}

	b.WriteString("\n## Data quality\n\n")
	fmt.Fprintf(&b, "- Input files: %d\n", s.Dataset.Files)
	fmt.Fprintf(&b, "- Rows kept: %d\n", s.Dataset.Rows)
	fmt.Fprintf(&b, "- Rows discarded (malformed): %d\n", s.Dataset.Discarded)
	fmt.Fprintf(&b, "- Negative readings clamped: %d\n", s.Dataset.ClampedToZero)
	fmt.Fprintf(&b, "- Out-of-order rows dropped: %d\n", s.Dataset.OutOfOrder)
	fmt.Fprintf(&b, "- Duplicate timestamps dropped: %d\n", s.Dataset.Duplicates)

	fmt.Fprintf(&b, "\n---\nGenerated %s\n", time.Now().Format("2 January 2006"))

	path := r.path("analysis_report.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown summary: %w", err)
	}
	return path, nil
}
