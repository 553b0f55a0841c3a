package report

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/pvwatch/pvwatch/pkg/types"
)

var (
	seriesColor   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	trendColor    = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	scatterColor  = color.RGBA{R: 139, G: 0, B: 0, A: 255}
	residualColor = color.RGBA{R: 255, G: 69, B: 0, A: 255}
)

func (r *Renderer) hourlyDistributionChart(profile types.HourlyProfile) (string, error) {
	p := plot.New()
	p.Title.Text = "Hourly Generation Distribution"
	p.X.Label.Text = "Hour of Day"
	p.Y.Label.Text = "Mean Energy (kWh)"

	values := make(plotter.Values, 24)
	labels := make([]string, 24)
	for h := 0; h < 24; h++ {
		values[h] = profile.MeanEnergyKWH[h]
		labels[h] = fmt.Sprintf("%02d", h)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return "", fmt.Errorf("hourly bar chart: %w", err)
	}
	bars.Color = seriesColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)

	path := r.path("hourly_distribution.png")
	if err := p.Save(18*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving hourly chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) monthlyDistributionChart(monthly []types.MonthlyStats) (string, error) {
	p := plot.New()
	p.Title.Text = "Monthly Generation Distribution"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Mean Energy (kWh)"

	// average each calendar month across years
	var sum [13]float64
	var count [13]int
	for _, m := range monthly {
		mo := int(m.Month.Month())
		sum[mo] += m.EnergyKWH
		count[mo]++
	}

	var points plotter.XYs
	var labels []string
	for mo := 1; mo <= 12; mo++ {
		if count[mo] == 0 {
			continue
		}
		points = append(points, plotter.XY{
			X: float64(len(points)),
			Y: sum[mo] / float64(count[mo]),
		})
		labels = append(labels, time.Month(mo).String()[:3])
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return "", fmt.Errorf("monthly line chart: %w", err)
	}
	line.Color = trendColor
	line.Width = vg.Points(2)

	p.Add(line, plotter.NewGrid())
	p.NominalX(labels...)

	path := r.path("monthly_distribution.png")
	if err := p.Save(18*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving monthly chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) topYearsChart(top []types.YearTotal) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d Generation Years", len(top))
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Energy (MWh)"

	values := make(plotter.Values, len(top))
	labels := make([]string, len(top))
	for i, y := range top {
		values[i] = y.EnergyKWH / 1000
		labels[i] = fmt.Sprintf("%d", y.Year)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return "", fmt.Errorf("top years chart: %w", err)
	}
	bars.Color = seriesColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)

	path := r.path("top_years.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving top years chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) dailySeriesChart(daily []types.DailyStats) (string, error) {
	p := plot.New()
	p.Title.Text = "Daily Generation"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Energy (kWh)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	points := make(plotter.XYs, len(daily))
	for i, d := range daily {
		points[i].X = float64(d.Day.Unix())
		points[i].Y = d.EnergyKWH
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return "", fmt.Errorf("daily series chart: %w", err)
	}
	line.Color = seriesColor

	p.Add(line, plotter.NewGrid())

	path := r.path("daily_series.png")
	if err := p.Save(18*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving daily series chart: %w", err)
	}
	return path, nil
}

// decompositionChart renders the observed/trend/seasonal/residual panels
// stacked in a single image.
func (r *Renderer) decompositionChart(d types.Decomposition) (string, error) {
	panels := []struct {
		name   string
		values []float64
		color  color.RGBA
	}{
		{"Observed", d.Observed, seriesColor},
		{"Trend", d.Trend, trendColor},
		{"Seasonal", d.Seasonal, scatterColor},
		{"Residual", d.Residual, residualColor},
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p := plot.New()
		p.Y.Label.Text = panel.name
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

		points := make(plotter.XYs, len(panel.values))
		for j, v := range panel.values {
			points[j].X = float64(d.Days[j].Unix())
			points[j].Y = v
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return "", fmt.Errorf("decomposition panel %s: %w", panel.name, err)
		}
		line.Color = panel.color
		p.Add(line)
		plots[i] = []*plot.Plot{p}
	}
	plots[0][0].Title.Text = "Daily Series Decomposition"

	img := vgimg.New(18*vg.Inch, 12*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: len(panels), Cols: 1, PadY: vg.Points(6)}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	path := r.path("decomposition.png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating decomposition chart: %w", err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return "", fmt.Errorf("writing decomposition chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) irradianceScatterChart(ms []types.Measurement) (string, error) {
	p := plot.New()
	p.Title.Text = "Irradiance vs. Power"
	p.X.Label.Text = "Irradiance (W/m²)"
	p.Y.Label.Text = "Power (kW)"

	var points plotter.XYs
	for _, m := range ms {
		if !m.HasWeather {
			continue
		}
		points = append(points, plotter.XY{X: m.IrradianceWM2, Y: m.PowerKW})
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return "", fmt.Errorf("irradiance scatter: %w", err)
	}
	scatter.GlyphStyle.Color = scatterColor
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}

	p.Add(scatter, plotter.NewGrid())

	path := r.path("irradiance_scatter.png")
	if err := p.Save(10*vg.Inch, 8*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving irradiance scatter: %w", err)
	}
	return path, nil
}
