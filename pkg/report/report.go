// Package report renders the analysis results into artifacts: PNG charts,
// an Excel workbook and a markdown summary.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pvwatch/pvwatch/pkg/analysis"
	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/types"
)

// Renderer writes analysis artifacts under a single output directory.
type Renderer struct {
	outputDir string
}

// New returns a Renderer writing under outputDir.
func New(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

// OutputDir returns the directory artifacts are written to.
func (r *Renderer) OutputDir() string {
	return r.outputDir
}

// RenderAll produces every artifact the analysis supports and returns the
// paths written. Charts that need data the series does not carry (weather,
// decomposition) are skipped, not failed.
func (r *Renderer) RenderAll(ctx context.Context, ms []types.Measurement, res analysis.Result, settings types.Settings) ([]string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var artifacts []string
	add := func(path string, err error) error {
		if err != nil {
			return err
		}
		log.Ctx(ctx).DebugContext(ctx, "wrote artifact", slog.String("path", path))
		artifacts = append(artifacts, path)
		return nil
	}

	if err := add(r.hourlyDistributionChart(res.Profile)); err != nil {
		return artifacts, err
	}
	if err := add(r.monthlyDistributionChart(res.Monthly)); err != nil {
		return artifacts, err
	}
	if err := add(r.topYearsChart(res.Summary.TopYears)); err != nil {
		return artifacts, err
	}
	if err := add(r.dailySeriesChart(res.Daily)); err != nil {
		return artifacts, err
	}
	if len(res.Decomposition.Observed) > 0 {
		if err := add(r.decompositionChart(res.Decomposition)); err != nil {
			return artifacts, err
		}
	}
	if res.Correlations.Available {
		if err := add(r.irradianceScatterChart(ms)); err != nil {
			return artifacts, err
		}
	}
	if err := add(r.workbook(res, settings)); err != nil {
		return artifacts, err
	}
	if err := add(r.markdownSummary(res.Summary, settings)); err != nil {
		return artifacts, err
	}

	return artifacts, nil
}

func (r *Renderer) path(name string) string {
	return filepath.Join(r.outputDir, name)
}
