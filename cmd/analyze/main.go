package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/pvwatch/pvwatch/pkg/analysis"
	"github.com/pvwatch/pvwatch/pkg/dataset"
	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/report"
	"github.com/pvwatch/pvwatch/pkg/types"
)

// analyze is the offline pipeline: it compiles the raw exports, computes the
// statistics, renders the charts and workbook, and prints the summary. It
// talks to no external services, so it works on a laptop with just the
// export files.
func main() {
	src := dataset.Configured()

	lflag.Configure()

	var level slog.Level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	// logs go to stderr so stdout stays parseable
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	settings, _, err := types.MigrateSettings(types.Settings{}, 0)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to build default settings", "error", err)
		os.Exit(1)
	}

	ms, rep, err := src.Compile(ctx, settings)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to compile dataset", "error", err)
		os.Exit(1)
	}

	res, err := analysis.Run(ms, rep, settings)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "analysis failed", "error", err)
		os.Exit(1)
	}

	renderer := report.New(src.OutputDir())
	artifacts, err := renderer.RenderAll(ctx, ms, res, settings)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render artifacts", "error", err)
		os.Exit(1)
	}
	for _, artifact := range artifacts {
		log.Ctx(ctx).InfoContext(ctx, "wrote artifact", slog.String("path", artifact))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Summary); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write summary", "error", err)
		os.Exit(1)
	}
}
