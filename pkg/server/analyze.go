package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pvwatch/pvwatch/pkg/analysis"
	"github.com/pvwatch/pvwatch/pkg/dataset"
	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/types"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.requireAdmin(w, r) {
		return
	}

	if !s.analyzeMu.TryLock() {
		writeJSONError(w, "an analysis is already running", http.StatusConflict)
		return
	}
	defer s.analyzeMu.Unlock()

	run, err := s.runAnalysis(ctx)
	if err != nil {
		if errors.Is(err, dataset.ErrNoFiles) || errors.Is(err, dataset.ErrNoData) {
			writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "analysis failed", slog.Any("error", err))
		writeJSONError(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// runAnalysis executes the full pipeline: compile the dataset, compute the
// statistics, render the artifacts and persist the results. A run record is
// stored even when the pipeline fails partway.
func (s *Server) runAnalysis(ctx context.Context) (types.AnalysisRun, error) {
	run := types.AnalysisRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("runID", run.ID)))

	settings, _, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		return run, err
	}

	res, artifacts, err := s.analyze(ctx, settings)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Failed = true
		run.Error = err.Error()
		if insertErr := s.storage.InsertAnalysisRun(ctx, run); insertErr != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to record failed run", slog.Any("error", insertErr))
		}
		return run, err
	}

	run.Summary = res.Summary
	run.DaysStored = len(res.Daily)
	run.Artifacts = artifacts

	if err := s.storage.UpsertDailyStats(ctx, res.Daily, types.CurrentDailyStatsVersion); err != nil {
		return run, err
	}
	if err := s.storage.UpsertMonthlyStats(ctx, res.Monthly, types.CurrentMonthlyStatsVersion); err != nil {
		return run, err
	}
	if err := s.storage.InsertAnalysisRun(ctx, run); err != nil {
		return run, err
	}

	s.resultMu.Lock()
	s.lastResult = res
	s.resultMu.Unlock()

	log.Ctx(ctx).InfoContext(ctx, "analysis complete",
		slog.Int("days", run.DaysStored),
		slog.Float64("totalEnergyKWH", run.Summary.TotalEnergyKWH))
	return run, nil
}

func (s *Server) analyze(ctx context.Context, settings types.Settings) (*analysis.Result, []string, error) {
	ms, report, err := s.dataset.Compile(ctx, settings)
	if err != nil {
		return nil, nil, err
	}

	res, err := analysis.Run(ms, report, settings)
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := s.renderer.RenderAll(ctx, ms, res, settings)
	if err != nil {
		return nil, nil, err
	}
	return &res, artifacts, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latest, err := s.storage.GetLatestAnalysisRun(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest run", slog.Any("error", err))
		writeJSONError(w, "failed to get latest run", http.StatusInternalServerError)
		return
	}
	if latest == nil {
		writeJSONError(w, "no analysis has been run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(latest); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHourlyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.resultMu.RLock()
	cached := s.lastResult
	s.resultMu.RUnlock()

	var profile types.HourlyProfile
	if cached != nil {
		profile = cached.Profile
	} else {
		// no in-process run yet, compute from the compiled dataset
		settings, _, err := s.getSettingsWithMigration(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
			writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
			return
		}
		ms, _, err := s.dataset.Compile(ctx, settings)
		if err != nil {
			if errors.Is(err, dataset.ErrNoFiles) || errors.Is(err, dataset.ErrNoData) {
				writeJSONError(w, err.Error(), http.StatusNotFound)
				return
			}
			log.Ctx(ctx).ErrorContext(ctx, "failed to compile dataset", slog.Any("error", err))
			writeJSONError(w, "failed to compile dataset", http.StatusInternalServerError)
			return
		}
		profile = analysis.Profile(ms)
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		panic(http.ErrAbortHandler)
	}
}
