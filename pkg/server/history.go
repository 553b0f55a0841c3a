package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/types"
)

func (s *Server) handleHistoryDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r, 30*24*time.Hour)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	daily, err := s.storage.GetDailyStats(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get daily stats", slog.Any("error", err))
		writeJSONError(w, "failed to get daily stats", http.StatusInternalServerError)
		return
	}
	if daily == nil {
		daily = []types.DailyStats{}
	}

	setHistoryCacheControl(w, end)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(daily); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHistoryMonthly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r, 365*24*time.Hour)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	monthly, err := s.storage.GetMonthlyStats(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get monthly stats", slog.Any("error", err))
		writeJSONError(w, "failed to get monthly stats", http.StatusInternalServerError)
		return
	}
	if monthly == nil {
		monthly = []types.MonthlyStats{}
	}

	setHistoryCacheControl(w, end)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(monthly); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r, 90*24*time.Hour)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := s.storage.GetAnalysisRuns(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get analysis runs", slog.Any("error", err))
		writeJSONError(w, "failed to get analysis runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []types.AnalysisRun{}
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// parseTimeRange reads the optional start/end RFC3339 query parameters,
// defaulting to the window ending now when either is absent.
func parseTimeRange(r *http.Request, defaultWindow time.Duration) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		end := time.Now()
		return end.Add(-defaultWindow), end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	// historical series span decades, so the cap is generous
	if end.Sub(start) > 50*365*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 50 years")
	}

	return start, end, nil
}

// setHistoryCacheControl caches closed historical ranges for a day and
// ranges touching today for a minute.
func setHistoryCacheControl(w http.ResponseWriter, end time.Time) {
	today := time.Now().Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}
}
