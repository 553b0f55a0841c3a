package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pvwatch/pvwatch/pkg/storage/storagemock"
	"github.com/pvwatch/pvwatch/pkg/types"
)

func TestHistoryDaily(t *testing.T) {
	day := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("returns stored stats", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetDailyStats", mock.Anything, mock.Anything, mock.Anything).Return([]types.DailyStats{
			{Day: day, EnergyKWH: 18123.4, PeakPowerKW: 3120, SampleCount: 24},
		}, nil)
		srv := newTestServer(t, db)
		handler := srv.setupHandler()

		req := httptest.NewRequest("GET", "/api/history/daily?start=2021-06-01T00:00:00Z&end=2021-06-02T00:00:00Z", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		resp := w.Result()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		// closed historical range gets the long cache
		assert.Equal(t, "private, max-age=86400", resp.Header.Get("Cache-Control"))

		var got []types.DailyStats
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, 18123.4, got[0].EnergyKWH)
		db.AssertExpectations(t)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetDailyStats", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		srv := newTestServer(t, db)
		handler := srv.setupHandler()

		req := httptest.NewRequest("GET", "/api/history/daily", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, "[]\n", w.Body.String())
	})

	t.Run("storage error", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetDailyStats", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
		srv := newTestServer(t, db)
		handler := srv.setupHandler()

		req := httptest.NewRequest("GET", "/api/history/daily", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Result().StatusCode)
	})

	t.Run("invalid range", func(t *testing.T) {
		srv := newTestServer(t, &storagemock.MockDatabase{})
		handler := srv.setupHandler()

		req := httptest.NewRequest("GET", "/api/history/daily?start=bad&end=worse", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})
}

func TestHistoryMonthly(t *testing.T) {
	month := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	db := &storagemock.MockDatabase{}
	db.On("GetMonthlyStats", mock.Anything, mock.Anything, mock.Anything).Return([]types.MonthlyStats{
		{Month: month, EnergyKWH: 520000, DaysWithData: 30},
	}, nil)
	srv := newTestServer(t, db)
	handler := srv.setupHandler()

	req := httptest.NewRequest("GET", "/api/history/monthly?start=2021-06-01T00:00:00Z&end=2021-07-01T00:00:00Z", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)

	var got []types.MonthlyStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, 520000.0, got[0].EnergyKWH)
	assert.Equal(t, 30, got[0].DaysWithData)
}

func TestListRuns(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("GetAnalysisRuns", mock.Anything, mock.Anything, mock.Anything).Return([]types.AnalysisRun{
		{ID: "run-1", StartedAt: time.Now().Add(-time.Hour)},
	}, nil)
	srv := newTestServer(t, db)
	handler := srv.setupHandler()

	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var got []types.AnalysisRun
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].ID)
}

func TestSummary(t *testing.T) {
	t.Run("returns latest run", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetLatestAnalysisRun", mock.Anything).Return(&types.AnalysisRun{
			ID:      "run-2",
			Summary: types.Summary{TotalEnergyKWH: 123456},
		}, nil)
		srv := newTestServer(t, db)
		handler := srv.setupHandler()

		req := httptest.NewRequest("GET", "/api/summary", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Result().StatusCode)

		var got types.AnalysisRun
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "run-2", got.ID)
		assert.Equal(t, 123456.0, got.Summary.TotalEnergyKWH)
	})

	t.Run("404 before any run", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetLatestAnalysisRun", mock.Anything).Return(nil, nil)
		srv := newTestServer(t, db)
		handler := srv.setupHandler()

		req := httptest.NewRequest("GET", "/api/summary", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
	})
}
