package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pvwatch/pvwatch/pkg/dataset"
	"github.com/pvwatch/pvwatch/pkg/report"
	"github.com/pvwatch/pvwatch/pkg/storage/storagemock"
	"github.com/pvwatch/pvwatch/pkg/types"
)

const exportMetadata = `Solcast Production Export
Plant;Pecém I
Capacity;3,5 MWac
Latitude;-3,55
Longitude;-38,83
Resolution;PT60M
Period;2021
Units;kW
Source;Solcast
Generated;01/01/22 00:00
;
`

// writeExportFixture writes a two-day hourly export with a morning-to-evening
// generation bell and weather columns.
func writeExportFixture(t *testing.T, inputDir string) {
	t.Helper()
	rows := exportMetadata + "Timestamp;kW;Ghi (W/m2);Tmod (C)\n"
	for day := 1; day <= 2; day++ {
		for hour := 0; hour < 24; hour++ {
			power := 0.0
			ghi := 0.0
			if hour >= 6 && hour <= 18 {
				power = float64(1000 - 80*abs(hour-12))
				ghi = power / 3.5
			}
			rows += fmt.Sprintf("%02d/06/21 %02d:00;%.0f;%.0f;40\n", day, hour, power, ghi)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "Solcast_2021.csv"), []byte(rows), 0o644))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func testAnalyzeSettings() types.Settings {
	s, _, err := types.MigrateSettings(types.Settings{Timezone: "UTC"}, 0)
	if err != nil {
		panic(err)
	}
	return s
}

func TestAnalyze(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeExportFixture(t, inputDir)

	db := &storagemock.MockDatabase{}
	db.On("GetSettings", mock.Anything).Return(testAnalyzeSettings(), types.CurrentSettingsVersion, nil)
	db.On("UpsertDailyStats", mock.Anything, mock.Anything, types.CurrentDailyStatsVersion).Return(nil)
	db.On("UpsertMonthlyStats", mock.Anything, mock.Anything, types.CurrentMonthlyStatsVersion).Return(nil)
	db.On("InsertAnalysisRun", mock.Anything, mock.Anything).Return(nil)

	srv := &Server{
		dataset:    dataset.New(inputDir, outputDir),
		renderer:   report.New(outputDir),
		storage:    db,
		bypassAuth: true,
	}
	handler := srv.setupHandler()

	req := httptest.NewRequest("POST", "/api/analyze", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode, w.Body.String())

	var run types.AnalysisRun
	require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Failed)
	assert.Equal(t, 2, run.DaysStored)
	assert.Greater(t, run.Summary.TotalEnergyKWH, 0.0)
	assert.NotEmpty(t, run.Artifacts)
	for _, artifact := range run.Artifacts {
		info, err := os.Stat(artifact)
		require.NoError(t, err, artifact)
		assert.Greater(t, info.Size(), int64(0), artifact)
	}
	db.AssertExpectations(t)

	t.Run("profile served from cached result", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/profile/hourly", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Result().StatusCode)

		var profile types.HourlyProfile
		require.NoError(t, json.NewDecoder(w.Body).Decode(&profile))
		assert.Equal(t, 12, profile.PeakHour)
		assert.Equal(t, 1.0, profile.Factor[12])
	})
}

func TestAnalyzeNoFiles(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("GetSettings", mock.Anything).Return(testAnalyzeSettings(), types.CurrentSettingsVersion, nil)
	db.On("InsertAnalysisRun", mock.Anything, mock.Anything).Return(nil)

	srv := newTestServer(t, db)
	handler := srv.setupHandler()

	req := httptest.NewRequest("POST", "/api/analyze", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Result().StatusCode)
}

func TestAnalyzeForbidden(t *testing.T) {
	srv := newTestServer(t, &storagemock.MockDatabase{})
	srv.bypassAuth = false
	srv.oidcAudience = "client-id"
	handler := srv.setupHandler()

	req := httptest.NewRequest("POST", "/api/analyze", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// no cookie at all fails authentication before the admin check
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}

func TestProfileWithoutRun(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeExportFixture(t, inputDir)

	db := &storagemock.MockDatabase{}
	db.On("GetSettings", mock.Anything).Return(testAnalyzeSettings(), types.CurrentSettingsVersion, nil)

	srv := &Server{
		dataset:    dataset.New(inputDir, outputDir),
		renderer:   report.New(outputDir),
		storage:    db,
		bypassAuth: true,
	}
	handler := srv.setupHandler()

	req := httptest.NewRequest("GET", "/api/profile/hourly", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode, w.Body.String())

	var profile types.HourlyProfile
	require.NoError(t, json.NewDecoder(w.Body).Decode(&profile))
	assert.Equal(t, 12, profile.PeakHour)
}
