package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/storage"
	"github.com/pvwatch/pvwatch/pkg/types"
)

func (s *Server) getSettingsWithMigration(ctx context.Context) (types.Settings, int, error) {
	settings, version, err := s.storage.GetSettings(ctx)
	if err != nil {
		return types.Settings{}, 0, err
	}

	// Check for migration
	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(settings, version)
		if err != nil {
			// Log error but return settings as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
			return settings, version, nil
		}
		if changed {
			settings = newSettings
			version = types.CurrentSettingsVersion
			if err := s.storage.SetSettings(ctx, newSettings, version); err != nil {
				// Return migrated settings even if save failed, so current request works with new defaults
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
			} else {
				log.Ctx(ctx).InfoContext(ctx, "saved migrated settings", slog.Int("newVersion", version))
			}
		}
	}

	return settings, version, nil
}

// SettingsRes is the response type for GetSettings
type SettingsRes struct {
	types.Settings
	Version int `json:"version"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, version, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	resp := SettingsRes{
		Settings: settings,
		Version:  version,
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.requireAdmin(w, r) {
		return
	}

	var req struct {
		types.Settings
		// Version is the version the client read, for conflict detection.
		Version int `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newSettings := req.Settings
	if err := validateSettings(newSettings); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, currentVersion, err := s.storage.GetSettings(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	if req.Version != currentVersion {
		writeJSONError(w, "settings changed since read, reload and retry", http.StatusConflict)
		return
	}

	if err := s.storage.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
		if errors.Is(err, storage.ErrVersionMismatch) {
			writeJSONError(w, "settings changed since read, reload and retry", http.StatusConflict)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "settings updated")
	w.WriteHeader(http.StatusOK)
}

func validateSettings(settings types.Settings) error {
	if settings.PlantName == "" {
		return errors.New("plant name cannot be empty")
	}
	if settings.RatedCapacityKW <= 0 {
		return errors.New("rated capacity must be positive")
	}
	if settings.TransformerLoss < 0 || settings.TransformerLoss >= 1 {
		return errors.New("transformer loss must be in [0, 1)")
	}
	if settings.TransmissionLoss < 0 || settings.TransmissionLoss >= 1 {
		return errors.New("transmission loss must be in [0, 1)")
	}
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return errors.New("invalid timezone")
	}
	if d, err := time.ParseDuration(settings.SampleInterval); err != nil || d <= 0 {
		return errors.New("invalid sample interval")
	}
	if settings.DatasetName == "" {
		return errors.New("dataset name cannot be empty")
	}
	if settings.TopYears < 1 {
		return errors.New("top years must be at least 1")
	}
	if settings.DecompositionPeriodDays < 2 {
		return errors.New("decomposition period must be at least 2 days")
	}
	return nil
}
