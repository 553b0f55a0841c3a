package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pvwatch/pvwatch/pkg/log"
	"github.com/pvwatch/pvwatch/pkg/types"
)

const (
	configCollection  = "config"
	dailyCollection   = "daily_stats"
	monthlyCollection = "monthly_stats"
	runsCollection    = "analysis_runs"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. It persists settings, period aggregates and analysis runs.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how the firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// GetSettings retrieves the plant configuration from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	doc, err := f.client.Collection(configCollection).Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Return default settings if not found
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "settings doc missing json")
		return types.Settings{}, 0, fmt.Errorf("settings document missing 'json' field: %w", err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "settings doc json not string")
		return types.Settings{}, 0, fmt.Errorf("settings 'json' field is not a string")
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the plant configuration to the "config/settings" document.
// The write fails with ErrVersionMismatch when a newer version is already stored.
func (f *FirestoreProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	ref := f.client.Collection(configCollection).Doc("settings")
	err = f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			if v, err := doc.DataAt("version"); err == nil {
				if vInt, ok := v.(int64); ok && int(vInt) > version {
					return ErrVersionMismatch
				}
			}
		}
		return tx.Set(ref, map[string]interface{}{
			"json":    string(jsonBytes),
			"version": version,
		})
	})
	if err != nil {
		if err == ErrVersionMismatch {
			return err
		}
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpsertDailyStats adds or updates daily aggregates. The document ID is the
// day (2006-01-02) for lexicographic ordering and efficient range queries.
func (f *FirestoreProvider) UpsertDailyStats(ctx context.Context, stats []types.DailyStats, version int) error {
	coll := f.client.Collection(dailyCollection)
	bw := f.client.BulkWriter(ctx)
	for _, d := range stats {
		if d.Day.IsZero() {
			return fmt.Errorf("daily stats missing day")
		}
		jsonBytes, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal daily stats: %w", err)
		}
		docID := d.Day.Format("2006-01-02")
		if _, err := bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": d.Day,
			"version":   version,
		}); err != nil {
			return fmt.Errorf("failed to upsert daily stats (day=%s): %w", docID, err)
		}
	}
	bw.End()
	return nil
}

// UpsertMonthlyStats adds or updates monthly aggregates keyed by month (2006-01).
func (f *FirestoreProvider) UpsertMonthlyStats(ctx context.Context, stats []types.MonthlyStats, version int) error {
	coll := f.client.Collection(monthlyCollection)
	bw := f.client.BulkWriter(ctx)
	for _, m := range stats {
		if m.Month.IsZero() {
			return fmt.Errorf("monthly stats missing month")
		}
		jsonBytes, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal monthly stats: %w", err)
		}
		docID := m.Month.Format("2006-01")
		if _, err := bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": m.Month,
			"version":   version,
		}); err != nil {
			return fmt.Errorf("failed to upsert monthly stats (month=%s): %w", docID, err)
		}
	}
	bw.End()
	return nil
}

// InsertAnalysisRun adds a new analysis run record keyed by its ID.
func (f *FirestoreProvider) InsertAnalysisRun(ctx context.Context, run types.AnalysisRun) error {
	if run.ID == "" {
		return fmt.Errorf("analysis run missing id")
	}
	jsonBytes, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis run: %w", err)
	}
	_, err = f.client.Collection(runsCollection).Doc(run.ID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": run.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

// GetDailyStats retrieves daily aggregates within the specified time range.
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetDailyStats(ctx context.Context, start, end time.Time) ([]types.DailyStats, error) {
	coll := f.client.Collection(dailyCollection)
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(start.Format("2006-01-02"))).
		Where(firestore.DocumentID, "<", coll.Doc(end.Format("2006-01-02"))).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []types.DailyStats
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating daily stats: %w", err)
		}
		var d types.DailyStats
		if err := unmarshalDoc(ctx, doc, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// GetMonthlyStats retrieves monthly aggregates within the specified time range.
func (f *FirestoreProvider) GetMonthlyStats(ctx context.Context, start, end time.Time) ([]types.MonthlyStats, error) {
	coll := f.client.Collection(monthlyCollection)
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(start.Format("2006-01"))).
		Where(firestore.DocumentID, "<=", coll.Doc(end.Format("2006-01"))).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []types.MonthlyStats
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating monthly stats: %w", err)
		}
		var m types.MonthlyStats
		if err := unmarshalDoc(ctx, doc, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetAnalysisRuns retrieves runs started within the specified time range.
func (f *FirestoreProvider) GetAnalysisRuns(ctx context.Context, start, end time.Time) ([]types.AnalysisRun, error) {
	iter := f.client.Collection(runsCollection).
		Where("timestamp", ">=", start).
		Where("timestamp", "<", end).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []types.AnalysisRun
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating analysis runs: %w", err)
		}
		var r types.AnalysisRun
		if err := unmarshalDoc(ctx, doc, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// GetLatestAnalysisRun retrieves the most recently started run, or nil when
// no runs exist.
func (f *FirestoreProvider) GetLatestAnalysisRun(ctx context.Context) (*types.AnalysisRun, error) {
	iter := f.client.Collection(runsCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis run: %w", err)
	}
	var r types.AnalysisRun
	if err := unmarshalDoc(ctx, doc, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// unmarshalDoc decodes the "json" field every record collection stores.
func unmarshalDoc(ctx context.Context, doc *firestore.DocumentSnapshot, v interface{}) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("docID", doc.Ref.ID))
		return fmt.Errorf("document %s 'json' field is not string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal document (id=%s): %w", doc.Ref.ID, err)
	}
	return nil
}
