package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/pvwatch/pvwatch/pkg/types"
)

// ErrVersionMismatch is returned when a settings write loses a concurrent update.
var ErrVersionMismatch = errors.New("settings version mismatch")

// Database defines the interface for persisting analysis results and
// retrieving plant settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Derived statistics
	UpsertDailyStats(ctx context.Context, stats []types.DailyStats, version int) error
	UpsertMonthlyStats(ctx context.Context, stats []types.MonthlyStats, version int) error
	InsertAnalysisRun(ctx context.Context, run types.AnalysisRun) error

	// History
	GetDailyStats(ctx context.Context, start, end time.Time) ([]types.DailyStats, error)
	GetMonthlyStats(ctx context.Context, start, end time.Time) ([]types.MonthlyStats, error)
	GetAnalysisRuns(ctx context.Context, start, end time.Time) ([]types.AnalysisRun, error)
	GetLatestAnalysisRun(ctx context.Context) (*types.AnalysisRun, error)

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
