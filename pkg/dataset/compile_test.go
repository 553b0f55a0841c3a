package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvwatch/pvwatch/pkg/types"
)

func testSettings() types.Settings {
	s, _, err := types.MigrateSettings(types.Settings{Timezone: "UTC"}, 0)
	if err != nil {
		panic(err)
	}
	return s
}

func writeExport(t *testing.T, dir, name, rows string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(solcastFile(rows)), 0o644))
}

func TestCompile(t *testing.T) {
	ctx := context.Background()

	t.Run("merges files in time order", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		// second half listed first to prove time ordering wins
		writeExport(t, inDir, "Solcast_2022.csv",
			"01/01/22 10:00;2000;900;40\n01/01/22 11:00;2100;950;41\n")
		writeExport(t, inDir, "Solcast_2021.csv",
			"01/01/21 10:00;1000;800;38\n01/01/21 11:00;1100;820;39\n")

		src := New(inDir, outDir)
		src.recompile = true
		ms, report, err := src.Compile(ctx, testSettings())
		require.NoError(t, err)
		require.Len(t, ms, 4)
		assert.Equal(t, 2, report.Files)
		assert.Equal(t, 4, report.Rows)
		assert.True(t, report.WeatherColumns)
		for i := 1; i < len(ms); i++ {
			assert.True(t, ms[i].Timestamp.After(ms[i-1].Timestamp))
		}
		// loss factors applied: 1000 * 0.997 * 0.99
		assert.InDelta(t, 987.03, ms[0].PowerKW, 0.001)
	})

	t.Run("compiled file is reused", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		writeExport(t, inDir, "Solcast_2021.csv", "01/01/21 10:00;1000;800;38\n")

		src := New(inDir, outDir)
		src.recompile = true
		_, report, err := src.Compile(ctx, testSettings())
		require.NoError(t, err)
		require.Equal(t, 1, report.Rows)

		// delete the inputs: a reused compiled file should not need them
		require.NoError(t, os.Remove(filepath.Join(inDir, "Solcast_2021.csv")))
		src2 := New(inDir, outDir)
		ms, report2, err := src2.Compile(ctx, testSettings())
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.InDelta(t, 987.03, ms[0].PowerKW, 0.001)
		assert.Equal(t, report.Discarded, report2.Discarded)
		assert.True(t, report2.WeatherColumns)
	})

	t.Run("no matching files", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		writeExport(t, inDir, "OtherVendor_2021.csv", "01/01/21 10:00;1000;800;38\n")

		src := New(inDir, outDir)
		src.recompile = true
		_, _, err := src.Compile(ctx, testSettings())
		assert.ErrorIs(t, err, ErrNoFiles)
	})

	t.Run("all rows malformed is no data", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		writeExport(t, inDir, "Solcast_2021.csv", "garbage;nope;0;0\nmore;junk;0;0\n")

		src := New(inDir, outDir)
		src.recompile = true
		_, report, err := src.Compile(ctx, testSettings())
		require.ErrorIs(t, err, ErrNoData)
		assert.Equal(t, 2, report.Discarded)
	})

	t.Run("missing input directory", func(t *testing.T) {
		src := New("/nonexistent-input-dir", t.TempDir())
		src.recompile = true
		_, _, err := src.Compile(ctx, testSettings())
		require.Error(t, err)
	})

	t.Run("cross-file duplicates keep first occurrence", func(t *testing.T) {
		inDir, outDir := t.TempDir(), t.TempDir()
		writeExport(t, inDir, "Solcast_a.csv", "01/01/21 10:00;1000;0;0\n")
		writeExport(t, inDir, "Solcast_b.csv", "01/01/21 10:00;2000;0;0\n")

		src := New(inDir, outDir)
		src.recompile = true
		ms, report, err := src.Compile(ctx, testSettings())
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.Equal(t, 1, report.Duplicates)
		assert.InDelta(t, 987.03, ms[0].PowerKW, 0.001)
	})

	t.Run("invalid sample interval", func(t *testing.T) {
		settings := testSettings()
		settings.SampleInterval = "bogus"
		src := New(t.TempDir(), t.TempDir())
		src.recompile = true
		_, _, err := src.Compile(ctx, settings)
		assert.ErrorContains(t, err, "sample interval")
	})
}

func TestListFiles(t *testing.T) {
	inDir := t.TempDir()
	for _, name := range []string{"Solcast_b.csv", "Solcast_a.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(inDir, name), []byte("x"), 0o644))
	}

	src := New(inDir, t.TempDir())
	files, err := src.ListFiles("Solcast")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(inDir, "Solcast_a.csv"), files[0])
}
