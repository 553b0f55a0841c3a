// Package dataset loads the plant's recorded production exports, cleans them
// and compiles them into a single time series.
package dataset

import (
	"errors"

	"github.com/levenlabs/go-lflag"
)

// ErrNoData is returned when no measurements survive cleaning.
var ErrNoData = errors.New("no data after cleaning")

// ErrNoFiles is returned when the input directory has no matching files.
var ErrNoFiles = errors.New("no input files found")

// Source reads raw production exports from a directory and produces a
// compiled series in the output directory.
type Source struct {
	inputDir  string
	outputDir string
	recompile bool
}

// New returns a Source reading from inputDir and writing under outputDir.
func New(inputDir, outputDir string) *Source {
	return &Source{inputDir: inputDir, outputDir: outputDir}
}

// Configured sets up the Source based on flags.
func Configured() *Source {
	inputDir := lflag.String("data-dir", "data/input", "Directory containing raw production exports")
	outputDir := lflag.String("output-dir", "data/output", "Directory for the compiled series and generated artifacts")
	recompile := lflag.Bool("force-recompile", false, "Recompile the dataset even if a compiled file already exists")

	s := &Source{}

	lflag.Do(func() {
		s.inputDir = *inputDir
		s.outputDir = *outputDir
		s.recompile = *recompile
	})

	return s
}

// OutputDir returns the directory artifacts are written under.
func (s *Source) OutputDir() string {
	return s.outputDir
}
