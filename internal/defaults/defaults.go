// Package defaults ships the built-in measurement files used when no input
// has been selected, and whenever a selected input fails to load.
package defaults

import (
	_ "embed"
	"fmt"
)

// File names of the built-in inputs.
const (
	TurnaroundName = "czas.txt"
	IntensityName  = "int.txt"
)

//go:embed data/czas.txt
var turnaround []byte

//go:embed data/int.txt
var intensity []byte

// Writer stores a named file and returns its path.
type Writer interface {
	WriteFile(name string, data []byte) (string, error)
}

// Files are the paths of the materialized built-in inputs.
type Files struct {
	Turnaround string
	Intensity  string
}

// Materialize writes the built-in turnaround and intensity files through w.
func Materialize(w Writer) (Files, error) {
	turnaroundPath, err := w.WriteFile(TurnaroundName, turnaround)
	if err != nil {
		return Files{}, fmt.Errorf("failed to write default turnaround file: %w", err)
	}
	intensityPath, err := w.WriteFile(IntensityName, intensity)
	if err != nil {
		return Files{}, fmt.Errorf("failed to write default intensity file: %w", err)
	}
	return Files{Turnaround: turnaroundPath, Intensity: intensityPath}, nil
}
