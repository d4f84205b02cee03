package models

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm identifies a busy-window definition.
type Algorithm string

const (
	// TCBH is the Time Consistent Busy Hour: rolling 60-minute peak of the cross-day mean load.
	TCBH Algorithm = "TCBH"
	// ADPQH is the Average Daily Peak Quarter Hour: most frequent hour holding each day's peak quarter.
	ADPQH Algorithm = "ADPQH"
	// FDMH is the Fixed Daily Measurement Hour: clock hour with the highest load over all days combined.
	FDMH Algorithm = "FDMH"
	// ADPH is the Average Daily Peak Hour: ADPQH with a full-hour rolling window.
	ADPH Algorithm = "ADPH"
	// FDMP is the Fixed Daily Maximum Peak: most frequent per-day peak clock hour.
	FDMP Algorithm = "FDMP"
)

// Algorithms lists every supported algorithm in display order.
var Algorithms = []Algorithm{TCBH, ADPQH, FDMH, ADPH, FDMP}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	candidate := Algorithm(strings.ToUpper(strings.TrimSpace(name)))
	for _, alg := range Algorithms {
		if alg == candidate {
			return alg, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q", name)
}

// Description returns a one-line explanation of the algorithm.
func (a Algorithm) Description() string {
	switch a {
	case TCBH:
		return "Time Consistent Busy Hour: 60-minute rolling peak of the mean daily load"
	case ADPQH:
		return "Average Daily Peak Quarter Hour: most frequent hour containing each day's peak quarter"
	case FDMH:
		return "Fixed Daily Measurement Hour: clock hour with the highest combined load"
	case ADPH:
		return "Average Daily Peak Hour: most frequent hour containing each day's peak 60 minutes"
	case FDMP:
		return "Fixed Daily Maximum Peak: most frequent clock hour holding each day's maximum"
	default:
		return ""
	}
}

// BusyWindow is the detected busy period. Start and End are inclusive minutes.
type BusyWindow struct {
	Algorithm      Algorithm `json:"algorithm" yaml:"algorithm"`
	Start          int       `json:"start_minute" yaml:"start_minute"`
	End            int       `json:"end_minute" yaml:"end_minute"`
	AggregatedLoad float64   `json:"aggregated_load" yaml:"aggregated_load"`
}

// Length returns the number of minutes covered by the window.
func (w BusyWindow) Length() int {
	return w.End - w.Start + 1
}

// Contains reports whether minute falls inside the window.
func (w BusyWindow) Contains(minute int) bool {
	return minute >= w.Start && minute <= w.End
}

// Validate checks that the window bounds are ordered and non-negative.
func (w BusyWindow) Validate() error {
	if w.Start < 0 {
		return errors.New("window start must not be negative")
	}
	if w.End < w.Start {
		return errors.New("window end must be >= window start")
	}
	return nil
}
