// Package models defines the core domain entities for busy-hour load estimation.
// These models represent per-minute call intensity, the derived load series,
// multi-day datasets and the detected busy window (GNR).
// All models include built-in validation to ensure data integrity throughout the application.
//
// Terminology:
//   - Intensity: measured call arrival rate for one minute of a day.
//   - Turnaround: average call-handling duration, used to convert intensity into load.
//   - Load: intensity multiplied by the turnaround time.
//   - Day set: one load sequence per observed (or synthesized) day.
package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyDaySet is returned when an operation that needs at least one day
// receives an empty day set.
var ErrEmptyDaySet = errors.New("day set must contain at least one day")

// IntensitySample is the call intensity measured for a single minute.
type IntensitySample struct {
	Minute    int     `json:"minute" yaml:"minute"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
}

// IntensitySequence is one day of intensity samples, ascending and contiguous
// from minute 1 to the largest minute found in the source.
type IntensitySequence []IntensitySample

// Validate checks that the sequence is non-empty, contiguous from minute 1,
// and holds only finite non-negative intensities.
func (s IntensitySequence) Validate() error {
	if len(s) == 0 {
		return errors.New("intensity sequence must not be empty")
	}
	for i, sample := range s {
		if sample.Minute != i+1 {
			return fmt.Errorf("minute %d at position %d breaks the contiguous 1..%d domain", sample.Minute, i, len(s))
		}
		if math.IsNaN(sample.Intensity) || math.IsInf(sample.Intensity, 0) {
			return fmt.Errorf("intensity at minute %d must be finite", sample.Minute)
		}
		if sample.Intensity < 0 {
			return fmt.Errorf("intensity at minute %d must not be negative", sample.Minute)
		}
	}
	return nil
}

// LoadSample is a minute of intensity together with its derived load.
type LoadSample struct {
	Minute    int     `json:"minute" yaml:"minute"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
	Load      float64 `json:"load" yaml:"load"`
}

// LoadSequence is one day of load samples. Turnaround is the scalar the
// load column was derived with; the sequence is recomputed, never edited,
// when either input changes.
type LoadSequence struct {
	Turnaround float64      `json:"turnaround" yaml:"turnaround"`
	Samples    []LoadSample `json:"samples" yaml:"samples"`
}

// Len returns the number of minutes in the sequence.
func (s LoadSequence) Len() int {
	return len(s.Samples)
}

// DaySet is an ordered collection of per-day load sequences sharing the same
// minute domain. It is built fresh for every analysis and never mutated.
type DaySet []LoadSequence

// Validate checks that the day set holds at least one non-empty day.
func (d DaySet) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDaySet
	}
	for i, day := range d {
		if day.Len() == 0 {
			return fmt.Errorf("day %d has no samples", i)
		}
	}
	return nil
}
