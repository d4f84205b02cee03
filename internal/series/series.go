// Package series derives per-minute load from call intensity and combines
// load sequences across days.
package series

import (
	"sort"

	"github.com/rewired-gh/busyhour/internal/models"
)

// Point is one minute of a combined load curve.
type Point struct {
	Minute int     `json:"minute" yaml:"minute"`
	Load   float64 `json:"load" yaml:"load"`
}

// Build multiplies every intensity sample by the average turnaround time.
// Minute order and domain are taken unchanged from seq.
func Build(seq models.IntensitySequence, turnaround float64) models.LoadSequence {
	samples := make([]models.LoadSample, len(seq))
	for i, sample := range seq {
		samples[i] = models.LoadSample{
			Minute:    sample.Minute,
			Intensity: sample.Intensity,
			Load:      sample.Intensity * turnaround,
		}
	}
	return models.LoadSequence{Turnaround: turnaround, Samples: samples}
}

// BuildDaySet builds one load sequence per day with the same turnaround time.
func BuildDaySet(days []models.IntensitySequence, turnaround float64) models.DaySet {
	set := make(models.DaySet, len(days))
	for i, day := range days {
		set[i] = Build(day, turnaround)
	}
	return set
}

// MeanCurve groups the load of every day by minute and averages it over the
// days that contain the minute. Points are sorted by minute.
func MeanCurve(days models.DaySet) []Point {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, day := range days {
		for _, sample := range day.Samples {
			sums[sample.Minute] += sample.Load
			counts[sample.Minute]++
		}
	}

	curve := make([]Point, 0, len(sums))
	for minute, sum := range sums {
		curve = append(curve, Point{Minute: minute, Load: sum / float64(counts[minute])})
	}
	sort.Slice(curve, func(i, j int) bool {
		return curve[i].Minute < curve[j].Minute
	})
	return curve
}

// Loads returns the load column of seq in minute order.
func Loads(seq models.LoadSequence) []float64 {
	values := make([]float64, len(seq.Samples))
	for i, sample := range seq.Samples {
		values[i] = sample.Load
	}
	return values
}
