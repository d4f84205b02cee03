// Package busyhour locates the busy-period window (GNR) of a multi-day load dataset.
//
// Every algorithm is a pure function of the day set with the same signature,
// registered in a closed table keyed by models.Algorithm:
//
//	TCBH   60-minute trailing rolling sum over the cross-day mean load
//	ADPQH  per-day 15-minute peak, floored to its hour block, most frequent block
//	FDMH   clock-hour bucket with the highest load over all days combined
//	ADPH   per-day 60-minute peak, floored to its hour block, most frequent block
//	FDMP   per-day clock-hour bucket with the highest load, most frequent bucket
//
// Ties are always resolved in favour of the first occurrence in minute (or
// day) order, which keeps results deterministic.
package busyhour

import (
	"fmt"

	"github.com/rewired-gh/busyhour/internal/logger"
	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/series"
)

const (
	// HourWindow is the window length of the hour-based algorithms, in minutes.
	HourWindow = 60
	// QuarterWindow is the rolling window length of ADPQH, in minutes.
	QuarterWindow = 15
)

// Func computes a busy window from a non-empty day set.
type Func func(days models.DaySet) models.BusyWindow

var algorithms = map[models.Algorithm]Func{
	models.TCBH:  TCBH,
	models.ADPQH: ADPQH,
	models.FDMH:  FDMH,
	models.ADPH:  ADPH,
	models.FDMP:  FDMP,
}

// Detect runs alg over days and returns the tagged busy window.
func Detect(alg models.Algorithm, days models.DaySet) (models.BusyWindow, error) {
	if err := days.Validate(); err != nil {
		return models.BusyWindow{}, err
	}

	fn, ok := algorithms[alg]
	if !ok {
		return models.BusyWindow{}, fmt.Errorf("unknown algorithm %q", alg)
	}

	window := fn(days)
	window.Algorithm = alg
	if err := window.Validate(); err != nil {
		return models.BusyWindow{}, fmt.Errorf("invalid %s window [%d, %d]: %w", alg, window.Start, window.End, err)
	}

	logger.Debug("Detect: algorithm=%s days=%d window=[%d, %d] minutes=%d load=%.4f",
		alg, len(days), window.Start, window.End, window.Length(), window.AggregatedLoad)

	return window, nil
}

// TCBH returns the 60-minute window ending at the minute with the largest
// trailing rolling sum of the cross-day mean load. When the domain is shorter
// than 60 minutes the whole domain is returned.
func TCBH(days models.DaySet) models.BusyWindow {
	curve := series.MeanCurve(days)
	if len(curve) == 0 {
		return models.BusyWindow{}
	}

	var window models.BusyWindow
	if len(curve) < HourWindow {
		window = models.BusyWindow{Start: curve[0].Minute, End: curve[len(curve)-1].Minute}
	} else {
		loads := make([]float64, len(curve))
		for i, p := range curve {
			loads[i] = p.Load
		}
		end, _ := peakEnd(loads, HourWindow)
		window = models.BusyWindow{Start: curve[end].Minute - (HourWindow - 1), End: curve[end].Minute}
	}

	window.AggregatedLoad = AggregatedLoad(days, window.Start, window.End)
	return window
}

// ADPQH returns the hour block that most often contains a day's peak quarter hour.
func ADPQH(days models.DaySet) models.BusyWindow {
	return dailyPeakMode(days, QuarterWindow)
}

// ADPH returns the hour block that most often contains a day's peak 60 minutes.
func ADPH(days models.DaySet) models.BusyWindow {
	return dailyPeakMode(days, HourWindow)
}

// FDMH returns the clock hour with the highest summed load over every day
// combined. Its aggregated load is that summed load.
func FDMH(days models.DaySet) models.BusyWindow {
	var combined []models.LoadSample
	for _, day := range days {
		combined = append(combined, day.Samples...)
	}

	hour, total, ok := peakHourBucket(combined)
	if !ok {
		return models.BusyWindow{}
	}
	return models.BusyWindow{
		Start:          hour * HourWindow,
		End:            hour*HourWindow + HourWindow - 1,
		AggregatedLoad: total,
	}
}

// FDMP returns the clock hour that is most often the day's highest-load hour.
func FDMP(days models.DaySet) models.BusyWindow {
	var starts []int
	for _, day := range days {
		hour, _, ok := peakHourBucket(day.Samples)
		if !ok {
			continue
		}
		starts = append(starts, hour*HourWindow)
	}
	return modeWindow(days, starts)
}

// AggregatedLoad sums the cross-day mean load over the minutes in [start, end].
func AggregatedLoad(days models.DaySet, start, end int) float64 {
	var total float64
	for _, p := range series.MeanCurve(days) {
		if p.Minute >= start && p.Minute <= end {
			total += p.Load
		}
	}
	return total
}

// dailyPeakMode finds each day's rolling-window peak over its own load, floors
// the window start to its hour block and returns the most frequent block.
func dailyPeakMode(days models.DaySet, size int) models.BusyWindow {
	var starts []int
	for i, day := range days {
		if day.Len() < size {
			logger.Debug("dailyPeakMode: day %d has %d minutes, shorter than window %d", i, day.Len(), size)
			continue
		}
		end, _ := peakEnd(series.Loads(day), size)
		peakStart := day.Samples[end].Minute - (size - 1)
		starts = append(starts, (peakStart/HourWindow)*HourWindow)
	}
	return modeWindow(days, starts)
}

// modeWindow reports the most frequent hour start as [start, start+59].
// Ties go to the start encountered first. No starts gives the (0, 0) window.
func modeWindow(days models.DaySet, starts []int) models.BusyWindow {
	if len(starts) == 0 {
		return models.BusyWindow{AggregatedLoad: AggregatedLoad(days, 0, 0)}
	}

	counts := make(map[int]int)
	best := starts[0]
	for _, start := range starts {
		counts[start]++
	}
	for _, start := range starts {
		if counts[start] > counts[best] {
			best = start
		}
	}

	window := models.BusyWindow{Start: best, End: best + HourWindow - 1}
	window.AggregatedLoad = AggregatedLoad(days, window.Start, window.End)
	return window
}

// peakEnd returns the index at which the trailing rolling sum of size values
// is largest, together with that sum. Only complete windows are considered;
// the first maximum wins. loads must hold at least size values.
func peakEnd(loads []float64, size int) (int, float64) {
	bestEnd := -1
	var bestSum float64
	for end := size - 1; end < len(loads); end++ {
		// Summing each window from scratch keeps equal windows bit-identical.
		var sum float64
		for _, v := range loads[end-size+1 : end+1] {
			sum += v
		}
		if bestEnd < 0 || sum > bestSum {
			bestEnd = end
			bestSum = sum
		}
	}
	return bestEnd, bestSum
}

// peakHourBucket groups samples into clock hours (minute / 60) and returns the
// lowest hour with the largest summed load.
func peakHourBucket(samples []models.LoadSample) (int, float64, bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}

	sums := make(map[int]float64)
	minHour, maxHour := samples[0].Minute/HourWindow, samples[0].Minute/HourWindow
	for _, sample := range samples {
		hour := sample.Minute / HourWindow
		sums[hour] += sample.Load
		minHour = min(minHour, hour)
		maxHour = max(maxHour, hour)
	}

	bestHour := -1
	var bestSum float64
	for hour := minHour; hour <= maxHour; hour++ {
		sum, ok := sums[hour]
		if !ok {
			continue
		}
		if bestHour < 0 || sum > bestSum {
			bestHour = hour
			bestSum = sum
		}
	}
	return bestHour, bestSum, true
}
