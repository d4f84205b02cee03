// Package plot assembles what a renderer needs to draw an analysis: the mean
// load curve, the highlighted busy window and the summary annotation.
// Rendering itself happens elsewhere.
package plot

import (
	"fmt"

	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/series"
)

// Default labels of the load chart.
const (
	DefaultTitle  = "System load"
	DefaultXLabel = "minute"
	DefaultYLabel = "load"
)

// Interval is an inclusive minute range to highlight.
type Interval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Descriptor is a renderable description of one analysis.
type Descriptor struct {
	Title      string            `json:"title" yaml:"title"`
	XLabel     string            `json:"x_label" yaml:"x_label"`
	YLabel     string            `json:"y_label" yaml:"y_label"`
	Days       int               `json:"days" yaml:"days"`
	Curve      []series.Point    `json:"curve" yaml:"curve"`
	Highlight  Interval          `json:"highlight" yaml:"highlight"`
	Window     models.BusyWindow `json:"window" yaml:"window"`
	Annotation string            `json:"annotation" yaml:"annotation"`
}

// Build describes the cross-day mean load of days with window highlighted.
func Build(days models.DaySet, window models.BusyWindow) (Descriptor, error) {
	if err := days.Validate(); err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		Title:      DefaultTitle,
		XLabel:     DefaultXLabel,
		YLabel:     DefaultYLabel,
		Days:       len(days),
		Curve:      series.MeanCurve(days),
		Highlight:  Interval{Start: window.Start, End: window.End},
		Window:     window,
		Annotation: Annotation(window),
	}, nil
}

// Annotation formats the summary line shown next to the chart.
func Annotation(window models.BusyWindow) string {
	name := string(window.Algorithm)
	if name == "" {
		name = "GNR"
	}
	return fmt.Sprintf("%s: %s-%s (minutes %d-%d), load in window %.2f",
		name, Clock(window.Start), Clock(window.End), window.Start, window.End, window.AggregatedLoad)
}

// Clock renders a minute-of-day as HH:MM.
func Clock(minute int) string {
	if minute < 0 {
		minute = 0
	}
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
