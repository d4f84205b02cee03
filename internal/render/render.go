// Package render draws plot descriptors for a terminal and encodes them for
// other tools.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/busyhour/internal/plot"
)

// Output formats understood by Encode.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultWidth is the bar length of the busiest hour.
const DefaultWidth = 60

// ChartOptions controls Chart.
type ChartOptions struct {
	Width   int
	NoColor bool
}

type hourRow struct {
	hour int
	load float64
	busy bool
}

// Chart writes one row per clock hour of the mean load curve, with the rows
// overlapping the busy window marked "^" and highlighted.
func Chart(w io.Writer, d plot.Descriptor, opts ChartOptions) error {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}

	busyColor := color.New(color.FgYellow)
	barColor := color.New(color.FgHiBlack)
	titleColor := color.New(color.Bold)
	if opts.NoColor {
		busyColor.DisableColor()
		barColor.DisableColor()
		titleColor.DisableColor()
	}

	var out strings.Builder
	out.WriteString(titleColor.Sprintf("%s (%d days)", d.Title, d.Days) + "\n")
	out.WriteString(strings.Repeat("─", opts.Width+22) + "\n")

	rows := hourRows(d)
	if len(rows) == 0 {
		out.WriteString("No load data available\n")
		_, err := io.WriteString(w, out.String())
		return err
	}

	maxLoad := 0.0
	for _, row := range rows {
		maxLoad = math.Max(maxLoad, row.load)
	}

	for _, row := range rows {
		line := fmt.Sprintf("%s ", plot.Clock(row.hour*60))
		if row.busy {
			line += busyColor.Sprint("^") + " "
		} else {
			line += "  "
		}
		line += fmt.Sprintf("%12.2f ", row.load)

		barLength := 0
		if maxLoad > 0 {
			barLength = int(math.Round(row.load / maxLoad * float64(opts.Width)))
		}
		bar := strings.Repeat("█", barLength)
		if row.busy {
			line += busyColor.Sprint(bar)
		} else {
			line += barColor.Sprint(bar)
		}
		out.WriteString(line + "\n")
	}

	out.WriteString(strings.Repeat("─", opts.Width+22) + "\n")
	out.WriteString(d.Annotation + "\n")

	_, err := io.WriteString(w, out.String())
	return err
}

// hourRows sums the curve per clock hour (minute / 60). An hour is busy when
// any of its minutes falls inside the detected window.
func hourRows(d plot.Descriptor) []hourRow {
	byHour := make(map[int]*hourRow)
	for _, p := range d.Curve {
		h := p.Minute / 60
		row, ok := byHour[h]
		if !ok {
			row = &hourRow{hour: h}
			byHour[h] = row
		}
		row.load += p.Load
		if d.Window.Contains(p.Minute) {
			row.busy = true
		}
	}

	rows := make([]hourRow, 0, len(byHour))
	for _, row := range byHour {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].hour < rows[j].hour
	})
	return rows
}

// Encode writes d in the given format: text (the annotation only), json or yaml.
func Encode(w io.Writer, d plot.Descriptor, format string) error {
	if format == FormatText || format == "" {
		_, err := fmt.Fprintln(w, d.Annotation)
		return err
	}
	return encodeValue(w, d, format)
}

// EncodeAll writes descriptors in the given format: text renders the
// Summary table, json and yaml encode the list.
func EncodeAll(w io.Writer, descriptors []plot.Descriptor, format string) error {
	if format == FormatText || format == "" {
		return Summary(w, descriptors)
	}
	return encodeValue(w, descriptors, format)
}

func encodeValue(w io.Writer, v any, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Summary writes one aligned row per descriptor: algorithm, window, clock
// range and aggregated load.
func Summary(w io.Writer, descriptors []plot.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALGORITHM\tSTART\tEND\tTIME\tLOAD")
	for _, d := range descriptors {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s-%s\t%.2f\n",
			d.Window.Algorithm, d.Window.Start, d.Window.End,
			plot.Clock(d.Window.Start), plot.Clock(d.Window.End), d.Window.AggregatedLoad)
	}
	return tw.Flush()
}
