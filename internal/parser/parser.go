// Package parser reads the plain-text measurement files: per-minute call
// intensity files (one day per file) and call-duration (turnaround) files.
//
// Intensity files hold either two whitespace-separated columns
// "<minute> <intensity>" or a single "<intensity>" column where the minute is
// the 1-based position of the data row. Minutes missing from the file are
// filled with zero intensity up to the largest minute present.
//
// Turnaround files hold one duration per line; the estimate is their mean.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rewired-gh/busyhour/internal/models"
)

// Default decimal separators and file extension of the measurement files.
const (
	DefaultIntensityDecimal  = ","
	DefaultTurnaroundDecimal = "."
	DefaultExtension         = ".txt"
)

// MaxMinute is the largest minute accepted in an intensity file, one week of
// per-minute samples.
const MaxMinute = 7 * 1440

// Options controls how measurement files are read.
type Options struct {
	// Decimal is the decimal separator used by numeric fields. A "." is
	// always accepted as well.
	Decimal string
	// Extension selects which files of a directory are intensity files.
	Extension string
}

// IntensityOptions returns the default options for intensity files.
func IntensityOptions() Options {
	return Options{Decimal: DefaultIntensityDecimal, Extension: DefaultExtension}
}

// TurnaroundOptions returns the default options for turnaround files.
func TurnaroundOptions() Options {
	return Options{Decimal: DefaultTurnaroundDecimal, Extension: DefaultExtension}
}

func (o Options) withDefaults(decimal string) Options {
	if o.Decimal == "" {
		o.Decimal = decimal
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	return o
}

// ParseError reports a missing, empty or malformed input file or directory.
type ParseError struct {
	Path string
	Line int // 0 when the error is not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseIntensity reads one day of intensity samples from path and returns the
// dense, gap-filled sequence for minutes 1..max(minute).
func ParseIntensity(path string, opts Options) (models.IntensitySequence, error) {
	opts = opts.withDefaults(DefaultIntensityDecimal)

	byMinute := make(map[int]float64)
	maxMinute := 0
	columns := 0
	row := 0

	err := scanLines(path, func(lineNo int, fields []string) error {
		row++
		if columns == 0 {
			columns = len(fields)
		}
		if len(fields) != columns {
			return fmt.Errorf("expected %d columns, got %d", columns, len(fields))
		}

		var minute int
		var raw string
		switch columns {
		case 1:
			minute = row
			raw = fields[0]
		case 2:
			m, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("invalid minute %q", fields[0])
			}
			minute = m
			raw = fields[1]
		default:
			return fmt.Errorf("expected 1 or 2 columns, got %d", columns)
		}

		if minute < 1 {
			return fmt.Errorf("minute must be positive, got %d", minute)
		}
		if minute > MaxMinute {
			return fmt.Errorf("minute %d exceeds the limit of %d", minute, MaxMinute)
		}
		if _, exists := byMinute[minute]; exists {
			return fmt.Errorf("duplicate minute %d", minute)
		}

		intensity, err := parseNumber(raw, opts.Decimal)
		if err != nil {
			return err
		}
		if intensity < 0 {
			return fmt.Errorf("intensity must not be negative, got %v", intensity)
		}

		byMinute[minute] = intensity
		if minute > maxMinute {
			maxMinute = minute
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if maxMinute == 0 {
		return nil, &ParseError{Path: path, Err: errors.New("file contains no intensity samples")}
	}

	// Reindex onto 1..maxMinute, missing minutes carry zero intensity
	seq := make(models.IntensitySequence, maxMinute)
	for i := range seq {
		minute := i + 1
		seq[i] = models.IntensitySample{Minute: minute, Intensity: byMinute[minute]}
	}
	if err := seq.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return seq, nil
}

// ParseIntensityDir parses every file in dir ending in opts.Extension, in
// file-name order. A single malformed file fails the whole directory.
func ParseIntensityDir(dir string, opts Options) ([]models.IntensitySequence, error) {
	return parseDir(dir, opts, ParseIntensity)
}

// parseDir applies parse to every intensity file of dir, stopping at the
// first error.
func parseDir(dir string, opts Options, parse func(path string, opts Options) (models.IntensitySequence, error)) ([]models.IntensitySequence, error) {
	opts = opts.withDefaults(DefaultIntensityDecimal)

	paths, err := ListIntensityFiles(dir, opts.Extension)
	if err != nil {
		return nil, err
	}

	days := make([]models.IntensitySequence, 0, len(paths))
	for _, path := range paths {
		seq, err := parse(path, opts)
		if err != nil {
			return nil, err
		}
		days = append(days, seq)
	}
	return days, nil
}

// ListIntensityFiles returns the sorted paths of the regular files in dir
// that end in ext.
func ListIntensityFiles(dir, ext string) ([]string, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ParseError{Path: dir, Err: fmt.Errorf("failed to read directory: %w", err)}
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, &ParseError{Path: dir, Err: fmt.Errorf("directory contains no %s files", ext)}
	}

	sort.Strings(paths)
	return paths, nil
}

// EstimateTurnaround returns the mean of the durations listed in path, one per line.
func EstimateTurnaround(path string, opts Options) (float64, error) {
	opts = opts.withDefaults(DefaultTurnaroundDecimal)

	var sum float64
	count := 0

	err := scanLines(path, func(lineNo int, fields []string) error {
		if len(fields) != 1 {
			return fmt.Errorf("expected a single duration per line, got %d fields", len(fields))
		}
		duration, err := parseNumber(fields[0], opts.Decimal)
		if err != nil {
			return err
		}
		if duration < 0 {
			return fmt.Errorf("duration must not be negative, got %v", duration)
		}
		sum += duration
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if count == 0 {
		return 0, &ParseError{Path: path, Err: errors.New("file contains no durations")}
	}
	return sum / float64(count), nil
}

// scanLines calls fn with the whitespace-separated fields of every non-blank
// line of path. Errors returned by fn are wrapped in a ParseError with the
// line number.
func scanLines(path string, fn func(lineNo int, fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &ParseError{Path: path, Err: fmt.Errorf("failed to open file: %w", err)}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := fn(lineNo, fields); err != nil {
			return &ParseError{Path: path, Line: lineNo, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return &ParseError{Path: path, Err: fmt.Errorf("failed to read file: %w", err)}
	}
	return nil
}

// parseNumber parses a finite real number written with the given decimal separator.
func parseNumber(raw, decimal string) (float64, error) {
	normalized := raw
	if decimal != "" && decimal != "." {
		normalized = strings.Replace(raw, decimal, ".", 1)
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("number %q must be finite", raw)
	}
	return value, nil
}

// FormatNumber writes value with the given decimal separator, the inverse of
// the parsing applied to intensity files.
func FormatNumber(value float64, decimal string) string {
	formatted := strconv.FormatFloat(value, 'f', -1, 64)
	if decimal != "" && decimal != "." {
		formatted = strings.Replace(formatted, ".", decimal, 1)
	}
	return formatted
}
