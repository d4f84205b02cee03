package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/parser"
	"github.com/rewired-gh/busyhour/internal/synth"
)

// writeDay writes a two-column intensity file with a plateau of 5 calls per
// minute on [peakStart, peakStart+59] and 1 call per minute elsewhere.
func writeDay(t *testing.T, path string, minutes, peakStart int) {
	t.Helper()
	var b strings.Builder
	for m := 1; m <= minutes; m++ {
		intensity := "1,0"
		if m >= peakStart && m < peakStart+60 {
			intensity = "5,0"
		}
		fmt.Fprintf(&b, "%d %s\n", m, intensity)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newSession(t *testing.T, seed uint64) (*Session, string) {
	t.Helper()
	base := t.TempDir()
	s, err := New(Options{
		Intensity:  parser.IntensityOptions(),
		Turnaround: parser.TurnaroundOptions(),
		Days:       3,
		Source:     synth.NewSeeded(seed),
		ScratchDir: base,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, base
}

func TestNew_LoadsDefaults(t *testing.T) {
	s, _ := newSession(t, 1)

	current := s.Current()
	if current == nil {
		t.Fatal("expected an active analysis")
	}
	if current.Config != s.Defaults() {
		t.Errorf("expected default configuration, got %+v", current.Config)
	}
	if len(current.Days) != 4 {
		t.Errorf("expected base day plus 3 synthesized days, got %d", len(current.Days))
	}
	if current.Window.Algorithm != models.TCBH || current.Window.Length() != 60 {
		t.Errorf("unexpected default window: %+v", current.Window)
	}
	if _, err := os.Stat(current.DayDir()); err != nil {
		t.Errorf("synthesized day directory missing: %v", err)
	}
	if got := testutil.ToFloat64(s.Metrics().AnalysesTotal.WithLabelValues("TCBH")); got != 1 {
		t.Errorf("expected 1 recorded analysis, got %v", got)
	}
}

func TestClose_RemovesScratch(t *testing.T) {
	s, base := newSession(t, 1)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty base directory after Close, found %d entries", len(entries))
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestNew_FatalStartupRemovesScratch(t *testing.T) {
	base := t.TempDir()

	_, err := New(Options{Algorithm: "busiest", ScratchDir: base})
	if err == nil {
		t.Fatal("expected startup to fail")
	}
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("expected ConfigurationError, got %T: %v", err, err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch directory left behind after failed startup: %v", entries)
	}
}

func TestApply_MalformedTurnaroundFallsBack(t *testing.T) {
	s, _ := newSession(t, 1)
	dir := t.TempDir()

	turnaround := filepath.Join(dir, "czas.txt")
	writeFile(t, turnaround, "12.5\nabc\n")
	intensity := filepath.Join(dir, "int.txt")
	writeDay(t, intensity, 240, 100)

	before := s.Current()
	cfg := models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: intensity},
		Algorithm:      models.TCBH,
	}

	active, err := s.Apply(cfg)
	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 2 {
		t.Errorf("expected error on line 2, got %d", parseErr.Line)
	}
	if active != before || s.Current() != before {
		t.Error("expected the previous analysis to stay active")
	}
	if active.Config.TurnaroundFile != s.Defaults().TurnaroundFile {
		t.Errorf("expected default turnaround file, got %s", active.Config.TurnaroundFile)
	}
	if got := testutil.ToFloat64(s.Metrics().FallbacksTotal); got != 1 {
		t.Errorf("expected 1 fallback, got %v", got)
	}
	if got := testutil.ToFloat64(s.Metrics().LoadFailures.WithLabelValues("parse")); got != 1 {
		t.Errorf("expected 1 parse failure, got %v", got)
	}
}

func TestApply_HugeMinuteFallsBack(t *testing.T) {
	s, base := newSession(t, 1)
	dir := t.TempDir()

	turnaround := filepath.Join(dir, "czas.txt")
	writeFile(t, turnaround, "2\n")
	intensity := filepath.Join(dir, "int.txt")
	writeFile(t, intensity, "9000000000000 1,0\n")

	before := s.Current()
	active, err := s.Apply(models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: intensity},
		Algorithm:      models.TCBH,
	})

	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 1 {
		t.Errorf("expected error on line 1, got %d", parseErr.Line)
	}
	if active != before {
		t.Error("expected the previous analysis to stay active")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch directory left behind: %v", entries)
	}
}

func TestApply_ConfigurationErrors(t *testing.T) {
	s, _ := newSession(t, 1)
	dir := t.TempDir()

	turnaround := filepath.Join(dir, "czas.txt")
	writeFile(t, turnaround, "10\n20\n")
	intensity := filepath.Join(dir, "int.txt")
	writeDay(t, intensity, 120, 30)
	csv := filepath.Join(dir, "int.csv")
	writeDay(t, csv, 120, 30)

	tests := []struct {
		name  string
		cfg   models.AnalysisConfiguration
		field string
	}{
		{
			name:  "nothing selected",
			cfg:   models.AnalysisConfiguration{Algorithm: models.TCBH},
			field: "turnaround file",
		},
		{
			name: "missing intensity file",
			cfg: models.AnalysisConfiguration{
				TurnaroundFile: turnaround,
				Intensity:      models.IntensitySource{Path: filepath.Join(dir, "nope.txt")},
				Algorithm:      models.TCBH,
			},
			field: "intensity file",
		},
		{
			name: "directory selected as file",
			cfg: models.AnalysisConfiguration{
				TurnaroundFile: turnaround,
				Intensity:      models.IntensitySource{Path: dir},
				Algorithm:      models.TCBH,
			},
			field: "intensity file",
		},
		{
			name: "file selected as directory",
			cfg: models.AnalysisConfiguration{
				TurnaroundFile: turnaround,
				Intensity:      models.IntensitySource{Path: intensity, Dir: true},
				Algorithm:      models.TCBH,
			},
			field: "intensity directory",
		},
		{
			name: "wrong extension",
			cfg: models.AnalysisConfiguration{
				TurnaroundFile: turnaround,
				Intensity:      models.IntensitySource{Path: csv},
				Algorithm:      models.TCBH,
			},
			field: "intensity file",
		},
		{
			name: "unknown algorithm",
			cfg: models.AnalysisConfiguration{
				TurnaroundFile: turnaround,
				Intensity:      models.IntensitySource{Path: intensity},
				Algorithm:      "busiest",
			},
			field: "algorithm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Current()
			active, err := s.Apply(tt.cfg)

			var configErr *ConfigurationError
			if !errors.As(err, &configErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if configErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, configErr.Field)
			}
			if active != before {
				t.Error("expected the previous analysis to stay active")
			}
		})
	}
}

func TestApply_Directory(t *testing.T) {
	s, _ := newSession(t, 1)
	dir := t.TempDir()

	turnaround := filepath.Join(dir, "czas.txt")
	writeFile(t, turnaround, "2\n")
	days := filepath.Join(dir, "days")
	if err := os.Mkdir(days, 0o755); err != nil {
		t.Fatal(err)
	}
	writeDay(t, filepath.Join(days, "a.txt"), 240, 121)
	writeDay(t, filepath.Join(days, "b.txt"), 240, 121)
	writeFile(t, filepath.Join(days, "notes.md"), "ignored")

	previousDayDir := s.Current().DayDir()

	active, err := s.Apply(models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: days, Dir: true},
		Algorithm:      models.TCBH,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(active.Days) != 2 {
		t.Errorf("expected 2 days, got %d", len(active.Days))
	}
	if active.DayDir() != "" {
		t.Errorf("expected no synthesized directory, got %s", active.DayDir())
	}
	if active.Window.Start != 121 || active.Window.End != 180 {
		t.Errorf("expected window [121, 180], got [%d, %d]", active.Window.Start, active.Window.End)
	}
	// 60 minutes of 5 calls with a turnaround of 2
	if active.Window.AggregatedLoad != 600 {
		t.Errorf("expected aggregated load 600, got %v", active.Window.AggregatedLoad)
	}
	if _, err := os.Stat(previousDayDir); !os.IsNotExist(err) {
		t.Errorf("expected previous synthesized days to be removed, stat err: %v", err)
	}
}

func TestApply_DirectoryFailsAll(t *testing.T) {
	s, _ := newSession(t, 1)
	dir := t.TempDir()

	turnaround := filepath.Join(t.TempDir(), "czas.txt")
	writeFile(t, turnaround, "2\n")
	writeDay(t, filepath.Join(dir, "a.txt"), 120, 10)
	writeFile(t, filepath.Join(dir, "b.txt"), "1 1,0\n2 x\n")

	before := s.Current()
	active, err := s.Apply(models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: dir, Dir: true},
		Algorithm:      models.TCBH,
	})

	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if filepath.Base(parseErr.Path) != "b.txt" {
		t.Errorf("expected failure in b.txt, got %s", parseErr.Path)
	}
	if active != before {
		t.Error("expected the previous analysis to stay active")
	}
}

func TestApply_SingleFileReproducible(t *testing.T) {
	dir := t.TempDir()
	turnaround := filepath.Join(dir, "czas.txt")
	writeFile(t, turnaround, "3\n")
	intensity := filepath.Join(dir, "int.txt")
	writeDay(t, intensity, 600, 300)

	cfg := models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: intensity},
		Algorithm:      models.ADPQH,
	}

	run := func() *Analysis {
		s, _ := newSession(t, 42)
		active, err := s.Apply(cfg)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		return active
	}

	a, b := run(), run()
	if a.Window != b.Window {
		t.Errorf("same seed produced different windows: %+v vs %+v", a.Window, b.Window)
	}
	if len(a.Days) != 4 || len(b.Days) != 4 {
		t.Fatalf("expected 4 days, got %d and %d", len(a.Days), len(b.Days))
	}
	for d := range a.Days {
		for i := range a.Days[d].Samples {
			if a.Days[d].Samples[i] != b.Days[d].Samples[i] {
				t.Fatalf("day %d minute %d differs between runs", d, i+1)
			}
		}
	}
	// The first day is the observed one, unrotated.
	if a.Days[0].Samples[299].Load != 15 || a.Days[0].Samples[298].Load != 3 {
		t.Errorf("base day was modified: %+v", a.Days[0].Samples[298:300])
	}
}

func TestSelectAlgorithm(t *testing.T) {
	s, _ := newSession(t, 7)
	before := s.Current()

	active, err := s.SelectAlgorithm(models.FDMH)
	if err != nil {
		t.Fatalf("SelectAlgorithm failed: %v", err)
	}
	if active.Config.Algorithm != models.FDMH || active.Window.Algorithm != models.FDMH {
		t.Errorf("expected FDMH, got %+v", active.Config)
	}
	if active.Config.WithAlgorithm(models.TCBH) != before.Config {
		t.Error("expected only the algorithm to change")
	}
	if len(active.Days) != len(before.Days) || &active.Days[0] != &before.Days[0] {
		t.Error("expected the day set to be reused")
	}
	if active.DayDir() != before.DayDir() {
		t.Error("expected the synthesized directory to be kept")
	}
	if _, err := os.Stat(active.DayDir()); err != nil {
		t.Errorf("synthesized directory removed: %v", err)
	}

	_, err = s.SelectAlgorithm("busiest")
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
	if s.Current() != active {
		t.Error("expected the active analysis to be kept")
	}
}

func TestReset(t *testing.T) {
	s, _ := newSession(t, 3)
	dir := t.TempDir()

	turnaround := filepath.Join(dir, "czas.txt")
	writeFile(t, turnaround, "1\n")
	intensity := filepath.Join(dir, "int.txt")
	writeDay(t, intensity, 120, 20)

	if _, err := s.Apply(models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: intensity},
		Algorithm:      models.ADPH,
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	active, err := s.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if active.Config != s.Defaults().WithAlgorithm(models.ADPH) {
		t.Errorf("expected defaults with ADPH, got %+v", active.Config)
	}
}

func TestDescribe(t *testing.T) {
	s, _ := newSession(t, 5)
	before := s.Current()

	descriptors, err := s.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if len(descriptors) != len(models.Algorithms) {
		t.Fatalf("expected %d descriptors, got %d", len(models.Algorithms), len(descriptors))
	}
	for i, d := range descriptors {
		if d.Window.Algorithm != models.Algorithms[i] {
			t.Errorf("descriptor %d: expected %s, got %s", i, models.Algorithms[i], d.Window.Algorithm)
		}
	}
	if s.Current() != before {
		t.Error("Describe must not change the active analysis")
	}
}

func TestLoad_IsPure(t *testing.T) {
	dir := t.TempDir()
	turnaround := filepath.Join(t.TempDir(), "czas.txt")
	writeFile(t, turnaround, "1,5\n2,5\n")
	writeDay(t, filepath.Join(dir, "a.txt"), 90, 1)

	cfg := models.AnalysisConfiguration{
		TurnaroundFile: turnaround,
		Intensity:      models.IntensitySource{Path: dir, Dir: true},
		Algorithm:      models.TCBH,
	}
	env := Env{
		Intensity:  parser.IntensityOptions(),
		Turnaround: parser.Options{Decimal: ","},
	}

	analysis, err := Load(cfg, env)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if analysis.Turnaround != 2 {
		t.Errorf("expected turnaround 2, got %v", analysis.Turnaround)
	}
	if analysis.Window.Start != 1 || analysis.Window.End != 60 {
		t.Errorf("expected window [1, 60], got [%d, %d]", analysis.Window.Start, analysis.Window.End)
	}
	if analysis.Plot.Window != analysis.Window {
		t.Error("plot descriptor does not describe the detected window")
	}
}
