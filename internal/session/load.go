package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/busyhour/internal/busyhour"
	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/parser"
	"github.com/rewired-gh/busyhour/internal/plot"
	"github.com/rewired-gh/busyhour/internal/series"
	"github.com/rewired-gh/busyhour/internal/storage"
	"github.com/rewired-gh/busyhour/internal/synth"
)

// ConfigurationError reports an input selection that cannot be analyzed:
// nothing selected, a path that does not exist, or a path of the wrong kind.
type ConfigurationError struct {
	Field  string
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Path, e.Reason)
}

// Env holds what Load needs besides the configuration.
type Env struct {
	Cache      *parser.Cache
	Scratch    *storage.Scratch
	Synth      *synth.Synthesizer
	Days       int // synthesized days added to a single intensity file
	Intensity  parser.Options
	Turnaround parser.Options
}

func (e Env) withDefaults() Env {
	if e.Cache == nil {
		e.Cache = parser.NewCache(parser.DefaultCacheSize)
	}
	if e.Synth == nil {
		e.Synth = synth.New(nil)
	}
	if e.Days < 0 {
		e.Days = 0
	}
	return e
}

// Analysis is the complete, immutable result of one analysis run.
type Analysis struct {
	ID         uuid.UUID                    `json:"id" yaml:"id"`
	Config     models.AnalysisConfiguration `json:"config" yaml:"config"`
	Turnaround float64                      `json:"turnaround" yaml:"turnaround"`
	Days       models.DaySet                `json:"-" yaml:"-"`
	Window     models.BusyWindow            `json:"window" yaml:"window"`
	Plot       plot.Descriptor              `json:"plot" yaml:"plot"`
	Took       time.Duration                `json:"took" yaml:"took"`

	// dayDir is the scratch directory holding synthesized days, if any.
	dayDir string
}

// DayDir returns the scratch directory of the synthesized days, or "" when
// the days were read from a user directory.
func (a *Analysis) DayDir() string {
	return a.dayDir
}

// Load runs parse, build, detect and describe for cfg. It never falls back:
// a *parser.ParseError or *ConfigurationError is returned to the caller,
// which decides what to substitute.
func Load(cfg models.AnalysisConfiguration, env Env) (*Analysis, error) {
	started := time.Now()
	env = env.withDefaults()

	alg, err := checkConfiguration(cfg, env)
	if err != nil {
		return nil, err
	}
	cfg = cfg.WithAlgorithm(alg)

	turnaround, err := env.Cache.Turnaround(cfg.TurnaroundFile, env.Turnaround)
	if err != nil {
		return nil, err
	}

	var intensities []models.IntensitySequence
	var dayDir string
	if cfg.Intensity.Dir {
		intensities, err = env.Cache.IntensityDir(cfg.Intensity.Path, env.Intensity)
		if err != nil {
			return nil, err
		}
	} else {
		base, err := env.Cache.Intensity(cfg.Intensity.Path, env.Intensity)
		if err != nil {
			return nil, err
		}
		dayDir, intensities, err = synthesizeDays(base, env)
		if err != nil {
			return nil, err
		}
	}

	analysis, err := analyze(cfg, turnaround, series.BuildDaySet(intensities, turnaround))
	if err != nil {
		if dayDir != "" {
			_ = env.Scratch.RemoveDir(dayDir)
		}
		return nil, err
	}
	analysis.dayDir = dayDir
	analysis.Took = time.Since(started)
	return analysis, nil
}

// analyze detects the busy window of days and describes it.
func analyze(cfg models.AnalysisConfiguration, turnaround float64, days models.DaySet) (*Analysis, error) {
	window, err := busyhour.Detect(cfg.Algorithm, days)
	if err != nil {
		return nil, fmt.Errorf("failed to detect busy window: %w", err)
	}
	descriptor, err := plot.Build(days, window)
	if err != nil {
		return nil, fmt.Errorf("failed to build plot: %w", err)
	}

	return &Analysis{
		ID:         uuid.New(),
		Config:     cfg,
		Turnaround: turnaround,
		Days:       days,
		Window:     window,
		Plot:       descriptor,
	}, nil
}

// synthesizeDays writes base and env.Days rotated copies into a new scratch
// directory and reads that directory back as the day set.
func synthesizeDays(base models.IntensitySequence, env Env) (string, []models.IntensitySequence, error) {
	if env.Scratch == nil {
		return "", nil, errors.New("no scratch directory for synthesized days")
	}
	dir, err := env.Scratch.NewDayDir()
	if err != nil {
		return "", nil, err
	}

	days := env.Synth.Synthesize(base, env.Days)
	if _, err := env.Scratch.WriteDays(dir, days); err != nil {
		_ = env.Scratch.RemoveDir(dir)
		return "", nil, fmt.Errorf("failed to write synthesized days: %w", err)
	}

	reread, err := env.Cache.IntensityDir(dir, env.Scratch.ParseOptions())
	if err != nil {
		_ = env.Scratch.RemoveDir(dir)
		return "", nil, err
	}
	return dir, reread, nil
}

// checkConfiguration validates the selection before any file is parsed.
func checkConfiguration(cfg models.AnalysisConfiguration, env Env) (models.Algorithm, error) {
	alg, err := models.ParseAlgorithm(string(cfg.Algorithm))
	if err != nil {
		return "", &ConfigurationError{Field: "algorithm", Reason: err.Error()}
	}

	if err := checkPath("turnaround file", cfg.TurnaroundFile, false, env.Turnaround.Extension); err != nil {
		return "", err
	}

	field := "intensity file"
	if cfg.Intensity.Dir {
		field = "intensity directory"
	}
	if err := checkPath(field, cfg.Intensity.Path, cfg.Intensity.Dir, env.Intensity.Extension); err != nil {
		return "", err
	}
	return alg, nil
}

func checkPath(field, path string, dir bool, ext string) error {
	if path == "" {
		return &ConfigurationError{Field: field, Reason: "nothing selected"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &ConfigurationError{Field: field, Path: path, Reason: "does not exist"}
	}

	switch {
	case dir && !info.IsDir():
		return &ConfigurationError{Field: field, Path: path, Reason: "is not a directory"}
	case !dir && info.IsDir():
		return &ConfigurationError{Field: field, Path: path, Reason: "is a directory"}
	}

	if ext == "" {
		ext = parser.DefaultExtension
	}
	if !dir && !strings.EqualFold(filepath.Ext(path), ext) {
		return &ConfigurationError{Field: field, Path: path, Reason: fmt.Sprintf("must end in %s", ext)}
	}
	return nil
}
