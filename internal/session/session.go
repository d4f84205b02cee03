// Package session is the configuration boundary of the analyzer. It owns the
// scratch directory, keeps exactly one active analysis, and falls back to the
// last analysis that loaded successfully whenever a new selection fails.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rewired-gh/busyhour/internal/defaults"
	"github.com/rewired-gh/busyhour/internal/logger"
	"github.com/rewired-gh/busyhour/internal/metrics"
	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/parser"
	"github.com/rewired-gh/busyhour/internal/plot"
	"github.com/rewired-gh/busyhour/internal/storage"
	"github.com/rewired-gh/busyhour/internal/synth"
)

// Options configures a Session.
type Options struct {
	Intensity  parser.Options
	Turnaround parser.Options
	Algorithm  models.Algorithm
	Days       int
	Source     synth.Source // nil draws shifts from a clock-seeded source
	ScratchDir string
	CacheSize  int
	Metrics    *metrics.Metrics
}

// Session holds the active analysis.
type Session struct {
	scratch  *storage.Scratch
	cache    *parser.Cache
	metrics  *metrics.Metrics
	env      Env
	builtin  Env
	defaults models.AnalysisConfiguration

	mu      sync.Mutex // serializes reconfiguration
	current atomic.Pointer[Analysis]
}

// New creates the scratch directory, writes the built-in inputs into it and
// analyzes them. Any failure here is fatal: the scratch directory is removed
// and the error returned.
func New(opts Options) (*Session, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = models.TCBH
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	scratch, err := storage.New(storage.Options{
		BaseDir:   opts.ScratchDir,
		Extension: parser.DefaultExtension,
	})
	if err != nil {
		return nil, err
	}

	files, err := defaults.Materialize(scratch)
	if err != nil {
		_ = scratch.Close()
		return nil, err
	}

	cache := parser.NewCache(opts.CacheSize)
	synthesizer := synth.New(opts.Source)

	s := &Session{
		scratch: scratch,
		cache:   cache,
		metrics: opts.Metrics,
		env: Env{
			Cache:      cache,
			Scratch:    scratch,
			Synth:      synthesizer,
			Days:       opts.Days,
			Intensity:  opts.Intensity,
			Turnaround: opts.Turnaround,
		},
		// The built-in files always use the default number formats.
		builtin: Env{
			Cache:      cache,
			Scratch:    scratch,
			Synth:      synthesizer,
			Days:       opts.Days,
			Intensity:  parser.IntensityOptions(),
			Turnaround: parser.TurnaroundOptions(),
		},
		defaults: models.AnalysisConfiguration{
			TurnaroundFile: files.Turnaround,
			Intensity:      models.IntensitySource{Path: files.Intensity},
			Algorithm:      opts.Algorithm,
		},
	}

	analysis, err := Load(s.defaults, s.builtin)
	if err != nil {
		_ = scratch.Close()
		return nil, fmt.Errorf("failed to load built-in data: %w", err)
	}
	s.replace(analysis)
	s.metrics.ObserveAnalysis(analysis.Window, len(analysis.Days), analysis.Took)

	logger.Info("Session started: scratch=%s days=%d window=[%d, %d]",
		scratch.Root(), len(analysis.Days), analysis.Window.Start, analysis.Window.End)

	return s, nil
}

// Current returns the active analysis.
func (s *Session) Current() *Analysis {
	return s.current.Load()
}

// Defaults returns the configuration of the built-in inputs.
func (s *Session) Defaults() models.AnalysisConfiguration {
	return s.defaults
}

// Metrics returns the session's metrics.
func (s *Session) Metrics() *metrics.Metrics {
	return s.metrics
}

// Apply loads cfg and makes it the active analysis. When cfg cannot be
// loaded the active analysis is kept and returned together with the error,
// so the caller always has a usable analysis to show.
func (s *Session) Apply(cfg models.AnalysisConfiguration) (*Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis, err := Load(cfg, s.envFor(cfg))
	if err != nil {
		current := s.current.Load()
		s.metrics.ObserveFailure(failureKind(err))
		if isRecoverable(err) {
			s.metrics.ObserveFallback()
			logger.Warn("Failed to load configuration, keeping analysis %s: %v", current.ID, err)
		} else {
			logger.Error("Failed to run analysis, keeping analysis %s: %v", current.ID, err)
		}
		return current, err
	}

	s.replace(analysis)
	s.metrics.ObserveAnalysis(analysis.Window, len(analysis.Days), analysis.Took)

	hits, misses := s.cache.Stats()
	logger.Debug("Applied configuration: algorithm=%s days=%d took=%s cache_hits=%d cache_misses=%d",
		analysis.Config.Algorithm, len(analysis.Days), analysis.Took, hits, misses)

	return analysis, nil
}

// SelectAlgorithm re-detects the busy window of the active day set with alg.
// The day set is reused, so every algorithm sees the same synthesized days.
func (s *Session) SelectAlgorithm(alg models.Algorithm) (*Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	current := s.current.Load()
	parsed, err := models.ParseAlgorithm(string(alg))
	if err != nil {
		configErr := &ConfigurationError{Field: "algorithm", Reason: err.Error()}
		s.metrics.ObserveFailure(failureKind(configErr))
		return current, configErr
	}

	analysis, err := analyze(current.Config.WithAlgorithm(parsed), current.Turnaround, current.Days)
	if err != nil {
		return current, err
	}
	analysis.dayDir = current.dayDir
	analysis.Took = time.Since(started)

	s.replace(analysis)
	s.metrics.ObserveAnalysis(analysis.Window, len(analysis.Days), analysis.Took)
	return analysis, nil
}

// Reset returns to the built-in inputs, keeping the selected algorithm.
func (s *Session) Reset() (*Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.defaults.WithAlgorithm(s.current.Load().Config.Algorithm)
	analysis, err := Load(cfg, s.builtin)
	if err != nil {
		return s.current.Load(), fmt.Errorf("failed to reload built-in data: %w", err)
	}
	s.replace(analysis)
	s.metrics.ObserveAnalysis(analysis.Window, len(analysis.Days), analysis.Took)
	return analysis, nil
}

// Close removes the scratch directory. It is safe to call more than once.
func (s *Session) Close() error {
	return s.scratch.Close()
}

// Describe returns the plot descriptors of the active day set for every
// algorithm, in the order of models.Algorithms. The active analysis is not
// changed.
func (s *Session) Describe() ([]plot.Descriptor, error) {
	current := s.current.Load()
	descriptors := make([]plot.Descriptor, 0, len(models.Algorithms))
	for _, alg := range models.Algorithms {
		analysis, err := analyze(current.Config.WithAlgorithm(alg), current.Turnaround, current.Days)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, analysis.Plot)
	}
	return descriptors, nil
}

// envFor reads built-in files with the built-in number formats, even when
// cfg mixes them with user files.
func (s *Session) envFor(cfg models.AnalysisConfiguration) Env {
	env := s.env
	if cfg.TurnaroundFile == s.defaults.TurnaroundFile {
		env.Turnaround = s.builtin.Turnaround
	}
	if cfg.Intensity == s.defaults.Intensity {
		env.Intensity = s.builtin.Intensity
	}
	return env
}

// replace swaps in next and removes the synthesized days of the previous
// analysis unless next still uses them.
func (s *Session) replace(next *Analysis) {
	prev := s.current.Swap(next)
	if prev == nil || prev.dayDir == "" || prev.dayDir == next.dayDir {
		return
	}
	if err := s.scratch.RemoveDir(prev.dayDir); err != nil {
		logger.Warn("Failed to remove synthesized days %s: %v", prev.dayDir, err)
	}
}

func isRecoverable(err error) bool {
	var parseErr *parser.ParseError
	var configErr *ConfigurationError
	return errors.As(err, &parseErr) || errors.As(err, &configErr)
}

func failureKind(err error) string {
	var parseErr *parser.ParseError
	var configErr *ConfigurationError
	switch {
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &configErr):
		return "configuration"
	default:
		return "other"
	}
}
