// Package storage manages the scratch directory of an analysis session.
// It holds the materialized built-in input files and the synthesized per-day
// intensity files that form the default multi-day dataset.
//
// Files are written atomically (temporary file + rename) in the same
// whitespace-delimited, decimal-comma format the intensity parser reads.
// Everything lives under one root directory which Close removes, so no
// orphaned state is left behind on any exit path.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/parser"
)

// Default permissions of scratch files and directories.
const (
	DefaultFilePermissions os.FileMode = 0o600
	DefaultDirPermissions  os.FileMode = 0o700
)

// Scratch owns a temporary directory tree.
type Scratch struct {
	root            string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
	decimal         string
	extension       string

	mu     sync.Mutex
	closed bool
}

// Options configures a Scratch.
type Options struct {
	// BaseDir is where the scratch root is created; empty uses the OS temp directory.
	BaseDir         string
	FilePermissions os.FileMode
	DirPermissions  os.FileMode
	// Decimal is the separator written into intensity files.
	Decimal string
	// Extension of the per-day intensity files.
	Extension string
}

func (o Options) withDefaults() Options {
	if o.FilePermissions == 0 {
		o.FilePermissions = DefaultFilePermissions
	}
	if o.DirPermissions == 0 {
		o.DirPermissions = DefaultDirPermissions
	}
	if o.Decimal == "" {
		o.Decimal = parser.DefaultIntensityDecimal
	}
	if o.Extension == "" {
		o.Extension = parser.DefaultExtension
	}
	return o
}

// New creates a fresh scratch root under opts.BaseDir.
func New(opts Options) (*Scratch, error) {
	opts = opts.withDefaults()

	base := opts.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, opts.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create scratch base directory: %w", err)
	}

	root, err := os.MkdirTemp(base, "busyhour-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Scratch{
		root:            root,
		filePermissions: opts.FilePermissions,
		dirPermissions:  opts.DirPermissions,
		decimal:         opts.Decimal,
		extension:       opts.Extension,
	}, nil
}

// Root returns the scratch root directory.
func (s *Scratch) Root() string {
	return s.root
}

// NewDayDir creates an empty, uniquely named directory for one set of days.
func (s *Scratch) NewDayDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errors.New("scratch directory is closed")
	}

	dir := filepath.Join(s.root, "days-"+uuid.New().String())
	if err := os.Mkdir(dir, s.dirPermissions); err != nil {
		return "", fmt.Errorf("failed to create day directory: %w", err)
	}
	return dir, nil
}

// WriteFile atomically writes data to name inside the scratch root.
func (s *Scratch) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(s.root, name)
	if err := writeAtomic(path, data, s.filePermissions); err != nil {
		return "", err
	}
	return path, nil
}

// ParseOptions returns the parser options matching the files written by s.
func (s *Scratch) ParseOptions() parser.Options {
	return parser.Options{Decimal: s.decimal, Extension: s.extension}
}

// WriteDay writes one day as "<minute> <intensity>" lines into dir and
// returns the file path. Files are named so that lexical order is day order.
func (s *Scratch) WriteDay(dir string, index int, seq models.IntensitySequence) (string, error) {
	path := filepath.Join(dir, DayFileName(index, s.extension))
	if err := writeAtomic(path, formatDay(seq, s.decimal), s.filePermissions); err != nil {
		return "", err
	}
	return path, nil
}

// WriteDays writes every day into dir in order.
func (s *Scratch) WriteDays(dir string, days []models.IntensitySequence) ([]string, error) {
	paths := make([]string, 0, len(days))
	for i, seq := range days {
		path, err := s.WriteDay(dir, i, seq)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportDays writes days into dir, creating it if needed, in the same
// format and naming as a scratch day directory.
func ExportDays(dir string, days []models.IntensitySequence, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(dir, opts.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(days))
	for i, seq := range days {
		path := filepath.Join(dir, DayFileName(i, opts.Extension))
		if err := writeAtomic(path, formatDay(seq, opts.Decimal), opts.FilePermissions); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// DayFileName names the file of the index-th day.
func DayFileName(index int, ext string) string {
	return fmt.Sprintf("day-%03d%s", index, ext)
}

func formatDay(seq models.IntensitySequence, decimal string) []byte {
	var b strings.Builder
	for _, sample := range seq {
		fmt.Fprintf(&b, "%d %s\n", sample.Minute, parser.FormatNumber(sample.Intensity, decimal))
	}
	return []byte(b.String())
}

// RemoveDir deletes a directory previously created by NewDayDir.
func (s *Scratch) RemoveDir(dir string) error {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %s outside scratch root", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove directory: %w", err)
	}
	return nil
}

// Close removes the whole scratch tree. It is safe to call more than once.
func (s *Scratch) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

// writeAtomic writes to a temporary file first and renames it into place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
