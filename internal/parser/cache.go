package parser

import (
	"errors"
	"fmt"
	"os"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"

	"github.com/rewired-gh/busyhour/internal/models"
)

// DefaultCacheSize is the number of parsed files kept when no size is configured.
const DefaultCacheSize = 256

// Cache memoizes parsed files so that re-running an analysis (for example
// after switching algorithms) does not re-read unchanged inputs. Entries are
// keyed by path, size, modification time and parse options, so an edited file
// is always parsed again.
type Cache struct {
	intensity  *otter.Cache[string, models.IntensitySequence]
	turnaround *otter.Cache[string, float64]
	counter    *stats.Counter
}

// NewCache creates a cache holding up to size parsed files of each kind.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	counter := stats.NewCounter()
	return &Cache{
		intensity: otter.Must(&otter.Options[string, models.IntensitySequence]{
			MaximumSize:   size,
			StatsRecorder: counter,
		}),
		turnaround: otter.Must(&otter.Options[string, float64]{
			MaximumSize:   size,
			StatsRecorder: counter,
		}),
		counter: counter,
	}
}

// Intensity parses path through the cache. Callers must treat the returned
// sequence as read-only.
func (c *Cache) Intensity(path string, opts Options) (models.IntensitySequence, error) {
	opts = opts.withDefaults(DefaultIntensityDecimal)

	key, err := fileKey(path, opts)
	if err != nil {
		return nil, err
	}
	if seq, found := c.intensity.GetIfPresent(key); found {
		return seq, nil
	}

	seq, err := ParseIntensity(path, opts)
	if err != nil {
		return nil, err
	}
	c.intensity.Set(key, seq)
	return seq, nil
}

// IntensityDir parses every intensity file of dir through the cache, failing
// the whole directory on the first malformed file.
func (c *Cache) IntensityDir(dir string, opts Options) ([]models.IntensitySequence, error) {
	return parseDir(dir, opts, c.Intensity)
}

// Turnaround estimates the mean duration of path through the cache.
func (c *Cache) Turnaround(path string, opts Options) (float64, error) {
	opts = opts.withDefaults(DefaultTurnaroundDecimal)

	key, err := fileKey(path, opts)
	if err != nil {
		return 0, err
	}
	if avg, found := c.turnaround.GetIfPresent(key); found {
		return avg, nil
	}

	avg, err := EstimateTurnaround(path, opts)
	if err != nil {
		return 0, err
	}
	c.turnaround.Set(key, avg)
	return avg, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *Cache) Stats() (hits, misses uint64) {
	snapshot := c.counter.Snapshot()
	return snapshot.Hits, snapshot.Misses
}

func fileKey(path string, opts Options) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &ParseError{Path: path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}
	if !info.Mode().IsRegular() {
		return "", &ParseError{Path: path, Err: errors.New("not a regular file")}
	}
	return fmt.Sprintf("%s|%d|%d|%s", path, info.Size(), info.ModTime().UnixNano(), opts.Decimal), nil
}
