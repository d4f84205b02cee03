// Package synth manufactures a multi-day dataset from a single observed day.
//
// Each synthesized day is the observed intensity column rotated circularly by
// a random number of minutes, at most a tenth of the day. This adds plausible
// day-to-day phase jitter for the busy-window statistics that need several
// days, without requiring real multi-day measurements. The random source is
// injected so that synthesized datasets can be reproduced.
package synth

import (
	"math/rand/v2"
	"time"

	"github.com/rewired-gh/busyhour/internal/models"
)

// Source supplies uniformly distributed integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSeeded returns a deterministic source for seed.
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandom returns a source seeded from the clock.
func NewRandom() *rand.Rand {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// Synthesizer generates rotated copies of an observed day.
type Synthesizer struct {
	src Source
}

// New creates a Synthesizer drawing shifts from src.
func New(src Source) *Synthesizer {
	if src == nil {
		src = NewRandom()
	}
	return &Synthesizer{src: src}
}

// MaxShift returns ceil(0.1 * length), the largest rotation applied to a day
// of the given length.
func MaxShift(length int) int {
	if length <= 0 {
		return 0
	}
	return (length + 9) / 10
}

// Shift draws a rotation for a day of the given length, uniform in [0, MaxShift(length)].
func (s *Synthesizer) Shift(length int) int {
	return s.src.IntN(MaxShift(length) + 1)
}

// Synthesize returns base followed by n rotated variants of it. base itself
// is returned unmodified as the first element.
func (s *Synthesizer) Synthesize(base models.IntensitySequence, n int) []models.IntensitySequence {
	if n < 0 {
		n = 0
	}
	days := make([]models.IntensitySequence, 0, n+1)
	days = append(days, base)
	for i := 0; i < n; i++ {
		days = append(days, Rotate(base, s.Shift(len(base))))
	}
	return days
}

// Rotate moves every intensity value shift positions later, wrapping values
// past the end back to the start. The minute column is left unchanged.
func Rotate(seq models.IntensitySequence, shift int) models.IntensitySequence {
	n := len(seq)
	out := make(models.IntensitySequence, n)
	if n == 0 {
		return out
	}

	shift %= n
	if shift < 0 {
		shift += n
	}
	for i, sample := range seq {
		out[i].Minute = sample.Minute
		out[(i+shift)%n].Intensity = sample.Intensity
	}
	return out
}
