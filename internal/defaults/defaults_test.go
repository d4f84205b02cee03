package defaults

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rewired-gh/busyhour/internal/parser"
)

type dirWriter string

func (d dirWriter) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(string(d), name)
	return path, os.WriteFile(path, data, 0o644)
}

func TestMaterializeParses(t *testing.T) {
	files, err := Materialize(dirWriter(t.TempDir()))
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	avg, err := parser.EstimateTurnaround(files.Turnaround, parser.TurnaroundOptions())
	if err != nil {
		t.Fatalf("built-in turnaround file does not parse: %v", err)
	}
	if avg <= 0 {
		t.Errorf("expected positive mean turnaround, got %v", avg)
	}

	seq, err := parser.ParseIntensity(files.Intensity, parser.IntensityOptions())
	if err != nil {
		t.Fatalf("built-in intensity file does not parse: %v", err)
	}
	if len(seq) != 1440 {
		t.Errorf("expected a full day of 1440 minutes, got %d", len(seq))
	}
}
