package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rewired-gh/busyhour/internal/models"
	"github.com/rewired-gh/busyhour/internal/plot"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAlgorithmsCommand(t *testing.T) {
	out, _, err := execute(t, "algorithms")
	if err != nil {
		t.Fatalf("algorithms failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != len(models.Algorithms) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(models.Algorithms), len(lines), out)
	}
	for i, alg := range models.Algorithms {
		if !strings.HasPrefix(lines[i], string(alg)) {
			t.Errorf("line %d: expected %s, got %q", i, alg, lines[i])
		}
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	scratch := t.TempDir()

	out, _, err := execute(t, "analyze",
		"--output", "json", "--days", "2", "--seed", "7",
		"--algorithm", "fdmh", "--scratch-dir", scratch)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var d plot.Descriptor
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("output is not a json descriptor: %v\n%s", err, out)
	}
	if d.Days != 3 {
		t.Errorf("expected 3 days, got %d", d.Days)
	}
	if d.Window.Algorithm != models.FDMH || d.Window.Length() != 60 {
		t.Errorf("unexpected window: %+v", d.Window)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch directory left behind: %v", entries)
	}
}

func TestSynthesizeCommand(t *testing.T) {
	dir := t.TempDir()
	intensity := filepath.Join(dir, "int.txt")
	var b strings.Builder
	for m := 1; m <= 30; m++ {
		fmt.Fprintf(&b, "%d %d,5\n", m, m)
	}
	if err := os.WriteFile(intensity, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "days")

	out, _, err := execute(t, "synthesize", "--intensity", intensity, "--days", "2", "--seed", "1", "--out", outDir)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	paths := strings.Fields(out)
	if len(paths) != 3 {
		t.Fatalf("expected 3 written files, got %v", paths)
	}
	base, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	original, err := os.ReadFile(intensity)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(base, original) {
		t.Errorf("first day differs from the observed day:\n%s", base)
	}
}
