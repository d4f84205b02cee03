package models

// IntensitySource is either a single intensity file or a directory of
// per-day intensity files.
type IntensitySource struct {
	Path string `json:"path" yaml:"path"`
	Dir  bool   `json:"dir" yaml:"dir"`
}

// AnalysisConfiguration selects the inputs and the algorithm of one analysis.
// It is a value: every change produces a new configuration, so readers never
// observe a half-updated one.
type AnalysisConfiguration struct {
	TurnaroundFile string          `json:"turnaround_file" yaml:"turnaround_file"`
	Intensity      IntensitySource `json:"intensity" yaml:"intensity"`
	Algorithm      Algorithm       `json:"algorithm" yaml:"algorithm"`
}

// WithAlgorithm returns a copy of the configuration using alg.
func (c AnalysisConfiguration) WithAlgorithm(alg Algorithm) AnalysisConfiguration {
	c.Algorithm = alg
	return c
}

// WithInputs returns a copy of the configuration reading from the given files.
func (c AnalysisConfiguration) WithInputs(turnaroundFile string, intensity IntensitySource) AnalysisConfiguration {
	c.TurnaroundFile = turnaroundFile
	c.Intensity = intensity
	return c
}
