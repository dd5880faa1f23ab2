package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a sonataforge config file and merges it over the defaults.
// Zero-valued fields in the file keep their default values.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	f := &File{Render: Default()}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&f.Render)
	return f, nil
}

// LoadDefault searches standard locations for a config file and loads the
// first one found. Search order: ./sonataforge.yaml, ~/.sonataforge/config.yaml.
// Returns stock defaults when no file exists.
func LoadDefault() (*File, error) {
	candidates := []string{"sonataforge.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".sonataforge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return &File{Render: Default()}, nil
}

// applyDefaults fills fields the YAML left at their zero value. A config
// file that only sets dpi should not zero out everything else.
func applyDefaults(rc *RenderConfig) {
	def := Default()

	if rc.Model == "" {
		rc.Model = def.Model
	}
	if rc.ReasoningEffort == "" {
		rc.ReasoningEffort = def.ReasoningEffort
	}
	if rc.SampleRate == 0 {
		rc.SampleRate = def.SampleRate
	}
	if rc.DPI == 0 {
		rc.DPI = def.DPI
	}
	if rc.VideoWidth == 0 {
		rc.VideoWidth = def.VideoWidth
	}
	if rc.VideoHeight == 0 {
		rc.VideoHeight = def.VideoHeight
	}
	if rc.MontagePages == 0 {
		rc.MontagePages = def.MontagePages
	}
	if rc.MaxGenerationAttempts == 0 {
		rc.MaxGenerationAttempts = def.MaxGenerationAttempts
	}
	if rc.LHScale == 0 {
		rc.LHScale = def.LHScale
	}
	if rc.RHScale == 0 {
		rc.RHScale = def.RHScale
	}
	if rc.SynthGain == 0 {
		rc.SynthGain = def.SynthGain
	}
}
