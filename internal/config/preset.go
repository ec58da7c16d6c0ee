// Package config loads and saves graph presets as YAML
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
	"gopkg.in/yaml.v3"
)

// ErrPresetNotFound is returned for unknown built-in preset names
var ErrPresetNotFound = errors.New("preset not found")

// Preset is the on-disk form of a graph configuration plus ducking tuning
type Preset struct {
	Name    string        `yaml:"name,omitempty"`
	EQ      PresetEQ      `yaml:"eq"`
	Amp     PresetAmp     `yaml:"amp"`
	Output  PresetOutput  `yaml:"output"`
	Ducking PresetDucking `yaml:"ducking"`
}

type PresetEQ struct {
	Enabled bool      `yaml:"enabled"`
	Bands   []float64 `yaml:"bands,flow"` // dB, one per band from 60 Hz up
}

type PresetAmp struct {
	Enabled bool    `yaml:"enabled"`
	Preamp  float64 `yaml:"preamp"`
}

type PresetOutput struct {
	Volume float64 `yaml:"volume"`
	Muted  bool    `yaml:"muted"`
}

// PresetDucking holds optional detector overrides; zero values keep the
// defaults
type PresetDucking struct {
	Enabled     bool    `yaml:"enabled"`
	Threshold   float64 `yaml:"threshold,omitempty"`
	DuckedGain  float64 `yaml:"ducked_gain,omitempty"`
	VoiceLowHz  float64 `yaml:"voice_low_hz,omitempty"`
	VoiceHighHz float64 `yaml:"voice_high_hz,omitempty"`
}

// builtins are the presets shipped with airwave
var builtins = map[string]Preset{
	"flat": {
		EQ:     PresetEQ{Enabled: true, Bands: []float64{0, 0, 0, 0, 0}},
		Amp:    PresetAmp{Preamp: 1},
		Output: PresetOutput{Volume: 1},
	},
	"voice": {
		EQ:      PresetEQ{Enabled: true, Bands: []float64{-6, -2, 3, 4, -2}},
		Amp:     PresetAmp{Preamp: 1},
		Output:  PresetOutput{Volume: 1},
		Ducking: PresetDucking{Enabled: true},
	},
	"bass": {
		EQ:     PresetEQ{Enabled: true, Bands: []float64{6, 3, 0, 0, 0}},
		Amp:    PresetAmp{Preamp: 1},
		Output: PresetOutput{Volume: 1},
	},
	"radio": {
		EQ:     PresetEQ{Enabled: true, Bands: []float64{-12, 0, 4, 2, -12}},
		Amp:    PresetAmp{Enabled: true, Preamp: 1.2},
		Output: PresetOutput{Volume: 0.9},
	},
}

// Names returns the built-in preset names in order
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a copy of the named built-in preset
func Builtin(name string) (Preset, error) {
	p, ok := builtins[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (available: %v)", ErrPresetNotFound, name, Names())
	}
	p.Name = name
	p.EQ.Bands = append([]float64(nil), p.EQ.Bands...)
	return p, nil
}

// FromConfig captures a graph configuration as a preset
func FromConfig(name string, cfg graph.Config) Preset {
	return Preset{
		Name:    name,
		EQ:      PresetEQ{Enabled: cfg.EQEnabled, Bands: append([]float64(nil), cfg.BandGains[:]...)},
		Amp:     PresetAmp{Enabled: cfg.AmpEnabled, Preamp: cfg.PreampGain},
		Output:  PresetOutput{Volume: cfg.MasterVolume, Muted: cfg.Muted},
		Ducking: PresetDucking{Enabled: cfg.DuckingEnabled},
	}
}

// GraphConfig converts the preset to a clamped graph configuration
func (p Preset) GraphConfig() graph.Config {
	cfg := graph.Config{
		EQEnabled:      p.EQ.Enabled,
		AmpEnabled:     p.Amp.Enabled,
		DuckingEnabled: p.Ducking.Enabled,
		PreampGain:     p.Amp.Preamp,
		MasterVolume:   p.Output.Volume,
		Muted:          p.Output.Muted,
	}
	copy(cfg.BandGains[:], p.EQ.Bands)
	return cfg.Clamp()
}

// DuckingParams returns the detector tuning with any overrides applied
func (p Preset) DuckingParams() ducking.Params {
	params := ducking.DefaultParams()
	if p.Ducking.Threshold > 0 {
		params.Threshold = p.Ducking.Threshold
	}
	if p.Ducking.VoiceLowHz > 0 {
		params.VoiceLowHz = p.Ducking.VoiceLowHz
	}
	if p.Ducking.VoiceHighHz > 0 {
		params.VoiceHighHz = p.Ducking.VoiceHighHz
	}
	return params
}

// DuckedGain returns the ducking attenuation, defaulting to 1/3
func (p Preset) DuckedGain() float64 {
	if p.Ducking.DuckedGain > 0 && p.Ducking.DuckedGain <= 1 {
		return p.Ducking.DuckedGain
	}
	return graph.DefaultDuckedGain
}

// Validate checks structural problems that clamping cannot fix
func (p Preset) Validate() error {
	if n := len(p.EQ.Bands); n != 0 && n != graph.NumBands {
		return fmt.Errorf("eq.bands: expected %d values, got %d", graph.NumBands, n)
	}
	if p.Ducking.VoiceLowHz > 0 && p.Ducking.VoiceHighHz > 0 && p.Ducking.VoiceLowHz >= p.Ducking.VoiceHighHz {
		return fmt.Errorf("ducking: voice band %.0f-%.0f Hz is empty", p.Ducking.VoiceLowHz, p.Ducking.VoiceHighHz)
	}
	return nil
}

// Default returns the preset equivalent of graph.DefaultConfig
func Default() Preset {
	return FromConfig("", graph.DefaultConfig())
}

// Load reads a preset file. Keys the file leaves out keep their Default
// values; unknown keys are rejected.
func Load(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset: %w", err)
	}

	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Preset{}, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, fmt.Errorf("invalid preset %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path as YAML
func Save(path string, p Preset) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	return nil
}
