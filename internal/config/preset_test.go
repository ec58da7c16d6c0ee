package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
)

func writePreset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write preset: %v", err)
	}
	return path
}

func TestBuiltins(t *testing.T) {
	names := Names()
	want := []string{"bass", "flat", "radio", "voice"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("Names() = %v, want %v", names, want)
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			p, err := Builtin(name)
			if err != nil {
				t.Fatalf("Builtin: %v", err)
			}
			if p.Name != name {
				t.Errorf("name = %q", p.Name)
			}
			if err := p.Validate(); err != nil {
				t.Errorf("built-in preset invalid: %v", err)
			}
			cfg := p.GraphConfig()
			if cfg.PreampGain != p.Amp.Preamp || cfg.MasterVolume != p.Output.Volume {
				t.Errorf("built-in preset needs clamping: %+v", p)
			}
		})
	}

	// Builtin returns a copy
	p, _ := Builtin("bass")
	p.EQ.Bands[0] = -20
	again, _ := Builtin("bass")
	if again.EQ.Bands[0] != 6 {
		t.Error("modifying a built-in preset changed the original")
	}
}

func TestBuiltinNotFound(t *testing.T) {
	_, err := Builtin("loud")
	if !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("err = %v, want ErrPresetNotFound", err)
	}
}

func TestSaveLoad(t *testing.T) {
	cfg := graph.DefaultConfig()
	cfg.AmpEnabled = true
	cfg.PreampGain = 1.25
	cfg.BandGains = [graph.NumBands]float64{3, -1.5, 0, 2, -4}
	cfg.MasterVolume = 0.7
	cfg.DuckingEnabled = true

	path := filepath.Join(t.TempDir(), "mine.yaml")
	if err := Save(path, FromConfig("mine", cfg)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "mine" {
		t.Errorf("name = %q, want mine", p.Name)
	}
	if got := p.GraphConfig(); got != cfg {
		t.Errorf("config = %+v, want %+v", got, cfg)
	}
}

func TestLoadHandWritten(t *testing.T) {
	path := writePreset(t, `
name: podcast
eq:
  enabled: true
  bands: [-3, 0, 2, 40, 0]
amp:
  enabled: false
  preamp: 1
output:
  volume: 2
ducking:
  enabled: true
  threshold: 0.5
  ducked_gain: 0.25
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := p.GraphConfig()
	if cfg.BandGains[3] != graph.MaxBandGainDB {
		t.Errorf("band 3 = %v, want clamped to %v", cfg.BandGains[3], graph.MaxBandGainDB)
	}
	if cfg.MasterVolume != graph.MaxMasterVolume {
		t.Errorf("volume = %v, want clamped to %v", cfg.MasterVolume, graph.MaxMasterVolume)
	}
	if !cfg.DuckingEnabled {
		t.Error("ducking should be enabled")
	}

	params := p.DuckingParams()
	if params.Threshold != 0.5 {
		t.Errorf("threshold = %v, want 0.5", params.Threshold)
	}
	if params.VoiceLowHz != ducking.DefaultParams().VoiceLowHz {
		t.Errorf("voice low = %v, want default", params.VoiceLowHz)
	}
	if g := p.DuckedGain(); g != 0.25 {
		t.Errorf("ducked gain = %v, want 0.25", g)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(graph.Config) bool
	}{
		{
			name: "eq only",
			body: "eq:\n  enabled: true\n  bands: [0, 0, 3, 0, 0]\n",
			check: func(c graph.Config) bool {
				return c.MasterVolume == 1 && c.PreampGain == 1 && c.EffectiveMaster() == 1 && c.BandGains[2] == 3
			},
		},
		{
			name: "nested key only",
			body: "amp:\n  enabled: true\n",
			check: func(c graph.Config) bool {
				return c.AmpEnabled && c.PreampGain == 1 && c.EQEnabled
			},
		},
		{
			name: "ducking only",
			body: "ducking:\n  enabled: true\n",
			check: func(c graph.Config) bool {
				return c.DuckingEnabled && c.MasterVolume == 1 && c.BandGains == [graph.NumBands]float64{}
			},
		},
		{
			name:  "empty file",
			body:  "",
			check: func(c graph.Config) bool { return c == graph.DefaultConfig() },
		},
		{
			name:  "explicit zero volume",
			body:  "output:\n  volume: 0\n",
			check: func(c graph.Config) bool { return c.MasterVolume == 0 && !c.Muted },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(writePreset(t, tt.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			cfg := p.GraphConfig()
			t.Logf("config %+v", cfg)
			if !tt.check(cfg) {
				t.Errorf("unexpected config: %+v", cfg)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "eq:\n  enabled: true\n  treble: 4\n", "treble"},
		{"wrong band count", "eq:\n  bands: [1, 2, 3]\n", "expected 5 values"},
		{"empty voice band", "ducking:\n  voice_low_hz: 3000\n  voice_high_hz: 300\n", "voice band"},
		{"not yaml", "eq: [unterminated\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writePreset(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want os.ErrNotExist", err)
	}
}

func TestDuckedGainDefaults(t *testing.T) {
	tests := []struct {
		name string
		gain float64
		want float64
	}{
		{"unset", 0, graph.DefaultDuckedGain},
		{"negative", -1, graph.DefaultDuckedGain},
		{"above unity", 1.5, graph.DefaultDuckedGain},
		{"set", 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Preset{Ducking: PresetDucking{DuckedGain: tt.gain}}
			if got := p.DuckedGain(); got != tt.want {
				t.Errorf("DuckedGain = %v, want %v", got, tt.want)
			}
		})
	}
}
