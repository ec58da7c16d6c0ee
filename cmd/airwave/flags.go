package main

import (
	"fmt"

	"github.com/linuxmatters/airwave/internal/audio"
	"github.com/linuxmatters/airwave/internal/config"
	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
	"github.com/linuxmatters/airwave/internal/logging"
	"github.com/linuxmatters/airwave/internal/session"
)

// GraphFlags are the audio graph settings shared by play and render.
// A preset supplies the starting point; explicit flags override it.
type GraphFlags struct {
	Config  string    `short:"c" type:"existingfile" help:"Path to a YAML preset file" placeholder:"FILE"`
	Preset  string    `short:"p" help:"Built-in preset: flat, voice, bass or radio" default:"flat" placeholder:"NAME"`
	NoEQ    bool      `name:"no-eq" help:"Bypass the equaliser"`
	Amp     bool      `help:"Enable the preamp stage"`
	Preamp  *float64  `help:"Preamp gain, 0.5 to 1.5 (enables the preamp)" placeholder:"GAIN"`
	Bands   []float64 `help:"EQ gains in dB for the 60,250,1k,4k,16k Hz bands" placeholder:"DB,DB,DB,DB,DB"`
	Volume  *float64  `help:"Master volume, 0 to 1" placeholder:"LEVEL"`
	Mute    bool      `help:"Start muted"`
	Ducking bool      `help:"Enable auto-ducking"`
}

// resolve loads the preset and applies flag overrides, returning the
// preset (for ducking tuning) and the clamped graph configuration
func (f GraphFlags) resolve() (config.Preset, graph.Config, error) {
	var (
		preset config.Preset
		err    error
	)
	if f.Config != "" {
		preset, err = config.Load(f.Config)
	} else {
		preset, err = config.Builtin(f.Preset)
	}
	if err != nil {
		return config.Preset{}, graph.Config{}, err
	}

	cfg := preset.GraphConfig()
	if f.NoEQ {
		cfg.EQEnabled = false
	}
	if f.Amp {
		cfg.AmpEnabled = true
	}
	if f.Preamp != nil {
		cfg.AmpEnabled = true
		cfg.PreampGain = *f.Preamp
	}
	if len(f.Bands) > 0 {
		if len(f.Bands) != graph.NumBands {
			return config.Preset{}, graph.Config{}, fmt.Errorf("--bands: expected %d values, got %d", graph.NumBands, len(f.Bands))
		}
		copy(cfg.BandGains[:], f.Bands)
	}
	if f.Volume != nil {
		cfg.MasterVolume = *f.Volume
	}
	if f.Mute {
		cfg.Muted = true
	}
	if f.Ducking {
		cfg.DuckingEnabled = true
	}
	return preset, cfg.Clamp(), nil
}

// sessionOptions builds session options for a track. ticks is nil for
// offline rendering.
func sessionOptions(meta *audio.Metadata, preset config.Preset, ticks ducking.TickSource, log *logging.Logger) session.Options {
	return session.Options{
		SampleRate: float64(meta.SampleRate),
		Channels:   meta.Channels,
		Params:     preset.DuckingParams(),
		DuckedGain: preset.DuckedGain(),
		Ticks:      ticks,
		Logger:     log,
	}
}
