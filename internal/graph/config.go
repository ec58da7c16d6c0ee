// Package graph implements the playback signal chain: a peaking EQ filter
// bank, three gain stages and a spectral analysis tap, wired together by
// a Router.
package graph

// NumBands is the fixed number of EQ bands
const NumBands = 5

// BandFrequencies are the EQ band centre frequencies in Hz, lowest first.
// The order is the band index order everywhere in the package.
var BandFrequencies = [NumBands]float64{60, 250, 1000, 4000, 16000}

// Parameter bounds mirror the player's slider ranges
const (
	MinBandGainDB = -20.0
	MaxBandGainDB = 20.0

	MinPreampGain = 0.5
	MaxPreampGain = 1.5

	MinMasterVolume = 0.0
	MaxMasterVolume = 1.0

	// BandQ is the bandwidth of every peaking filter
	BandQ = 1.0
)

// Config is the declarative state the Router assembles the graph from
type Config struct {
	// Topology switches
	EQEnabled      bool
	AmpEnabled     bool
	DuckingEnabled bool

	// BandGains holds one gain in dB per entry of BandFrequencies
	BandGains [NumBands]float64

	// PreampGain is a linear multiplier, applied only when AmpEnabled
	PreampGain float64

	// MasterVolume is a linear multiplier; Muted forces the effective
	// master gain to zero without touching the stored volume
	MasterVolume float64
	Muted        bool
}

// DefaultConfig returns a flat, unity-gain configuration with EQ enabled
func DefaultConfig() Config {
	return Config{
		EQEnabled:    true,
		PreampGain:   1.0,
		MasterVolume: 1.0,
	}
}

// EffectiveMaster returns the gain the master stage actually applies
func (c Config) EffectiveMaster() float64 {
	if c.Muted {
		return 0
	}
	return c.MasterVolume
}

// EffectivePreamp returns the gain the preamp stage actually applies
func (c Config) EffectivePreamp() float64 {
	if !c.AmpEnabled {
		return 1
	}
	return c.PreampGain
}

// Clamp returns a copy of c with every value inside its bounds.
// Out-of-range values are accepted and clamped, never rejected.
func (c Config) Clamp() Config {
	for i := range c.BandGains {
		c.BandGains[i] = ClampBandGain(c.BandGains[i])
	}
	c.PreampGain = clamp(c.PreampGain, MinPreampGain, MaxPreampGain)
	c.MasterVolume = clamp(c.MasterVolume, MinMasterVolume, MaxMasterVolume)
	return c
}

// TopologyChanged reports whether moving from a to b needs the chain to
// be rebuilt rather than mutated in place
func TopologyChanged(a, b Config) bool {
	return a.EQEnabled != b.EQEnabled || a.AmpEnabled != b.AmpEnabled
}

// ClampBandGain limits a band gain to [MinBandGainDB, MaxBandGainDB]
func ClampBandGain(dB float64) float64 {
	return clamp(dB, MinBandGainDB, MaxBandGainDB)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v != v: // NaN
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
