package graph

import (
	"math"
	"testing"
)

// TestSignalOptions configures a synthetic test signal
type TestSignalOptions struct {
	SampleRate float64 // default: 44100
	Frames     int     // default: 4096
	Channels   int     // default: 1
	Tones      []float64
	ToneLevel  float64 // dBFS per tone (default: -12)
	NoiseLevel float64 // dBFS white noise (0 = no noise)
}

// generateTestSignal builds a planar block of summed sine tones and
// optional deterministic noise
func generateTestSignal(t *testing.T, opts TestSignalOptions) Block {
	t.Helper()

	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.Frames == 0 {
		opts.Frames = 4096
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}
	if opts.ToneLevel == 0 {
		opts.ToneLevel = -12
	}

	toneAmp := math.Pow(10, opts.ToneLevel/20)
	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10, opts.NoiseLevel/20)
	}

	// LCG from Numerical Recipes, deterministic across runs
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	b := NewBlock(opts.Channels, opts.Frames)
	for i := 0; i < opts.Frames; i++ {
		tm := float64(i) / opts.SampleRate
		var s float64
		for _, f := range opts.Tones {
			s += toneAmp * math.Sin(2*math.Pi*f*tm)
		}
		if noiseAmp > 0 {
			s += noiseAmp * nextRandom()
		}
		for ch := range b {
			b[ch][i] = s
		}
	}
	return b
}

// cloneBlock deep-copies a block
func cloneBlock(b Block) Block {
	out := NewBlock(len(b), b.Frames())
	for ch := range b {
		copy(out[ch], b[ch])
	}
	return out
}

// rms returns the RMS level over all channels
func rms(b Block) float64 {
	var sum float64
	var n int
	for _, ch := range b {
		for _, s := range ch {
			sum += s * s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// processInChunks feeds a block through fn in fixed-size chunks, the
// way an audio callback would
func processInChunks(b Block, chunk int, fn func(Block)) {
	for start := 0; start < b.Frames(); start += chunk {
		end := min(start+chunk, b.Frames())
		view := make(Block, len(b))
		for ch := range b {
			view[ch] = b[ch][start:end]
		}
		fn(view)
	}
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
