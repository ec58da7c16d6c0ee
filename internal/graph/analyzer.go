package graph

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser parameters, matching a browser AnalyserNode
const (
	// FFTSize is the transform length in samples
	FFTSize = 256

	// FrequencyBinCount is the number of magnitudes in a spectral frame
	FrequencyBinCount = FFTSize / 2

	// MinDecibels and MaxDecibels map onto byte values 0 and 255
	MinDecibels = -100.0
	MaxDecibels = -30.0

	// SmoothingTimeConstant blends each frame with the previous one
	SmoothingTimeConstant = 0.8
)

// Analyzer is a pass-through tap that keeps the most recent FFTSize
// samples (mono downmix). Every FFTSize captured samples it transforms the
// buffer and advances the smoothed spectrum, so the spectrum follows the
// sample clock. Frame only copies the latest snapshot; any number of
// readers see the same data. Frame and Process may run on different
// goroutines.
type Analyzer struct {
	mu         sync.Mutex
	sampleRate float64

	ring    [FFTSize]float64
	pos     int
	pending int // samples captured since the last transform

	fft      *fourier.FFT
	windowed []float64
	coeffs   []complex128
	smoothed []float64

	snapshot [FrequencyBinCount]uint8
	updates  int
}

// NewAnalyzer creates an analyser for audio at sampleRate
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(FFTSize),
		windowed:   make([]float64, FFTSize),
		coeffs:     make([]complex128, FFTSize/2+1),
		smoothed:   make([]float64, FrequencyBinCount),
	}
}

func (a *Analyzer) ID() NodeID { return NodeAnalyser }

// SampleRate returns the rate of the audio being analysed
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// FrequencyBinCount returns the length of a spectral frame
func (a *Analyzer) FrequencyBinCount() int { return FrequencyBinCount }

// BinFrequency returns the centre frequency of bin i in Hz
func (a *Analyzer) BinFrequency(i int) float64 {
	return float64(i) * a.sampleRate / FFTSize
}

// Process captures the block into the ring buffer. Audio passes through
// untouched.
func (a *Analyzer) Process(b Block) {
	frames := b.Frames()
	if frames == 0 {
		return
	}
	scale := 1.0 / float64(len(b))

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < frames; i++ {
		var sum float64
		for _, ch := range b {
			sum += ch[i]
		}
		a.ring[a.pos] = sum * scale
		a.pos = (a.pos + 1) % FFTSize

		a.pending++
		if a.pending == FFTSize {
			a.pending = 0
			a.analyse()
		}
	}
}

// analyse transforms the ring buffer and advances the smoothed snapshot.
// Callers hold mu.
func (a *Analyzer) analyse() {
	// Oldest sample first
	for i := range a.windowed {
		a.windowed[i] = a.ring[(a.pos+i)%FFTSize]
	}
	window.Blackman(a.windowed)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.windowed)

	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) / FFTSize
		a.smoothed[k] = SmoothingTimeConstant*a.smoothed[k] + (1-SmoothingTimeConstant)*mag
		a.snapshot[k] = toByte(a.smoothed[k])
	}
	a.updates++
}

// Frame copies the current byte spectrum into dst and returns the number
// of bins written. Until FFTSize samples have been captured the frame is
// all zeros and Frame returns 0; callers treat that as "no frame
// available". Frame never changes the analyser state.
func (a *Analyzer) Frame(dst []uint8) int {
	if a == nil {
		clear(dst)
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.updates == 0 {
		clear(dst)
		return 0
	}
	return copy(dst, a.snapshot[:])
}

// Updates returns how many spectra have been computed since the last
// Reset
func (a *Analyzer) Updates() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updates
}

// Reset discards captured audio and smoothing history
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring = [FFTSize]float64{}
	a.pos = 0
	a.pending = 0
	a.updates = 0
	a.snapshot = [FrequencyBinCount]uint8{}
	clear(a.smoothed)
}

// toByte maps a linear magnitude onto [0, 255] over the decibel window
func toByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
	switch {
	case scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	}
	return uint8(scaled)
}
