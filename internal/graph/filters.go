package graph

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// PeakingFilter is a second-order peaking EQ band built on an algo-dsp
// biquad section per channel. At 0 dB it is an exact identity.
type PeakingFilter struct {
	id         NodeID
	sampleRate float64
	freq       float64
	q          float64
	gainDB     float64

	coeffs   biquad.Coefficients
	sections []*biquad.Section // one per channel, grown on demand
}

// NewPeakingFilter creates a peaking filter centred on freq
func NewPeakingFilter(id NodeID, sampleRate, freq, q, gainDB float64) *PeakingFilter {
	f := &PeakingFilter{
		id:         id,
		sampleRate: sampleRate,
		freq:       freq,
		q:          q,
	}
	f.SetGain(gainDB)
	return f
}

func (f *PeakingFilter) ID() NodeID { return f.id }

// Frequency returns the centre frequency in Hz
func (f *PeakingFilter) Frequency() float64 { return f.freq }

// Gain returns the band gain in dB
func (f *PeakingFilter) Gain() float64 { return f.gainDB }

// Coefficients returns the current normalised coefficients
func (f *PeakingFilter) Coefficients() biquad.Coefficients { return f.coeffs }

// SetGain retunes the filter to gainDB. Section state is kept so a gain
// change does not click.
func (f *PeakingFilter) SetGain(gainDB float64) {
	f.gainDB = gainDB

	// A centre above Nyquist would design to a pass-through, so pin it
	// just below
	freq := math.Min(f.freq, f.sampleRate*0.49)
	f.coeffs = design.Peak(freq, gainDB, f.q, f.sampleRate)
	for _, s := range f.sections {
		s.Coefficients = f.coeffs
	}
}

// Process filters the block in place
func (f *PeakingFilter) Process(b Block) {
	for len(f.sections) < len(b) {
		f.sections = append(f.sections, biquad.NewSection(f.coeffs))
	}
	for ch, samples := range b {
		s := f.sections[ch]
		for i, x := range samples {
			samples[i] = s.ProcessSample(x)
		}
		s.FlushDenormals()
	}
}

// Reset clears the filter memory
func (f *PeakingFilter) Reset() {
	for _, s := range f.sections {
		s.Reset()
	}
}

// Response returns the complex frequency response at hz
func (f *PeakingFilter) Response(hz float64) complex128 {
	return f.coeffs.Response(hz, f.sampleRate)
}

// FilterBank is the fixed, ordered set of peaking filters, one per band
type FilterBank struct {
	filters [NumBands]*PeakingFilter
}

// NewFilterBank creates one filter per entry of BandFrequencies
func NewFilterBank(sampleRate float64, gains [NumBands]float64) *FilterBank {
	fb := &FilterBank{}
	for i, freq := range BandFrequencies {
		fb.filters[i] = NewPeakingFilter(BandNodeID(i), sampleRate, freq, BandQ, ClampBandGain(gains[i]))
	}
	return fb
}

// SetBandGain retunes only band index; out-of-range indices are ignored
func (fb *FilterBank) SetBandGain(index int, dB float64) {
	if index < 0 || index >= NumBands {
		return
	}
	fb.filters[index].SetGain(ClampBandGain(dB))
}

// BandGain returns the gain of band index in dB
func (fb *FilterBank) BandGain(index int) float64 {
	if index < 0 || index >= NumBands {
		return 0
	}
	return fb.filters[index].Gain()
}

// Gains returns every band gain in band order
func (fb *FilterBank) Gains() [NumBands]float64 {
	var g [NumBands]float64
	for i, f := range fb.filters {
		g[i] = f.Gain()
	}
	return g
}

// Nodes returns the filters in connection order
func (fb *FilterBank) Nodes() []Node {
	nodes := make([]Node, NumBands)
	for i, f := range fb.filters {
		nodes[i] = f
	}
	return nodes
}

// ResponseDB returns the combined magnitude response of all bands at hz
func (fb *FilterBank) ResponseDB(hz float64) float64 {
	h := complex(1, 0)
	for _, f := range fb.filters {
		h *= f.Response(hz)
	}
	return 20 * math.Log10(math.Max(1e-12, cmplx.Abs(h)))
}
