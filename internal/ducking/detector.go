// Package ducking decides when background audio should be lowered because
// the programme material looks like speech.
//
// Each display frame the spectrum is reduced to a voice ratio, the share
// of energy inside the speech formant band. A leaky frame counter rises
// while the ratio is above threshold and falls otherwise, and a two-state
// machine with a hysteresis dead zone turns the counter into a stable
// on/off decision.
package ducking

// Params holds the detector tuning. The defaults are reasonable rather
// than load-bearing; every value can be overridden.
type Params struct {
	// VoiceLowHz and VoiceHighHz bound the formant band, inclusive
	VoiceLowHz  float64
	VoiceHighHz float64

	// Threshold is the voice ratio a frame must exceed to count as voice
	Threshold float64

	// MaxFrames caps the frame counter
	MaxFrames int

	// ActivateAbove and DeactivateBelow are the hysteresis edges: the
	// detector turns on when the counter exceeds ActivateAbove and off
	// when it drops below DeactivateBelow
	ActivateAbove   int
	DeactivateBelow int
}

// DefaultParams returns the standard tuning
func DefaultParams() Params {
	return Params{
		VoiceLowHz:      300,
		VoiceHighHz:     3400,
		Threshold:       0.35,
		MaxFrames:       20,
		ActivateAbove:   10,
		DeactivateBelow: 5,
	}
}

// VoiceRatio returns the fraction of spectral energy inside the voice
// band. Bin i is centred on i*sampleRate/fftSize. A silent frame has a
// ratio of 0.
func (p Params) VoiceRatio(frame []uint8, sampleRate float64, fftSize int) float64 {
	var total, voice float64
	for i, v := range frame {
		e := float64(v) * float64(v)
		total += e
		hz := float64(i) * sampleRate / float64(fftSize)
		if hz >= p.VoiceLowHz && hz <= p.VoiceHighHz {
			voice += e
		}
	}
	if total <= 0 {
		return 0
	}
	return voice / total
}

// State is the debounced ducking decision
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Detector is the leaky frame counter plus hysteresis state machine.
// It is not safe for concurrent use.
type Detector struct {
	params Params
	frames int
	state  State
}

// NewDetector creates a detector in the inactive state
func NewDetector(p Params) *Detector {
	return &Detector{params: p}
}

// Step feeds one frame's voice ratio and reports the resulting decision
// and whether it changed on this step
func (d *Detector) Step(ratio float64) (active, changed bool) {
	if ratio > d.params.Threshold {
		d.frames = min(d.frames+1, d.params.MaxFrames)
	} else {
		d.frames = max(d.frames-1, 0)
	}

	prev := d.state
	switch {
	case d.state == Inactive && d.frames > d.params.ActivateAbove:
		d.state = Active
	case d.state == Active && d.frames < d.params.DeactivateBelow:
		d.state = Inactive
	}
	return d.state == Active, d.state != prev
}

// Frames returns the current counter value
func (d *Detector) Frames() int { return d.frames }

// State returns the current decision
func (d *Detector) State() State { return d.state }

// Active reports whether ducking is engaged
func (d *Detector) Active() bool { return d.state == Active }

// Reset returns the detector to {0, inactive} immediately
func (d *Detector) Reset() {
	d.frames = 0
	d.state = Inactive
}
