package ducking

import (
	"sync"
	"time"

	"github.com/linuxmatters/airwave/internal/logging"
	"go.uber.org/zap"
)

// FrameSource supplies spectral frames. graph.Analyzer satisfies it.
type FrameSource interface {
	Frame(dst []uint8) int
	SampleRate() float64
	FrequencyBinCount() int
}

// Stats summarises what the monitor has seen since it was created
type Stats struct {
	Ticks       int     // analysis steps run
	ActiveTicks int     // steps that ended with ducking engaged
	Transitions int     // state changes, in either direction
	EmptyFrames int     // steps where no frame was available
	RatioSum    float64 // running sum of voice ratios
}

// MeanVoiceRatio returns the average voice ratio over all ticks
func (s Stats) MeanVoiceRatio() float64 {
	if s.Ticks == 0 {
		return 0
	}
	return s.RatioSum / float64(s.Ticks)
}

// ActiveShare returns the fraction of ticks spent ducked
func (s Stats) ActiveShare() float64 {
	if s.Ticks == 0 {
		return 0
	}
	return float64(s.ActiveTicks) / float64(s.Ticks)
}

// Monitor runs the detector once per tick against a frame source and
// reports decision changes through onChange. onChange is called without
// any monitor lock held.
type Monitor struct {
	mu       sync.Mutex
	log      *logging.Logger
	source   FrameSource
	params   Params
	detector *Detector
	frame    []uint8
	onChange func(active bool)
	stats    Stats

	// Loop control, nil while stopped
	ticks TickSource
	stop  chan struct{}
	done  chan struct{}
}

// NewMonitor creates a stopped monitor
func NewMonitor(source FrameSource, params Params, onChange func(active bool), log *logging.Logger) *Monitor {
	bins := 0
	if source != nil {
		bins = source.FrequencyBinCount()
	}
	return &Monitor{
		log:      logging.OrNop(log),
		source:   source,
		params:   params,
		detector: NewDetector(params),
		frame:    make([]uint8, bins),
		onChange: onChange,
	}
}

// Tick runs one analysis step: pull a frame, compute the voice ratio,
// advance the detector and propagate a decision change
func (m *Monitor) Tick() (ratio float64, active bool) {
	m.mu.Lock()
	var changed bool
	if m.source != nil && m.source.Frame(m.frame) > 0 {
		ratio = m.params.VoiceRatio(m.frame, m.source.SampleRate(), 2*len(m.frame))
	} else {
		m.stats.EmptyFrames++
	}
	active, changed = m.detector.Step(ratio)

	m.stats.Ticks++
	m.stats.RatioSum += ratio
	if active {
		m.stats.ActiveTicks++
	}
	if changed {
		m.stats.Transitions++
	}
	frames := m.detector.Frames()
	m.mu.Unlock()

	if changed {
		m.log.Debug("ducking state changed",
			zap.Bool("active", active),
			zap.Int("frames", frames),
			zap.Float64("voice_ratio", ratio),
		)
		if m.onChange != nil {
			m.onChange(active)
		}
	}
	return ratio, active
}

// Start runs Tick for every tick delivered by ts until Stop. Starting a
// running monitor does nothing.
func (m *Monitor) Start(ts TickSource) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.ticks, m.stop, m.done = ts, stop, done
	ticks := ts.Start()
	m.mu.Unlock()

	go m.loop(ticks, stop, done)
}

func (m *Monitor) loop(ticks <-chan time.Time, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			m.Tick()
		}
	}
}

// Stop cancels the tick loop, waits for it to exit and resets the
// detector. If ducking was engaged, onChange(false) is called before
// Stop returns, so audio is never left attenuated without analysis.
// Stop must not be called from onChange.
func (m *Monitor) Stop() {
	m.mu.Lock()
	ts, stop, done := m.ticks, m.stop, m.done
	m.ticks, m.stop, m.done = nil, nil, nil
	m.mu.Unlock()

	if done != nil {
		close(stop)
		ts.Stop()
		<-done
	}

	m.mu.Lock()
	wasActive := m.detector.Active()
	m.detector.Reset()
	if wasActive {
		m.stats.Transitions++
	}
	m.mu.Unlock()

	if wasActive && m.onChange != nil {
		m.log.Debug("ducking released on stop")
		m.onChange(false)
	}
}

// Running reports whether the tick loop is active
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done != nil
}

// Active reports the current decision
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detector.Active()
}

// Frames returns the detector's frame counter
func (m *Monitor) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detector.Frames()
}

// Stats returns a snapshot of the monitor statistics
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
