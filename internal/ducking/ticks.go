package ducking

import "time"

// DefaultFrameRate is the display refresh rate the analysis runs at
const DefaultFrameRate = 60.0

// TickSource is any periodic callback mechanism. Start returns the tick
// channel; Stop halts delivery. A TickSource is started at most once at
// a time.
type TickSource interface {
	Start() <-chan time.Time
	Stop()
}

// FrameTicker ticks at a fixed display rate using a time.Ticker
type FrameTicker struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewFrameTicker creates a ticker firing rate times per second
func NewFrameTicker(rate float64) *FrameTicker {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return &FrameTicker{interval: time.Duration(float64(time.Second) / rate)}
}

// Interval returns the time between ticks
func (f *FrameTicker) Interval() time.Duration { return f.interval }

func (f *FrameTicker) Start() <-chan time.Time {
	f.ticker = time.NewTicker(f.interval)
	return f.ticker.C
}

func (f *FrameTicker) Stop() {
	if f.ticker != nil {
		f.ticker.Stop()
		f.ticker = nil
	}
}

// ManualTicks is a TickSource driven by the caller, for tests and
// offline rendering
type ManualTicks struct {
	c chan time.Time
}

// NewManualTicks creates an unbuffered manual tick source
func NewManualTicks() *ManualTicks {
	return &ManualTicks{c: make(chan time.Time)}
}

func (m *ManualTicks) Start() <-chan time.Time { return m.c }

func (m *ManualTicks) Stop() {}

// Fire delivers one tick, blocking until the consumer takes it
func (m *ManualTicks) Fire() {
	m.c <- time.Now()
}
