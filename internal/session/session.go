// Package session owns one playback session's audio graph: the signal
// router, its analyser and the ducking monitor, with an explicit
// Start/Stop lifecycle.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
	"github.com/linuxmatters/airwave/internal/logging"
	"go.uber.org/zap"
)

// Options configures a Session
type Options struct {
	SampleRate float64
	Channels   int

	// Ducking detector tuning and the attenuation applied while ducked
	Params     ducking.Params
	DuckedGain float64

	// Ticks drives ducking analysis while playing. When nil, the owner
	// calls Tick itself (offline rendering).
	Ticks ducking.TickSource

	Logger *logging.Logger
}

// DefaultOptions returns options for a 44.1 kHz stereo session with
// standard ducking tuning and a 60 Hz frame ticker
func DefaultOptions() Options {
	return Options{
		SampleRate: 44100,
		Channels:   2,
		Params:     ducking.DefaultParams(),
		DuckedGain: graph.DefaultDuckedGain,
		Ticks:      ducking.NewFrameTicker(ducking.DefaultFrameRate),
	}
}

// Session is the long-lived owner of the audio graph. Control methods
// (SetConfig, SetPlaying, Start, Stop) are serialised; Process is the
// audio callback entry point and may run concurrently with them.
type Session struct {
	// ctl serialises control operations, including monitor start/stop
	ctl sync.Mutex

	log      *logging.Logger
	opts     Options
	router   *graph.Router
	analyser *graph.Analyzer
	monitor  *ducking.Monitor

	cfg     graph.Config
	playing bool
	started bool

	duckingActive atomic.Bool

	listenersMu sync.Mutex
	listeners   []func(active bool)
}

// New creates a stopped session with the given initial configuration
func New(cfg graph.Config, opts Options) *Session {
	opts = withDefaults(opts)
	s := &Session{
		log:  logging.OrNop(opts.Logger).Named("session"),
		opts: opts,
		cfg:  cfg.Clamp(),
	}

	s.analyser = graph.NewAnalyzer(opts.SampleRate)
	s.router = graph.NewRouter(opts.SampleRate, s.analyser,
		graph.WithLogger(s.log.Named("router")),
		graph.WithDuckedGain(opts.DuckedGain),
	)
	s.monitor = ducking.NewMonitor(s.analyser, opts.Params, s.handleDucking, s.log.Named("ducking"))
	return s
}

// NewUnsupported creates a session for an environment where no audio
// output could be opened. Every operation is accepted and does nothing;
// spectral frames are always empty. The reason is logged, not returned.
func NewUnsupported(reason error, cfg graph.Config, opts Options) *Session {
	opts = withDefaults(opts)
	s := &Session{
		log:  logging.OrNop(opts.Logger).Named("session"),
		opts: opts,
		cfg:  cfg.Clamp(),
	}
	s.router = graph.NewUnsupportedRouter(reason, graph.WithLogger(s.log.Named("router")))
	s.monitor = ducking.NewMonitor(nil, opts.Params, s.handleDucking, s.log.Named("ducking"))
	return s
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = def.Channels
	}
	if opts.Params == (ducking.Params{}) {
		opts.Params = def.Params
	}
	if opts.DuckedGain <= 0 {
		opts.DuckedGain = def.DuckedGain
	}
	return opts
}

// Supported reports whether the session has a working audio graph
func (s *Session) Supported() bool { return s.router.Supported() }

// SampleRate returns the session's audio rate
func (s *Session) SampleRate() float64 { return s.opts.SampleRate }

// Channels returns the session's channel count
func (s *Session) Channels() int { return s.opts.Channels }

// Router exposes the signal router for inspection
func (s *Session) Router() *graph.Router { return s.router }

// Start builds the graph from the current configuration
func (s *Session) Start() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.router.Configure(s.cfg)
	s.log.Info("session started",
		zap.Float64("sample_rate", s.opts.SampleRate),
		zap.Int("channels", s.opts.Channels),
		zap.Bool("supported", s.Supported()),
	)
	s.syncMonitor()
}

// Stop halts analysis, releases ducking and marks playback stopped. The
// graph stays built so the session can be restarted.
func (s *Session) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.playing = false
	s.syncMonitor()
	s.log.Info("session stopped")
}

// SetConfig applies new graph settings. Turning ducking off stops the
// analysis and releases any attenuation before returning.
func (s *Session) SetConfig(cfg graph.Config) {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.cfg = cfg.Clamp()
	if s.started {
		s.router.Configure(s.cfg)
	}
	s.syncMonitor()
}

// Config returns the current settings
func (s *Session) Config() graph.Config {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.cfg
}

// UpdateConfig applies fn to a copy of the current settings and sets the
// result
func (s *Session) UpdateConfig(fn func(*graph.Config)) graph.Config {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	cfg := s.cfg
	fn(&cfg)
	s.cfg = cfg.Clamp()
	if s.started {
		s.router.Configure(s.cfg)
	}
	s.syncMonitor()
	return s.cfg
}

// SetPlaying is the playback controller's playing/paused signal. Pausing
// stops analysis and releases ducking synchronously.
func (s *Session) SetPlaying(playing bool) {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	if s.playing == playing {
		return
	}
	s.playing = playing
	s.syncMonitor()
}

// Playing reports the last playing/paused signal
func (s *Session) Playing() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.playing
}

// Process runs one block of audio through the graph
func (s *Session) Process(b graph.Block) {
	s.router.Process(b)
}

// Tick runs one ducking analysis step when analysis should be running.
// Used when the session has no tick source of its own.
func (s *Session) Tick() {
	s.ctl.Lock()
	run := s.analysing()
	s.ctl.Unlock()
	if run {
		s.monitor.Tick()
	}
}

// SpectralFrame copies the current spectrum into dst. Zero bins are
// written and 0 returned when no frame is available.
func (s *Session) SpectralFrame(dst []uint8) int {
	return s.router.Analyser().Frame(dst)
}

// FrequencyBinCount is the length of a spectral frame
func (s *Session) FrequencyBinCount() int { return graph.FrequencyBinCount }

// DuckingActive reports whether the ducking stage is attenuating
func (s *Session) DuckingActive() bool { return s.duckingActive.Load() }

// OnDuckingStateChange registers fn to be called on every ducking
// decision change. fn runs on the analysis goroutine and must not call
// back into SetConfig, SetPlaying or Stop.
func (s *Session) OnDuckingStateChange(fn func(active bool)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// DuckingStats returns the ducking monitor statistics
func (s *Session) DuckingStats() ducking.Stats { return s.monitor.Stats() }

// Close stops the session
func (s *Session) Close() error {
	s.Stop()
	return nil
}

// analysing reports whether ducking analysis should be running. Called
// with ctl held.
func (s *Session) analysing() bool {
	return s.started && s.playing && s.cfg.DuckingEnabled
}

// syncMonitor starts or stops the tick loop to match the session state.
// Called with ctl held.
func (s *Session) syncMonitor() {
	if s.analysing() {
		if s.opts.Ticks != nil && !s.monitor.Running() {
			s.monitor.Start(s.opts.Ticks)
		}
		return
	}
	s.monitor.Stop()
}

func (s *Session) handleDucking(active bool) {
	s.router.SetDuckingActive(active)
	s.duckingActive.Store(active)

	s.listenersMu.Lock()
	listeners := append(([]func(bool))(nil), s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(active)
	}
}
