package graph

import (
	"sync"

	"github.com/linuxmatters/airwave/internal/logging"
	"go.uber.org/zap"
)

// DefaultDuckedGain is the ducking stage gain while ducking is active
const DefaultDuckedGain = 1.0 / 3.0

// StageGains is a snapshot of the values the chain is applying
type StageGains struct {
	Preamp  float64
	Ducking float64
	Master  float64
	Bands   [NumBands]float64
}

// RouterOption customises a Router
type RouterOption func(*Router)

// WithLogger sets the router's logger
func WithLogger(log *logging.Logger) RouterOption {
	return func(r *Router) { r.log = logging.OrNop(log) }
}

// WithDuckedGain overrides the ducking stage attenuation
func WithDuckedGain(g float64) RouterOption {
	return func(r *Router) { r.duckedGain = g }
}

// Router owns every node of the signal chain and keeps exactly one valid
// path from source to destination:
//
//	source → preamp → [eq_60 … eq_16000] → ducking → analyser → master → destination
//
// Topology switches (EQ, amp) rebuild the chain from fresh nodes; gain
// changes mutate the existing nodes. The analyser is long-lived and
// survives rebuilds so its consumers keep a stable reference.
type Router struct {
	mu  sync.Mutex
	log *logging.Logger

	sampleRate  float64
	unsupported bool
	duckedGain  float64

	cfg           Config
	duckingActive bool

	preamp   *GainNode
	ducking  *GainNode
	master   *GainNode
	bank     *FilterBank
	analyser *Analyzer

	chain    []Node
	rebuilds int
}

// NewRouter creates a router for audio at sampleRate. The chain is built
// by the first call to Configure.
func NewRouter(sampleRate float64, analyser *Analyzer, opts ...RouterOption) *Router {
	r := &Router{
		log:        logging.Nop(),
		sampleRate: sampleRate,
		duckedGain: DefaultDuckedGain,
		analyser:   analyser,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.analyser == nil {
		r.analyser = NewAnalyzer(sampleRate)
	}
	return r
}

// NewUnsupportedRouter creates a router for an environment where no audio
// output could be constructed. It exposes no nodes and every operation is
// a no-op. The reason is logged once.
func NewUnsupportedRouter(reason error, opts ...RouterOption) *Router {
	r := &Router{log: logging.Nop(), unsupported: true}
	for _, opt := range opts {
		opt(r)
	}
	r.log.Warn("audio graph unavailable, audio features disabled", zap.Error(reason))
	return r
}

// Supported reports whether the router has a working graph
func (r *Router) Supported() bool { return !r.unsupported }

// Analyser returns the analysis tap, or nil when unsupported
func (r *Router) Analyser() *Analyzer {
	if r.unsupported {
		return nil
	}
	return r.analyser
}

// Configure applies cfg. Values are clamped first. The chain is rebuilt
// only when no chain exists yet or a topology switch changed.
func (r *Router) Configure(cfg Config) {
	if r.unsupported {
		return
	}
	cfg = cfg.Clamp()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.chain == nil || TopologyChanged(r.cfg, cfg) {
		r.rebuild(cfg)
	} else {
		r.apply(cfg)
	}
	r.cfg = cfg
}

// Config returns the configuration currently applied
func (r *Router) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// SetBandGain retunes a single band without rebuilding
func (r *Router) SetBandGain(index int, dB float64) {
	if r.unsupported || index < 0 || index >= NumBands {
		return
	}
	dB = ClampBandGain(dB)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.BandGains[index] = dB
	if r.bank != nil {
		r.bank.SetBandGain(index, dB)
	}
}

// SetDuckingActive switches the ducking stage between unity and the
// ducked gain
func (r *Router) SetDuckingActive(active bool) {
	if r.unsupported {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duckingActive = active
	if r.ducking != nil {
		r.ducking.SetGain(r.duckingGain())
	}
}

// DuckingActive reports the ducking stage state
func (r *Router) DuckingActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duckingActive
}

// Process runs one block through the chain in place
func (r *Router) Process(b Block) {
	if r.unsupported {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.chain {
		n.Process(b)
	}
}

// Topology returns the node identifiers from source to destination.
// An unsupported or unconfigured router has no topology.
func (r *Router) Topology() []NodeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chain == nil {
		return nil
	}
	ids := make([]NodeID, 0, len(r.chain)+2)
	ids = append(ids, NodeSource)
	for _, n := range r.chain {
		ids = append(ids, n.ID())
	}
	return append(ids, NodeDestination)
}

// Gains returns the values the chain is applying
func (r *Router) Gains() StageGains {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chain == nil {
		return StageGains{}
	}
	return StageGains{
		Preamp:  r.preamp.Gain(),
		Ducking: r.ducking.Gain(),
		Master:  r.master.Gain(),
		Bands:   r.bank.Gains(),
	}
}

// Rebuilds returns how many times the chain has been rebuilt
func (r *Router) Rebuilds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuilds
}

// FilterBank returns the EQ bank of the current chain
func (r *Router) FilterBank() *FilterBank {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank
}

func (r *Router) duckingGain() float64 {
	if r.duckingActive {
		return r.duckedGain
	}
	return 1
}

// rebuild tears the chain down and connects fresh nodes. Called with mu
// held, so the audio callback never sees a half-built chain.
func (r *Router) rebuild(cfg Config) {
	// Disconnect
	r.chain = nil

	// Fresh nodes with their values set before connection
	r.preamp = NewGainNode(NodePreamp, cfg.EffectivePreamp())
	r.ducking = NewGainNode(NodeDucking, r.duckingGain())
	r.master = NewGainNode(NodeMaster, cfg.EffectiveMaster())
	r.bank = NewFilterBank(r.sampleRate, cfg.BandGains)

	// Connect in fixed order
	chain := make([]Node, 0, NumBands+4)
	chain = append(chain, r.preamp)
	if cfg.EQEnabled {
		chain = append(chain, r.bank.Nodes()...)
	}
	chain = append(chain, r.ducking, r.analyser, r.master)
	r.chain = chain
	r.rebuilds++

	r.log.Debug("signal chain rebuilt",
		zap.Bool("eq", cfg.EQEnabled),
		zap.Bool("amp", cfg.AmpEnabled),
		zap.Int("nodes", len(chain)),
		zap.Int("rebuilds", r.rebuilds),
	)
}

// apply mutates stage values in place. Called with mu held.
func (r *Router) apply(cfg Config) {
	r.preamp.SetGain(cfg.EffectivePreamp())
	r.master.SetGain(cfg.EffectiveMaster())
	r.ducking.SetGain(r.duckingGain())
	for i, g := range cfg.BandGains {
		if r.bank.BandGain(i) != g {
			r.bank.SetBandGain(i, g)
		}
	}
}
