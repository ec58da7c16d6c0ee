// Package ui provides the Bubbletea terminal user interface for airwave
package ui

import (
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
	"github.com/linuxmatters/airwave/internal/logging"
	"github.com/linuxmatters/airwave/internal/visualizer"
	"go.uber.org/zap"
)

// Control step sizes
const (
	SeekStep   = 5 * time.Second
	VolumeStep = 0.05
	PreampStep = 0.05
	BandStepDB = 1.0
)

var frameRate float64 = ducking.DefaultFrameRate

// frameInterval is the display refresh period
var frameInterval = time.Duration(float64(time.Second) / frameRate)

// Transport is the playback control surface the UI drives
type Transport interface {
	Toggle() error
	Playing() bool
	SeekBy(delta time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	Level() float64
}

// Graph is the audio graph control surface the UI drives
type Graph interface {
	Supported() bool
	Config() graph.Config
	UpdateConfig(fn func(*graph.Config)) graph.Config
	SpectralFrame(dst []uint8) int
	FrequencyBinCount() int
	DuckingActive() bool
}

// Model is the Bubbletea model for interactive playback
type Model struct {
	FileName string

	transport Transport
	graph     Graph
	log       *logging.Logger

	// Visualizer state
	spectrum *visualizer.Spectrum
	frame    []uint8

	// Control state
	SelectedBand int
	Ducked       bool
	Ended        bool
	PeakLevel    float64
	Status       string
	Err          error

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a playback UI model for the named file
func NewModel(path string, transport Transport, g Graph, log *logging.Logger) Model {
	return Model{
		FileName:  filepath.Base(path),
		transport: transport,
		graph:     g,
		log:       logging.OrNop(log).Named("ui"),
		spectrum:  visualizer.NewSpectrum(),
		frame:     make([]uint8, g.FrequencyBinCount()),
		Ducked:    g.DuckingActive(),
		PeakLevel: -60.0, // Initialize to silence threshold
	}
}

// Init starts the display refresh
func (m Model) Init() tea.Cmd {
	return frameCmd()
}

// frameCmd returns a command that sends a frame message at the display rate
func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.log.Debug("window size", zap.Int("width", m.Width), zap.Int("height", m.Height))

	case frameMsg:
		m.refreshSpectrum()
		m.Ducked = m.graph.DuckingActive()
		if level := m.transport.Level(); m.transport.Playing() && level > m.PeakLevel {
			m.PeakLevel = level
		}
		return m, frameCmd()

	case TrackEndMsg:
		m.Ended = true
		m.Status = "End of track"
	}

	return m, nil
}

// refreshSpectrum pulls the latest analyser frame into the visualizer.
// While muted the bars sit at baseline and the analyser is not read.
func (m *Model) refreshSpectrum() {
	muted := m.graph.Config().Muted
	if !muted {
		m.graph.SpectralFrame(m.frame)
	}
	m.spectrum.Update(m.frame, muted)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ":
		m.Ended = false
		m.setErr(m.transport.Toggle())
		m.Status = ""

	case "left":
		m.setErr(m.transport.SeekBy(-SeekStep))

	case "right":
		m.setErr(m.transport.SeekBy(SeekStep))

	case "e":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.EQEnabled = !c.EQEnabled })
		m.Status = "EQ " + onOff(cfg.EQEnabled)

	case "a":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.AmpEnabled = !c.AmpEnabled })
		m.Status = "Amp " + onOff(cfg.AmpEnabled)

	case "d":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.DuckingEnabled = !c.DuckingEnabled })
		m.Status = "Auto-ducking " + onOff(cfg.DuckingEnabled)
		if !cfg.DuckingEnabled {
			m.Ducked = false
		}

	case "m":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.Muted = !c.Muted })
		m.Status = "Mute " + onOff(cfg.Muted)

	case "+", "=":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.MasterVolume += VolumeStep })
		m.Status = fmt.Sprintf("Volume %d%%", percent(cfg.MasterVolume))

	case "-", "_":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.MasterVolume -= VolumeStep })
		m.Status = fmt.Sprintf("Volume %d%%", percent(cfg.MasterVolume))

	case "1", "2", "3", "4", "5":
		m.SelectedBand = int(key[0] - '1')

	case "up":
		m.nudgeBand(BandStepDB)

	case "down":
		m.nudgeBand(-BandStepDB)

	case "[":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.PreampGain -= PreampStep })
		m.Status = fmt.Sprintf("Preamp %.2f×", cfg.PreampGain)

	case "]":
		cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.PreampGain += PreampStep })
		m.Status = fmt.Sprintf("Preamp %.2f×", cfg.PreampGain)
	}

	return m, nil
}

func (m *Model) nudgeBand(deltaDB float64) {
	band := m.SelectedBand
	cfg := m.graph.UpdateConfig(func(c *graph.Config) { c.BandGains[band] += deltaDB })
	m.Status = fmt.Sprintf("%s %+.1f dB", bandLabel(band), cfg.BandGains[band])
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.log.Warn("transport error", zap.Error(err))
	}
	m.Err = err
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}
	return renderPlayerView(m)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func percent(v float64) int {
	return int(v*100 + 0.5)
}

// bandLabel formats a band centre frequency, e.g. "60 Hz" or "16 kHz"
func bandLabel(band int) string {
	hz := graph.BandFrequencies[band]
	if hz >= 1000 {
		return fmt.Sprintf("%g kHz", hz/1000)
	}
	return fmt.Sprintf("%g Hz", hz)
}
