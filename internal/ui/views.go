package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/airwave/internal/graph"
)

// Palette
var (
	primaryColor = lipgloss.Color("#2E86DE")
	accentColor  = lipgloss.Color("#F5A623")
	mutedColor   = lipgloss.Color("#888888")
	okColor      = lipgloss.Color("#00AA00")
	errorColor   = lipgloss.Color("#D0021B")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	offStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	onStyle       = lipgloss.NewStyle().Bold(true).Foreground(okColor)
	duckedStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
)

// Layout constants
const (
	panelWidth      = 64
	spectrumHeight  = 8
	progressWidth   = 40
	gainMeterWidth  = 21
	unsupportedNote = "Audio output unavailable: controls work, playback is silent"
)

// renderPlayerView renders the main playback view
func renderPlayerView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderSpectrumPanel(m))
	b.WriteString("\n")

	b.WriteString(renderTransport(m))
	b.WriteString("\n")

	b.WriteString(renderControls(m))
	b.WriteString("\n")

	b.WriteString(renderFooter(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := titleStyle.Render("Airwave 📻")
	subtitle := subtitleStyle.Render(m.FileName)
	header := title + "  " + subtitle
	if !m.graph.Supported() {
		header += "\n" + errorStyle.Render(unsupportedNote)
	}
	return header
}

// renderSpectrumPanel renders the visualizer inside a rounded box
func renderSpectrumPanel(m Model) string {
	border := primaryColor
	if m.Ducked {
		border = accentColor
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(panelWidth)

	inner := panelWidth - 2 // padding
	return box.Render(m.spectrum.Render(inner, spectrumHeight))
}

// renderTransport renders play state, position and level
func renderTransport(m Model) string {
	var b strings.Builder

	state := "⏸  Paused"
	switch {
	case m.transport.Playing():
		state = "▶  Playing"
	case m.Ended:
		state = "⏹  Ended"
	}
	b.WriteString(state)
	b.WriteString("  ")

	pos, dur := m.transport.Position(), m.transport.Duration()
	progress := 0.0
	if dur > 0 {
		progress = float64(pos) / float64(dur)
	}
	b.WriteString(renderProgressBar(progress, progressWidth))
	b.WriteString(fmt.Sprintf(" %s / %s", formatElapsed(pos), formatElapsed(dur)))
	b.WriteString("\n")

	if m.transport.Playing() {
		b.WriteString(fmt.Sprintf("📊 Level: %.1f dB | Peak: %.1f dB", m.transport.Level(), m.PeakLevel))
	}
	b.WriteString("\n")
	return b.String()
}

// renderControls renders the EQ bands and gain stage settings
func renderControls(m Model) string {
	cfg := m.graph.Config()
	var b strings.Builder

	b.WriteString(fmt.Sprintf("EQ %s   Amp %s   Ducking %s   Mute %s\n",
		toggleLabel(cfg.EQEnabled), toggleLabel(cfg.AmpEnabled),
		duckingLabel(cfg.DuckingEnabled, m.Ducked), toggleLabel(cfg.Muted)))
	b.WriteString(fmt.Sprintf("Preamp %.2f×   Volume %3d%%\n\n", cfg.PreampGain, percent(cfg.MasterVolume)))

	for i := range graph.NumBands {
		line := fmt.Sprintf("%d %-7s %+6.1f dB  %s", i+1, bandLabel(i), cfg.BandGains[i], renderGainMeter(cfg.BandGains[i], gainMeterWidth))
		switch {
		case i == m.SelectedBand:
			line = selectedStyle.Render("▸ " + line)
		case !cfg.EQEnabled:
			line = offStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderFooter renders the status line and key help
func renderFooter(m Model) string {
	var b strings.Builder
	if m.Err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.Err)))
		b.WriteString("\n")
	} else if m.Status != "" {
		b.WriteString(m.Status)
		b.WriteString("\n")
	}
	b.WriteString(subtitleStyle.Render("space play/pause · ←/→ seek · 1-5 band · ↑/↓ gain · [/] preamp · +/- volume"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("e eq · a amp · d ducking · m mute · q quit"))
	return b.String()
}

func toggleLabel(on bool) string {
	if on {
		return onStyle.Render("on")
	}
	return offStyle.Render("off")
}

func duckingLabel(enabled, ducked bool) string {
	if !enabled {
		return offStyle.Render("off")
	}
	if ducked {
		return duckedStyle.Render("DUCKED")
	}
	return onStyle.Render("on")
}

// renderGainMeter draws a centred meter for a band gain, the centre mark
// at 0 dB and the fill towards the gain
func renderGainMeter(dB float64, width int) string {
	centre := width / 2
	pos := centre + int(dB/graph.MaxBandGainDB*float64(centre))
	pos = max(0, min(width-1, pos))

	cells := make([]rune, width)
	for i := range cells {
		switch {
		case i == centre:
			cells[i] = '│'
		case (i > centre && i <= pos) || (i < centre && i >= pos):
			cells[i] = '━'
		default:
			cells[i] = '·'
		}
	}
	return string(cells)
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = max(0, min(1, progress))
	filled := int(progress * float64(width))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(primaryColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	return fmt.Sprintf("%s %3d%%", bar, int(progress*100))
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
