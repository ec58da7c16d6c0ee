package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner frames for indeterminate progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// RenderModel is the Bubbletea model for offline rendering
type RenderModel struct {
	FileName   string
	OutputName string

	// Progress tracking
	Progress  float64 // 0.0 to 1.0
	Level     float64 // Current audio level in dB
	PeakLevel float64
	Ducked    bool
	StartTime time.Time

	// Spinner state
	spinnerIndex int

	// Results (populated when complete)
	ReportPath string
	Error      error
	Done       bool

	// Terminal dimensions
	Width  int
	Height int
}

// NewRenderModel creates a new render UI model
func NewRenderModel(inputPath, outputPath string) RenderModel {
	return RenderModel{
		FileName:   filepath.Base(inputPath),
		OutputName: filepath.Base(outputPath),
		PeakLevel:  -60.0,
		StartTime:  time.Now(),
	}
}

// Init initializes the model
func (m RenderModel) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m RenderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if !m.Done {
			// Advance spinner
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
			return m, tickCmd()
		}
		return m, nil

	case RenderProgressMsg:
		m.Progress = msg.Progress
		m.Level = msg.Level
		m.PeakLevel = max(m.PeakLevel, msg.Level)
		return m, nil

	case DuckingMsg:
		m.Ducked = msg.Active
		return m, nil

	case RenderCompleteMsg:
		m.ReportPath = msg.ReportPath
		m.Error = msg.Error
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m RenderModel) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Airwave"))
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Render Mode"))
	b.WriteString("\n\n")

	fileStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true)

	b.WriteString("Rendering: ")
	b.WriteString(fileStyle.Render(m.FileName))
	b.WriteString(" → ")
	b.WriteString(fileStyle.Render(m.OutputName))
	b.WriteString("\n\n")

	elapsed := time.Since(m.StartTime)

	if m.Done {
		b.WriteString(renderRenderResult(m, elapsed))
		return b.String()
	}

	spinner := lipgloss.NewStyle().Foreground(primaryColor).Render(spinnerFrames[m.spinnerIndex])
	b.WriteString(spinner)
	b.WriteString(" ")
	b.WriteString(renderProgressBar(m.Progress, progressWidth))
	b.WriteString(fmt.Sprintf(" [%s]", formatElapsed(elapsed)))
	b.WriteString("\n")

	if m.Level != 0 {
		b.WriteString(fmt.Sprintf("\n📊 Level: %.1f dB | Peak: %.1f dB", m.Level, m.PeakLevel))
	}
	if m.Ducked {
		b.WriteString("  ")
		b.WriteString(duckedStyle.Render("DUCKED"))
	}

	return b.String()
}

// renderRenderResult renders the completion summary
func renderRenderResult(m RenderModel, elapsed time.Duration) string {
	if m.Error != nil {
		icon := errorStyle.Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v\n", icon, m.FileName, m.Error)
	}

	icon := lipgloss.NewStyle().Foreground(okColor).Render("✓")
	summary := fmt.Sprintf(" %s %s → %s in %s\n", icon, m.FileName, m.OutputName, formatElapsed(elapsed))
	if m.ReportPath != "" {
		summary += fmt.Sprintf("   Report: %s\n", m.ReportPath)
	}
	return summary
}
