package ui

import "time"

// frameMsg is the display refresh tick that pulls a spectral frame
type frameMsg time.Time

// tickMsg is sent for spinner/timer animation
type tickMsg time.Time

// DuckingMsg reports a ducking state transition from the session
type DuckingMsg struct {
	Active bool
}

// TrackEndMsg indicates playback reached the end of the track
type TrackEndMsg struct{}

// RenderProgressMsg represents a progress update from an offline render
type RenderProgressMsg struct {
	Progress float64 // 0.0 to 1.0
	Level    float64 // Current audio level in dB
}

// RenderCompleteMsg indicates an offline render has finished
type RenderCompleteMsg struct {
	OutputPath string
	ReportPath string // empty unless a report was written
	Error      error
}
