// This file generates the render report written alongside an offline render.

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportSuffix is appended to the output file's base name
const ReportSuffix = "-airwave.log"

// StageSetting is one gain stage as configured and as applied
type StageSetting struct {
	Name    string
	Applied float64 // linear gain the stage ended the render with
	Note    string
}

// BandSetting is one EQ band
type BandSetting struct {
	FrequencyHz float64
	GainDB      float64
	ResponseDB  float64 // combined bank response at the band centre
}

// DuckingSummary describes the ducking engine's tuning and behaviour
type DuckingSummary struct {
	Enabled        bool
	Threshold      float64
	VoiceLowHz     float64
	VoiceHighHz    float64
	DuckedGain     float64
	Ticks          int
	ActiveTicks    int
	Transitions    int
	EmptyFrames    int
	MeanVoiceRatio float64
}

// ReportData contains all the information needed to generate a render report
type ReportData struct {
	InputPath    string
	OutputPath   string
	StartTime    time.Time
	EndTime      time.Time
	SampleRate   int
	Channels     int
	DurationSecs float64 // Duration in seconds
	AverageLevel float64 // mean block level of the rendered audio, dBFS

	EQEnabled  bool
	AmpEnabled bool
	Muted      bool
	Topology   []string
	Stages     []StageSetting
	Bands      []BandSetting
	Ducking    DuckingSummary
}

// ReportPath returns the report filename for an output file:
// episode.wav → episode-airwave.log
func ReportPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ReportSuffix
}

// GenerateReport writes the render report alongside the output file and
// returns its path.
//
// Report structure:
// 1. Header - file info and timestamp
// 2. Processing Summary - render time
// 3. Signal Chain - node order and stage gains
// 4. Equaliser - per-band gain and combined response
// 5. Auto-Ducking - tuning and observed behaviour
func GenerateReport(data ReportData) (string, error) {
	logPath := ReportPath(data.OutputPath)

	f, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	if err := WriteReport(f, data); err != nil {
		return "", err
	}
	return logPath, nil
}

// WriteReport writes the report body to w
func WriteReport(w io.Writer, data ReportData) error {
	rw := &reportWriter{w: w}
	writeReportHeader(rw, data)
	writeProcessingSummary(rw, data)
	writeSignalChain(rw, data)
	writeEqualiser(rw, data)
	writeDucking(rw, data.Ducking)
	return rw.err
}

// reportWriter keeps the first write error so section writers stay linear
type reportWriter struct {
	w   io.Writer
	err error
}

func (rw *reportWriter) printf(format string, args ...any) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format, args...)
}

func (rw *reportWriter) println(s string) {
	rw.printf("%s\n", s)
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(rw *reportWriter, title string) {
	rw.println(title)
	rw.println(strings.Repeat("-", len(title)))
}

func writeReportHeader(rw *reportWriter, data ReportData) {
	rw.println("Airwave Render Report")
	rw.println("=====================")
	rw.printf("File: %s\n", filepath.Base(data.InputPath))
	rw.printf("Output: %s\n", filepath.Base(data.OutputPath))
	rw.printf("Rendered: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	rw.printf("Duration: %s\n", formatDuration(time.Duration(data.DurationSecs*float64(time.Second))))
	rw.printf("Format: %d Hz, %s\n", data.SampleRate, channelName(data.Channels))
	rw.println("")
}

func writeProcessingSummary(rw *reportWriter, data ReportData) {
	writeSection(rw, "Processing Summary")

	totalTime := data.EndTime.Sub(data.StartTime)
	rw.printf("Render time:   %s", formatDuration(totalTime))
	if data.DurationSecs > 0 && totalTime > 0 {
		audioDuration := time.Duration(data.DurationSecs * float64(time.Second))
		rtf := float64(audioDuration) / float64(totalTime)
		rw.printf(" (%.0fx real-time)", rtf)
	}
	rw.println("")
	rw.printf("Average level: %s dBFS\n", formatMetricDB(data.AverageLevel, 1))
	rw.println("")
}

func writeSignalChain(rw *reportWriter, data ReportData) {
	writeSection(rw, "Signal Chain")

	if len(data.Topology) == 0 {
		rw.println("unavailable (no audio graph)")
		rw.println("")
		return
	}
	rw.println(strings.Join(data.Topology, " → "))
	rw.println("")

	table := NewMetricTable("Linear", "Gain")
	for _, s := range data.Stages {
		table.AddRow(s.Name, []string{formatMetric(s.Applied, 3), formatMetricGain(s.Applied, 1)}, "dB", s.Note)
	}
	rw.printf("%s", table.String())
	rw.printf("EQ: %s   Amp: %s   Mute: %s\n", onOff(data.EQEnabled), onOff(data.AmpEnabled), onOff(data.Muted))
	rw.println("")
}

func writeEqualiser(rw *reportWriter, data ReportData) {
	writeSection(rw, "Equaliser")

	if !data.EQEnabled {
		rw.println("bypassed")
		rw.println("")
		return
	}

	table := NewMetricTable("Gain", "Response")
	for _, b := range data.Bands {
		table.AddRow(formatFrequency(b.FrequencyHz),
			[]string{formatMetricSigned(b.GainDB, 1), formatMetricSigned(b.ResponseDB, 1)},
			"dB", interpretBandGain(b.GainDB))
	}
	rw.printf("%s", table.String())
	rw.println("")
}

func writeDucking(rw *reportWriter, d DuckingSummary) {
	writeSection(rw, "Auto-Ducking")

	if !d.Enabled {
		rw.println("disabled")
		rw.println("")
		return
	}

	rw.printf("Voice band:  %s - %s\n", formatFrequency(d.VoiceLowHz), formatFrequency(d.VoiceHighHz))
	rw.printf("Threshold:   %s\n", formatMetricWithUnit(d.Threshold, 2, "voice ratio"))
	rw.printf("Ducked gain: %s dB\n", formatMetricGain(d.DuckedGain, 1))
	rw.println("")

	activeShare := 0.0
	if d.Ticks > 0 {
		activeShare = float64(d.ActiveTicks) / float64(d.Ticks)
	}

	table := NewMetricTable()
	table.AddRow("Analysis frames", []string{fmt.Sprintf("%d", d.Ticks)}, "", "")
	table.AddRow("Empty frames", []string{fmt.Sprintf("%d", d.EmptyFrames)}, "", "")
	table.AddMetricRow("Mean voice ratio", []float64{d.MeanVoiceRatio}, 3, "", interpretVoiceRatio(d.MeanVoiceRatio, d.Threshold))
	table.AddRow("Time ducked", []string{formatPercent(activeShare)}, "", interpretActiveShare(activeShare))
	table.AddRow("Transitions", []string{fmt.Sprintf("%d", d.Transitions)}, "", "")
	rw.printf("%s", table.String())
	rw.println("")
}

// interpretVoiceRatio describes the programme material relative to the
// detection threshold
func interpretVoiceRatio(ratio, threshold float64) string {
	switch {
	case ratio > threshold*1.5:
		return "speech dominated"
	case ratio > threshold:
		return "mostly speech"
	case ratio > threshold*0.5:
		return "mixed content"
	default:
		return "music or effects"
	}
}

// interpretActiveShare describes how much of the render was ducked
func interpretActiveShare(share float64) string {
	switch {
	case share == 0:
		return "never ducked"
	case share < 0.25:
		return "occasional ducking"
	case share < 0.75:
		return "frequent ducking"
	default:
		return "ducked almost throughout"
	}
}

// interpretBandGain describes a band setting
func interpretBandGain(dB float64) string {
	switch {
	case dB >= 6:
		return "strong boost"
	case dB > 0:
		return "boost"
	case dB == 0:
		return "flat"
	case dB > -6:
		return "cut"
	default:
		return "strong cut"
	}
}

// formatFrequency formats a frequency with Hz or kHz units
func formatFrequency(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%g kHz", hz/1000)
	}
	return fmt.Sprintf("%g Hz", hz)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
