package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/airwave/internal/audio"
	"github.com/linuxmatters/airwave/internal/config"
	"github.com/linuxmatters/airwave/internal/graph"
	"github.com/linuxmatters/airwave/internal/logging"
	"github.com/linuxmatters/airwave/internal/player"
	"github.com/linuxmatters/airwave/internal/session"
	"github.com/linuxmatters/airwave/internal/ui"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RenderCmd renders a track offline
type RenderCmd struct {
	GraphFlags `embed:""`

	File   string `arg:"" name:"file" type:"existingfile" help:"WAV file to render"`
	Output string `short:"o" type:"path" help:"Output WAV file (default: <file>-mixed.wav)" placeholder:"FILE"`
	Logs   bool   `help:"Save a render report alongside the output"`
}

// renderJob describes one offline render
type renderJob struct {
	InputPath  string
	OutputPath string
	Preset     config.Preset
	Config     graph.Config
	Report     bool
}

// renderResult is what a finished render produced
type renderResult struct {
	ReportPath string
	Stats      renderStats
}

// Run renders the file with a progress TUI
func (c *RenderCmd) Run(g *Globals) error {
	log, err := logging.New(g.Debug, logging.DebugLogFile)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Sync()

	preset, cfg, err := c.resolve()
	if err != nil {
		return err
	}

	job := renderJob{
		InputPath:  c.File,
		OutputPath: c.Output,
		Preset:     preset,
		Config:     cfg,
		Report:     c.Logs,
	}
	if job.OutputPath == "" {
		job.OutputPath = generateOutputName(c.File)
	}

	p := tea.NewProgram(ui.NewRenderModel(job.InputPath, job.OutputPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		ph := &progressHandler{p: p, log: log}
		result, err := renderFile(ctx, job, ph.callback, func(active bool) {
			p.Send(ui.DuckingMsg{Active: active})
		}, log)
		p.Send(ui.RenderCompleteMsg{
			OutputPath: job.OutputPath,
			ReportPath: result.ReportPath,
			Error:      err,
		})
		done <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("UI error: %w", err)
	}

	// Quitting early cancels the render
	cancel()
	return <-done
}

// renderFile runs the whole track through a fresh session into the
// output file, ticking ducking from the sample clock
func renderFile(ctx context.Context, job renderJob, progress func(float64, float64), onDucking func(bool), log *logging.Logger) (renderResult, error) {
	log = logging.OrNop(log).With(zap.String("input", job.InputPath))
	startTime := time.Now()

	reader, meta, err := audio.OpenAudioFile(job.InputPath)
	if err != nil {
		return renderResult{}, err
	}

	sess := session.New(job.Config, sessionOptions(meta, job.Preset, nil, log))
	if onDucking != nil {
		sess.OnDuckingStateChange(onDucking)
	}
	sess.Start()

	pl, err := player.New(reader, *meta, sess, player.WithLogger(log))
	if err != nil {
		reader.Close()
		sess.Close()
		return renderResult{}, err
	}

	writer, err := audio.CreateAudioFile(job.OutputPath, meta.SampleRate, meta.Channels)
	if err != nil {
		pl.Close()
		sess.Close()
		return renderResult{}, err
	}

	var stats renderStats
	renderErr := pl.Render(logging.WithContext(ctx, log), writer, func(p, level float64) {
		stats.add(level)
		if progress != nil {
			progress(p, level)
		}
	})

	closeErr := multierr.Combine(writer.Close(), pl.Close())
	if err := multierr.Append(renderErr, closeErr); err != nil {
		sess.Close()
		return renderResult{Stats: stats}, fmt.Errorf("render failed: %w", err)
	}

	log.Info("render complete",
		zap.String("output", job.OutputPath),
		zap.Int64("frames", writer.Frames()),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	result := renderResult{Stats: stats}
	if job.Report {
		data := buildReportData(job, meta, sess, stats, startTime)
		sess.Close()
		reportPath, err := logging.GenerateReport(data)
		if err != nil {
			log.Warn("failed to generate report", zap.Error(err))
			return result, nil
		}
		result.ReportPath = reportPath
		return result, nil
	}
	sess.Close()
	return result, nil
}

// renderStats accumulates block levels over a render
type renderStats struct {
	blocks   int
	levelSum float64
}

func (s *renderStats) add(level float64) {
	s.blocks++
	s.levelSum += level
}

// AverageLevel returns the mean block level in dBFS
func (s renderStats) AverageLevel() float64 {
	if s.blocks == 0 {
		return -60
	}
	return s.levelSum / float64(s.blocks)
}

// buildReportData collects the session state after a render
func buildReportData(job renderJob, meta *audio.Metadata, sess *session.Session, stats renderStats, start time.Time) logging.ReportData {
	router := sess.Router()
	gains := router.Gains()
	params := job.Preset.DuckingParams()
	duckedGain := job.Preset.DuckedGain()

	var topology []string
	for _, id := range router.Topology() {
		topology = append(topology, string(id))
	}

	bands := make([]logging.BandSetting, 0, graph.NumBands)
	bank := router.FilterBank()
	for i, hz := range graph.BandFrequencies {
		b := logging.BandSetting{FrequencyHz: hz, GainDB: job.Config.BandGains[i]}
		if bank != nil {
			b.ResponseDB = bank.ResponseDB(hz)
		}
		bands = append(bands, b)
	}

	preampNote := "bypassed"
	if job.Config.AmpEnabled {
		preampNote = ""
	}
	masterNote := ""
	if job.Config.Muted {
		masterNote = "muted"
	}

	duckStats := sess.DuckingStats()
	return logging.ReportData{
		InputPath:    job.InputPath,
		OutputPath:   job.OutputPath,
		StartTime:    start,
		EndTime:      time.Now(),
		SampleRate:   meta.SampleRate,
		Channels:     meta.Channels,
		DurationSecs: meta.Duration,
		AverageLevel: stats.AverageLevel(),
		EQEnabled:    job.Config.EQEnabled,
		AmpEnabled:   job.Config.AmpEnabled,
		Muted:        job.Config.Muted,
		Topology:     topology,
		Stages: []logging.StageSetting{
			{Name: "Preamp", Applied: gains.Preamp, Note: preampNote},
			{Name: "Ducking", Applied: duckedGain, Note: "while ducked"},
			{Name: "Master", Applied: gains.Master, Note: masterNote},
		},
		Bands: bands,
		Ducking: logging.DuckingSummary{
			Enabled:        job.Config.DuckingEnabled,
			Threshold:      params.Threshold,
			VoiceLowHz:     params.VoiceLowHz,
			VoiceHighHz:    params.VoiceHighHz,
			DuckedGain:     duckedGain,
			Ticks:          duckStats.Ticks,
			ActiveTicks:    duckStats.ActiveTicks,
			Transitions:    duckStats.Transitions,
			EmptyFrames:    duckStats.EmptyFrames,
			MeanVoiceRatio: duckStats.MeanVoiceRatio(),
		},
	}
}

// progressHandler forwards render progress to the TUI, at most once per
// percent so a fast render does not flood the program
type progressHandler struct {
	p    *tea.Program
	log  *logging.Logger
	last float64
}

func (ph *progressHandler) callback(progress, level float64) {
	if progress < 1 && progress-ph.last < 0.01 {
		return
	}
	ph.last = progress
	ph.log.Debug("render progress", zap.Float64("progress", progress), zap.Float64("level", level))
	ph.p.Send(ui.RenderProgressMsg{Progress: progress, Level: level})
}
