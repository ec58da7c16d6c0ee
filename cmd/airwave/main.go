package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/airwave/internal/audio"
	"github.com/linuxmatters/airwave/internal/cli"
	"github.com/linuxmatters/airwave/internal/config"
	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
	"github.com/linuxmatters/airwave/internal/logging"
	"github.com/linuxmatters/airwave/internal/output"
	"github.com/linuxmatters/airwave/internal/player"
	"github.com/linuxmatters/airwave/internal/session"
	"github.com/linuxmatters/airwave/internal/ui"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	version = "0.0.1"
)

// Globals are flags shared by every command
type Globals struct {
	Debug bool `help:"Write development-level logs to airwave-debug.log"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals `embed:""`

	Play    PlayCmd    `cmd:"" help:"Play a WAV file with live EQ, gain and ducking controls"`
	Render  RenderCmd  `cmd:"" help:"Render a WAV file through the audio graph offline"`
	Preset  PresetCmd  `cmd:"" help:"Write a built-in preset to a YAML file"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// PlayCmd plays a track through the live graph
type PlayCmd struct {
	GraphFlags `embed:""`

	File string `arg:"" name:"file" type:"existingfile" help:"WAV file to play"`
}

// PresetCmd writes a built-in preset
type PresetCmd struct {
	Name   string `arg:"" name:"name" help:"Built-in preset name"`
	Output string `short:"o" required:"" type:"path" help:"Preset file to write" placeholder:"FILE"`
}

// VersionCmd prints the version
type VersionCmd struct{}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("airwave"),
		kong.Description("Terminal audio player with live EQ, auto-ducking and a spectrum visualizer"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if err := ctx.Run(&cliArgs.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// Run prints version information
func (c *VersionCmd) Run(g *Globals) error {
	cli.PrintVersion(version)
	return nil
}

// Run writes the named preset to the output file
func (c *PresetCmd) Run(g *Globals) error {
	p, err := config.Builtin(c.Name)
	if err != nil {
		return err
	}
	if err := config.Save(c.Output, p); err != nil {
		return err
	}
	cli.PrintKeyValue(os.Stdout, "Preset", p.Name)
	cli.PrintKeyValue(os.Stdout, "Written", c.Output)
	return nil
}

// Run plays the file in the TUI until the user quits
func (c *PlayCmd) Run(g *Globals) error {
	log, err := logging.New(g.Debug, logging.DebugLogFile)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Sync()

	preset, cfg, err := c.resolve()
	if err != nil {
		return err
	}

	reader, meta, err := audio.OpenAudioFile(c.File)
	if err != nil {
		return err
	}
	log.Info("opened track",
		zap.String("file", c.File),
		zap.Int("sample_rate", meta.SampleRate),
		zap.Int("channels", meta.Channels),
		zap.Int("bit_depth", meta.BitDepth),
		zap.Float64("duration", meta.Duration),
	)

	opts := sessionOptions(meta, preset, ducking.NewFrameTicker(ducking.DefaultFrameRate), log)

	var prog *tea.Program
	onEnd := func() {
		// Runs on the device goroutine; never block it on the UI
		go prog.Send(ui.TrackEndMsg{})
	}

	sess, pl, dev, err := openPlayback(reader, meta, cfg, opts, onEnd, log)
	if err != nil {
		reader.Close()
		return err
	}
	if !sess.Supported() {
		cli.PrintWarning("audio output unavailable, continuing without sound")
	}

	sess.OnDuckingStateChange(func(active bool) {
		log.Info("ducking state changed", zap.Bool("active", active))
	})
	sess.Start()

	model := ui.NewModel(c.File, pl, sess, log)
	prog = tea.NewProgram(model, tea.WithAltScreen())

	if err := pl.Play(); err != nil {
		log.Warn("failed to start playback", zap.Error(err))
	}

	_, runErr := prog.Run()

	closeErr := dev.Close()
	closeErr = multierr.Append(closeErr, pl.Close())
	closeErr = multierr.Append(closeErr, sess.Close())
	if closeErr != nil {
		log.Warn("shutdown errors", zap.Error(closeErr))
	}

	if runErr != nil {
		return fmt.Errorf("UI error: %w", runErr)
	}
	return nil
}

// openPlayback builds the session and player and opens the output device.
// When the device cannot be opened the session is rebuilt as unsupported
// and a silent output keeps the transport moving.
func openPlayback(reader *audio.Reader, meta *audio.Metadata, cfg graph.Config, opts session.Options, onEnd func(), log *logging.Logger) (*session.Session, *player.Player, io.Closer, error) {
	newPlayer := func(sess *session.Session) (*player.Player, error) {
		return player.New(reader, *meta, sess, player.WithLogger(log), player.WithEndHandler(onEnd))
	}

	sess := session.New(cfg, opts)
	pl, err := newPlayer(sess)
	if err != nil {
		sess.Close()
		return nil, nil, nil, err
	}

	dev, devErr := output.Open(meta.SampleRate, meta.Channels, pl, log)
	if devErr == nil {
		return sess, pl, dev, nil
	}

	log.Warn("audio output unavailable", zap.Error(devErr))
	sess.Close()
	sess = session.NewUnsupported(devErr, cfg, opts)
	pl, err = newPlayer(sess)
	if err != nil {
		sess.Close()
		return nil, nil, nil, multierr.Append(devErr, err)
	}
	return sess, pl, output.OpenSilent(meta.SampleRate, meta.Channels, pl, log), nil
}

// generateOutputName generates the render output filename from input
func generateOutputName(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + "-mixed" + ext
}
