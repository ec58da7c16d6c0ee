// Package output is the audio destination: a system output device opened
// through oto.
package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"github.com/linuxmatters/airwave/internal/logging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultLatency is the device buffer length
const DefaultLatency = 50 * time.Millisecond

// readyTimeout bounds how long Open waits for the driver
const readyTimeout = 5 * time.Second

// bytesPerSample is the size of one float32 sample
const bytesPerSample = 4

// ErrNotReady is returned when the audio driver does not come up in time
var ErrNotReady = errors.New("audio output not ready")

// Device plays interleaved float32 PCM pulled from a reader
type Device struct {
	log    *logging.Logger
	ctx    *oto.Context
	player oto.Player
}

// Open starts an output device pulling from src. A failure here is the
// "environment unsupported" case; callers degrade to silent operation.
func Open(sampleRate, channels int, src io.Reader, log *logging.Logger) (*Device, error) {
	log = logging.OrNop(log).Named("output")

	ctx, ready, err := oto.NewContext(sampleRate, channels, oto.FormatFloat32LE)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		return nil, ErrNotReady
	}

	player := ctx.NewPlayer(src)
	player.SetBufferSize(BufferSize(sampleRate, channels, DefaultLatency))
	player.Play()

	log.Info("audio output opened",
		zap.Int("sample_rate", sampleRate),
		zap.Int("channels", channels),
		zap.Duration("latency", DefaultLatency),
	)
	return &Device{log: log, ctx: ctx, player: player}, nil
}

// BufferSize returns the device buffer size in bytes for a latency,
// rounded down to whole frames and never less than one frame
func BufferSize(sampleRate, channels int, latency time.Duration) int {
	frameBytes := channels * bytesPerSample
	frames := int(latency.Seconds() * float64(sampleRate))
	return max(1, frames) * frameBytes
}

// Err reports an asynchronous playback error
func (d *Device) Err() error {
	return multierr.Append(d.player.Err(), d.ctx.Err())
}

// Close stops the device
func (d *Device) Close() error {
	err := multierr.Append(d.player.Close(), d.ctx.Suspend())
	if err != nil {
		d.log.Warn("audio output close failed", zap.Error(err))
	}
	return err
}
