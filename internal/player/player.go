// Package player is the playback element: it pulls blocks from a track
// source, runs them through the session's audio graph and hands the
// result to an output device or file.
package player

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/linuxmatters/airwave/internal/audio"
	"github.com/linuxmatters/airwave/internal/graph"
	"github.com/linuxmatters/airwave/internal/logging"
	"github.com/linuxmatters/airwave/internal/session"
	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a closed player
var ErrClosed = errors.New("player closed")

// bytesPerSample is the size of one float32 output sample
const bytesPerSample = 4

// Source is a seekable track decoder. *audio.Reader satisfies it.
type Source interface {
	ReadBlock(dst [][]float64) (int, error)
	Seek(frame int64) error
	Position() int64
	Close() error
}

// Sink receives rendered audio. *audio.Writer satisfies it.
type Sink interface {
	Write(block [][]float64, frames int) error
}

// Option customises a Player
type Option func(*Player)

// WithLogger sets the player's logger
func WithLogger(log *logging.Logger) Option {
	return func(p *Player) { p.log = logging.OrNop(log) }
}

// WithEndHandler registers fn to run when playback reaches the end of the
// track. fn runs on the device goroutine.
func WithEndHandler(fn func()) Option {
	return func(p *Player) { p.onEnd = fn }
}

// Player plays one track through a session. Read is the device pull
// callback and delivers interleaved float32 little-endian PCM.
type Player struct {
	mu      sync.Mutex
	log     *logging.Logger
	src     Source
	meta    audio.Metadata
	session *session.Session
	onEnd   func()

	playing bool
	ended   bool
	closed  bool
	level   float64

	block graph.Block
}

// New creates a paused player at the start of the track. The session's
// channel count must match the track's.
func New(src Source, meta audio.Metadata, sess *session.Session, opts ...Option) (*Player, error) {
	if meta.Channels <= 0 || meta.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", audio.ErrUnsupportedFormat, meta.SampleRate, meta.Channels)
	}
	if sess.Channels() != meta.Channels {
		return nil, fmt.Errorf("session has %d channels, track has %d", sess.Channels(), meta.Channels)
	}

	p := &Player{
		log:     logging.Nop(),
		src:     src,
		meta:    meta,
		session: sess,
		level:   silenceDB,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("player")
	return p, nil
}

// Play starts or resumes playback. Playing from the end restarts the track.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.ended || p.src.Position() >= p.meta.Frames {
		if err := p.src.Seek(0); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to restart track: %w", err)
		}
		p.ended = false
	}
	p.playing = true
	p.mu.Unlock()

	p.session.SetPlaying(true)
	p.log.Debug("playing", zap.Duration("position", p.Position()))
	return nil
}

// Pause halts playback; the device receives silence until Play
func (p *Player) Pause() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	p.session.SetPlaying(false)
}

// Toggle switches between playing and paused
func (p *Player) Toggle() error {
	if p.Playing() {
		p.Pause()
		return nil
	}
	return p.Play()
}

// Playing reports whether the player is producing audio
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Seek moves to d, clamped to the track
func (p *Player) Seek(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	frame := int64(d.Seconds() * float64(p.meta.SampleRate))
	if err := p.src.Seek(frame); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	p.ended = p.src.Position() >= p.meta.Frames
	return nil
}

// SeekBy moves relative to the current position
func (p *Player) SeekBy(delta time.Duration) error {
	return p.Seek(p.Position() + delta)
}

// Position returns the current playback position
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.framesToDuration(p.src.Position())
}

// Duration returns the track length
func (p *Player) Duration() time.Duration {
	return p.framesToDuration(p.meta.Frames)
}

// Level returns the RMS level of the most recent block in dBFS
func (p *Player) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Player) framesToDuration(frames int64) time.Duration {
	return time.Duration(float64(frames) / float64(p.meta.SampleRate) * float64(time.Second))
}

// Read fills buf with processed audio. While paused it delivers silence
// so the device keeps running. At the end of the track it pauses, tells
// the session and calls the end handler.
func (p *Player) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}

	channels := p.meta.Channels
	frames := len(buf) / (bytesPerSample * channels)
	if !p.playing || frames == 0 {
		p.mu.Unlock()
		clear(buf)
		return len(buf), nil
	}

	n, err := p.pull(frames)
	ended := err != nil || n < frames
	if err != nil && !errors.Is(err, io.EOF) {
		p.log.Error("track read failed", zap.Error(err))
	}

	interleave(buf, p.block, n)
	clear(buf[n*channels*bytesPerSample:])

	if ended {
		p.playing = false
		p.ended = true
	}
	p.mu.Unlock()

	if ended {
		p.log.Info("end of track")
		p.session.SetPlaying(false)
		if p.onEnd != nil {
			p.onEnd()
		}
	}
	return len(buf), nil
}

// pull reads and processes up to frames frames into p.block. Called with
// mu held.
func (p *Player) pull(frames int) (int, error) {
	if p.block.Frames() < frames {
		p.block = graph.NewBlock(p.meta.Channels, frames)
	}
	block := p.block.Slice(frames)

	n, err := p.src.ReadBlock(block)
	if n > 0 {
		block = block.Slice(n)
		p.session.Process(block)
		p.level = blockLevel(block)
	}
	return n, err
}

// Render processes the track from the current position to the end as fast
// as possible, writing to sink. Ducking analysis is driven by the sample
// clock: the session is ticked once per display frame of audio, so the
// session must have been created without a tick source.
//
// If progressCallback is not nil it is called after each block with the
// fraction rendered and the block level in dBFS.
func (p *Player) Render(ctx context.Context, sink Sink, progressCallback func(progress float64, level float64)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.playing = true
	p.mu.Unlock()

	p.session.SetPlaying(true)
	defer p.Pause()

	log := logging.FromContext(ctx).Named("render")
	tickFrames := max(1, int(math.Round(float64(p.meta.SampleRate)/TickRate)))
	log.Info("rendering",
		zap.Int64("frames", p.meta.Frames),
		zap.Int("tick_frames", tickFrames),
	)

	for {
		if err := ctx.Err(); err != nil {
			log.Warn("render cancelled", zap.Duration("position", p.Position()))
			return err
		}

		p.mu.Lock()
		n, err := p.pull(tickFrames)
		var werr error
		if n > 0 {
			werr = sink.Write(p.block, n)
		}
		pos, level := p.src.Position(), p.level
		p.mu.Unlock()

		if werr != nil {
			return fmt.Errorf("failed to write rendered audio: %w", werr)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read track: %w", err)
		}
		if n == 0 {
			break
		}

		p.session.Tick()

		if progressCallback != nil && p.meta.Frames > 0 {
			progressCallback(min(1, float64(pos)/float64(p.meta.Frames)), level)
		}
		if n < tickFrames {
			break
		}
	}

	p.mu.Lock()
	p.ended = true
	p.mu.Unlock()
	return nil
}

// Close stops playback and releases the track source
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.playing = false
	p.mu.Unlock()

	p.session.SetPlaying(false)
	return p.src.Close()
}

// interleave writes the first frames frames of block into buf as
// little-endian float32
func interleave(buf []byte, block graph.Block, frames int) {
	channels := len(block)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * bytesPerSample
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(block[ch][i])))
		}
	}
}
