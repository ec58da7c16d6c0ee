package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/multierr"
)

// WriterBitDepth is the sample size of rendered files
const WriterBitDepth = 16

// Writer encodes planar float64 blocks to a 16-bit PCM WAV file
type Writer struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *goaudio.IntBuffer
	frames  int64
}

// CreateAudioFile creates (or truncates) a WAV file for writing
func CreateAudioFile(filename string, sampleRate, channels int) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, sampleRate, channels)
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &Writer{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, WriterBitDepth, channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: WriterBitDepth,
		},
	}, nil
}

// Write encodes the first frames frames of block. Samples are clipped to
// [-1, 1]; block must have one slice per channel.
func (w *Writer) Write(block [][]float64, frames int) error {
	channels := w.buf.Format.NumChannels
	if len(block) != channels {
		return fmt.Errorf("block has %d channels, writer expects %d", len(block), channels)
	}
	if frames <= 0 {
		return nil
	}

	need := frames * channels
	if cap(w.buf.Data) < need {
		w.buf.Data = make([]int, need)
	}
	w.buf.Data = w.buf.Data[:need]

	const full = math.MaxInt16
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := max(-1, min(1, block[ch][i]))
			w.buf.Data[i*channels+ch] = int(math.Round(s * full))
		}
	}

	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("failed to encode audio: %w", err)
	}
	w.frames += int64(frames)
	return nil
}

// Frames returns the number of frames written so far
func (w *Writer) Frames() int64 { return w.frames }

// Close finalises the WAV header and closes the file
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := multierr.Append(w.encoder.Close(), w.file.Close())
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to finalise output file: %w", err)
	}
	return nil
}
