// Package audio provides WAV file I/O using go-audio
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for files that are not integer PCM WAV
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// wavFormatPCM is the WAVE_FORMAT_PCM format tag
const wavFormatPCM = 1

// readChunkFrames bounds a single decode call
const readChunkFrames = 4096

// Reader decodes a PCM WAV file into planar float64 samples in [-1, 1]
type Reader struct {
	file    *os.File
	decoder *wav.Decoder
	buf     *goaudio.IntBuffer
	meta    Metadata
	pos     int64 // frames consumed
}

// Metadata contains audio file metadata
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int64
}

// OpenAudioFile opens a WAV file for reading
func OpenAudioFile(filename string) (*Reader, *Metadata, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: not a valid WAV file: %s", ErrUnsupportedFormat, filename)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		f.Close()
		return nil, nil, fmt.Errorf("%w: WAV format tag %d in file: %s", ErrUnsupportedFormat, decoder.WavAudioFormat, filename)
	}
	switch decoder.BitDepth {
	case 8, 16, 24, 32:
	default:
		f.Close()
		return nil, nil, fmt.Errorf("%w: %d-bit samples in file: %s", ErrUnsupportedFormat, decoder.BitDepth, filename)
	}

	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to find PCM data: %w", err)
	}

	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	if channels < 1 || sampleRate < 1 {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %d channels at %d Hz in file: %s", ErrUnsupportedFormat, channels, sampleRate, filename)
	}

	bytesPerSample := int(decoder.BitDepth) / 8
	frames := decoder.PCMLen() / int64(channels*bytesPerSample)
	if frames == 0 {
		f.Close()
		return nil, nil, fmt.Errorf("%w: no audio frames in file: %s", ErrUnsupportedFormat, filename)
	}

	meta := Metadata{
		Duration:   float64(frames) / float64(sampleRate),
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   int(decoder.BitDepth),
		Frames:     frames,
	}

	r := &Reader{
		file:    f,
		decoder: decoder,
		buf: &goaudio.IntBuffer{
			Format: decoder.Format(),
			Data:   make([]int, readChunkFrames*channels),
		},
		meta: meta,
	}
	return r, &meta, nil
}

// Position returns the next frame to be read
func (r *Reader) Position() int64 { return r.pos }

// ReadBlock fills dst, one slice per output channel, and returns the
// number of frames read. Output channels beyond the file's channel count
// repeat the file's channels. io.EOF is returned once no frames remain.
func (r *Reader) ReadBlock(dst [][]float64) (int, error) {
	if len(dst) == 0 || len(dst[0]) == 0 {
		return 0, nil
	}
	want := len(dst[0])
	total := 0

	for total < want {
		frames, err := r.decode(min(want-total, readChunkFrames))
		if frames > 0 {
			r.deinterleave(dst, total, frames)
			total += frames
		}
		if err != nil {
			return total, err
		}
		if frames == 0 {
			break
		}
	}

	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// decode reads up to frames frames into r.buf and returns the number of
// whole frames decoded
func (r *Reader) decode(frames int) (int, error) {
	channels := r.meta.Channels
	r.buf.Data = r.buf.Data[:frames*channels]

	n, err := r.decoder.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to decode PCM data: %w", err)
	}
	got := n / channels
	r.pos += int64(got)
	return got, nil
}

// deinterleave converts frames samples from r.buf into dst at offset
func (r *Reader) deinterleave(dst [][]float64, offset, frames int) {
	channels := r.meta.Channels
	convert := sampleConverter(r.meta.BitDepth)
	for ch := range dst {
		src := ch % channels
		out := dst[ch][offset : offset+frames]
		for i := range out {
			out[i] = convert(r.buf.Data[i*channels+src])
		}
	}
}

// sampleConverter returns the int-to-float mapping for a bit depth.
// 8-bit WAV is unsigned with a 128 midpoint; wider depths are signed.
func sampleConverter(bitDepth int) func(int) float64 {
	if bitDepth == 8 {
		return func(v int) float64 { return float64(v-128) / 128 }
	}
	scale := float64(int64(1) << (bitDepth - 1))
	return func(v int) float64 { return float64(v) / scale }
}

// Seek moves the read position to frame, clamped to the file length
func (r *Reader) Seek(frame int64) error {
	frame = max(0, min(frame, r.meta.Frames))

	if frame < r.pos {
		if err := r.decoder.Rewind(); err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
		r.pos = 0
	}

	// PCM data is not indexed, so skip forward by decoding
	for r.pos < frame {
		n, err := r.decode(int(min(frame-r.pos, readChunkFrames)))
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	return nil
}

// Close releases the file
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
