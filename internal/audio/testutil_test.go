package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// rawWAV describes a WAV file written byte for byte, bypassing the encoder
type rawWAV struct {
	FormatTag  uint16 // default: 1 (PCM)
	Channels   int    // default: 1
	SampleRate int    // default: 44100
	BitDepth   int    // default: 16
	Data       []byte // interleaved sample bytes
}

// writeRawWAV writes a canonical 44-byte header followed by Data and
// returns the file path inside the test's temp dir
func writeRawWAV(t *testing.T, w rawWAV) string {
	t.Helper()

	if w.FormatTag == 0 {
		w.FormatTag = 1
	}
	if w.Channels == 0 {
		w.Channels = 1
	}
	if w.SampleRate == 0 {
		w.SampleRate = 44100
	}
	if w.BitDepth == 0 {
		w.BitDepth = 16
	}

	blockAlign := w.Channels * w.BitDepth / 8
	byteRate := w.SampleRate * blockAlign
	dataSize := len(w.Data)
	fileSize := 36 + dataSize // Total file size minus 8 bytes for RIFF header

	path := filepath.Join(t.TempDir(), "raw.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	write := func(v any) {
		t.Helper()
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			t.Fatalf("failed to write WAV file: %v", err)
		}
	}

	// RIFF header
	write([]byte("RIFF"))
	write(uint32(fileSize))
	write([]byte("WAVE"))

	// fmt subchunk
	write([]byte("fmt "))
	write(uint32(16))
	write(w.FormatTag)
	write(uint16(w.Channels))
	write(uint32(w.SampleRate))
	write(uint32(byteRate))
	write(uint16(blockAlign))
	write(uint16(w.BitDepth))

	// data subchunk
	write([]byte("data"))
	write(uint32(dataSize))
	write(w.Data)

	return path
}

// int16Bytes encodes float samples in [-1, 1] as 16-bit little-endian PCM
func int16Bytes(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}

// tone returns frames samples of a sine at freq with the given amplitude
func tone(frames int, sampleRate, freq, amp float64) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

// writeToneFile renders a stereo tone through Writer and returns the path.
// The right channel is the left channel inverted.
func writeToneFile(t *testing.T, frames int) (string, []float64) {
	t.Helper()

	const sampleRate = 44100
	left := tone(frames, sampleRate, 440, 0.5)

	path := filepath.Join(t.TempDir(), "tone.wav")
	w, err := CreateAudioFile(path, sampleRate, 2)
	if err != nil {
		t.Fatalf("CreateAudioFile: %v", err)
	}

	// Write in uneven chunks to exercise buffer reuse
	const chunk = 1000
	block := [][]float64{make([]float64, chunk), make([]float64, chunk)}
	for off := 0; off < frames; off += chunk {
		n := min(chunk, frames-off)
		for i := 0; i < n; i++ {
			block[0][i] = left[off+i]
			block[1][i] = -left[off+i]
		}
		if err := w.Write(block, n); err != nil {
			t.Fatalf("Write at %d: %v", off, err)
		}
	}
	if got := w.Frames(); got != int64(frames) {
		t.Errorf("writer frames = %d, want %d", got, frames)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path, left
}

// quantum is one 16-bit step plus rounding slack
const quantum = 2.0 / math.MaxInt16
