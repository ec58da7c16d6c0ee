package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterReaderTone(t *testing.T) {
	const frames = 44100
	path, want := writeToneFile(t, frames)

	r, meta, err := OpenAudioFile(path)
	if err != nil {
		t.Fatalf("OpenAudioFile: %v", err)
	}
	defer r.Close()

	if meta.SampleRate != 44100 || meta.Channels != 2 || meta.BitDepth != 16 {
		t.Errorf("metadata = %+v", *meta)
	}
	if meta.Frames != frames {
		t.Errorf("frames = %d, want %d", meta.Frames, frames)
	}
	if math.Abs(meta.Duration-1.0) > 1e-9 {
		t.Errorf("duration = %v, want 1s", meta.Duration)
	}

	block := [][]float64{make([]float64, 512), make([]float64, 512)}
	pos := 0
	var worst float64
	for {
		n, err := r.ReadBlock(block)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadBlock at %d: %v", pos, err)
		}
		for i := 0; i < n; i++ {
			worst = max(worst, math.Abs(block[0][i]-want[pos+i]))
			worst = max(worst, math.Abs(block[1][i]+want[pos+i]))
		}
		pos += n
	}

	if pos != frames {
		t.Errorf("read %d frames, want %d", pos, frames)
	}
	if worst > quantum {
		t.Errorf("max sample error %g exceeds %g", worst, quantum)
	}
	t.Logf("max round trip error %.2e", worst)
}

func TestReaderSeek(t *testing.T) {
	const frames = 20000
	path, want := writeToneFile(t, frames)

	r, _, err := OpenAudioFile(path)
	if err != nil {
		t.Fatalf("OpenAudioFile: %v", err)
	}
	defer r.Close()

	tests := []struct {
		name   string
		target int64
		wantAt int64
	}{
		{"forward", 12345, 12345},
		{"backward", 100, 100},
		{"start", 0, 0},
		{"negative clamps", -50, 0},
		{"past end clamps", frames + 999, frames},
	}

	block := [][]float64{make([]float64, 8), make([]float64, 8)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Seek(tt.target); err != nil {
				t.Fatalf("Seek: %v", err)
			}
			if got := r.Position(); got != tt.wantAt {
				t.Fatalf("position = %d, want %d", got, tt.wantAt)
			}

			n, err := r.ReadBlock(block)
			if tt.wantAt == frames {
				if !errors.Is(err, io.EOF) {
					t.Errorf("read at end: n=%d err=%v, want io.EOF", n, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadBlock: %v", err)
			}
			for i := 0; i < n; i++ {
				if d := math.Abs(block[0][i] - want[int(tt.wantAt)+i]); d > quantum {
					t.Errorf("sample %d off by %g", int(tt.wantAt)+i, d)
				}
			}
		})
	}
}

func TestReaderBitDepths(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		data     []byte
		want     []float64
	}{
		{
			name:     "8-bit unsigned",
			bitDepth: 8,
			data:     []byte{128, 255, 0, 192},
			want:     []float64{0, 127.0 / 128, -1, 0.5},
		},
		{
			name:     "16-bit signed",
			bitDepth: 16,
			data:     []byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x00, 0x40},
			want:     []float64{0, 32767.0 / 32768, -1, 0.5},
		},
		{
			name:     "24-bit signed",
			bitDepth: 24,
			data:     []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80, 0x00, 0x00, 0x40},
			want:     []float64{0, -1, 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRawWAV(t, rawWAV{BitDepth: tt.bitDepth, Data: tt.data})
			r, meta, err := OpenAudioFile(path)
			if err != nil {
				t.Fatalf("OpenAudioFile: %v", err)
			}
			defer r.Close()

			if meta.Frames != int64(len(tt.want)) {
				t.Fatalf("frames = %d, want %d", meta.Frames, len(tt.want))
			}

			block := [][]float64{make([]float64, len(tt.want))}
			n, err := r.ReadBlock(block)
			if err != nil {
				t.Fatalf("ReadBlock: %v", err)
			}
			if n != len(tt.want) {
				t.Fatalf("read %d frames, want %d", n, len(tt.want))
			}
			for i, w := range tt.want {
				if math.Abs(block[0][i]-w) > 1e-9 {
					t.Errorf("sample %d = %v, want %v", i, block[0][i], w)
				}
			}
		})
	}
}

func TestReaderMonoUpmix(t *testing.T) {
	samples := []float64{0.25, -0.5, 0.75}
	path := writeRawWAV(t, rawWAV{Data: int16Bytes(samples)})

	r, _, err := OpenAudioFile(path)
	if err != nil {
		t.Fatalf("OpenAudioFile: %v", err)
	}
	defer r.Close()

	block := [][]float64{make([]float64, 3), make([]float64, 3)}
	if _, err := r.ReadBlock(block); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := range samples {
		if block[0][i] != block[1][i] {
			t.Errorf("frame %d: left %v != right %v", i, block[0][i], block[1][i])
		}
		if math.Abs(block[0][i]-samples[i]) > quantum {
			t.Errorf("frame %d = %v, want %v", i, block[0][i], samples[i])
		}
	}
}

func TestOpenAudioFileErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("this is not a wave file at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		path        string
		unsupported bool
	}{
		{"missing file", filepath.Join(dir, "missing.wav"), false},
		{"not a WAV", garbage, true},
		{
			"float format tag",
			writeRawWAV(t, rawWAV{FormatTag: 3, BitDepth: 32, Data: make([]byte, 64)}),
			true,
		},
		{"no frames", writeRawWAV(t, rawWAV{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, err := OpenAudioFile(tt.path)
			if err == nil {
				r.Close()
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrUnsupportedFormat); got != tt.unsupported {
				t.Errorf("errors.Is(ErrUnsupportedFormat) = %v, want %v (err: %v)", got, tt.unsupported, err)
			}
		})
	}
}

func TestWriterClipsAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	w, err := CreateAudioFile(path, 8000, 1)
	if err != nil {
		t.Fatalf("CreateAudioFile: %v", err)
	}

	if err := w.Write([][]float64{{0}, {0}}, 1); err == nil {
		t.Error("expected channel mismatch error")
	}
	if err := w.Write([][]float64{{2, -2, 0.5}}, 3); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	r, _, err := OpenAudioFile(path)
	if err != nil {
		t.Fatalf("OpenAudioFile: %v", err)
	}
	defer r.Close()

	block := [][]float64{make([]float64, 3)}
	if _, err := r.ReadBlock(block); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	want := []float64{1, -1, 0.5}
	for i := range want {
		if math.Abs(block[0][i]-want[i]) > quantum {
			t.Errorf("sample %d = %v, want %v", i, block[0][i], want[i])
		}
	}

	if _, err := CreateAudioFile(filepath.Join(t.TempDir(), "bad.wav"), 0, 2); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("zero sample rate: err = %v, want ErrUnsupportedFormat", err)
	}
}
