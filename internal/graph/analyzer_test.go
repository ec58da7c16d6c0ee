package graph

import (
	"math"
	"testing"
)

func TestAnalyzerEmptyFrame(t *testing.T) {
	a := NewAnalyzer(44100)
	frame := make([]uint8, FrequencyBinCount)
	for i := range frame {
		frame[i] = 0xAA
	}

	if n := a.Frame(frame); n != 0 {
		t.Errorf("Frame() before audio = %d bins, want 0", n)
	}
	for i, v := range frame {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0", i, v)
		}
	}
}

func TestAnalyzerNilIsZeroFrame(t *testing.T) {
	var a *Analyzer
	frame := []uint8{1, 2, 3}
	if n := a.Frame(frame); n != 0 {
		t.Errorf("nil Frame() = %d, want 0", n)
	}
	for i, v := range frame {
		if v != 0 {
			t.Errorf("bin %d = %d, want 0", i, v)
		}
	}
}

func TestAnalyzerPassThrough(t *testing.T) {
	in := generateTestSignal(t, TestSignalOptions{Channels: 2, Tones: []float64{440}})
	out := cloneBlock(in)

	NewAnalyzer(44100).Process(out)

	for ch := range in {
		for i := range in[ch] {
			if in[ch][i] != out[ch][i] {
				t.Fatalf("channel %d sample %d modified", ch, i)
			}
		}
	}
}

func TestAnalyzerTonePeak(t *testing.T) {
	tests := []struct {
		name string
		tone float64
	}{
		{"1 kHz", 1000},
		{"3 kHz", 3000},
		{"10 kHz", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(44100)
			frame := make([]uint8, FrequencyBinCount)

			sig := generateTestSignal(t, TestSignalOptions{Frames: 8192, Tones: []float64{tt.tone}})
			processInChunks(sig, 128, func(b Block) {
				a.Process(b)
				a.Frame(frame)
			})

			peak := 0
			for i, v := range frame {
				if v > frame[peak] {
					peak = i
				}
			}

			want := tt.tone * FFTSize / 44100
			t.Logf("peak bin %d (%.0f Hz), value %d", peak, a.BinFrequency(peak), frame[peak])
			if math.Abs(float64(peak)-want) > 1 {
				t.Errorf("peak bin = %d, want ~%.1f", peak, want)
			}
			if frame[peak] < 200 {
				t.Errorf("peak value = %d, want a strong peak", frame[peak])
			}
		})
	}
}

func TestAnalyzerReset(t *testing.T) {
	a := NewAnalyzer(44100)
	frame := make([]uint8, FrequencyBinCount)

	a.Process(generateTestSignal(t, TestSignalOptions{Frames: 512, Tones: []float64{1000}}))
	if n := a.Frame(frame); n != FrequencyBinCount {
		t.Fatalf("Frame() = %d, want %d", n, FrequencyBinCount)
	}

	a.Reset()
	if n := a.Frame(frame); n != 0 {
		t.Errorf("Frame() after Reset = %d, want 0", n)
	}
}

func TestAnalyzerBinFrequency(t *testing.T) {
	a := NewAnalyzer(48000)
	tests := []struct {
		bin  int
		want float64
	}{
		{0, 0},
		{1, 187.5},
		{16, 3000},
		{127, 23812.5},
	}
	for _, tt := range tests {
		if got := a.BinFrequency(tt.bin); got != tt.want {
			t.Errorf("BinFrequency(%d) = %v, want %v", tt.bin, got, tt.want)
		}
	}
}

func TestToByte(t *testing.T) {
	tests := []struct {
		name string
		mag  float64
		want uint8
	}{
		{"zero", 0, 0},
		{"below floor", math.Pow(10, -120.0/20), 0},
		{"floor", math.Pow(10, MinDecibels/20), 0},
		{"midpoint", math.Pow(10, -65.0/20), 127},
		{"ceiling", math.Pow(10, (MaxDecibels+0.1)/20), 255},
		{"above ceiling", 1, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toByte(tt.mag); got != tt.want {
				t.Errorf("toByte(%v) = %d, want %d", tt.mag, got, tt.want)
			}
		})
	}
}

func TestAnalyzerReadsHaveNoSideEffects(t *testing.T) {
	sig := generateTestSignal(t, TestSignalOptions{Frames: 8192, Tones: []float64{1000}})

	// One analyser is read by a single consumer at the end; the other is
	// read twice after every chunk, as the display and ducking loops do
	single := NewAnalyzer(44100)
	shared := NewAnalyzer(44100)
	scratch := make([]uint8, FrequencyBinCount)
	processInChunks(cloneBlock(sig), 128, single.Process)
	processInChunks(cloneBlock(sig), 128, func(b Block) {
		shared.Process(b)
		shared.Frame(scratch)
		shared.Frame(scratch)
	})

	want := make([]uint8, FrequencyBinCount)
	got := make([]uint8, FrequencyBinCount)
	single.Frame(want)
	shared.Frame(got)

	differ := 0
	for i := range want {
		if got[i] != want[i] {
			differ++
		}
	}
	if differ > 0 {
		t.Errorf("%d bins differ between a read-once and a read-often analyser", differ)
	}

	// Repeated reads of the same audio are identical
	again := make([]uint8, FrequencyBinCount)
	shared.Frame(again)
	for i := range got {
		if again[i] != got[i] {
			t.Fatalf("bin %d changed between reads: %d -> %d", i, got[i], again[i])
		}
	}
}

func TestAnalyzerUpdatesFollowSampleClock(t *testing.T) {
	tests := []struct {
		frames int
		want   int
	}{
		{FFTSize - 1, 0},
		{FFTSize, 1},
		{FFTSize*4 + 10, 4},
	}
	for _, tt := range tests {
		a := NewAnalyzer(44100)
		a.Process(generateTestSignal(t, TestSignalOptions{Frames: tt.frames, Tones: []float64{440}}))

		frame := make([]uint8, FrequencyBinCount)
		for range 3 {
			a.Frame(frame)
		}
		if got := a.Updates(); got != tt.want {
			t.Errorf("%d frames: updates = %d, want %d", tt.frames, got, tt.want)
		}
		n := a.Frame(frame)
		if (n == 0) != (tt.want == 0) {
			t.Errorf("%d frames: Frame() = %d bins", tt.frames, n)
		}
	}
}
