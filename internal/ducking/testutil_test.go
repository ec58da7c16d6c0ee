package ducking

import (
	"sync"
	"testing"
)

const (
	testSampleRate = 44100.0
	testFFTSize    = 256
	testBins       = testFFTSize / 2
)

// binFor returns the bin index nearest to hz at the test sample rate
func binFor(hz float64) int {
	return int(hz*testFFTSize/testSampleRate + 0.5)
}

// frameWithEnergy builds a frame with the given magnitude at each bin
func frameWithEnergy(t *testing.T, bins map[int]uint8) []uint8 {
	t.Helper()
	frame := make([]uint8, testBins)
	for i, v := range bins {
		if i < 0 || i >= testBins {
			t.Fatalf("bin %d out of range", i)
		}
		frame[i] = v
	}
	return frame
}

// fakeSource is a FrameSource returning a settable frame
type fakeSource struct {
	mu    sync.Mutex
	frame []uint8
	empty bool
}

func newFakeSource(frame []uint8) *fakeSource {
	return &fakeSource{frame: frame}
}

func (f *fakeSource) set(frame []uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = frame
}

func (f *fakeSource) Frame(dst []uint8) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.empty {
		clear(dst)
		return 0
	}
	return copy(dst, f.frame)
}

func (f *fakeSource) SampleRate() float64    { return testSampleRate }
func (f *fakeSource) FrequencyBinCount() int { return testBins }

// changeRecorder collects onChange callbacks
type changeRecorder struct {
	mu      sync.Mutex
	changes []bool
}

func (r *changeRecorder) record(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, active)
}

func (r *changeRecorder) all() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.changes...)
}
