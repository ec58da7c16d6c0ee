// Package visualizer turns spectral frames into bar heights and renders
// them as terminal block characters. It only reads frames; it never
// touches the audio graph.
package visualizer

import "strings"

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// Bars maps each bin of frame to a height in [0, 1], lowest frequency
// first. When muted the result is a flat baseline and frame is not read.
func Bars(frame []uint8, muted bool) []float64 {
	heights := make([]float64, len(frame))
	if muted {
		return heights
	}
	for i, v := range frame {
		heights[i] = float64(v) / 255
	}
	return heights
}

// Spectrum renders the latest bar heights as vertical bars
type Spectrum struct {
	heights []float64
}

// NewSpectrum creates an empty spectrum
func NewSpectrum() *Spectrum {
	return &Spectrum{}
}

// Update replaces the displayed bars with frame
func (s *Spectrum) Update(frame []uint8, muted bool) {
	s.heights = Bars(frame, muted)
}

// Heights returns the displayed bar heights
func (s *Spectrum) Heights() []float64 { return s.heights }

// Columns groups the bars into n columns, each taking the loudest bar in
// its range. Fewer bars than columns gives one column per bar.
func (s *Spectrum) Columns(n int) []float64 {
	bins := len(s.heights)
	if n <= 0 || bins == 0 {
		return nil
	}
	n = min(n, bins)

	cols := make([]float64, n)
	for c := range cols {
		lo := c * bins / n
		hi := max(lo+1, (c+1)*bins/n)
		for _, h := range s.heights[lo:hi] {
			cols[c] = max(cols[c], h)
		}
	}
	return cols
}

// Render draws the spectrum into a width x height block of text, one
// character column per bar, using eighth-block partial characters for the
// top of each bar
func (s *Spectrum) Render(width, height int) string {
	height = max(1, height)
	cols := s.Columns(width)
	if len(cols) == 0 {
		return strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", max(0, width))+"\n", height), "\n")
	}

	rows := make([]string, height)
	for row := range height {
		var line strings.Builder
		rowFromBottom := float64(height - 1 - row)
		for _, h := range cols {
			level := h * float64(height)
			charIdx := 0
			if level >= rowFromBottom+1 {
				charIdx = len(barChars) - 1
			} else if level > rowFromBottom {
				frac := level - rowFromBottom
				charIdx = int(frac * float64(len(barChars)-1))
			}
			line.WriteRune(barChars[charIdx])
		}
		// Pad to the requested width when there are fewer bars than columns
		for range width - len(cols) {
			line.WriteByte(' ')
		}
		rows[row] = line.String()
	}
	return strings.Join(rows, "\n")
}
