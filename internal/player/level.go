package player

import (
	"math"

	"github.com/linuxmatters/airwave/internal/ducking"
	"github.com/linuxmatters/airwave/internal/graph"
)

// TickRate is how many ducking analysis steps run per second of rendered
// audio, matching the live display rate
const TickRate = ducking.DefaultFrameRate

// silenceDB is the level meter floor
const silenceDB = -60.0

// blockLevel calculates the RMS level of a block in dB for the level
// meter, clamped to [-60, 0]
func blockLevel(b graph.Block) float64 {
	var sumSquares float64
	var sampleCount int
	for _, ch := range b {
		for _, s := range ch {
			sumSquares += s * s
			sampleCount++
		}
	}
	if sampleCount == 0 {
		return silenceDB
	}

	rms := math.Sqrt(sumSquares / float64(sampleCount))
	if rms < 0.00001 { // Equivalent to -100 dB
		return silenceDB
	}

	levelDB := 20.0 * math.Log10(rms)
	return max(silenceDB, min(0, levelDB))
}
