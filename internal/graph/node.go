package graph

import "fmt"

// NodeID identifies a node in the signal chain
type NodeID string

// Node identifiers for the fixed parts of the chain
const (
	NodeSource      NodeID = "source"
	NodePreamp      NodeID = "preamp"
	NodeDucking     NodeID = "ducking"
	NodeAnalyser    NodeID = "analyser"
	NodeMaster      NodeID = "master"
	NodeDestination NodeID = "destination"
)

// BandNodeID returns the identifier of the EQ filter for band i
func BandNodeID(i int) NodeID {
	return NodeID(fmt.Sprintf("eq_%d", int(BandFrequencies[i])))
}

// Block is one buffer of planar audio: one slice per channel, all the
// same length, samples nominally in [-1, 1]
type Block [][]float64

// NewBlock allocates a block of the given shape
func NewBlock(channels, frames int) Block {
	b := make(Block, channels)
	for ch := range b {
		b[ch] = make([]float64, frames)
	}
	return b
}

// Frames returns the number of sample frames in the block
func (b Block) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Slice returns a view of the first n frames
func (b Block) Slice(n int) Block {
	out := make(Block, len(b))
	for ch := range b {
		out[ch] = b[ch][:n]
	}
	return out
}

// Node processes a block in place
type Node interface {
	ID() NodeID
	Process(b Block)
}

// GainNode multiplies every sample by a linear gain
type GainNode struct {
	id   NodeID
	gain float64
}

// NewGainNode creates a gain stage with the given initial value
func NewGainNode(id NodeID, gain float64) *GainNode {
	return &GainNode{id: id, gain: gain}
}

func (g *GainNode) ID() NodeID { return g.id }

// Gain returns the current linear gain
func (g *GainNode) Gain() float64 { return g.gain }

// SetGain sets the linear gain
func (g *GainNode) SetGain(v float64) { g.gain = v }

// Process applies the gain
func (g *GainNode) Process(b Block) {
	if g.gain == 1 {
		return
	}
	for _, ch := range b {
		for i := range ch {
			ch[i] *= g.gain
		}
	}
}
