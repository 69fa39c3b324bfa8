package metadata

import "math"

// BlockIndex identifies a block by its position in the FreeList, which is also its creation order
type BlockIndex int

const (
	NoBlock BlockIndex = math.MinInt
)

// Block is the metadata for a single region of the heap. Size never changes after the block is
// created, and Used is the only field that is flipped over the block's lifetime.
type Block struct {
	// Offset is the location of the block's header inside the heap region
	Offset int
	// Size is the word-aligned size in bytes of the payload, not including the header
	Size int
	// Used indicates whether the payload is currently handed out
	Used bool
	// Next is the block that was created immediately after this one, or NoBlock for the tail
	Next BlockIndex
}

// PayloadOffset returns the location of the block's payload inside the heap region
func (b Block) PayloadOffset() int {
	return PayloadOffset(b.Offset)
}

// Footprint returns the number of heap bytes the block occupies, header included
func (b Block) Footprint() int {
	return FootprintSize(b.Size)
}
