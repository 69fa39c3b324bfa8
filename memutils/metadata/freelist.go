package metadata

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/brkheap/memutils"
)

// FreeList is the registry of every block a heap has ever created. Blocks are chained in creation
// order from head to tail, with used and free blocks mixed together. Blocks are never removed:
// the only thing that changes after Append is each block's used flag.
//
// The chain is stored as a slice of Block records so that Next is an index rather than an address.
// A swiss map from header offset to index lets payload offsets be resolved and checked in constant
// time.
type FreeList struct {
	blocks []Block
	head   BlockIndex
	tail   BlockIndex

	offsetKey *swiss.Map[int, BlockIndex]

	totalBytes int
	usedCount  int
	usedBytes  int
}

var _ memutils.Validatable = &FreeList{}

// NewFreeList creates an empty FreeList
func NewFreeList() *FreeList {
	return &FreeList{
		head:      NoBlock,
		tail:      NoBlock,
		offsetKey: swiss.NewMap[int, BlockIndex](42),
	}
}

// Len returns the number of blocks in the chain
func (l *FreeList) Len() int { return len(l.blocks) }

// Head returns the first block ever created, or NoBlock if the list is empty
func (l *FreeList) Head() BlockIndex { return l.head }

// Tail returns the most recently created block, or NoBlock if the list is empty
func (l *FreeList) Tail() BlockIndex { return l.tail }

// UsedCount returns the number of blocks currently marked used
func (l *FreeList) UsedCount() int { return l.usedCount }

// IsEmpty returns true if no block in the list is currently used
func (l *FreeList) IsEmpty() bool { return l.usedCount == 0 }

// Block retrieves a copy of the block at the provided index. It panics if the index does not
// belong to this list.
func (l *FreeList) Block(index BlockIndex) Block {
	if !l.contains(index) {
		panic(fmt.Sprintf("block index %d is outside of the free list (length %d)", index, len(l.blocks)))
	}

	return l.blocks[index]
}

func (l *FreeList) contains(index BlockIndex) bool {
	return index >= 0 && int(index) < len(l.blocks)
}

// Lookup accepts the offset of a block header and returns the index of the block that lives there.
// The boolean return value is false if no block header lives at that offset.
func (l *FreeList) Lookup(headerOffset int) (BlockIndex, bool) {
	return l.offsetKey.Get(headerOffset)
}

// Append registers a newly grown block with a header at headerOffset and a payload of size bytes.
// The block becomes the new tail, the old tail is linked to it, and if the list was empty it also
// becomes the head. New blocks are always marked used.
func (l *FreeList) Append(headerOffset int, size int) BlockIndex {
	memutils.DebugCheckAligned(size, "block size")

	if l.offsetKey.Has(headerOffset) {
		panic(fmt.Sprintf("a block header already exists at offset %d", headerOffset))
	}

	index := BlockIndex(len(l.blocks))
	l.blocks = append(l.blocks, Block{
		Offset: headerOffset,
		Size:   size,
		Used:   true,
		Next:   NoBlock,
	})
	l.offsetKey.Put(headerOffset, index)

	if l.head == NoBlock {
		l.head = index
	}

	if l.tail != NoBlock {
		l.blocks[l.tail].Next = index
	}

	l.tail = index

	l.totalBytes += FootprintSize(size)
	l.usedCount++
	l.usedBytes += size

	return index
}

// FindFreeBlock walks the chain from the head and returns the first block that is free and whose
// size is exactly the requested size. Larger free blocks are never selected. The boolean return value
// is false when no such block exists, including when the list is empty.
func (l *FreeList) FindFreeBlock(size int) (BlockIndex, bool) {
	for index := l.head; index != NoBlock; index = l.blocks[index].Next {
		block := &l.blocks[index]
		if !block.Used && block.Size == size {
			return index, true
		}
	}

	return NoBlock, false
}

// MarkUsed flags the block at the provided index as used. It returns false if the block was already used.
func (l *FreeList) MarkUsed(index BlockIndex) bool {
	block := &l.blocks[l.mustContain(index)]
	if block.Used {
		return false
	}

	block.Used = true
	l.usedCount++
	l.usedBytes += block.Size
	return true
}

// MarkFree flags the block at the provided index as free. It returns false if the block was already
// free, in which case nothing changes.
func (l *FreeList) MarkFree(index BlockIndex) bool {
	block := &l.blocks[l.mustContain(index)]
	if !block.Used {
		return false
	}

	block.Used = false
	l.usedCount--
	l.usedBytes -= block.Size
	return true
}

func (l *FreeList) mustContain(index BlockIndex) BlockIndex {
	if !l.contains(index) {
		panic(fmt.Sprintf("block index %d is outside of the free list (length %d)", index, len(l.blocks)))
	}
	return index
}

// VisitAllBlocks will call the provided callback once for each block in creation order. Iteration
// stops at the first error returned from the callback, and that error is returned.
func (l *FreeList) VisitAllBlocks(handleBlock func(index BlockIndex, block Block) error) error {
	for index := l.head; index != NoBlock; index = l.blocks[index].Next {
		err := handleBlock(index, l.blocks[index])
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate performs internal consistency checks on the chain. When the list is functioning correctly
// it should not be possible for this method to return an error.
func (l *FreeList) Validate() error {
	if len(l.blocks) == 0 {
		if l.head != NoBlock || l.tail != NoBlock {
			return errors.New("empty free list has a head or tail block")
		}
		if l.offsetKey.Count() != 0 {
			return errors.Errorf("empty free list has %d indexed header offsets", l.offsetKey.Count())
		}
		return nil
	}

	if l.head != 0 {
		return errors.Errorf("the head of the free list should be the first block created, but it is block %d", l.head)
	}

	if int(l.tail) != len(l.blocks)-1 {
		return errors.Errorf("the tail of the free list should be the most recent block %d, but it is block %d", len(l.blocks)-1, l.tail)
	}

	if l.offsetKey.Count() != len(l.blocks) {
		return errors.Errorf("the free list has %d blocks but %d indexed header offsets", len(l.blocks), l.offsetKey.Count())
	}

	var totalBytes, usedCount, usedBytes, visited int
	prevEnd := -1
	prev := NoBlock

	for index := l.head; index != NoBlock; prev, index = index, l.blocks[index].Next {
		if !l.contains(index) {
			return errors.Errorf("block %d links to block %d which is outside of the free list", prev, index)
		}

		if visited != int(index) {
			return errors.Errorf("block %d was found at chain position %d, blocks must be chained in creation order", index, visited)
		}

		visited++

		block := l.blocks[index]
		if block.Size < 0 || block.Size%memutils.WordSize != 0 {
			return errors.Errorf("block %d has size %d, which is not a multiple of the word size %d", index, block.Size, memutils.WordSize)
		}

		if block.Offset < prevEnd {
			return errors.Errorf("block %d at offset %d overlaps the previous block, which ends at offset %d", index, block.Offset, prevEnd)
		}
		prevEnd = block.Offset + block.Footprint()

		indexed, ok := l.offsetKey.Get(block.Offset)
		if !ok || indexed != index {
			return errors.Errorf("block %d at offset %d is not indexed by its header offset", index, block.Offset)
		}

		totalBytes += block.Footprint()
		if block.Used {
			usedCount++
			usedBytes += block.Size
		}
	}

	if visited != len(l.blocks) {
		return errors.Errorf("the free list chain only reaches %d of %d blocks", visited, len(l.blocks))
	}

	if totalBytes != l.totalBytes {
		return errors.Errorf("the free list tracks %d total bytes, but the blocks only added up to %d", l.totalBytes, totalBytes)
	}

	if usedCount != l.usedCount {
		return errors.Errorf("the free list tracks %d used blocks, but %d blocks are marked used", l.usedCount, usedCount)
	}

	if usedBytes != l.usedBytes {
		return errors.Errorf("the free list tracks %d used bytes, but the used blocks only added up to %d", l.usedBytes, usedBytes)
	}

	return nil
}

// AddStatistics sums this list's statistics into the statistics currently present in the provided
// memutils.Statistics object.
func (l *FreeList) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount += len(l.blocks)
	stats.BlockBytes += l.totalBytes
	stats.AllocationCount += l.usedCount
	stats.AllocationBytes += l.usedBytes
}

// AddDetailedStatistics sums this list's statistics into the statistics currently present in the
// provided memutils.DetailedStatistics object.
func (l *FreeList) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount += len(l.blocks)
	stats.BlockBytes += l.totalBytes

	for i := range l.blocks {
		block := &l.blocks[i]
		if block.Used {
			stats.AddAllocation(block.Size)
		} else {
			stats.AddFreeBlock(block.Size)
		}
	}
}

// BlockJsonData populates a json object with summary information about this list
func (l *FreeList) BlockJsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(l.totalBytes)
	json.Name("UsedBytes").Int(l.usedBytes)
	json.Name("Blocks").Int(len(l.blocks))
	json.Name("Allocations").Int(l.usedCount)
	json.Name("FreeBlocks").Int(len(l.blocks) - l.usedCount)
}
