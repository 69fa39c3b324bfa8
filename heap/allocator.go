package heap

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkheap/internal/sbrk"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// MaxAllocationSize is the largest request whose aligned footprint can still be represented.
// Larger requests fail with ErrOutOfMemory.
const MaxAllocationSize = math.MaxInt - metadata.HeaderSize - memutils.WordSize

// Allocator is a first-fit heap that grows a break-style region and never gives memory back while
// it is open. Every block it creates persists until Close: releasing a block only marks it free, and
// a later allocation of exactly the same aligned size will reuse it.
//
// An Allocator is not safe for concurrent use. Independent Allocators may be used from different
// goroutines.
type Allocator struct {
	logger      *slog.Logger
	createFlags CreateFlags

	brk    sbrk.Break
	blocks *metadata.FreeList
	closed bool
}

var _ memutils.Validatable = &Allocator{}

// AlignSize rounds n up to the next multiple of the machine word size
func AlignSize(n int) int {
	return memutils.AlignSize(n)
}

// Allocate hands out a payload of at least size bytes. The earliest-created free block whose size
// is exactly the aligned request is reused if one exists. Otherwise the heap grows by the size of a
// header plus the aligned payload.
//
// A zero-byte request is valid and produces a block with an empty payload. Payloads are not zeroed:
// a reused block still holds whatever its previous owner wrote.
func (a *Allocator) Allocate(size int) (Pointer, error) {
	a.logger.Debug("Allocator::Allocate", slog.Int("Size", size))

	if a.closed {
		return Nil, ErrClosed
	}

	if size < 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "cannot allocate %d bytes", size)
	}

	if size > MaxAllocationSize {
		return Nil, errors.Wrapf(ErrOutOfMemory, "an allocation of %d bytes cannot fit in any heap", size)
	}

	size = memutils.AlignSize(size)

	index, found := a.blocks.FindFreeBlock(size)
	if found {
		a.blocks.MarkUsed(index)
		block := a.blocks.Block(index)
		a.writeHeader(block)

		a.logger.Debug("Allocator::Allocate reused free block",
			slog.Int("Offset", block.Offset),
			slog.Int("Size", block.Size),
		)

		a.validateIfRequested()
		return Pointer(block.PayloadOffset()), nil
	}

	headerOffset, err := a.growHeap(size)
	if err != nil {
		return Nil, err
	}

	prevTail := a.blocks.Tail()
	index = a.blocks.Append(headerOffset, size)
	block := a.blocks.Block(index)

	a.writeHeader(block)
	if prevTail != metadata.NoBlock {
		// The previous tail's mirrored next link now points at the new block
		a.writeHeader(a.blocks.Block(prevTail))
	}

	a.validateIfRequested()
	return Pointer(block.PayloadOffset()), nil
}

// growHeap moves the break far enough to hold a header and a payload of size bytes, returning the
// offset of the new header
func (a *Allocator) growHeap(size int) (int, error) {
	footprint := metadata.FootprintSize(size)

	headerOffset, err := a.brk.Grow(footprint)
	if err != nil {
		a.logger.Debug("Allocator::growHeap failed",
			slog.Int("Footprint", footprint),
			slog.Int("Top", a.brk.Top()),
			slog.Any("error", err),
		)

		return 0, errors.Wrapf(ErrOutOfMemory, "could not grow the heap by %d bytes: %v", footprint, err)
	}

	a.logger.Debug("Allocator::growHeap",
		slog.Int("Offset", headerOffset),
		slog.Int("Footprint", footprint),
	)

	return headerOffset, nil
}

// Release marks the block that owns the provided payload as free so that a later allocation of
// the same size can reuse it. The payload bytes are left as they are and the heap never shrinks.
//
// Releasing a block that is already free does nothing. A Pointer that is not the payload of a block
// in this heap, including Nil, returns ErrInvalidPointer and leaves the heap unchanged.
func (a *Allocator) Release(p Pointer) error {
	a.logger.Debug("Allocator::Release", slog.String("Pointer", p.String()))

	if a.closed {
		return ErrClosed
	}

	index, err := a.lookup(p)
	if err != nil {
		return err
	}

	if !a.blocks.MarkFree(index) {
		a.logger.Debug("Allocator::Release block was already free", slog.String("Pointer", p.String()))
		return nil
	}

	a.writeHeader(a.blocks.Block(index))

	a.validateIfRequested()
	return nil
}

func (a *Allocator) lookup(p Pointer) (metadata.BlockIndex, error) {
	if int(p) < metadata.HeaderSize {
		return metadata.NoBlock, errors.Wrapf(ErrInvalidPointer, "pointer %s", p)
	}

	index, ok := a.blocks.Lookup(p.headerOffset())
	if !ok {
		return metadata.NoBlock, errors.Wrapf(ErrInvalidPointer, "pointer %s", p)
	}

	return index, nil
}

// Header returns the metadata of the block that owns the provided payload
func (a *Allocator) Header(p Pointer) (metadata.Block, error) {
	if a.closed {
		return metadata.Block{}, ErrClosed
	}

	index, err := a.lookup(p)
	if err != nil {
		return metadata.Block{}, err
	}

	return a.blocks.Block(index), nil
}

// Payload returns the payload bytes of the block that owns the provided pointer. The slice is only
// valid until the allocator is closed. It is returned for free blocks as well, since releasing a
// block does not prevent access to its bytes.
func (a *Allocator) Payload(p Pointer) ([]byte, error) {
	block, err := a.Header(p)
	if err != nil {
		return nil, err
	}

	start := block.PayloadOffset()
	return a.brk.Bytes()[start : start+block.Size : start+block.Size], nil
}

// BlockCount returns the number of blocks that have been created, both used and free
func (a *Allocator) BlockCount() int {
	return a.blocks.Len()
}

// Top returns the offset of the heap's current break
func (a *Allocator) Top() int {
	if a.closed {
		return 0
	}
	return a.brk.Top()
}

func (a *Allocator) writeHeader(block metadata.Block) {
	nextOffset := -1
	if block.Next != metadata.NoBlock {
		nextOffset = a.blocks.Block(block.Next).Offset
	}

	metadata.EncodeHeader(a.brk.Bytes()[block.Offset:], block.Size, block.Used, nextOffset)
}

func (a *Allocator) validateIfRequested() {
	if a.createFlags&CreateValidateEveryOperation != 0 {
		err := a.Validate()
		if err != nil {
			panic(err)
		}
		return
	}

	memutils.DebugValidate(a)
}

// Validate performs internal consistency checks on the block registry and verifies that the header
// in front of every payload matches it. When the allocator is functioning correctly and nothing has
// written outside of its payloads, it should not be possible for this method to return an error.
func (a *Allocator) Validate() error {
	if a.closed {
		return ErrClosed
	}

	err := a.blocks.Validate()
	if err != nil {
		return err
	}

	if tail := a.blocks.Tail(); tail != metadata.NoBlock {
		block := a.blocks.Block(tail)
		if end := block.Offset + block.Footprint(); end > a.brk.Top() {
			return errors.Newf("the last block ends at offset %d, past the break at %d", end, a.brk.Top())
		}
	}

	return a.CheckCorruption()
}

// CheckCorruption decodes the header in front of every payload and returns an error describing the
// first one that does not match the block registry. A mismatch means something wrote past the end of
// a payload or before its start.
func (a *Allocator) CheckCorruption() error {
	a.logger.Debug("Allocator::CheckCorruption")

	if a.closed {
		return ErrClosed
	}

	data := a.brk.Bytes()
	return a.blocks.VisitAllBlocks(func(index metadata.BlockIndex, block metadata.Block) error {
		if block.Offset+metadata.HeaderSize > len(data) {
			return errors.Newf("the header of block %d at offset %d is outside of the heap region", index, block.Offset)
		}

		header, err := metadata.DecodeHeader(data[block.Offset:])
		if err != nil {
			return errors.Wrapf(err, "corrupted header for block %d at offset %d", index, block.Offset)
		}

		if header.Size != block.Size || header.Used != block.Used {
			return errors.Newf("corrupted header for block %d at offset %d: header reports size %d used %t, but the block has size %d used %t",
				index, block.Offset, header.Size, header.Used, block.Size, block.Used)
		}

		nextOffset := -1
		if block.Next != metadata.NoBlock {
			nextOffset = a.blocks.Block(block.Next).Offset
		}
		if header.NextOffset != nextOffset {
			return errors.Newf("corrupted header for block %d at offset %d: header links to offset %d, but the next block is at offset %d",
				index, block.Offset, header.NextOffset, nextOffset)
		}

		return nil
	})
}

// Close destroys the heap and gives its whole region back. Every Pointer and payload slice handed
// out by the allocator becomes invalid. If any block is still used, each one is logged at error
// level and an error is returned, but the heap is torn down regardless.
func (a *Allocator) Close() error {
	a.logger.Debug("Allocator::Close")

	if a.closed {
		return nil
	}

	var leakErr error
	if !a.blocks.IsEmpty() {
		_ = a.blocks.VisitAllBlocks(func(index metadata.BlockIndex, block metadata.Block) error {
			if block.Used {
				a.logUnreleasedMemory(block)
			}
			return nil
		})

		leakErr = errors.Newf("%d allocations were not released before the heap was closed", a.blocks.UsedCount())
	}

	err := a.brk.Close()
	a.closed = true
	a.brk = nil
	a.blocks = metadata.NewFreeList()

	if err != nil {
		return errors.CombineErrors(leakErr, errors.Wrap(err, "heap: failed to release the heap region"))
	}

	return leakErr
}

func (a *Allocator) logUnreleasedMemory(block metadata.Block) {
	a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unreleased allocation",
		slog.String("pointer", Pointer(block.PayloadOffset()).String()),
		slog.Int("offset", block.Offset),
		slog.Int("size", block.Size),
	)
}
