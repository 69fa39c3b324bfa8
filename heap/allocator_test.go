package heap_test

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/internal/sbrk"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

func newTestAllocator(t *testing.T, limit int) *heap.Allocator {
	logger := slog.New(slog.NewJSONHandler(io.Discard))

	allocator, err := heap.New(logger, heap.CreateOptions{
		Flags:         heap.CreateValidateEveryOperation | heap.CreateSliceBacked,
		HeapSizeLimit: limit,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = allocator.Close()
	})

	return allocator
}

func requireWordSize64(t *testing.T) {
	if memutils.WordSize != 8 {
		t.Skip("expected sizes are for 64-bit words")
	}
}

func TestAllocate_SmallRequestIsOneWord(t *testing.T) {
	requireWordSize64(t)
	allocator := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(3)
	require.NoError(t, err)

	block, err := allocator.Header(p)
	require.NoError(t, err)
	require.Equal(t, 8, block.Size)
	require.True(t, block.Used)
}

func TestAllocate_TenBytesIsTwoWords(t *testing.T) {
	requireWordSize64(t)
	allocator := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(10)
	require.NoError(t, err)

	block, err := allocator.Header(p)
	require.NoError(t, err)
	require.Equal(t, 16, block.Size)
}

func TestAllocate_ReleaseThenSameSizeReuses(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	first, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, 1, allocator.BlockCount())
	top := allocator.Top()

	require.NoError(t, allocator.Release(first))

	second, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, allocator.BlockCount())
	require.Equal(t, top, allocator.Top())

	block, err := allocator.Header(second)
	require.NoError(t, err)
	require.True(t, block.Used)
}

func TestAllocate_WithoutReleaseGrowsTwice(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	first, err := allocator.Allocate(8)
	require.NoError(t, err)
	second, err := allocator.Allocate(3)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, 2, allocator.BlockCount())

	firstBlock, err := allocator.Header(first)
	require.NoError(t, err)
	secondBlock, err := allocator.Header(second)
	require.NoError(t, err)

	require.LessOrEqual(t, firstBlock.Offset+firstBlock.Footprint(), secondBlock.Offset)
	require.Equal(t, secondBlock.Offset+secondBlock.Footprint(), allocator.Top())
}

func TestAllocate_HeaderSizeIsAlignedRequest(t *testing.T) {
	allocator := newTestAllocator(t, 1<<20)

	for size := 0; size <= 130; size++ {
		p, err := allocator.Allocate(size)
		require.NoError(t, err)
		require.NotEqual(t, heap.Nil, p)
		require.Zero(t, int(p)%memutils.WordSize)

		block, err := allocator.Header(p)
		require.NoError(t, err)
		require.Equal(t, heap.AlignSize(size), block.Size)

		payload, err := allocator.Payload(p)
		require.NoError(t, err)
		require.Len(t, payload, block.Size)
	}
}

func TestAllocate_FirstPayloadFollowsHeader(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(1)
	require.NoError(t, err)
	require.Equal(t, heap.Pointer(metadata.HeaderSize), p)
	require.Equal(t, metadata.FootprintSize(heap.AlignSize(1)), allocator.Top())
}

func TestAllocate_DifferentSizeNeverReused(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	small, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(small))

	// A free block that is larger than the request is not split or reused either
	large, err := allocator.Allocate(32)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(large))

	mid, err := allocator.Allocate(16)
	require.NoError(t, err)

	require.Equal(t, 3, allocator.BlockCount())
	require.NotEqual(t, small, mid)
	require.NotEqual(t, large, mid)

	block, err := allocator.Header(small)
	require.NoError(t, err)
	require.False(t, block.Used)
	require.Equal(t, heap.AlignSize(8), block.Size)
}

func TestAllocate_EarliestFreeBlockWins(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	first, err := allocator.Allocate(24)
	require.NoError(t, err)
	second, err := allocator.Allocate(24)
	require.NoError(t, err)
	third, err := allocator.Allocate(24)
	require.NoError(t, err)

	require.NoError(t, allocator.Release(third))
	require.NoError(t, allocator.Release(first))
	require.NoError(t, allocator.Release(second))

	p, err := allocator.Allocate(20)
	require.NoError(t, err)
	require.Equal(t, first, p)

	p, err = allocator.Allocate(17)
	require.NoError(t, err)
	require.Equal(t, second, p)

	p, err = allocator.Allocate(24)
	require.NoError(t, err)
	require.Equal(t, third, p)

	require.Equal(t, 3, allocator.BlockCount())
}

func TestAllocate_ZeroBytes(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	first, err := allocator.Allocate(0)
	require.NoError(t, err)
	second, err := allocator.Allocate(0)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, 2*metadata.HeaderSize, allocator.Top())

	payload, err := allocator.Payload(first)
	require.NoError(t, err)
	require.Empty(t, payload)
}

func TestAllocate_InvalidSize(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	_, err := allocator.Allocate(-1)
	require.ErrorIs(t, err, heap.ErrInvalidSize)

	_, err = allocator.Allocate(math.MaxInt)
	require.ErrorIs(t, err, heap.ErrOutOfMemory)

	require.Zero(t, allocator.BlockCount())
	require.Zero(t, allocator.Top())
}

func TestAllocate_OutOfMemoryLeavesHeapUnchanged(t *testing.T) {
	allocator := newTestAllocator(t, 64)

	p, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, 32, allocator.Top())

	_, err = allocator.Allocate(16)
	require.ErrorIs(t, err, heap.ErrOutOfMemory)
	require.Equal(t, 1, allocator.BlockCount())
	require.Equal(t, 32, allocator.Top())
	require.NoError(t, allocator.Validate())

	// Exactly the remaining room still fits
	q, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.NotEqual(t, p, q)
	require.Equal(t, 64, allocator.Top())

	// A full heap can still reuse free blocks
	require.NoError(t, allocator.Release(p))
	r, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, p, r)
}

func TestRelease_Idempotent(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(40)
	require.NoError(t, err)

	require.NoError(t, allocator.Release(p))
	require.NoError(t, allocator.Release(p))

	block, err := allocator.Header(p)
	require.NoError(t, err)
	require.False(t, block.Used)
	require.Equal(t, 40, block.Size)
	require.Equal(t, 1, allocator.BlockCount())
}

func TestRelease_InvalidPointer(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(16)
	require.NoError(t, err)

	testCases := map[string]heap.Pointer{
		"Nil":           heap.Nil,
		"InsideHeader":  heap.Pointer(1),
		"InsidePayload": p + 8,
		"PastBreak":     heap.Pointer(allocator.Top() + metadata.HeaderSize),
		"Negative":      heap.Pointer(-metadata.HeaderSize),
		"HeaderOffset":  p - heap.Pointer(metadata.HeaderSize),
	}

	for name, pointer := range testCases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, allocator.Release(pointer), heap.ErrInvalidPointer)

			_, err := allocator.Header(pointer)
			require.ErrorIs(t, err, heap.ErrInvalidPointer)

			_, err = allocator.Payload(pointer)
			require.ErrorIs(t, err, heap.ErrInvalidPointer)
		})
	}

	block, err := allocator.Header(p)
	require.NoError(t, err)
	require.True(t, block.Used)
}

func TestRelease_PayloadIsLeftIntact(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	p, err := allocator.Allocate(16)
	require.NoError(t, err)

	payload, err := allocator.Payload(p)
	require.NoError(t, err)
	copy(payload, "sixteen bytes!!!")

	require.NoError(t, allocator.Release(p))

	payload, err = allocator.Payload(p)
	require.NoError(t, err)
	require.Equal(t, "sixteen bytes!!!", string(payload))

	q, err := allocator.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, p, q)

	payload, err = allocator.Payload(q)
	require.NoError(t, err)
	require.Equal(t, "sixteen bytes!!!", string(payload))
}

func TestAllocator_Statistics(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	first, err := allocator.Allocate(8)
	require.NoError(t, err)
	_, err = allocator.Allocate(16)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(first))

	var stats memutils.Statistics
	allocator.CalculateStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      2,
		AllocationCount: 1,
		BlockBytes:      2*metadata.HeaderSize + 24,
		AllocationBytes: 16,
	}, stats)

	var detailed memutils.DetailedStatistics
	allocator.CalculateDetailedStatistics(&detailed)
	require.Equal(t, memutils.DetailedStatistics{
		Statistics:        stats,
		FreeBlockCount:    1,
		FreeBytes:         8,
		AllocationSizeMin: 16,
		AllocationSizeMax: 16,
		FreeBlockSizeMin:  8,
		FreeBlockSizeMax:  8,
	}, detailed)
}

func TestAllocator_BuildStatsString(t *testing.T) {
	requireWordSize64(t)
	allocator := newTestAllocator(t, 4096)

	first, err := allocator.Allocate(8)
	require.NoError(t, err)
	_, err = allocator.Allocate(16)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(first))

	require.JSONEq(t, `{"Total":{
		"BlockCount":2,"BlockBytes":72,"AllocationCount":1,"AllocationBytes":16,
		"FreeBlockCount":1,"FreeBytes":8,
		"AllocationSizeMin":16,"AllocationSizeMax":16,
		"FreeBlockSizeMin":8,"FreeBlockSizeMax":8
	}}`, allocator.BuildStatsString(false))

	require.JSONEq(t, `{"Total":{
		"BlockCount":2,"BlockBytes":72,"AllocationCount":1,"AllocationBytes":16,
		"FreeBlockCount":1,"FreeBytes":8,
		"AllocationSizeMin":16,"AllocationSizeMax":16,
		"FreeBlockSizeMin":8,"FreeBlockSizeMax":8
	},"DetailedMap":{
		"Top":72,"Limit":4096,
		"TotalBytes":72,"UsedBytes":16,"Blocks":2,"Allocations":1,"FreeBlocks":1,
		"Chain":[
			{"Offset":0,"Pointer":"0x00000018","Type":"FREE","Size":8},
			{"Offset":32,"Pointer":"0x00000038","Type":"USED","Size":16}
		]
	}}`, allocator.BuildStatsString(true))
}

func TestAllocator_BuildStatsStringEmpty(t *testing.T) {
	allocator := newTestAllocator(t, 4096)

	require.JSONEq(t, `{"Total":{
		"BlockCount":0,"BlockBytes":0,"AllocationCount":0,"AllocationBytes":0,
		"FreeBlockCount":0,"FreeBytes":0
	}}`, allocator.BuildStatsString(false))
}

func TestAllocator_CloseReportsUnreleasedMemory(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs))

	allocator, err := heap.New(logger, heap.CreateOptions{
		Flags:         heap.CreateSliceBacked,
		HeapSizeLimit: 4096,
	})
	require.NoError(t, err)

	leaked, err := allocator.Allocate(8)
	require.NoError(t, err)
	released, err := allocator.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(released))

	require.Error(t, allocator.Close())
	require.Contains(t, logs.String(), "[UNRELEASED MEMORY]")
	require.Contains(t, logs.String(), leaked.String())
	require.NotContains(t, logs.String(), released.String())

	// The heap is gone either way
	require.NoError(t, allocator.Close())
	_, err = allocator.Allocate(8)
	require.ErrorIs(t, err, heap.ErrClosed)
	require.ErrorIs(t, allocator.Release(leaked), heap.ErrClosed)
	require.ErrorIs(t, allocator.Validate(), heap.ErrClosed)
	require.Zero(t, allocator.BlockCount())
	require.Zero(t, allocator.Top())
}

func TestAllocator_CloseClean(t *testing.T) {
	allocator, err := heap.New(nil, heap.CreateOptions{})
	require.NoError(t, err)

	p, err := allocator.Allocate(100)
	require.NoError(t, err)
	require.NoError(t, allocator.Release(p))

	require.NoError(t, allocator.Close())
}

func TestAllocator_IndependentHeaps(t *testing.T) {
	left := newTestAllocator(t, 4096)
	right := newTestAllocator(t, 4096)

	p, err := left.Allocate(8)
	require.NoError(t, err)
	q, err := right.Allocate(8)
	require.NoError(t, err)

	// Both heaps start at offset 0, so the pointers collide but the blocks do not
	require.Equal(t, p, q)
	require.NoError(t, left.Release(p))

	block, err := right.Header(q)
	require.NoError(t, err)
	require.True(t, block.Used)
	require.Equal(t, 1, right.BlockCount())
}

func TestNew_NegativeLimit(t *testing.T) {
	_, err := heap.New(nil, heap.CreateOptions{HeapSizeLimit: -1})
	require.Error(t, err)
}

func TestCreateFlags_String(t *testing.T) {
	testCases := map[string]struct {
		flags    heap.CreateFlags
		expected string
	}{
		"None":     {flags: 0, expected: "None"},
		"Validate": {flags: heap.CreateValidateEveryOperation, expected: "CreateValidateEveryOperation"},
		"Both": {
			flags:    heap.CreateValidateEveryOperation | heap.CreateSliceBacked,
			expected: "CreateValidateEveryOperation|CreateSliceBacked",
		},
		"Unknown": {flags: heap.CreateSliceBacked | 1<<10, expected: "CreateSliceBacked|Unknown"},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, testCase.expected, testCase.flags.String())
		})
	}
}

func TestNew_AlignsPreGrownBreak(t *testing.T) {
	testCases := map[string]struct {
		pregrown int
	}{
		"Unaligned": {pregrown: 5},
		"Aligned":   {pregrown: 2 * memutils.WordSize},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			brk, err := sbrk.NewSlice(4096)
			require.NoError(t, err)
			_, err = brk.Grow(testCase.pregrown)
			require.NoError(t, err)

			allocator, err := heap.New(nil, heap.CreateOptions{
				Flags: heap.CreateValidateEveryOperation,
				Break: brk,
			})
			require.NoError(t, err)
			defer func() {
				require.NoError(t, allocator.Close())
			}()

			alignedTop := memutils.AlignUp(testCase.pregrown, memutils.WordSize)
			require.Equal(t, alignedTop, allocator.Top())

			p, err := allocator.Allocate(8)
			require.NoError(t, err)
			require.Equal(t, heap.Pointer(alignedTop+metadata.HeaderSize), p)
			require.Zero(t, int(p)%memutils.WordSize)

			require.NoError(t, allocator.Release(p))
		})
	}
}

func TestNew_PreGrownBreakWithoutRoomToAlign(t *testing.T) {
	brk, err := sbrk.NewSlice(5)
	require.NoError(t, err)
	_, err = brk.Grow(5)
	require.NoError(t, err)

	_, err = heap.New(nil, heap.CreateOptions{Break: brk})
	require.ErrorIs(t, err, sbrk.ErrBreakLimit)
}
