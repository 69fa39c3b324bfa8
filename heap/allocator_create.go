package heap

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkheap/internal/sbrk"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateValidateEveryOperation runs Validate after every Allocate and Release and panics if it
	// fails. This is very slow and meant for tests and for chasing heap corruption.
	CreateValidateEveryOperation CreateFlags = 1 << iota
	// CreateSliceBacked grows the heap inside a Go byte slice instead of an anonymous memory mapping,
	// even on platforms where mappings are available
	CreateSliceBacked
)

var createFlagNames = []struct {
	flag CreateFlags
	name string
}{
	{CreateValidateEveryOperation, "CreateValidateEveryOperation"},
	{CreateSliceBacked, "CreateSliceBacked"},
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for _, entry := range createFlagNames {
		if f&entry.flag != 0 {
			names = append(names, entry.name)
			f &^= entry.flag
		}
	}

	if f != 0 {
		names = append(names, "Unknown")
	}

	return strings.Join(names, "|")
}

const (
	// defaultHeapSizeLimit is the value that is used as the HeapSizeLimit when none is provided via
	// CreateOptions. It is equal to 256Mb.
	defaultHeapSizeLimit int = 256 * 1024 * 1024
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// HeapSizeLimit is the largest number of bytes, headers included, that the heap will ever grow
	// to. Allocations that would move the break past this limit fail with ErrOutOfMemory. Address
	// space for the whole limit is reserved up front, but memory is only committed as the heap grows.
	// It is ignored when Break is provided.
	HeapSizeLimit int

	// Break is an optional growth primitive to build the heap in. When it is nil, the allocator creates
	// its own with a limit of HeapSizeLimit. The allocator takes ownership of the Break and closes it
	// in Close. If the provided Break has already been grown, the break is first moved forward to the
	// next word boundary so that every payload stays word aligned.
	Break sbrk.Break
}

// New creates a new Allocator
//
// logger - Receives debug records for every operation and error records for blocks that are still
// used when the allocator is closed. It may be nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}

	allocator := &Allocator{
		logger:      logger,
		createFlags: options.Flags,
		blocks:      metadata.NewFreeList(),
		brk:         options.Break,
	}

	if allocator.brk == nil {
		limit := options.HeapSizeLimit
		if limit == 0 {
			limit = defaultHeapSizeLimit
		} else if limit < 0 {
			return nil, errors.Newf("heap: CreateOptions.HeapSizeLimit must not be negative, but it was %d", limit)
		}

		var err error
		if options.Flags&CreateSliceBacked != 0 {
			allocator.brk, err = sbrk.NewSlice(limit)
		} else {
			allocator.brk, err = sbrk.NewMapped(limit)
		}
		if err != nil {
			return nil, errors.Wrap(err, "heap: failed to create the heap region")
		}
	}

	top := allocator.brk.Top()
	if padding := memutils.AlignUp(top, memutils.WordSize) - top; padding > 0 {
		_, err := allocator.brk.Grow(padding)
		if err != nil {
			return nil, errors.Wrapf(err, "heap: failed to align the break at offset %d", top)
		}
	}

	logger.Debug("Allocator::New",
		slog.String("Flags", options.Flags.String()),
		slog.Int("HeapSizeLimit", allocator.brk.Limit()),
	)

	return allocator, nil
}
