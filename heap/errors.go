package heap

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfMemory is returned from Allocate when no free block fits and the heap cannot grow
	ErrOutOfMemory = errors.New("heap: out of memory")
	// ErrInvalidPointer is returned when a Pointer is not the payload of any block in the heap
	ErrInvalidPointer = errors.New("heap: pointer does not belong to this heap")
	// ErrInvalidSize is returned from Allocate when the requested size is negative
	ErrInvalidSize = errors.New("heap: invalid allocation size")
	// ErrClosed is returned from every operation on an Allocator after Close
	ErrClosed = errors.New("heap: allocator is closed")
)
