package heap

import (
	"fmt"

	"github.com/vkngwrapper/brkheap/memutils/metadata"
)

// Pointer identifies an allocation by the offset of its payload inside the heap region. Pointers
// are only meaningful to the Allocator that returned them.
type Pointer int

// Nil is never returned by a successful Allocate. The first header in the heap sits at offset 0,
// so the first payload is always at metadata.HeaderSize.
const Nil Pointer = 0

func (p Pointer) headerOffset() int {
	return metadata.HeaderOffset(int(p))
}

func (p Pointer) String() string {
	if p == Nil {
		return "nil"
	}

	return fmt.Sprintf("0x%08x", int(p))
}
