// Package heap is a first-fit allocator over a heap region that only ever grows at its end.
//
// Every allocation becomes a block: a fixed-size header followed by a word-aligned payload. Blocks
// are chained in the order they were created and are never split, merged, or removed. Releasing a
// block marks it free, and the earliest free block whose size exactly matches a later request is
// handed out again. When nothing matches, the heap grows by one block.
//
//	allocator, err := heap.New(logger, heap.CreateOptions{})
//	p, err := allocator.Allocate(10)
//	payload, err := allocator.Payload(p)
//	err = allocator.Release(p)
//	err = allocator.Close()
package heap
