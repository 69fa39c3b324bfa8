// Package metadata tracks the blocks of a break-grown heap.
//
// Every block is a header followed by a payload. The header records the payload size, whether the
// payload is in use, and a link to the block that was grown right after it. The FreeList holds the
// chain of all blocks in creation order and answers first-fit searches: the first free block whose
// size exactly matches the request wins. Free blocks are never split to serve smaller requests, and
// neighbouring free blocks are never merged.
//
// Nothing in this package touches heap memory directly except the header codec. Callers that own the
// heap region mirror each Block into its in-band header with EncodeHeader and may verify the mirror
// later with DecodeHeader.
package metadata
