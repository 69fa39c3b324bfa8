package metadata

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// HeaderSize is the number of bytes reserved in front of every payload: one 64-bit word each
	// for the payload size, the used flag and the link to the next block
	HeaderSize int = 24

	// HeaderMagicValue is written into the padding of the used flag word so that CheckCorruption can
	// tell a header from arbitrary payload bytes
	HeaderMagicValue uint32 = 0x7F84E666

	sizeWordOffset = 0
	usedFlagOffset = 8
	magicOffset    = 12
	nextWordOffset = 16

	noNextOffset = ^uint64(0)
)

// FootprintSize returns the number of bytes that must be grown from the heap to hold a block with
// a payload of the provided size
func FootprintSize(size int) int {
	return size + HeaderSize
}

// PayloadOffset converts a header offset into the offset of the payload that follows it
func PayloadOffset(headerOffset int) int {
	return headerOffset + HeaderSize
}

// HeaderOffset converts a payload offset into the offset of the header in front of it. It is the
// exact inverse of PayloadOffset.
func HeaderOffset(payloadOffset int) int {
	return payloadOffset - HeaderSize
}

// Header is the decoded form of the bytes that sit in front of every payload in the heap
type Header struct {
	Size       int
	Used       bool
	NextOffset int
}

// EncodeHeader writes a block header into dst, which must be at least HeaderSize bytes long.
// nextOffset is the header offset of the following block, or a negative value when there is none.
func EncodeHeader(dst []byte, size int, used bool, nextOffset int) {
	_ = dst[HeaderSize-1]

	binary.LittleEndian.PutUint64(dst[sizeWordOffset:], uint64(size))

	var flag uint32
	if used {
		flag = 1
	}
	binary.LittleEndian.PutUint32(dst[usedFlagOffset:], flag)
	binary.LittleEndian.PutUint32(dst[magicOffset:], HeaderMagicValue)

	next := noNextOffset
	if nextOffset >= 0 {
		next = uint64(nextOffset)
	}
	binary.LittleEndian.PutUint64(dst[nextWordOffset:], next)
}

// DecodeHeader reads a block header from src
func DecodeHeader(src []byte) (Header, error) {
	var header Header

	if len(src) < HeaderSize {
		return header, errors.Errorf("header requires %d bytes but only %d were available", HeaderSize, len(src))
	}

	if binary.LittleEndian.Uint32(src[magicOffset:]) != HeaderMagicValue {
		return header, errors.New("header magic value is missing")
	}

	flag := binary.LittleEndian.Uint32(src[usedFlagOffset:])
	if flag > 1 {
		return header, errors.Errorf("header has an invalid used flag %d", flag)
	}

	header.Size = int(binary.LittleEndian.Uint64(src[sizeWordOffset:]))
	header.Used = flag == 1
	header.NextOffset = -1

	next := binary.LittleEndian.Uint64(src[nextWordOffset:])
	if next != noNextOffset {
		header.NextOffset = int(next)
	}

	return header, nil
}
