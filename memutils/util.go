package memutils

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// WordSize is the size in bytes of a machine word on the current platform. Every block size
// handed out by the heap is a multiple of this value.
const WordSize int = int(unsafe.Sizeof(uintptr(0)))

func CheckPow2[T constraints.Integer](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be a power of two
func AlignUp[T constraints.Integer](value T, alignment T) T {
	return (value + alignment - 1) &^ (alignment - 1)
}

// AlignSize returns the smallest multiple of WordSize that is greater than or equal to size.
//
//	AlignSize(0)  = 0
//	AlignSize(3)  = 8
//	AlignSize(8)  = 8
//	AlignSize(10) = 16
//
// (on a platform with 8-byte words)
func AlignSize(size int) int {
	return AlignUp(size, WordSize)
}
