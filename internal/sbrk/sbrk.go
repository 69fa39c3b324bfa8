// Package sbrk provides break-style growth primitives: a contiguous region of memory that can only be
// extended at its end. Offsets handed out by Grow stay valid for the life of the region.
package sbrk

import (
	"github.com/cockroachdb/errors"
)

//go:generate mockgen -source sbrk.go -destination ../mocks/mock_break.go -package mocks

// ErrBreakLimit is returned from Grow when the region cannot be extended any further
var ErrBreakLimit = errors.New("sbrk: cannot move the break past its limit")

// ErrClosed is returned from Grow after the region has been closed
var ErrClosed = errors.New("sbrk: break is closed")

// Break is a contiguous region of memory whose end (the break) only moves forward.
type Break interface {
	// Grow moves the break forward by n bytes and returns the offset of the old break, which is the
	// start of the newly available bytes. Growing by zero bytes returns the current break and always
	// succeeds on an open region. When the region cannot be extended the break does not move and the
	// returned error satisfies errors.Is(err, ErrBreakLimit).
	Grow(n int) (int, error)
	// Top returns the offset of the current break
	Top() int
	// Limit returns the largest value the break can ever reach
	Limit() int
	// Bytes returns the usable region: every byte between offset 0 and the break
	Bytes() []byte
	// Close releases the whole region. Slices previously returned from Bytes must not be used afterward.
	Close() error
}

func checkGrowth(top, limit, n int) error {
	if n < 0 {
		return errors.Newf("sbrk: cannot move the break backward by %d bytes", -n)
	}

	if n > limit-top {
		return errors.Wrapf(ErrBreakLimit, "growing the break at %d by %d bytes would exceed the limit of %d bytes", top, n, limit)
	}

	return nil
}
