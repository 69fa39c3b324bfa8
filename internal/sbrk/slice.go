package sbrk

import (
	"github.com/cockroachdb/errors"
)

// SliceBreak is a Break backed by a Go byte slice. The full limit is allocated as slice capacity up
// front so that the backing array never moves and payload slices stay valid as the break grows.
type SliceBreak struct {
	data   []byte
	closed bool
}

var _ Break = &SliceBreak{}

// NewSlice creates a SliceBreak that can grow to at most limit bytes
func NewSlice(limit int) (*SliceBreak, error) {
	if limit < 0 {
		return nil, errors.Newf("sbrk: invalid limit %d", limit)
	}

	return &SliceBreak{
		data: make([]byte, 0, limit),
	}, nil
}

func (b *SliceBreak) Grow(n int) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}

	top := len(b.data)
	err := checkGrowth(top, cap(b.data), n)
	if err != nil {
		return top, err
	}

	b.data = b.data[:top+n]
	return top, nil
}

func (b *SliceBreak) Top() int      { return len(b.data) }
func (b *SliceBreak) Limit() int    { return cap(b.data) }
func (b *SliceBreak) Bytes() []byte { return b.data }

func (b *SliceBreak) Close() error {
	b.data = nil
	b.closed = true
	return nil
}
