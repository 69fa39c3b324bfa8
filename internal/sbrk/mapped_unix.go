//go:build linux || darwin

package sbrk

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkheap/memutils"
	"golang.org/x/sys/unix"
)

// MappedBreak is a Break backed by an anonymous memory mapping. The whole limit is reserved as
// inaccessible address space when the break is created, and pages are made readable and writable
// as the break moves over them. The address of the region never changes.
type MappedBreak struct {
	region    []byte
	limit     int
	top       int
	committed int
	pageSize  int
}

var _ Break = &MappedBreak{}

// NewMapped reserves limit bytes of address space and returns a MappedBreak with its break at offset 0
func NewMapped(limit int) (*MappedBreak, error) {
	if limit <= 0 {
		return nil, errors.Newf("sbrk: invalid limit %d", limit)
	}

	pageSize := unix.Getpagesize()
	err := memutils.CheckPow2(pageSize, "page size")
	if err != nil {
		return nil, err
	}

	reserved := memutils.AlignUp(limit, pageSize)

	region, err := unix.Mmap(-1, 0, reserved, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "sbrk: failed to reserve %d bytes of address space", reserved)
	}

	return &MappedBreak{
		region:   region,
		limit:    limit,
		pageSize: pageSize,
	}, nil
}

func (b *MappedBreak) Grow(n int) (int, error) {
	if b.region == nil {
		return 0, ErrClosed
	}

	top := b.top
	err := checkGrowth(top, b.limit, n)
	if err != nil {
		return top, err
	}

	newTop := top + n
	if newTop > b.committed {
		commitEnd := memutils.AlignUp(newTop, b.pageSize)

		err = unix.Mprotect(b.region[b.committed:commitEnd], unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			return top, errors.Mark(
				errors.Wrapf(err, "sbrk: failed to commit pages %d through %d", b.committed, commitEnd),
				ErrBreakLimit,
			)
		}

		b.committed = commitEnd
	}

	b.top = newTop
	return top, nil
}

func (b *MappedBreak) Top() int   { return b.top }
func (b *MappedBreak) Limit() int { return b.limit }

func (b *MappedBreak) Bytes() []byte {
	if b.region == nil {
		return nil
	}
	return b.region[:b.top]
}

func (b *MappedBreak) Close() error {
	if b.region == nil {
		return nil
	}

	err := unix.Munmap(b.region)
	b.region = nil
	if err != nil {
		return errors.Wrap(err, "sbrk: failed to unmap region")
	}

	return nil
}
