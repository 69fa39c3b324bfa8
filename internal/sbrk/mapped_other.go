//go:build !linux && !darwin

package sbrk

// NewMapped falls back to a SliceBreak on platforms without the mapping support used on linux and darwin
func NewMapped(limit int) (*SliceBreak, error) {
	return NewSlice(limit)
}
