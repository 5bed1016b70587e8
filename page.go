package lfs

// Page returns the window of at most count items starting at offset, and the
// offset of the following window.
//
// An offset at or past the end is a *BoundsError, even for an empty
// collection at offset 0, so callers can loop until ErrOutOfBounds without
// checking for emptiness first. next never exceeds len(items).
func Page[T any](items []T, offset, count int) ([]T, int, error) {
	if offset < 0 || count < 0 || offset >= len(items) {
		return nil, offset, &BoundsError{Offset: offset, Count: count, Len: len(items)}
	}
	next := len(items)
	if count < next-offset {
		next = offset + count
	}
	return items[offset:next], next, nil
}
