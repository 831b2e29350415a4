package pcm

import "fmt"

// RollingMax is the monotonic-deque rolling maximum of spec §4.3: a
// circular buffer of capacity N_p storing a non-increasing sequence,
// delimited by maxIdx (front, current maximum) and minIdx (back, most
// recently appended entry). It returns the maximum of its live entries
// in O(1), amortized O(1) per Add/Remove pair.
//
// This is hand-indexed rather than built on a generic deque: the exact
// tie-break rule in Remove (advance maxIdx only when the removed value
// equals Get(), not merely because it sits at the front) needs direct
// control over ring positions that a push/pop-only deque API doesn't
// expose.
type RollingMax struct {
	buf      []int
	capacity int

	maxIdx int
	minIdx int
	count  int // number of live ring slots between maxIdx and minIdx inclusive
}

// NewRollingMax constructs an empty rolling maximum with the given
// capacity (N_p in spec.md). capacity must be positive.
func NewRollingMax(capacity int) (*RollingMax, error) {
	if capacity <= 0 {
		return nil, newConfigError("rolling max capacity", fmt.Errorf("must be positive, got %d", capacity))
	}
	return &RollingMax{
		buf:      make([]int, capacity),
		capacity: capacity,
	}, nil
}

// Capacity returns N_p.
func (r *RollingMax) Capacity() int { return r.capacity }

// Len returns the number of live ring slots currently occupied.
func (r *RollingMax) Len() int { return r.count }

func (r *RollingMax) wrap(i int) int {
	if i >= r.capacity {
		return i - r.capacity
	}
	if i < 0 {
		return i + r.capacity
	}
	return i
}

// Get returns the maximum of the active set, or 0 if nothing has been
// added yet. After the only live entry is removed, Get keeps reporting
// that entry's value until the next Add.
func (r *RollingMax) Get() int {
	return r.buf[r.maxIdx]
}

// Add inserts v, maintaining the non-increasing invariant: any entries
// dominated by v (strictly less than it, walking back from the most
// recent entry toward the front) are dropped by being overwritten. If v
// does not dominate the back of the deque, it is appended as a new
// back entry; if doing so would collide with the front, the deque has no
// room left — the caller failed to keep Remove calls paced with Add, so
// a WindowOverflow is returned.
func (r *RollingMax) Add(v int) error {
	if r.count == 0 {
		r.buf[0] = v
		r.maxIdx, r.minIdx = 0, 0
		r.count = 1
		return nil
	}

	if v > r.buf[r.minIdx] {
		// Walk backwards (toward maxIdx) dropping entries < v; the last
		// slot dropped is where v gets written. Entries equal to v stay,
		// so every copy of the maximum still in the window is kept. If
		// every live entry is dominated (including the current maximum),
		// v becomes both the new front and back.
		lastDropped := r.minIdx
		allDropped := false
		for r.count > 0 && r.buf[r.minIdx] < v {
			lastDropped = r.minIdx
			r.count--
			if r.count == 0 {
				allDropped = true
				break
			}
			r.minIdx = r.wrap(r.minIdx - 1)
		}
		r.minIdx = lastDropped
		r.buf[r.minIdx] = v
		r.count++
		if allDropped {
			r.maxIdx = r.minIdx
		}
		return nil
	}

	next := r.wrap(r.minIdx + 1)
	if r.count == r.capacity {
		return &WindowOverflow{Capacity: r.capacity}
	}
	r.minIdx = next
	r.buf[r.minIdx] = v
	r.count++
	return nil
}

// Remove signals that v is logically leaving the window. It only affects
// the maximum when v was the maximum: the caller guarantees v equals the
// value ejected by the paired window, so the comparison is by value
// against Get(), not by position. Removing the only live entry leaves
// maxIdx in place and empties the deque, so the next Add starts afresh.
func (r *RollingMax) Remove(v int) {
	if r.count == 0 {
		return
	}
	if v == r.Get() {
		if r.maxIdx != r.minIdx {
			r.maxIdx = r.wrap(r.maxIdx + 1)
		}
		r.count--
	}
}
