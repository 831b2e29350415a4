package pcm

import (
	"fmt"

	"github.com/gammazero/deque"
)

// Window is the fixed-capacity delay line described in spec §4.2: a FIFO
// of exactly `capacity` interleaved samples providing bounded look-ahead.
// It is backed by a ring-buffer deque rather than a hand-rolled circular
// array — gammazero/deque's PushBack/PopFront pair is exactly this FIFO's
// add/remove shape, and using it keeps the delay line free of index
// arithmetic the way the monotonic deque in rollingmax.go cannot be.
type Window struct {
	capacity int
	buf      *deque.Deque[int]
}

// NewWindow constructs an empty window of the given capacity. capacity
// must be positive.
func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, newConfigError("window capacity", fmt.Errorf("must be positive, got %d", capacity))
	}
	return &Window{
		capacity: capacity,
		buf:      deque.New[int](capacity),
	}, nil
}

// Capacity returns N, the window's fixed length in samples.
func (w *Window) Capacity() int { return w.capacity }

// Size returns the number of samples currently held.
func (w *Window) Size() int { return w.buf.Len() }

// IsFull reports whether the window holds exactly Capacity samples.
func (w *Window) IsFull() bool { return w.buf.Len() == w.capacity }

// IsEmpty reports whether the window holds no samples.
func (w *Window) IsEmpty() bool { return w.buf.Len() == 0 }

// Add pushes v into the window. If the window is full, the oldest sample
// is evicted and returned. Otherwise the window grows by one and Add
// returns 0 (there is nothing yet to eject).
func (w *Window) Add(v int) int {
	if w.IsFull() {
		oldest := w.buf.PopFront()
		w.buf.PushBack(v)
		return oldest
	}
	w.buf.PushBack(v)
	return 0
}

// Remove ejects and returns the oldest sample. The caller must ensure
// Size() > 0; Remove on an empty window is undefined (as in spec.md).
func (w *Window) Remove() int {
	return w.buf.PopFront()
}

// Front returns the oldest sample without removing it, or 0 if the
// window is empty.
func (w *Window) Front() int {
	if w.buf.Len() == 0 {
		return 0
	}
	return w.buf.Front()
}
