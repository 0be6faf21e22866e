package audio

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueCapacity holds roughly ten seconds of 10ms callbacks.
const DefaultQueueCapacity = 1024

// FrameQueue is a bounded FIFO of frames shared between an audio callback
// and the pipeline loop. Push never blocks: when the ring is full the oldest
// frame is overwritten and counted as dropped.
type FrameQueue struct {
	mu      sync.Mutex
	frames  []Frame
	head    int
	count   int
	dropped atomic.Uint64
}

// NewFrameQueue creates a queue holding at most capacity frames.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &FrameQueue{frames: make([]Frame, capacity)}
}

// Push appends a frame. It is safe to call from the audio thread.
func (q *FrameQueue) Push(f Frame) {
	q.mu.Lock()
	size := len(q.frames)
	if q.count == size {
		q.frames[q.head] = f
		q.head = (q.head + 1) % size
		q.mu.Unlock()
		q.dropped.Add(1)
		return
	}
	q.frames[(q.head+q.count)%size] = f
	q.count++
	q.mu.Unlock()
}

// PopN removes and returns up to n frames in arrival order. It returns nil
// when the queue is empty.
func (q *FrameQueue) PopN(n int) []Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 || n <= 0 {
		return nil
	}
	if n > q.count {
		n = q.count
	}

	out := make([]Frame, n)
	size := len(q.frames)
	for i := 0; i < n; i++ {
		out[i] = q.frames[q.head]
		q.frames[q.head] = Frame{}
		q.head = (q.head + 1) % size
	}
	q.count -= n
	return out
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns how many frames were overwritten since creation.
func (q *FrameQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Reset discards all queued frames.
func (q *FrameQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.frames {
		q.frames[i] = Frame{}
	}
	q.head = 0
	q.count = 0
}
