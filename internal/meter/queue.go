package meter

import "sync/atomic"

// measurementQueue is a fixed-capacity single-producer/single-consumer
// lock-free ring buffer of Measurements. push never blocks and never
// allocates; a full buffer drops the new measurement. Exactly one producer
// thread may call push and exactly one consumer thread may call tryPop,
// concurrently with each other.
//
// head and tail are free-running counters; their difference is the fill
// level. Go's atomics are sequentially consistent, which gives the
// acquire/release pairing the contract needs: a slot write always becomes
// visible before the tail store that publishes it.
type measurementQueue struct {
	buf  []Measurement
	head atomic.Uint64 // next slot to pop; advanced only by the consumer
	tail atomic.Uint64 // next slot to push; advanced only by the producer
}

func newMeasurementQueue(capacity int) *measurementQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &measurementQueue{buf: make([]Measurement, capacity)}
}

// push appends m and reports whether it was accepted. On a full buffer the
// measurement is dropped and push returns false. Constant time, no locks,
// no allocation.
func (q *measurementQueue) push(m Measurement) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[tail%uint64(len(q.buf))] = m
	q.tail.Store(tail + 1)
	return true
}

// tryPop removes and returns the oldest measurement, or reports false when
// the queue is empty. Never blocks.
func (q *measurementQueue) tryPop() (Measurement, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Measurement{}, false
	}
	m := q.buf[head%uint64(len(q.buf))]
	q.head.Store(head + 1)
	return m, true
}

// size reports the number of enqueued measurements. Exact when called from
// either owning thread; a drain uses it to bound one tick's work to a
// snapshot of the queue rather than chasing an active producer.
func (q *measurementQueue) size() int {
	return int(q.tail.Load() - q.head.Load())
}
