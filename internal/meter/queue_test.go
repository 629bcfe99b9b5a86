package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDeliversInOrder(t *testing.T) {
	q := newMeasurementQueue(8)

	for i := 0; i < 5; i++ {
		require.True(t, q.push(Measurement{ChannelIndex: i, PeakLevel: float64(i)}))
	}
	require.Equal(t, 5, q.size())

	for i := 0; i < 5; i++ {
		m, ok := q.tryPop()
		require.True(t, ok)
		assert.Equal(t, i, m.ChannelIndex)
		assert.Equal(t, float64(i), m.PeakLevel)
	}

	_, ok := q.tryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.size())
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := newMeasurementQueue(3)

	for i := 0; i < 3; i++ {
		require.True(t, q.push(Measurement{PeakLevel: float64(i)}))
	}
	assert.False(t, q.push(Measurement{PeakLevel: 99}), "push into a full queue must be rejected")

	// The stored measurements survive the overflow untouched.
	for i := 0; i < 3; i++ {
		m, ok := q.tryPop()
		require.True(t, ok)
		assert.Equal(t, float64(i), m.PeakLevel)
	}
}

func TestQueueReusableAfterDrain(t *testing.T) {
	q := newMeasurementQueue(2)

	for round := 0; round < 10; round++ {
		require.True(t, q.push(Measurement{PeakLevel: float64(round)}))
		m, ok := q.tryPop()
		require.True(t, ok)
		require.Equal(t, float64(round), m.PeakLevel)
	}
}

// TestQueueConcurrentProducerConsumer drives the queue from two goroutines
// the way the meter does: one realtime producer, one drain. Accepted
// measurements must come out exactly once, in order, regardless of drops.
func TestQueueConcurrentProducerConsumer(t *testing.T) {
	const total = 100000
	q := newMeasurementQueue(64)

	accepted := make(chan uint64)
	go func() {
		var n uint64
		for i := 0; i < total; i++ {
			if q.push(Measurement{PeakLevel: float64(i)}) {
				n++
			}
		}
		accepted <- n
	}()

	var got []float64
	var acceptedCount uint64
	producerDone := false
	for {
		if m, ok := q.tryPop(); ok {
			got = append(got, m.PeakLevel)
			continue
		}
		if producerDone {
			break
		}
		select {
		case acceptedCount = <-accepted:
			producerDone = true
		default:
		}
	}

	require.Equal(t, acceptedCount, uint64(len(got)), "every accepted measurement must be popped exactly once")
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i], got[i-1], "measurements must stay in push order")
	}
}
