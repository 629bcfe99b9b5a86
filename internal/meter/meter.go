// Package meter bridges a realtime audio thread to a shared refresh clock,
// turning raw sample blocks into per-channel loudness telemetry: an
// instantaneous peak, a held peak, and a sticky overload flag.
//
// The producer side (MeasureBlock, MeasureRaw) is realtime safe: it never
// blocks, allocates, or takes a lock. The consumer side runs on the shared
// refresh clock, drains the measurement queue and fans the readings out to
// subscribed viewers.
package meter

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/oszuidwest/zwfm-meter/internal/subs"
)

// Measurement is a single per-channel peak reading taken from one audio
// block. PeakLevel is a linear amplitude magnitude; values at or above
// OverloadTriggerLevel denote clipping.
type Measurement struct {
	ChannelIndex int
	PeakLevel    float64
}

// Meter accepts sample blocks from exactly one realtime producer thread and
// republishes per-channel peak measurements to its subscribed viewers on
// every refresh tick. Construct with New; call Close when done so the
// shared refresh clock can stop once no meters remain.
type Meter struct {
	opts  Options
	queue *measurementQueue
	drops atomic.Uint64

	// mu serializes the consumer/control plane: drains, viewer attachment
	// and channel-count changes. The producer path never touches it.
	mu          sync.Mutex
	numChannels int
	viewers     subs.Registry[*Subscriber]

	clockSub *subs.Subscription
}

// New returns a Meter subscribed to the shared refresh clock. Zero fields
// in opts fall back to the package defaults.
func New(opts Options) *Meter {
	opts = opts.withDefaults()
	m := &Meter{
		opts:  opts,
		queue: newMeasurementQueue(opts.QueueCapacity),
	}
	m.clockSub = sharedClock.subscribe(m)
	return m
}

// Close detaches the meter from the shared refresh clock. It blocks until
// any in-flight tick has finished, so the meter is never drained after
// Close returns. The meter must not be fed measurements afterwards.
// Close must not be called from a Display callback.
func (m *Meter) Close() {
	m.clockSub.Cancel()
}

// PrepareToPlay records the channel count and synchronously notifies every
// subscribed viewer. Stale measurements from a previous channel layout are
// discarded first. This is a control-plane call: it must not be made from
// the realtime producer thread, and it serializes with the refresh clock.
func (m *Meter) PrepareToPlay(numChannels int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.numChannels = numChannels
	for {
		if _, ok := m.queue.tryPop(); !ok {
			break
		}
	}
	m.viewers.Each(func(s *Subscriber) { s.PrepareToPlay(numChannels) })
}

// NumChannels returns the channel count recorded by PrepareToPlay.
func (m *Meter) NumChannels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numChannels
}

// MeasureBlock measures one block of audio and enqueues a peak Measurement
// per channel. Realtime safe as long as it is called from a single thread:
// it completes in time bounded by the block size regardless of queue state.
// When the queue is full the measurement is dropped.
func (m *Meter) MeasureBlock(src Source) {
	n := src.NumChannels()
	for ch := 0; ch < n; ch++ {
		m.pushMeasurement(Measurement{ChannelIndex: ch, PeakLevel: maxAbs(src.Channel(ch))})
	}
}

// MeasureRaw is the raw-pointer variant of MeasureBlock for producers that
// hold plain per-channel slices. Only the first numChannels slices and the
// first numSamples samples of each are read.
func (m *Meter) MeasureRaw(channels [][]float64, numChannels, numSamples int) {
	for ch := 0; ch < numChannels; ch++ {
		samples := channels[ch]
		if numSamples < len(samples) {
			samples = samples[:numSamples]
		}
		m.pushMeasurement(Measurement{ChannelIndex: ch, PeakLevel: maxAbs(samples)})
	}
}

// pushMeasurement is the single point through which every measurement
// enters the queue. The drop branch is deliberately isolated here.
func (m *Meter) pushMeasurement(msm Measurement) {
	if !m.queue.push(msm) {
		m.drops.Add(1)
	}
}

// Drops reports how many measurements have been discarded because the
// queue was full. Safe to call from any goroutine.
func (m *Meter) Drops() uint64 {
	return m.drops.Load()
}

// onTick drains the queue and fans out to viewers. Called by the shared
// refresh clock. A tick processes only the measurements enqueued when it
// starts; a producer pushing concurrently cannot extend the drain.
func (m *Meter) onTick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pending := m.queue.size(); pending > 0; pending-- {
		msm, ok := m.queue.tryPop()
		if !ok {
			break
		}
		m.viewers.Each(func(s *Subscriber) { s.UpdateWithMeasurement(msm) })
	}
	m.viewers.Each(func(s *Subscriber) { s.UpdatesFinished() })
}

// attach registers a viewer for fan-out. If the meter is already prepared
// the viewer is prepared immediately, so late subscribers start with the
// right channel layout.
func (m *Meter) attach(s *Subscriber) *subs.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := m.viewers.Subscribe(s)
	if m.numChannels > 0 {
		s.PrepareToPlay(m.numChannels)
	}
	return sub
}

// maxAbs returns the maximum absolute sample magnitude in the block.
func maxAbs(samples []float64) float64 {
	peak := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}
