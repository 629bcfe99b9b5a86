package meter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberUpdateBeforePrepareIsNoOp(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})

	assert.NotPanics(t, func() {
		sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 0.9})
	})
	assert.Equal(t, 0, sub.NumChannels())
	assert.Equal(t, 0.0, sub.PeakValue(0))
}

func TestSubscriberOutOfRangeChannelPanics(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})
	sub.PrepareToPlay(2)

	assert.Panics(t, func() {
		sub.UpdateWithMeasurement(Measurement{ChannelIndex: 2, PeakLevel: 0.5})
	})
	assert.Panics(t, func() {
		sub.UpdateWithMeasurement(Measurement{ChannelIndex: -1, PeakLevel: 0.5})
	})
}

func TestSubscriberOutOfRangeAccessorsAreLenient(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})
	sub.PrepareToPlay(1)

	assert.Equal(t, 0.0, sub.PeakValue(5))
	assert.Equal(t, 0.0, sub.PeakHoldValue(5))
	assert.False(t, sub.Overloaded(5))
}

func TestSubscriberOverloadLatchesAtTrigger(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})
	sub.now = frozenAt(holdT0)
	sub.PrepareToPlay(1)

	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 0.999})
	assert.False(t, sub.Overloaded(0))

	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 1.0})
	assert.True(t, sub.Overloaded(0), "exactly 1.0 latches")

	// The latch sticks through quieter measurements.
	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 0.1})
	assert.True(t, sub.Overloaded(0))
}

func TestSubscriberBallistics(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{
		PeakHoldTime:          2 * time.Second,
		PeakDecayDbPerSec:     48,
		PeakHoldDecayDbPerSec: 24,
	})
	now := holdT0
	sub.now = func() time.Time { return now }
	sub.PrepareToPlay(1)

	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 1.0})

	// One second on: the fast bar has fallen 48 dB, the held peak is
	// still inside its hold window.
	now = holdT0.Add(time.Second)
	assert.InDelta(t, math.Pow(10, -48.0/20), sub.PeakValue(0), 1e-9)
	assert.Equal(t, 1.0, sub.PeakHoldValue(0))

	// Three seconds on: the held peak has declined for one second.
	now = holdT0.Add(3 * time.Second)
	assert.InDelta(t, math.Pow(10, -24.0/20), sub.PeakHoldValue(0), 1e-9)
}

func TestSubscriberResetKeepsOverloadLatch(t *testing.T) {
	disp := &stubDisplay{}
	sub := NewSubscriber(nil, disp, Options{})
	sub.now = frozenAt(holdT0)
	sub.PrepareToPlay(2)

	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 1.4})
	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 1, PeakLevel: 0.6})

	finishedBefore := disp.finished
	sub.Reset()

	assert.Equal(t, 0.0, sub.PeakValue(0))
	assert.Equal(t, 0.0, sub.PeakHoldValue(1))
	assert.True(t, sub.Overloaded(0), "Reset leaves the latch for ResetOverloaded")
	assert.Equal(t, finishedBefore+1, disp.finished, "Reset notifies the display once")
}

func TestSubscriberPrepareResizesAndClears(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})
	sub.now = frozenAt(holdT0)
	sub.PrepareToPlay(1)
	sub.UpdateWithMeasurement(Measurement{ChannelIndex: 0, PeakLevel: 1.2})
	require.True(t, sub.Overloaded(0))

	sub.PrepareToPlay(3)

	assert.Equal(t, 3, sub.NumChannels())
	assert.Equal(t, 0.0, sub.PeakValue(0))
	assert.False(t, sub.Overloaded(0), "a layout change starts from a clean slate")
}

func TestSubscriberDefaultScale(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})
	assert.Same(t, DefaultScale(), sub.Scale())

	custom, err := NewScale(-96, -40, 0)
	require.NoError(t, err)
	sub = NewSubscriber(custom, nil, Options{})
	assert.Same(t, custom, sub.Scale())
}

func TestSubscriberUnsubscribeWithoutMeterIsSafe(t *testing.T) {
	sub := NewSubscriber(nil, nil, Options{})
	assert.NotPanics(t, sub.Unsubscribe)
}
