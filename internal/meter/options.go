package meter

import (
	"cmp"
	"time"
)

// Meter defaults. All of them are overridable per instance through Options,
// except the refresh rate, which belongs to the process-wide clock and is
// set with SetRefreshRate.
const (
	// DefaultRefreshRateHz is the refresh rate of the shared clock.
	DefaultRefreshRateHz = 30

	// DefaultPeakHoldTime is how long the held peak waits before declining.
	DefaultPeakHoldTime = 2000 * time.Millisecond

	// OverloadTriggerLevel is the linear level that latches the overload flag.
	OverloadTriggerLevel = 1.0

	// DefaultQueueCapacity is the measurement queue size per meter.
	DefaultQueueCapacity = 100

	// DefaultMinusInfinityDb is the level treated as silence on a scale.
	DefaultMinusInfinityDb = -96.0

	// DefaultPeakDecayDbPerSec is the decline rate of the instantaneous
	// peak bar. The decline is linear in the dB domain.
	DefaultPeakDecayDbPerSec = 48.0

	// DefaultPeakHoldDecayDbPerSec is the decline rate of the held peak
	// once its hold window has expired.
	DefaultPeakHoldDecayDbPerSec = 24.0
)

// Options configures a Meter and the Subscribers attached to it.
// The zero value selects all defaults.
type Options struct {
	// QueueCapacity is the fixed size of the measurement queue.
	QueueCapacity int

	// PeakHoldTime is how long the held peak freezes after a rise.
	PeakHoldTime time.Duration

	// PeakDecayDbPerSec is the dB-per-second decline rate of the fast bar.
	PeakDecayDbPerSec float64

	// PeakHoldDecayDbPerSec is the dB-per-second decline rate of the held
	// peak after PeakHoldTime has elapsed.
	PeakHoldDecayDbPerSec float64
}

// withDefaults fills zero fields with the package defaults.
func (o Options) withDefaults() Options {
	o.QueueCapacity = cmp.Or(o.QueueCapacity, DefaultQueueCapacity)
	o.PeakHoldTime = cmp.Or(o.PeakHoldTime, DefaultPeakHoldTime)
	o.PeakDecayDbPerSec = cmp.Or(o.PeakDecayDbPerSec, DefaultPeakDecayDbPerSec)
	o.PeakHoldDecayDbPerSec = cmp.Or(o.PeakHoldDecayDbPerSec, DefaultPeakHoldDecayDbPerSec)
	return o
}
