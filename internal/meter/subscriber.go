package meter

import (
	"fmt"
	"time"

	"github.com/oszuidwest/zwfm-meter/internal/subs"
)

// Display receives rendering callbacks from a Subscriber. A renderer
// implements it and decides when to repaint; both calls arrive on the
// consumer thread.
type Display interface {
	// LevelMeterPrepared is called after the channel layout changes so the
	// renderer can resize its visuals.
	LevelMeterPrepared(numChannels int)

	// MeasurementUpdatesFinished is called exactly once per refresh tick,
	// after all queued measurements have been applied (also when there
	// were none). Use it to schedule a repaint.
	MeasurementUpdatesFinished()
}

// channelData is the meter state for one channel.
type channelData struct {
	peak       PeakHoldValue
	peakHold   PeakHoldValue
	overloaded bool
}

// Subscriber aggregates the measurements a Meter fans out into per-channel
// display state: a fast peak bar, a slow held peak and a sticky overload
// flag. All methods must be called on the consumer/control thread, never
// from the audio thread.
type Subscriber struct {
	scale   *Scale
	display Display
	opts    Options

	channels []channelData
	meterSub *subs.Subscription

	now func() time.Time
}

// NewSubscriber returns a Subscriber using the given scale and options.
// scale may be nil to use DefaultScale; display may be nil if no renderer
// is attached. Attach it to a meter with SubscribeTo.
func NewSubscriber(scale *Scale, display Display, opts Options) *Subscriber {
	if scale == nil {
		scale = DefaultScale()
	}
	return &Subscriber{
		scale:   scale,
		display: display,
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// SubscribeTo attaches the subscriber to m, replacing any previous
// subscription. The previous meter never addresses this subscriber again.
func (s *Subscriber) SubscribeTo(m *Meter) {
	s.Unsubscribe()
	s.meterSub = m.attach(s)
}

// Unsubscribe detaches the subscriber from its current meter. Calling it
// while not subscribed has no effect. Safe to call from within this
// subscriber's own callbacks.
func (s *Subscriber) Unsubscribe() {
	s.meterSub.Cancel()
	s.meterSub = nil
}

// PrepareToPlay (re)allocates the per-channel state and notifies the
// display. Called by the meter when its channel layout changes; may also
// be called directly on a detached subscriber.
func (s *Subscriber) PrepareToPlay(numChannels int) {
	floor := s.scale.MinusInfinityDb()
	s.channels = make([]channelData, numChannels)
	for i := range s.channels {
		s.channels[i] = channelData{
			peak:     NewPeakHoldValue(0, s.opts.PeakDecayDbPerSec, floor),
			peakHold: NewPeakHoldValue(s.opts.PeakHoldTime, s.opts.PeakHoldDecayDbPerSec, floor),
		}
	}
	if s.display != nil {
		s.display.LevelMeterPrepared(numChannels)
	}
}

// UpdateWithMeasurement feeds one measurement into the channel it belongs
// to. Before PrepareToPlay it is a no-op, tolerating startup ordering races
// between the audio and UI sides. A channel index outside the prepared
// layout is a programming error and panics.
func (s *Subscriber) UpdateWithMeasurement(m Measurement) {
	if len(s.channels) == 0 {
		return
	}
	if m.ChannelIndex < 0 || m.ChannelIndex >= len(s.channels) {
		panic(fmt.Sprintf("meter: measurement for channel %d on a %d-channel subscriber",
			m.ChannelIndex, len(s.channels)))
	}

	now := s.now()
	cd := &s.channels[m.ChannelIndex]
	cd.peak.Update(m.PeakLevel, now)
	cd.peakHold.Update(m.PeakLevel, now)
	if m.PeakLevel >= OverloadTriggerLevel {
		cd.overloaded = true
	}
}

// UpdatesFinished is called by the meter once per tick after the drain.
func (s *Subscriber) UpdatesFinished() {
	if s.display != nil {
		s.display.MeasurementUpdatesFinished()
	}
}

// Reset drops every channel to silence and notifies the display once.
// The overload latch is left untouched; use ResetOverloaded for that.
func (s *Subscriber) Reset() {
	for i := range s.channels {
		s.channels[i].peak.Reset()
		s.channels[i].peakHold.Reset()
	}
	s.UpdatesFinished()
}

// ResetOverloaded clears the overload latch on all channels without
// touching levels.
func (s *Subscriber) ResetOverloaded() {
	for i := range s.channels {
		s.channels[i].overloaded = false
	}
}

// PeakValue returns the current fast peak for the channel, as a linear
// level. Unprepared or out-of-range channels read as silence.
func (s *Subscriber) PeakValue(ch int) float64 {
	if ch < 0 || ch >= len(s.channels) {
		return 0
	}
	return s.channels[ch].peak.Level(s.now())
}

// PeakHoldValue returns the current held peak for the channel, as a linear
// level. Unprepared or out-of-range channels read as silence.
func (s *Subscriber) PeakHoldValue(ch int) float64 {
	if ch < 0 || ch >= len(s.channels) {
		return 0
	}
	return s.channels[ch].peakHold.Level(s.now())
}

// Overloaded reports whether the channel has latched an overload since the
// last ResetOverloaded.
func (s *Subscriber) Overloaded(ch int) bool {
	if ch < 0 || ch >= len(s.channels) {
		return false
	}
	return s.channels[ch].overloaded
}

// NumChannels returns the prepared channel count.
func (s *Subscriber) NumChannels() int {
	return len(s.channels)
}

// Scale returns the scale this subscriber renders against.
func (s *Subscriber) Scale() *Scale {
	return s.scale
}
