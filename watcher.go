package main

import (
	"math"
	"time"

	"github.com/oszuidwest/zwfm-meter/internal/meter"
	"github.com/oszuidwest/zwfm-meter/internal/notify"
)

// overloadWatcher observes a meter through its own subscriber and turns the
// per-channel overload latches into episode events with hysteresis: an
// episode opens on the first clipped block and closes only after Recovery
// seconds without any clip. It is independent of the on-screen meter, which
// keeps its own latch for the user to clear.
// overloadSink receives the episode events the watcher emits.
type overloadSink interface {
	HandleEvent(notify.OverloadEvent)
}

type overloadWatcher struct {
	sub      *meter.Subscriber
	notifier overloadSink
	recovery time.Duration

	inOverload   bool
	episodeStart time.Time
	lastClip     time.Time

	now func() time.Time
}

// newOverloadWatcher attaches a watcher to m. recoverySeconds is how long
// levels must stay below the trigger before the episode is considered over.
func newOverloadWatcher(m *meter.Meter, notifier overloadSink, recoverySeconds float64) *overloadWatcher {
	w := &overloadWatcher{
		notifier: notifier,
		recovery: time.Duration(recoverySeconds * float64(time.Second)),
		now:      time.Now,
	}
	w.sub = meter.NewSubscriber(nil, w, meter.Options{})
	w.sub.SubscribeTo(m)
	return w
}

// Stop detaches the watcher from its meter.
func (w *overloadWatcher) Stop() {
	w.sub.Unsubscribe()
}

// LevelMeterPrepared resets the episode state on a layout change.
func (w *overloadWatcher) LevelMeterPrepared(numChannels int) {
	w.inOverload = false
	w.episodeStart = time.Time{}
	w.lastClip = time.Time{}
}

// MeasurementUpdatesFinished runs the episode state machine once per tick.
func (w *overloadWatcher) MeasurementUpdatesFinished() {
	now := w.now()

	clippedCh := -1
	for ch := 0; ch < w.sub.NumChannels(); ch++ {
		if w.sub.Overloaded(ch) {
			clippedCh = ch
			break
		}
	}

	if clippedCh >= 0 {
		peakDb := 20 * math.Log10(math.Max(w.sub.PeakValue(clippedCh), 1e-12))
		// Consume the latch so the next tick reflects fresh clips only.
		w.sub.ResetOverloaded()
		w.lastClip = now

		if !w.inOverload {
			w.inOverload = true
			w.episodeStart = now
			w.notifier.HandleEvent(notify.OverloadEvent{
				JustOverloaded: true,
				Channel:        clippedCh,
				PeakDb:         peakDb,
			})
		}
		return
	}

	if w.inOverload && now.Sub(w.lastClip) >= w.recovery {
		w.inOverload = false
		w.notifier.HandleEvent(notify.OverloadEvent{
			JustRecovered: true,
			TotalDuration: now.Sub(w.episodeStart).Seconds(),
		})
	}
}
