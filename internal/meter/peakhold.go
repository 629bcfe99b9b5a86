package meter

import "time"

// PeakHoldValue tracks a single scalar through the rise/hold/decay cycle
// that gives meters their ballistics. A sample at or above the current
// value raises it immediately and restarts the hold window; below it the
// value freezes for the hold duration and then declines linearly in the dB
// domain at a fixed rate until it reaches the floor, where it snaps to
// silence. A zero hold duration gives the fast-responding bar; a long one
// gives the held-peak indicator.
//
// Owned by exactly one channel of one Subscriber and mutated only on the
// consumer thread. Time is passed in explicitly so the ballistics are
// testable in isolation.
type PeakHoldValue struct {
	current       float64 // linear; 0 is silence
	hold          time.Duration
	decayDbPerSec float64
	floorDb       float64
	lastRise      time.Time
	lastEval      time.Time
}

// NewPeakHoldValue returns a value at silence with the given hold window,
// decline rate and floor.
func NewPeakHoldValue(hold time.Duration, decayDbPerSec, floorDb float64) PeakHoldValue {
	return PeakHoldValue{
		hold:          hold,
		decayDbPerSec: decayDbPerSec,
		floorDb:       floorDb,
	}
}

// Update feeds a new sample. A sample at or above the current (decayed)
// value forces a rise and restarts the hold window; a lower sample never
// raises the value and never resets the timer.
func (p *PeakHoldValue) Update(level float64, now time.Time) {
	p.advance(now)
	if level >= p.current {
		p.current = level
		p.lastRise = now
	}
}

// Level reports the value as of now, applying any pending decline first.
func (p *PeakHoldValue) Level(now time.Time) float64 {
	p.advance(now)
	return p.current
}

// Reset drops the value to silence.
func (p *PeakHoldValue) Reset() {
	p.current = 0
	p.lastRise = time.Time{}
	p.lastEval = time.Time{}
}

// advance applies the decline law for the time elapsed since the last
// evaluation. Inside the hold window the value is frozen; afterwards it
// declines by decayDbPerSec in the dB domain, monotonically, reaching the
// floor in finite time.
func (p *PeakHoldValue) advance(now time.Time) {
	if p.current <= 0 {
		p.lastEval = now
		return
	}

	declineStart := p.lastRise.Add(p.hold)
	if now.Before(declineStart) {
		p.lastEval = now
		return
	}

	from := p.lastEval
	if from.Before(declineStart) {
		from = declineStart
	}
	elapsed := now.Sub(from).Seconds()
	if elapsed <= 0 {
		p.lastEval = now
		return
	}

	db := levelToDb(p.current, p.floorDb) - p.decayDbPerSec*elapsed
	if db <= p.floorDb {
		p.current = 0
	} else {
		p.current = dbToLevel(db)
	}
	p.lastEval = now
}
