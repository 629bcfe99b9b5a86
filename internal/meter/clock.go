package meter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-meter/internal/subs"
)

// refreshClock is the process-wide timer that drives the consumer side of
// every live meter, so all meters in a process repaint in step. Its
// goroutine starts when the first meter subscribes and stops when the last
// one unsubscribes; the cycle may repeat any number of times.
//
// mu is held for the whole of a tick's fan-out, so cancelling a
// subscription never returns while its meter is still being visited.
type refreshClock struct {
	mu      sync.Mutex
	meters  subs.Registry[*Meter]
	rateHz  int
	stop    chan struct{}
	running bool
}

// sharedClock is the singleton all meters subscribe to.
var sharedClock refreshClock

// SetRefreshRate sets the shared clock's tick rate in Hz. It takes effect
// the next time the clock starts, i.e. when a meter subscribes while no
// other meters exist. Rates below 1 are ignored.
func SetRefreshRate(hz int) {
	if hz < 1 {
		return
	}
	sharedClock.mu.Lock()
	sharedClock.rateHz = hz
	sharedClock.mu.Unlock()
}

// subscribe registers m for ticks, starting the clock if it is idle.
// The returned token serializes its Cancel with in-flight ticks.
func (c *refreshClock) subscribe(m *Meter) *subs.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	inner := c.meters.Subscribe(m)
	if !c.running {
		c.start()
	}

	return subs.NewFuncSubscription(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		inner.Cancel()
		if c.meters.Len() == 0 && c.running {
			close(c.stop)
			c.running = false
			slog.Debug("refresh clock stopped")
		}
	})
}

// start launches the tick goroutine. Caller must hold c.mu.
func (c *refreshClock) start() {
	rate := c.rateHz
	if rate == 0 {
		rate = DefaultRefreshRateHz
	}
	c.stop = make(chan struct{})
	c.running = true

	stop := c.stop
	go c.run(time.Second/time.Duration(rate), stop)
	slog.Debug("refresh clock started", "rate_hz", rate)
}

// run is the clock goroutine: a plain fixed-rate ticker loop.
func (c *refreshClock) run(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick drains every subscribed meter, in subscription order. The clock
// mutex is held across the whole pass so subscribe/unsubscribe calls
// serialize with it.
func (c *refreshClock) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		// Stopped between the ticker firing and the lock being taken.
		return
	}
	c.meters.Each(func(m *Meter) { m.onTick() })
}
