package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
	"github.com/oszuidwest/zwfm-meter/internal/meter"
	"github.com/oszuidwest/zwfm-meter/internal/util"
)

// silenceFloor is the proportion below which a channel counts as silent for
// repaint skipping.
const silenceFloor = 0.001

// channelFrame is the rendered state of one channel, in scale proportions.
type channelFrame struct {
	peak       float64
	hold       float64
	overloaded bool
}

// meterDisplay renders a subscriber's channels as horizontal terminal bars.
// The meter callbacks arrive on the refresh clock goroutine; they snapshot
// the levels into frame and nudge the render goroutine through dirty. When
// every channel has settled at silence the repaint is skipped, so an idle
// meter costs nothing: one extra frame is drawn after the last audible one
// so the bars visibly reach the floor.
type meterDisplay struct {
	sub   *meter.Subscriber
	scale *meter.Scale

	mu    sync.Mutex
	frame []channelFrame

	wasSilent bool // consumer goroutine only

	// pendingReset is set by the key handler and consumed on the next tick,
	// so the latch is cleared on the consumer goroutine like everything else.
	pendingReset atomic.Bool

	dirty chan struct{}
}

func newMeterDisplay(scale *meter.Scale, opts meter.Options) *meterDisplay {
	d := &meterDisplay{
		scale: scale,
		dirty: make(chan struct{}, 1),
	}
	d.sub = meter.NewSubscriber(scale, d, opts)
	return d
}

// Attach subscribes the display to m.
func (d *meterDisplay) Attach(m *meter.Meter) {
	d.sub.SubscribeTo(m)
}

// LevelMeterPrepared resizes the frame for a new channel layout.
func (d *meterDisplay) LevelMeterPrepared(numChannels int) {
	d.mu.Lock()
	d.frame = make([]channelFrame, numChannels)
	d.mu.Unlock()
	d.wasSilent = false
	d.signal()
}

// MeasurementUpdatesFinished snapshots the subscriber into the frame and
// schedules a repaint, once per refresh tick.
func (d *meterDisplay) MeasurementUpdatesFinished() {
	if d.pendingReset.CompareAndSwap(true, false) {
		d.sub.ResetOverloaded()
	}

	n := d.sub.NumChannels()
	next := make([]channelFrame, n)
	silent := true
	for ch := 0; ch < n; ch++ {
		next[ch] = channelFrame{
			peak:       d.scale.ProportionForLevel(d.sub.PeakValue(ch)),
			hold:       d.scale.ProportionForLevel(d.sub.PeakHoldValue(ch)),
			overloaded: d.sub.Overloaded(ch),
		}
		if next[ch].peak > silenceFloor || next[ch].hold > silenceFloor {
			silent = false
		}
	}

	if silent && d.wasSilent {
		return
	}
	d.wasSilent = silent

	d.mu.Lock()
	d.frame = next
	d.mu.Unlock()
	d.signal()
}

func (d *meterDisplay) signal() {
	select {
	case d.dirty <- struct{}{}:
	default:
	}
}

// Run owns the terminal until ctx is cancelled or the user quits.
func (d *meterDisplay) Run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return util.WrapError("initialize terminal", err)
	}
	defer termbox.Close()

	events := make(chan termbox.Event)
	go func() {
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				return
			}
			events <- ev
		}
	}()

	d.draw()
	for {
		select {
		case <-ctx.Done():
			termbox.Interrupt()
			return nil
		case <-d.dirty:
			d.draw()
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				switch {
				case ev.Ch == 'q', ev.Key == termbox.KeyEsc, ev.Key == termbox.KeyCtrlC:
					termbox.Interrupt()
					return nil
				case ev.Ch == 'r':
					d.pendingReset.Store(true)
				}
			case termbox.EventResize:
				d.draw()
			case termbox.EventError:
				termbox.Interrupt()
				return util.WrapError("poll terminal events", ev.Err)
			}
		}
	}
}

const (
	labelWidth = 6 // "ch 0  "
	statusCell = 6 // " OVER"
)

func (d *meterDisplay) draw() {
	d.mu.Lock()
	frame := d.frame
	d.mu.Unlock()

	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	width, _ := termbox.Size()

	tbprint(0, 0, termbox.ColorWhite|termbox.AttrBold, termbox.ColorDefault,
		"ZuidWest FM level meter")
	tbprint(0, 1, termbox.ColorDefault, termbox.ColorDefault,
		"q quit   r reset overload")

	barWidth := width - labelWidth - statusCell
	if barWidth < 10 {
		barWidth = 10
	}

	for ch, cf := range frame {
		y := 3 + ch*2
		tbprint(0, y, termbox.ColorDefault, termbox.ColorDefault, fmt.Sprintf("ch %d", ch))

		filled := int(cf.peak * float64(barWidth))
		holdPos := int(cf.hold * float64(barWidth))
		if holdPos >= barWidth {
			holdPos = barWidth - 1
		}

		for x := 0; x < barWidth; x++ {
			fg := termbox.ColorDefault
			r := ' '
			switch {
			case x == holdPos && cf.hold > silenceFloor:
				r, fg = '┃', termbox.ColorWhite|termbox.AttrBold
			case x < filled:
				r = '█'
				if d.barDb(x, barWidth) >= -10 {
					fg = termbox.ColorYellow
				} else {
					fg = termbox.ColorGreen
				}
			}
			termbox.SetCell(labelWidth+x, y, r, fg, termbox.ColorDefault)
		}

		if cf.overloaded {
			tbprint(labelWidth+barWidth+1, y, termbox.ColorBlack, termbox.ColorRed, "OVER")
		}
	}

	d.drawRuler(3+len(frame)*2, barWidth)
	termbox.Flush()
}

// barDb maps a bar cell back to decibels, for coloring.
func (d *meterDisplay) barDb(x, barWidth int) float64 {
	return d.scale.LevelDbForProportion(float64(x) / float64(barWidth))
}

// drawRuler prints the scale divisions under the bars.
func (d *meterDisplay) drawRuler(y, barWidth int) {
	for _, db := range d.scale.Divisions() {
		x := int(d.scale.ProportionForLevelDb(db) * float64(barWidth-1))
		label := fmt.Sprintf("%g", db)
		termbox.SetCell(labelWidth+x, y, '┴', termbox.ColorDefault, termbox.ColorDefault)
		tbprint(labelWidth+x-runewidth.StringWidth(label)/2, y+1,
			termbox.ColorDefault, termbox.ColorDefault, label)
	}
}

// tbprint writes a string to the terminal cell grid.
func tbprint(x, y int, fg, bg termbox.Attribute, msg string) {
	for _, r := range msg {
		termbox.SetCell(x, y, r, fg, bg)
		x += runewidth.RuneWidth(r)
	}
}
