package main

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/oszuidwest/zwfm-meter/internal/meter"
)

// signalGenerator stands in for a sound card: it synthesizes sine blocks at
// realtime cadence on its own goroutine and feeds them to the meter, acting
// as the meter's single producer. Each channel gets its own tone with a slow
// amplitude sweep, plus an occasional hot burst above full scale so the
// overload path gets exercised.
type signalGenerator struct {
	m          *meter.Meter
	buf        *meter.Buffer
	sampleRate int

	phases []float64
	clock  float64 // seconds of signal generated so far

	stop chan struct{}
	done chan struct{}
}

func newSignalGenerator(m *meter.Meter, channels, sampleRate, blockSize int) *signalGenerator {
	return &signalGenerator{
		m:          m,
		buf:        meter.NewBuffer(channels, blockSize),
		sampleRate: sampleRate,
		phases:     make([]float64, channels),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start prepares the meter for the generator's channel layout and launches
// the producer goroutine.
func (g *signalGenerator) Start() {
	g.m.PrepareToPlay(g.buf.NumChannels())
	slog.Info("signal generator started",
		"channels", g.buf.NumChannels(),
		"sample_rate", g.sampleRate,
		"block_size", g.buf.NumSamples())
	go g.run()
}

// Stop halts the producer goroutine and waits for it to exit.
func (g *signalGenerator) Stop() {
	close(g.stop)
	<-g.done
}

func (g *signalGenerator) run() {
	defer close(g.done)

	interval := time.Duration(g.buf.NumSamples()) * time.Second / time.Duration(g.sampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Roughly one burst every eight seconds of signal.
	burstOdds := 8 * g.sampleRate / g.buf.NumSamples()

	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.fillBlock(burstOdds)
			g.m.MeasureBlock(g.buf)
		}
	}
}

// fillBlock synthesizes the next block in place.
func (g *signalGenerator) fillBlock(burstOdds int) {
	numSamples := g.buf.NumSamples()
	blockSeconds := float64(numSamples) / float64(g.sampleRate)

	for ch := 0; ch < g.buf.NumChannels(); ch++ {
		freq := 220 * float64(ch+1)
		step := 2 * math.Pi * freq / float64(g.sampleRate)

		// Slow sweep between roughly -21 dB and -0.4 dB, offset per channel.
		amp := 0.1 + 0.85*(0.5+0.5*math.Sin(2*math.Pi*0.05*g.clock+float64(ch)))
		if rand.IntN(burstOdds) == 0 {
			amp = 1.05 + 0.4*rand.Float64()
		}

		samples := g.buf.Channel(ch)
		phase := g.phases[ch]
		for i := 0; i < numSamples; i++ {
			phase += step
			samples[i] = amp * math.Sin(phase)
		}
		g.phases[ch] = math.Mod(phase, 2*math.Pi)
	}
	g.clock += blockSeconds
}
