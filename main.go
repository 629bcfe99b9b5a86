// Package main implements a terminal level meter fed by a built-in signal
// generator, with overload alerting over webhook, email and a JSON log.
//
// Usage:
//
//	meter [-config path/to/config.json] [-headless]
//
// If -config is not specified, the meter looks for config.json in the same
// directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/oszuidwest/zwfm-meter/internal/config"
	"github.com/oszuidwest/zwfm-meter/internal/meter"
	"github.com/oszuidwest/zwfm-meter/internal/notify"
	"github.com/oszuidwest/zwfm-meter/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	headless := flag.Bool("headless", false, "Run without the terminal UI")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()

	meter.SetRefreshRate(snap.RefreshRateHz)
	opts := meter.Options{
		QueueCapacity:         snap.QueueCapacity,
		PeakHoldTime:          time.Duration(snap.PeakHoldMs) * time.Millisecond,
		PeakDecayDbPerSec:     snap.PeakDecayDbPerSec,
		PeakHoldDecayDbPerSec: snap.PeakHoldDecayDbPerSec,
	}

	scale := meter.DefaultScale()
	if len(snap.Divisions) > 0 {
		s, err := meter.NewScale(snap.MinusInfinityDb, snap.Divisions...)
		if err != nil {
			slog.Error("invalid scale divisions", "error", err)
			os.Exit(1)
		}
		scale = s
	}

	m := meter.New(opts)
	watcher := newOverloadWatcher(m, notify.NewOverloadNotifier(cfg), snap.OverloadRecoverySeconds)

	gen := newSignalGenerator(m, snap.SignalChannels, snap.SignalSampleRate, snap.SignalBlockSize)
	gen.Start()

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	go func() {
		<-sigChan
		cancel()
	}()

	if *headless {
		slog.Info("running headless")
		<-ctx.Done()
	} else {
		ui := newMeterDisplay(scale, opts)
		ui.Attach(m)
		if err := ui.Run(ctx); err != nil {
			slog.Error("terminal UI error", "error", err)
		}
	}

	slog.Info("shutting down")

	gen.Stop()
	watcher.Stop()
	m.Close()

	if drops := m.Drops(); drops > 0 {
		slog.Warn("measurements were dropped", "count", drops)
	}
	slog.Info("shutdown complete")
}
