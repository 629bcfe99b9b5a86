package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oszuidwest/zwfm-meter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.New(filepath.Join(t.TempDir(), "config.json"))
}

func TestSnapshotDefaults(t *testing.T) {
	snap := newTestConfig(t).Snapshot()

	assert.Equal(t, config.DefaultRefreshRateHz, snap.RefreshRateHz)
	assert.Equal(t, config.DefaultQueueCapacity, snap.QueueCapacity)
	assert.Equal(t, config.DefaultPeakHoldMs, snap.PeakHoldMs)
	assert.Equal(t, config.DefaultPeakDecayDbPerSec, snap.PeakDecayDbPerSec)
	assert.Equal(t, config.DefaultPeakHoldDecayDbPerSec, snap.PeakHoldDecayDbPerSec)
	assert.Equal(t, config.DefaultMinusInfinityDb, snap.MinusInfinityDb)
	assert.Empty(t, snap.Divisions)
	assert.Equal(t, config.DefaultSignalChannels, snap.SignalChannels)
	assert.Equal(t, config.DefaultSignalSampleRate, snap.SignalSampleRate)
	assert.Equal(t, config.DefaultSignalBlockSize, snap.SignalBlockSize)
	assert.Equal(t, config.DefaultOverloadRecovery, snap.OverloadRecoverySeconds)
	assert.Equal(t, config.DefaultEmailSMTPPort, snap.EmailSMTPPort)
	assert.Equal(t, config.DefaultEmailFromName, snap.EmailFromName)

	assert.False(t, snap.HasWebhook())
	assert.False(t, snap.HasEmail())
	assert.False(t, snap.HasLogPath())
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := config.New(path)

	require.NoError(t, cfg.Load())

	_, err := os.Stat(path)
	assert.NoError(t, err, "a missing config file is created on first load")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := config.New(path)
	cfg.Meter.RefreshRateHz = 60
	cfg.Meter.Divisions = []float64{-60, -20, 0}
	cfg.Signal.Channels = 4
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.SetWebhookURL("https://hooks.example.com/meter"))
	require.NoError(t, cfg.SetLogPath("/var/log/overloads.log"))
	require.NoError(t, cfg.SetEmailConfig("smtp.example.com", 465, "Meter", "ops@example.com", "secret", "a@example.com, b@example.com"))

	loaded := config.New(path)
	require.NoError(t, loaded.Load())
	snap := loaded.Snapshot()

	assert.Equal(t, 60, snap.RefreshRateHz)
	assert.Equal(t, []float64{-60, -20, 0}, snap.Divisions)
	assert.Equal(t, 4, snap.SignalChannels)
	assert.Equal(t, "https://hooks.example.com/meter", snap.WebhookURL)
	assert.Equal(t, "/var/log/overloads.log", snap.LogPath)
	assert.Equal(t, "smtp.example.com", snap.EmailSMTPHost)
	assert.Equal(t, 465, snap.EmailSMTPPort)
	assert.Equal(t, "a@example.com, b@example.com", snap.EmailRecipients)

	assert.True(t, snap.HasWebhook())
	assert.True(t, snap.HasEmail())
	assert.True(t, snap.HasLogPath())

	// Fields left at zero still resolve to defaults.
	assert.Equal(t, config.DefaultQueueCapacity, snap.QueueCapacity)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults are valid", func(c *config.Config) {}, ""},
		{"refresh rate too high", func(c *config.Config) { c.Meter.RefreshRateHz = 500 }, "refresh_rate_hz"},
		{"negative queue capacity", func(c *config.Config) { c.Meter.QueueCapacity = -1 }, "queue_capacity"},
		{"positive floor", func(c *config.Config) { c.Meter.MinusInfinityDb = 3 }, "minus_infinity_db"},
		{"single division", func(c *config.Config) { c.Meter.Divisions = []float64{0} }, "divisions"},
		{"unsorted divisions", func(c *config.Config) { c.Meter.Divisions = []float64{-20, -40, 0} }, "divisions"},
		{"zero signal channels is default", func(c *config.Config) { c.Signal.Channels = 0 }, ""},
		{"too many signal channels", func(c *config.Config) { c.Signal.Channels = 1000 }, "channels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetRefreshRatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.New(path)
	require.NoError(t, cfg.SetRefreshRateHz(75))

	loaded := config.New(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, 75, loaded.RefreshRateHz())
}
