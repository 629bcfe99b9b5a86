// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/oszuidwest/zwfm-meter/internal/util"
)

// Configuration defaults.
const (
	DefaultRefreshRateHz         = 30
	DefaultQueueCapacity         = 100
	DefaultPeakHoldMs            = 2000
	DefaultPeakDecayDbPerSec     = 48.0
	DefaultPeakHoldDecayDbPerSec = 24.0
	DefaultMinusInfinityDb       = -96.0
	DefaultSignalChannels        = 2
	DefaultSignalSampleRate      = 48000
	DefaultSignalBlockSize       = 512
	DefaultOverloadRecovery      = 3.0
	DefaultEmailSMTPPort         = 587
	DefaultEmailFromName         = "ZuidWest FM Meter"
)

// MeterConfig contains level meter ballistics and scale configuration.
type MeterConfig struct {
	RefreshRateHz         int       `json:"refresh_rate_hz,omitempty"`
	QueueCapacity         int       `json:"queue_capacity,omitempty"`
	PeakHoldMs            int       `json:"peak_hold_ms,omitempty"`
	PeakDecayDbPerSec     float64   `json:"peak_decay_db_per_sec,omitempty"`
	PeakHoldDecayDbPerSec float64   `json:"peak_hold_decay_db_per_sec,omitempty"`
	MinusInfinityDb       float64   `json:"minus_infinity_db,omitempty"`
	Divisions             []float64 `json:"divisions,omitempty"`
}

// SignalConfig contains test signal generator configuration.
type SignalConfig struct {
	Channels   int `json:"channels,omitempty"`
	SampleRate int `json:"sample_rate,omitempty"`
	BlockSize  int `json:"block_size,omitempty"`
}

// EmailConfig contains email notification configuration.
type EmailConfig struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	FromName   string `json:"from_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Recipients string `json:"recipients,omitempty"`
}

// NotificationsConfig contains all notification configuration.
type NotificationsConfig struct {
	OverloadRecoverySeconds float64     `json:"overload_recovery_seconds,omitempty"`
	WebhookURL              string      `json:"webhook_url,omitempty"`
	LogPath                 string      `json:"log_path,omitempty"`
	Email                   EmailConfig `json:"email,omitempty"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Meter         MeterConfig         `json:"meter,omitempty"`
	Signal        SignalConfig        `json:"signal,omitempty"`
	Notifications NotificationsConfig `json:"notifications,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Meter:         MeterConfig{},
		Signal:        SignalConfig{},
		Notifications: NotificationsConfig{},
		filePath:      filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	return nil
}

// Save writes the configuration to file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// Validate checks that all configured values are usable.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	checks := []*util.ValidationError{
		util.ValidateRange("meter.refresh_rate_hz", cmp.Or(c.Meter.RefreshRateHz, DefaultRefreshRateHz), 1, 240),
		util.ValidateRange("meter.queue_capacity", cmp.Or(c.Meter.QueueCapacity, DefaultQueueCapacity), 1, 1<<16),
		util.ValidateRange("meter.peak_hold_ms", cmp.Or(c.Meter.PeakHoldMs, DefaultPeakHoldMs), 0, 60000),
		util.ValidateRangeFloat("meter.peak_decay_db_per_sec", cmp.Or(c.Meter.PeakDecayDbPerSec, DefaultPeakDecayDbPerSec), 1, 1000),
		util.ValidateRangeFloat("meter.peak_hold_decay_db_per_sec", cmp.Or(c.Meter.PeakHoldDecayDbPerSec, DefaultPeakHoldDecayDbPerSec), 1, 1000),
		util.ValidateRangeFloat("meter.minus_infinity_db", cmp.Or(c.Meter.MinusInfinityDb, DefaultMinusInfinityDb), -200, -1),
		util.ValidateRange("signal.channels", cmp.Or(c.Signal.Channels, DefaultSignalChannels), 1, 64),
		util.ValidateRange("signal.sample_rate", cmp.Or(c.Signal.SampleRate, DefaultSignalSampleRate), 8000, 384000),
		util.ValidateRange("signal.block_size", cmp.Or(c.Signal.BlockSize, DefaultSignalBlockSize), 16, 1<<16),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if divs := c.Meter.Divisions; divs != nil {
		if len(divs) < 2 {
			return fmt.Errorf("meter.divisions needs at least two values, got %d", len(divs))
		}
		for i := 1; i < len(divs); i++ {
			if divs[i] <= divs[i-1] {
				return fmt.Errorf("meter.divisions must be strictly ascending at index %d", i)
			}
		}
	}

	return nil
}

// RefreshRateHz returns the display refresh rate.
func (c *Config) RefreshRateHz() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cmp.Or(c.Meter.RefreshRateHz, DefaultRefreshRateHz)
}

// SetRefreshRateHz updates the refresh rate and saves the configuration.
func (c *Config) SetRefreshRateHz(hz int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Meter.RefreshRateHz = hz
	return c.saveLocked()
}

// WebhookURL returns the configured webhook URL for notifications.
func (c *Config) WebhookURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications.WebhookURL
}

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.WebhookURL = url
	return c.saveLocked()
}

// LogPath returns the configured log file path for notifications.
func (c *Config) LogPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications.LogPath
}

// SetLogPath updates the log file path and saves the configuration.
func (c *Config) SetLogPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.LogPath = path
	return c.saveLocked()
}

// SetEmailConfig updates all email configuration fields and saves.
func (c *Config) SetEmailConfig(host string, port int, fromName, username, password, recipients string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Email.Host = host
	c.Notifications.Email.Port = port
	c.Notifications.Email.FromName = fromName
	c.Notifications.Email.Username = username
	c.Notifications.Email.Password = password
	c.Notifications.Email.Recipients = recipients
	return c.saveLocked()
}

// Snapshot contains a point-in-time copy of all configuration values.
// Use this instead of multiple individual getters to reduce mutex contention.
type Snapshot struct {
	// Meter (with defaults)
	RefreshRateHz         int
	QueueCapacity         int
	PeakHoldMs            int
	PeakDecayDbPerSec     float64
	PeakHoldDecayDbPerSec float64
	MinusInfinityDb       float64
	Divisions             []float64

	// Signal (with defaults)
	SignalChannels   int
	SignalSampleRate int
	SignalBlockSize  int

	// Notifications
	OverloadRecoverySeconds float64
	WebhookURL              string
	LogPath                 string

	// Email (with defaults)
	EmailSMTPHost   string
	EmailSMTPPort   int
	EmailFromName   string
	EmailUsername   string
	EmailPassword   string
	EmailRecipients string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		// Meter
		RefreshRateHz:         cmp.Or(c.Meter.RefreshRateHz, DefaultRefreshRateHz),
		QueueCapacity:         cmp.Or(c.Meter.QueueCapacity, DefaultQueueCapacity),
		PeakHoldMs:            cmp.Or(c.Meter.PeakHoldMs, DefaultPeakHoldMs),
		PeakDecayDbPerSec:     cmp.Or(c.Meter.PeakDecayDbPerSec, DefaultPeakDecayDbPerSec),
		PeakHoldDecayDbPerSec: cmp.Or(c.Meter.PeakHoldDecayDbPerSec, DefaultPeakHoldDecayDbPerSec),
		MinusInfinityDb:       cmp.Or(c.Meter.MinusInfinityDb, DefaultMinusInfinityDb),
		Divisions:             slices.Clone(c.Meter.Divisions),

		// Signal
		SignalChannels:   cmp.Or(c.Signal.Channels, DefaultSignalChannels),
		SignalSampleRate: cmp.Or(c.Signal.SampleRate, DefaultSignalSampleRate),
		SignalBlockSize:  cmp.Or(c.Signal.BlockSize, DefaultSignalBlockSize),

		// Notifications
		OverloadRecoverySeconds: cmp.Or(c.Notifications.OverloadRecoverySeconds, DefaultOverloadRecovery),
		WebhookURL:              c.Notifications.WebhookURL,
		LogPath:                 c.Notifications.LogPath,

		// Email (with defaults)
		EmailSMTPHost:   c.Notifications.Email.Host,
		EmailSMTPPort:   cmp.Or(c.Notifications.Email.Port, DefaultEmailSMTPPort),
		EmailFromName:   cmp.Or(c.Notifications.Email.FromName, DefaultEmailFromName),
		EmailUsername:   c.Notifications.Email.Username,
		EmailPassword:   c.Notifications.Email.Password,
		EmailRecipients: c.Notifications.Email.Recipients,
	}
}

// HasWebhook returns true if a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasEmail returns true if email notifications are configured.
func (s *Snapshot) HasEmail() bool {
	return s.EmailSMTPHost != "" && s.EmailRecipients != ""
}

// HasLogPath returns true if a log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}
