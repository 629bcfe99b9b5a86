package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oszuidwest/zwfm-meter/internal/util"
)

// OverloadLogEntry is one line in the JSON lines overload log.
type OverloadLogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	Channel     int     `json:"channel,omitempty"`
	PeakDb      float64 `json:"peak_db,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// LogOverloadStart records the beginning of an overload episode.
func LogOverloadStart(logPath string, channel int, peakDb float64) error {
	return appendLogEntry(logPath, OverloadLogEntry{
		Timestamp: util.RFC3339Now(),
		Event:     "overload_start",
		Channel:   channel,
		PeakDb:    peakDb,
	})
}

// LogOverloadEnd records the end of an overload episode with its total duration.
func LogOverloadEnd(logPath string, overloadDuration float64) error {
	return appendLogEntry(logPath, OverloadLogEntry{
		Timestamp:   util.RFC3339Now(),
		Event:       "overload_end",
		DurationSec: overloadDuration,
	})
}

// WriteTestLog writes a test entry to verify log file configuration.
func WriteTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}

	return appendLogEntry(logPath, OverloadLogEntry{
		Timestamp: util.RFC3339Now(),
		Event:     "test",
	})
}

// appendLogEntry appends a JSON log entry to the file.
func appendLogEntry(logPath string, entry OverloadLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeCloseFunc(f, "log file")()

	if _, err := f.Write(jsonData); err != nil {
		return util.WrapError("write log entry", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return util.WrapError("write newline", err)
	}

	return nil
}
