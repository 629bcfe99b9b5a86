package notify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLogLines(t *testing.T, path string) []OverloadLogEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []OverloadLogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e OverloadLogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLogOverloadEpisode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "overloads.log")

	require.NoError(t, LogOverloadStart(logPath, 1, 1.8))
	require.NoError(t, LogOverloadEnd(logPath, 4.2))

	entries := readLogLines(t, logPath)
	require.Len(t, entries, 2)

	assert.Equal(t, "overload_start", entries[0].Event)
	assert.Equal(t, 1, entries[0].Channel)
	assert.Equal(t, 1.8, entries[0].PeakDb)
	assert.NotEmpty(t, entries[0].Timestamp)

	assert.Equal(t, "overload_end", entries[1].Event)
	assert.Equal(t, 4.2, entries[1].DurationSec)
}

func TestLogSkipsWhenUnconfigured(t *testing.T) {
	assert.NoError(t, LogOverloadStart("", 0, 1.0))
	assert.NoError(t, LogOverloadEnd("", 1.0))
}

func TestWriteTestLog(t *testing.T) {
	assert.Error(t, WriteTestLog(""))

	logPath := filepath.Join(t.TempDir(), "overloads.log")
	require.NoError(t, WriteTestLog(logPath))

	entries := readLogLines(t, logPath)
	require.Len(t, entries, 1)
	assert.Equal(t, "test", entries[0].Event)
}
