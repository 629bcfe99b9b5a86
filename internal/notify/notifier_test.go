package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-meter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, cfg.Load())
	require.NoError(t, cfg.SetWebhookURL(url))
	return cfg
}

func TestNotifierSendsStartAndRecoveryOnce(t *testing.T) {
	events := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Event string `json:"event"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		events <- payload.Event
	}))
	defer srv.Close()

	n := NewOverloadNotifier(newWebhookConfig(t, srv.URL))

	n.HandleEvent(OverloadEvent{JustOverloaded: true, Channel: 0, PeakDb: 1.2})
	assert.Equal(t, "overload_detected", awaitEvent(t, events))

	// A second start inside the same episode must not notify again.
	n.HandleEvent(OverloadEvent{JustOverloaded: true, Channel: 1, PeakDb: 0.4})
	assertNoEvent(t, events)

	n.HandleEvent(OverloadEvent{JustRecovered: true, TotalDuration: 3.5})
	assert.Equal(t, "overload_recovered", awaitEvent(t, events))

	// A fresh episode notifies again.
	n.HandleEvent(OverloadEvent{JustOverloaded: true, Channel: 0, PeakDb: 2.0})
	assert.Equal(t, "overload_detected", awaitEvent(t, events))
}

func TestNotifierSkipsRecoveryWithoutStart(t *testing.T) {
	events := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events <- r.URL.Path
	}))
	defer srv.Close()

	n := NewOverloadNotifier(newWebhookConfig(t, srv.URL))

	n.HandleEvent(OverloadEvent{JustRecovered: true, TotalDuration: 1.0})
	assertNoEvent(t, events)
}

func TestNotifierResetRearmsNotifications(t *testing.T) {
	events := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events <- r.URL.Path
	}))
	defer srv.Close()

	n := NewOverloadNotifier(newWebhookConfig(t, srv.URL))

	n.HandleEvent(OverloadEvent{JustOverloaded: true})
	awaitEvent(t, events)

	n.Reset()
	n.HandleEvent(OverloadEvent{JustOverloaded: true})
	awaitEvent(t, events)
}

func awaitEvent(t *testing.T, events chan string) string {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return ""
	}
}

func assertNoEvent(t *testing.T, events chan string) {
	t.Helper()
	select {
	case e := <-events:
		t.Fatalf("unexpected notification: %s", e)
	case <-time.After(100 * time.Millisecond):
	}
}
