// Package monitoring - telemetry.go records request events to a JSONL file.
//
// Events are appended immediately after each request so the file tails in
// real time. Telemetry failures are logged and never affect the request.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RequestEvent is one completed chat request.
type RequestEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
	Subject       string    `json:"subject,omitempty"`
	Model         string    `json:"model,omitempty"`
	StatusCode    int       `json:"status_code"`
	ErrorMsg      string    `json:"error,omitempty"`
	EventsRelayed int       `json:"events_relayed"`
	InputTokens   uint64    `json:"input_tokens"`
	OutputTokens  uint64    `json:"output_tokens"`
	TotalTokens   uint64    `json:"total_tokens"`
	DurationMs    int64     `json:"duration_ms"`
}

// TrackerConfig configures telemetry output.
type TrackerConfig struct {
	Enabled     bool
	LogPath     string
	LogToStdout bool
}

// Tracker appends request events to a JSONL file.
type Tracker struct {
	config TrackerConfig
	mu     sync.Mutex
	count  int
}

// NewTracker creates a tracker and ensures the log directory exists.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	t := &Tracker{config: cfg}
	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordRequest records one request event.
func (t *Tracker) RecordRequest(event *RequestEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		reqID := event.RequestID
		if len(reqID) > 8 {
			reqID = reqID[:8]
		}
		log.Info().
			Str("request_id", reqID).
			Int("status", event.StatusCode).
			Int("events", event.EventsRelayed).
			Uint64("total_tokens", event.TotalTokens).
			Msg("telemetry")
	}

	if t.config.LogPath != "" {
		if err := appendJSONL(t.config.LogPath, event); err != nil {
			log.Error().Err(err).Str("path", t.config.LogPath).Msg("telemetry: failed to write request event")
		} else {
			t.count++
		}
	}
}

// Close logs a session summary.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogPath != "" && t.count > 0 {
		log.Info().
			Str("path", t.config.LogPath).
			Int("events", t.count).
			Msg("telemetry: session complete")
	}
	return nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}
