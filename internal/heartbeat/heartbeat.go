// Package heartbeat records that a graphcalc gateway is running and where
// it listens, so `graphcalc status` can find it.
package heartbeat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	cron "github.com/netresearch/go-cron"
)

// Status is the liveness state derived from a heartbeat file.
type Status string

const (
	StatusAlive Status = "alive"
	StatusStale Status = "stale"
	StatusDead  Status = "dead"
)

// DefaultSchedule refreshes the file twice a minute.
const DefaultSchedule = "@every 30s"

// Heartbeat is the content of the heartbeat file.
type Heartbeat struct {
	PID       int       `json:"pid"`
	Address   string    `json:"address,omitempty"`
	Session   string    `json:"session,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// Writer refreshes a heartbeat file on a cron schedule.
type Writer struct {
	path     string
	schedule string
	address  string
	session  string

	mu      sync.Mutex
	started time.Time
	cron    *cron.Cron
}

// NewWriter creates a writer for path describing a gateway listening on
// address and serving session.
func NewWriter(path, address, session string) *Writer {
	return &Writer{path: path, schedule: DefaultSchedule, address: address, session: session}
}

// WithSchedule overrides the refresh schedule (any go-cron spec).
func (w *Writer) WithSchedule(spec string) *Writer {
	w.schedule = spec
	return w
}

// Start writes the file once and schedules refreshes. Calling Start on a
// running writer is a no-op.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return nil
	}
	w.started = time.Now()
	if err := w.write(); err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, w.refresh); err != nil {
		return fmt.Errorf("heartbeat schedule %q: %w", w.schedule, err)
	}
	c.Start()
	w.cron = c
	return nil
}

// Stop halts refreshes, waits for a running one, and removes the file.
func (w *Writer) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("remove heartbeat", "path", w.path, "error", err)
	}
}

func (w *Writer) refresh() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron == nil {
		return
	}
	if err := w.write(); err != nil {
		slog.Warn("heartbeat write failed", "path", w.path, "error", err)
	}
}

func (w *Writer) write() error {
	now := time.Now()
	hb := Heartbeat{
		PID:       os.Getpid(),
		Address:   w.address,
		Session:   w.session,
		StartedAt: w.started,
		Timestamp: now,
		Uptime:    now.Sub(w.started).Truncate(time.Second).String(),
	}
	data, err := json.MarshalIndent(hb, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// Check reads the heartbeat at path. A missing file means dead; a file
// older than maxAge means stale.
func Check(path string, maxAge time.Duration) (Status, *Heartbeat, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return StatusDead, nil, nil
	}
	if err != nil {
		return StatusDead, nil, fmt.Errorf("read heartbeat: %w", err)
	}

	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return StatusDead, nil, fmt.Errorf("decode heartbeat: %w", err)
	}
	if time.Since(hb.Timestamp) > maxAge {
		return StatusStale, &hb, nil
	}
	return StatusAlive, &hb, nil
}
