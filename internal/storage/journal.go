package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dohr-michael/graphcalc/internal/events"
)

// Journal persists bus events to JSONL files organized by session.
type Journal struct {
	mu          sync.Mutex
	dir         string
	unsubscribe func()
}

// NewJournal creates a Journal that subscribes to all bus events
// and writes them as JSONL to dir, one file per session.
func NewJournal(dir string, bus *events.Bus) *Journal {
	j := &Journal{dir: dir}
	j.unsubscribe = bus.Subscribe(j.handleEvent)
	return j
}

// Close unsubscribes the journal, writing any events still queued.
func (j *Journal) Close() {
	if j.unsubscribe != nil {
		j.unsubscribe()
	}
}

func (j *Journal) handleEvent(e events.Event) {
	if err := j.writeEvent(e); err != nil {
		slog.Warn("journal write failed", "event", e.Type, "session", e.Session, "error", err)
	}
}

func (j *Journal) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	path := journalPath(j.dir, e.Session)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func journalPath(dir, session string) string {
	if session == "" {
		return filepath.Join(dir, "_global.jsonl")
	}
	return filepath.Join(dir, session+".jsonl")
}

// ReadJournal returns the last limit events journaled for session, oldest
// first. A missing journal yields no events. limit <= 0 returns everything.
func ReadJournal(dir, session string, limit int) ([]events.Event, error) {
	f, err := os.Open(journalPath(dir, session))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var out []events.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e events.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip corrupted lines
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
