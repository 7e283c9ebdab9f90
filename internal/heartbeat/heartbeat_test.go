package heartbeat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStartWritesImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")

	w := NewWriter(path, "127.0.0.1:18421", "default")
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	status, hb, err := Check(path, time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusAlive {
		t.Errorf("status = %s, want alive", status)
	}
	if hb.PID != os.Getpid() || hb.Address != "127.0.0.1:18421" || hb.Session != "default" {
		t.Errorf("heartbeat = %+v", hb)
	}
}

func TestScheduledRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")

	w := NewWriter(path, "", "").WithSchedule("@every 1s")
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	_, first, err := Check(path, time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		_, hb, err := Check(path, time.Minute)
		if err != nil {
			continue // caught mid-rename
		}
		if hb.Timestamp.After(first.Timestamp) {
			return
		}
	}
	t.Fatal("heartbeat was not refreshed")
}

func TestBadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	w := NewWriter(path, "", "").WithSchedule("not a schedule")
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStaleDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")

	old := Heartbeat{
		PID:       os.Getpid(),
		StartedAt: time.Now().Add(-2 * time.Hour),
		Timestamp: time.Now().Add(-time.Hour),
	}
	data, _ := json.Marshal(old)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	status, hb, err := Check(path, 30*time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusStale || hb == nil {
		t.Errorf("Check = %s, %+v; want stale", status, hb)
	}
}

func TestMissingFileIsDead(t *testing.T) {
	status, hb, err := Check(filepath.Join(t.TempDir(), "nope.json"), time.Minute)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != StatusDead || hb != nil {
		t.Errorf("Check = %s, %+v; want dead", status, hb)
	}
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := Check(path, time.Minute); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStopRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")

	w := NewWriter(path, "", "")
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("heartbeat file still present after Stop")
	}
}
