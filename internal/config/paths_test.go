package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGraphcalcPath_Default(t *testing.T) {
	t.Setenv("GRAPHCALC_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := GraphcalcPath()
	want := filepath.Join(home, ".graphcalc")
	if got != want {
		t.Errorf("GraphcalcPath() = %q, want %q", got, want)
	}
}

func TestGraphcalcPath_EnvOverride(t *testing.T) {
	t.Setenv("GRAPHCALC_PATH", "/tmp/custom-graphcalc")

	tests := []struct{ got, want string }{
		{GraphcalcPath(), "/tmp/custom-graphcalc"},
		{ConfigPath(), "/tmp/custom-graphcalc/config.jsonc"},
		{DotenvPath(), "/tmp/custom-graphcalc/.env"},
		{JournalPath(), "/tmp/custom-graphcalc/journal"},
		{HeartbeatPath(), "/tmp/custom-graphcalc/heartbeat.json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
