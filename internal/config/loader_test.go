package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	content := `{
	// storage backend
	"storage": {
		"driver": "badger",
		"dir": "${{ .Env.GC_RECORDS }}",
		"encrypt_profiles": true,
	},
	"gateway": {
		"host": "0.0.0.0",
		"port": 9999
	},
	/* sampling */
	"plot": {"samples_2d": 800},
}`

	path := filepath.Join(t.TempDir(), "config.jsonc")
	writeFile(t, path, content)
	t.Setenv("GC_RECORDS", "/data/records")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.Driver != DriverBadger {
		t.Errorf("expected driver badger, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.Dir != "/data/records" {
		t.Errorf("expected dir from env, got %s", cfg.Storage.Dir)
	}
	if !cfg.Storage.EncryptProfiles {
		t.Error("expected encrypt_profiles true")
	}
	if cfg.Gateway.Host != "0.0.0.0" || cfg.Gateway.Port != 9999 {
		t.Errorf("unexpected gateway %+v", cfg.Gateway)
	}
	if cfg.Plot.Samples2D != 800 {
		t.Errorf("expected samples_2d 800, got %d", cfg.Plot.Samples2D)
	}
	// defaults fill the rest
	if cfg.Plot.Samples3D != 100 {
		t.Errorf("expected samples_3d default 100, got %d", cfg.Plot.Samples3D)
	}
	if cfg.Session.Name != "default" {
		t.Errorf("expected session name default, got %s", cfg.Session.Name)
	}
}

func TestLoad_InvalidJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	writeFile(t, path, `{"storage": `)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for truncated config")
	}
}

func TestLoadOrDefault_Missing(t *testing.T) {
	t.Setenv("GRAPHCALC_PATH", "/tmp/gc-home")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.jsonc"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Storage.Driver != DriverFile {
		t.Errorf("driver = %s, want file", cfg.Storage.Driver)
	}
	if cfg.Storage.Dir != filepath.Join("/tmp/gc-home", "records") {
		t.Errorf("dir = %s", cfg.Storage.Dir)
	}
	if cfg.Integration.Tolerance != 1e-8 || cfg.Integration.MaxDepth != 50 || cfg.Integration.MaxEvals != 200000 {
		t.Errorf("integration defaults = %+v", cfg.Integration)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %s", cfg.Log.Level)
	}
}
