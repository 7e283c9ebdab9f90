package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Change reports which sections differ between two configs. Log, Plot and
// Integration apply to a running gateway; the sections in Restart only take
// effect on the next start.
type Change struct {
	Log         bool
	Plot        bool
	Integration bool
	Restart     []string
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return !c.Log && !c.Plot && !c.Integration && len(c.Restart) == 0
}

// Diff compares old against next section by section.
func Diff(old, next *Config) Change {
	ch := Change{
		Log:         old.Log != next.Log,
		Plot:        old.Plot != next.Plot,
		Integration: old.Integration != next.Integration,
	}
	if old.Storage != next.Storage {
		ch.Restart = append(ch.Restart, "storage")
	}
	if old.Session != next.Session {
		ch.Restart = append(ch.Restart, "session")
	}
	if old.Gateway != next.Gateway {
		ch.Restart = append(ch.Restart, "gateway")
	}
	if old.Events != next.Events {
		ch.Restart = append(ch.Restart, "events")
	}
	return ch
}

// Reloader re-reads the config on demand and hands live-applicable changes
// to its listeners.
type Reloader struct {
	configPath string
	dotenvPath string
	current    atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(*Config, Change)
}

func NewReloader(configPath, dotenvPath string, initial *Config) *Reloader {
	r := &Reloader{configPath: configPath, dotenvPath: dotenvPath}
	r.current.Store(initial)
	return r
}

// Current returns the active config.
func (r *Reloader) Current() *Config {
	return r.current.Load()
}

// OnReload registers fn to run after every reload that changed something.
func (r *Reloader) OnReload(fn func(*Config, Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Reload re-applies the .env file over the environment, reloads the config
// and notifies listeners. On failure the active config is kept.
func (r *Reloader) Reload() (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ReloadDotenv(r.dotenvPath); err != nil {
		return Change{}, fmt.Errorf("reload dotenv: %w", err)
	}
	next, err := LoadOrDefault(r.configPath)
	if err != nil {
		return Change{}, fmt.Errorf("reload config: %w", err)
	}

	ch := Diff(r.current.Load(), next)
	r.current.Store(next)
	if ch.Empty() {
		slog.Debug("config unchanged", "path", r.configPath)
		return ch, nil
	}
	if len(ch.Restart) > 0 {
		slog.Warn("config sections need a restart", "sections", ch.Restart)
	}
	slog.Info("config reloaded", "path", r.configPath, "log", ch.Log, "plot", ch.Plot, "integration", ch.Integration)

	for _, fn := range r.listeners {
		fn(next, ch)
	}
	return ch, nil
}
