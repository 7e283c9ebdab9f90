package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/dohr-michael/graphcalc/internal/eval"
	"github.com/dohr-michael/graphcalc/internal/events"
	"github.com/dohr-michael/graphcalc/internal/storage"
)

// Notifier receives state change events. *events.Bus satisfies it.
type Notifier interface {
	Publish(events.Event)
}

// Options configures a Store.
type Options struct {
	// Name keys the session record. Defaults to "default".
	Name     string
	Notifier Notifier
}

// Store owns the session state. Readers run concurrently; every mutation
// takes the write lock for the whole change including persistence, so a
// completed write always reflects the latest state.
type Store struct {
	mu       sync.RWMutex
	records  storage.Store
	name     string
	notifier Notifier

	history    []HistoryEntry
	sessionEnv eval.Env
	userEnv    eval.Env
	user       string
	plot       PlotRange
	prefs      Preferences
}

// New creates a Store in the signed-out default state. Call Restore to
// load persisted state.
func New(records storage.Store, opts Options) *Store {
	if opts.Name == "" {
		opts.Name = "default"
	}
	s := &Store{
		records:  records,
		name:     opts.Name,
		notifier: opts.Notifier,
	}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.history = nil
	s.sessionEnv = eval.Env{}
	s.userEnv = nil
	s.user = ""
	s.plot = DefaultPlotRange()
	s.prefs = DefaultPreferences()
}

// Name returns the key of the session record.
func (s *Store) Name() string { return s.name }

func (s *Store) publish(p events.EventPayload) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(events.NewTypedEventWithSession(events.SourceSession, p, s.name))
}

// activeEnvLocked is the user environment when signed in, else the session one.
func (s *Store) activeEnvLocked() eval.Env {
	if s.user != "" {
		return s.userEnv
	}
	return s.sessionEnv
}

// =============================================================================
// HISTORY
// =============================================================================

// AppendHistory records a successful evaluation, evicting the oldest entry
// beyond MaxHistory. It does not persist; callers follow with Persist.
func (s *Store) AppendHistory(expression, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, HistoryEntry{Expression: expression, Result: result})
	if over := len(s.history) - MaxHistory; over > 0 {
		s.history = slices.Clone(s.history[over:])
	}
	s.publish(events.HistoryAppendedPayload{Expression: expression, Result: result, Size: len(s.history)})
}

// ClearHistory empties the history and persists.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.history
	s.history = nil
	if err := s.persistLocked(ctx); err != nil {
		s.history = prev
		return err
	}
	dropped := len(prev)
	s.publish(events.HistoryClearedPayload{Dropped: dropped})
	return nil
}

// History returns a copy of the history, oldest first.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// =============================================================================
// SIGN-IN STATE MACHINE
// =============================================================================

// User returns the signed-in user, or "" when signed out.
func (s *Store) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SignIn makes user's environment active, loading it from storage (empty
// if none was stored). When another user is signed in, their environment
// is saved first.
func (s *Store) SignIn(ctx context.Context, user string) error {
	if !ValidUser(user) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == user {
		return nil
	}
	env, err := s.loadProfile(ctx, user)
	if err != nil {
		return err
	}
	if s.user != "" {
		outgoing := s.user
		if err := s.saveProfileLocked(ctx); err != nil {
			return err
		}
		s.publish(events.UserSignedOutPayload{User: outgoing})
	}

	prevUser, prevEnv := s.user, s.userEnv
	s.user = user
	s.userEnv = env
	if err := s.persistLocked(ctx); err != nil {
		s.user, s.userEnv = prevUser, prevEnv
		return err
	}
	slog.Debug("user signed in", "user", user, "variables", len(env))
	s.publish(events.UserSignedInPayload{User: user, Variables: len(env)})
	return nil
}

// SignOut saves the user's environment, then clears the active environment.
// Signing out while signed out is a no-op.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == "" {
		return nil
	}
	if err := s.saveProfileLocked(ctx); err != nil {
		return err
	}

	user, userEnv, sessionEnv := s.user, s.userEnv, s.sessionEnv
	s.user = ""
	s.userEnv = nil
	s.sessionEnv = eval.Env{}
	if err := s.persistLocked(ctx); err != nil {
		s.user, s.userEnv, s.sessionEnv = user, userEnv, sessionEnv
		return err
	}
	slog.Debug("user signed out", "user", user)
	s.publish(events.UserSignedOutPayload{User: user})
	return nil
}

// Users lists every username with a stored profile.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	return s.records.List(ctx, storage.KindUser)
}

func (s *Store) loadProfile(ctx context.Context, user string) (eval.Env, error) {
	data, err := s.records.Get(ctx, storage.KindUser, user)
	if errors.Is(err, storage.ErrNotFound) {
		return eval.Env{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", user, err)
	}
	var p profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", user, err)
	}
	return sanitizeEnv(p.Variables), nil
}

func (s *Store) saveProfileLocked(ctx context.Context) error {
	data, err := json.Marshal(profile{Variables: s.userEnv.Clone()})
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", s.user, err)
	}
	if err := s.records.Put(ctx, storage.KindUser, s.user, data); err != nil {
		return fmt.Errorf("save profile %s: %w", s.user, err)
	}
	return nil
}

// =============================================================================
// VARIABLES
// =============================================================================

// Env returns a snapshot of the active environment.
func (s *Store) Env() eval.Env {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeEnvLocked().Clone()
}

// SetVar binds name in the active environment and persists it.
func (s *Store) SetVar(ctx context.Context, name string, value float64) error {
	if !ValidVariable(name) {
		return fmt.Errorf("%w: %q is not a valid name", ErrInvalidVariable, name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be finite", ErrInvalidVariable, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env := s.activeEnvLocked()
	prev, had := env[name]
	env[name] = value
	if err := s.persistVarsLocked(ctx); err != nil {
		if had {
			env[name] = prev
		} else {
			delete(env, name)
		}
		return err
	}
	s.publish(events.VariableSetPayload{Name: name, Value: value, User: s.user})
	return nil
}

// UnsetVar removes name from the active environment.
func (s *Store) UnsetVar(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := s.activeEnvLocked()
	prev, ok := env[name]
	if !ok {
		return fmt.Errorf("%w: %s is not bound", ErrInvalidVariable, name)
	}
	delete(env, name)
	if err := s.persistVarsLocked(ctx); err != nil {
		env[name] = prev
		return err
	}
	s.publish(events.VariableUnsetPayload{Name: name, User: s.user})
	return nil
}

// persistVarsLocked writes whichever record owns the active environment.
func (s *Store) persistVarsLocked(ctx context.Context) error {
	if s.user != "" {
		return s.saveProfileLocked(ctx)
	}
	return s.persistLocked(ctx)
}

// =============================================================================
// VIEW
// =============================================================================

// PlotRange returns the current plot ranges.
func (s *Store) PlotRange() PlotRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plot
}

// ZoomIn scales both endpoints of both axes by ZoomInFactor.
func (s *Store) ZoomIn(ctx context.Context) error {
	return s.zoom(ctx, ZoomInFactor, events.ViewZoomIn)
}

// ZoomOut scales both endpoints of both axes by ZoomOutFactor.
func (s *Store) ZoomOut(ctx context.Context) error {
	return s.zoom(ctx, ZoomOutFactor, events.ViewZoomOut)
}

func (s *Store) zoom(ctx context.Context, factor float64, change events.ViewChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := PlotRange{X: s.plot.X.scale(factor), Y: s.plot.Y.scale(factor)}
	if !next.X.valid() || !next.Y.valid() {
		return fmt.Errorf("%w: zoom would leave a degenerate range", ErrInvalidRange)
	}
	return s.updateViewLocked(ctx, change, func() { s.plot = next })
}

// SetRange replaces one axis range. min must be strictly less than max.
func (s *Store) SetRange(ctx context.Context, axis Axis, lo, hi float64) error {
	r := Range{Min: lo, Max: hi}
	if !r.valid() {
		return fmt.Errorf("%w: need finite min < max, got (%g, %g)", ErrInvalidRange, lo, hi)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.plot
	switch axis {
	case AxisX:
		next.X = r
	case AxisY:
		next.Y = r
	default:
		return fmt.Errorf("%w: unknown axis %q", ErrInvalidRange, axis)
	}
	return s.updateViewLocked(ctx, events.ViewRange, func() { s.plot = next })
}

// Preferences returns the display preferences.
func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetDarkMode toggles the theme preference.
func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateViewLocked(ctx, events.ViewTheme, func() { s.prefs.DarkMode = on })
}

// SetFontSize sets the display font size within [MinFontSize, MaxFontSize].
func (s *Store) SetFontSize(ctx context.Context, size int) error {
	if size < MinFontSize || size > MaxFontSize {
		return fmt.Errorf("%w: font size %d outside [%d, %d]", ErrInvalidRange, size, MinFontSize, MaxFontSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateViewLocked(ctx, events.ViewFontSize, func() { s.prefs.FontSize = size })
}

// updateViewLocked applies a view change and persists it, rolling back when
// the write fails.
func (s *Store) updateViewLocked(ctx context.Context, change events.ViewChange, apply func()) error {
	plot, prefs := s.plot, s.prefs
	apply()
	if err := s.persistLocked(ctx); err != nil {
		s.plot, s.prefs = plot, prefs
		return err
	}
	s.publish(events.ViewChangedPayload{
		Change:   change,
		XMin:     s.plot.X.Min,
		XMax:     s.plot.X.Max,
		YMin:     s.plot.Y.Min,
		YMax:     s.plot.Y.Max,
		DarkMode: s.prefs.DarkMode,
		FontSize: s.prefs.FontSize,
	})
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Persist writes the session record, fully replacing the previous one.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	rec := record{
		History:     s.history,
		Variables:   s.sessionEnv,
		DarkMode:    s.prefs.DarkMode,
		FontSize:    s.prefs.FontSize,
		XRange:      [2]float64{s.plot.X.Min, s.plot.X.Max},
		YRange:      [2]float64{s.plot.Y.Min, s.plot.Y.Max},
		CurrentUser: s.user,
	}
	if rec.History == nil {
		rec.History = []HistoryEntry{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.records.Put(ctx, storage.KindSession, s.name, data); err != nil {
		return fmt.Errorf("persist session %s: %w", s.name, err)
	}
	return nil
}

// Restore loads the session record. A missing record resets to the
// defaults and is not an error. Out-of-bounds fields fall back to their
// defaults individually.
func (s *Store) Restore(ctx context.Context) error {
	data, err := s.records.Get(ctx, storage.KindSession, s.name)
	if errors.Is(err, storage.ErrNotFound) {
		s.mu.Lock()
		s.resetLocked()
		s.mu.Unlock()
		slog.Debug("no session record, using defaults", "session", s.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session %s: %w", s.name, err)
	}

	// Everything is decoded before the lock is taken so that a failure
	// leaves the current state as it was.
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode session %s: %w", s.name, err)
	}
	var (
		user    string
		userEnv eval.Env
	)
	if rec.CurrentUser != "" && ValidUser(rec.CurrentUser) {
		if userEnv, err = s.loadProfile(ctx, rec.CurrentUser); err != nil {
			return err
		}
		user = rec.CurrentUser
	}

	history := rec.History
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	prefs := DefaultPreferences()
	prefs.DarkMode = rec.DarkMode
	if rec.FontSize >= MinFontSize && rec.FontSize <= MaxFontSize {
		prefs.FontSize = rec.FontSize
	}
	plot := DefaultPlotRange()
	if x := (Range{Min: rec.XRange[0], Max: rec.XRange[1]}); x.valid() {
		plot.X = x
	}
	if y := (Range{Min: rec.YRange[0], Max: rec.YRange[1]}); y.valid() {
		plot.Y = y
	}

	s.mu.Lock()
	s.history = slices.Clone(history)
	s.sessionEnv = sanitizeEnv(rec.Variables)
	s.user = user
	s.userEnv = userEnv
	s.plot = plot
	s.prefs = prefs
	s.mu.Unlock()

	slog.Debug("session restored", "session", s.name, "history", len(history), "user", user)
	return nil
}

// sanitizeEnv drops entries that could not have been bound through SetVar.
func sanitizeEnv(in eval.Env) eval.Env {
	out := make(eval.Env, len(in))
	for k, v := range in {
		if ValidVariable(k) && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a read-only view of the whole session.
type Snapshot struct {
	Name        string         `json:"name"`
	User        string         `json:"user,omitempty"`
	History     []HistoryEntry `json:"history"`
	Variables   eval.Env       `json:"variables"`
	PlotRange   PlotRange      `json:"plot_range"`
	Preferences Preferences    `json:"preferences"`
}

// Snapshot copies the current state under one read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Name:        s.name,
		User:        s.user,
		History:     slices.Clone(s.history),
		Variables:   s.activeEnvLocked().Clone(),
		PlotRange:   s.plot,
		Preferences: s.prefs,
	}
}
