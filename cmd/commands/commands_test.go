package commands

import (
	"bufio"
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/config"
	"github.com/dohr-michael/graphcalc/internal/heartbeat"
	"github.com/dohr-michael/graphcalc/internal/secrets"
	"github.com/dohr-michael/graphcalc/internal/session"
	"github.com/dohr-michael/graphcalc/internal/storage"
	"github.com/dohr-michael/graphcalc/internal/storage/dirstore"
)

func newTestCalculator(t *testing.T) *calculator.Calculator {
	t.Helper()
	store := session.New(dirstore.New(t.TempDir()), session.Options{})
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	return calculator.New(store, calculator.Options{})
}

func TestREPLSession(t *testing.T) {
	calc := newTestCalculator(t)
	input := strings.Join([]string{
		"1 + 2",
		":set k 4",
		"k^2",
		"1/0",
		":derive x^2",
		":bogus",
		":quit",
		"99",
	}, "\n")

	var out bytes.Buffer
	if err := replLoop(context.Background(), calc, bufio.NewScanner(strings.NewReader(input)), &out); err != nil {
		t.Fatalf("replLoop: %v", err)
	}

	want := strings.Join([]string{
		"3",
		"k = 4",
		"16",
		"error: division by zero",
		"2*x",
		"error: unknown command :bogus (try :help)",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	// :quit stops before 99
	if h := calc.Store().History(); len(h) != 2 {
		t.Errorf("history = %+v", h)
	}
}

func TestREPLIntegrate(t *testing.T) {
	var out bytes.Buffer
	r := &repl{calc: newTestCalculator(t), out: &out}

	r.exec(context.Background(), ":integrate 0 1 2*x")
	got, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("integral = %v, want 1", got)
	}

	out.Reset()
	r.exec(context.Background(), ":integrate 0 x")
	if !strings.HasPrefix(out.String(), "error: usage") {
		t.Errorf("output = %q", out.String())
	}
}

func TestREPLSignInOut(t *testing.T) {
	calc := newTestCalculator(t)
	r := &repl{calc: calc, out: &bytes.Buffer{}}
	ctx := context.Background()

	r.exec(ctx, ":signin ada")
	r.exec(ctx, ":set rate 0.5")
	if calc.Store().User() != "ada" {
		t.Fatalf("user = %q", calc.Store().User())
	}
	r.exec(ctx, ":signout")
	if env := calc.Store().Env(); len(env) != 0 {
		t.Errorf("env after signout = %v", env)
	}
	r.exec(ctx, ":signin ada")
	if got := calc.Store().Env()["rate"]; got != 0.5 {
		t.Errorf("rate = %v after signing back in", got)
	}
}

func TestCompleter(t *testing.T) {
	calc := newTestCalculator(t)
	if err := calc.Store().SetVar(context.Background(), "alpha", 1); err != nil {
		t.Fatalf("SetVar: %v", err)
	}
	complete := completer(calc)

	line, pos, ok := complete("1 + si", 6, '\t')
	if !ok || line != "1 + sin(" || pos != 8 {
		t.Errorf("complete si = %q, %d, %v", line, pos, ok)
	}
	line, _, ok = complete("al", 2, '\t')
	if !ok || line != "alpha" {
		t.Errorf("complete al = %q, %v", line, ok)
	}
	if _, _, ok := complete("zz", 2, '\t'); ok {
		t.Error("completed an unknown prefix")
	}
	if _, _, ok := complete("si", 2, 'a'); ok {
		t.Error("completed on a non-tab key")
	}
}

func TestFilterUsers(t *testing.T) {
	users := []string{"ada", "alan", "bob", "team.alpha"}
	tests := []struct {
		pattern string
		want    []string
	}{
		{"", users},
		{"a*", []string{"ada", "alan"}},
		{"team.*", []string{"team.alpha"}},
		{"{bob,ada}", []string{"ada", "bob"}},
		{"z*", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, filterUsers(users, tt.pattern)); diff != "" {
			t.Errorf("filterUsers(%q) mismatch (-want +got):\n%s", tt.pattern, diff)
		}
	}
}

func TestOpenRecordsDrivers(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{config.DriverFile, config.DriverSQLite, config.DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			records, err := openRecords(ctx, config.StorageConfig{Driver: driver, Dir: filepath.Join(t.TempDir(), "records")})
			if err != nil {
				t.Fatalf("openRecords: %v", err)
			}
			defer records.Close()

			if err := records.Put(ctx, storage.KindSession, "default", []byte(`{}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := records.Get(ctx, storage.KindSession, "default")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{}` {
				t.Errorf("Get = %q", got)
			}
		})
	}

	if _, err := openRecords(ctx, config.StorageConfig{Driver: "mongo"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpenRecordsEncrypted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.StorageConfig{
		Driver:          config.DriverFile,
		Dir:             filepath.Join(dir, "records"),
		EncryptProfiles: true,
		KeyPath:         filepath.Join(dir, ".age-key"),
	}
	records, err := openRecords(ctx, cfg)
	if err != nil {
		t.Fatalf("openRecords: %v", err)
	}
	defer records.Close()

	if err := records.Put(ctx, storage.KindUser, "ada", []byte(`{"variables":{"k":1}}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(cfg.Dir, storage.KindUser, "ada.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !secrets.IsEncrypted(raw) {
		t.Errorf("profile stored in plaintext: %s", raw)
	}
	got, err := records.Get(ctx, storage.KindUser, "ada")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"variables":{"k":1}}` {
		t.Errorf("Get = %s", got)
	}
}

func TestWriteStatus(t *testing.T) {
	snap := &session.Snapshot{
		Name:      "lab",
		User:      "ada",
		History:   []session.HistoryEntry{{Expression: "1+1", Result: "2"}, {Expression: "2^10", Result: "1024"}},
		Variables: map[string]float64{"k": 3},
		PlotRange: session.DefaultPlotRange(),
	}
	var buf bytes.Buffer
	if err := writeStatus(&buf, heartbeat.StatusDead, nil, snap); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}
	want := `Gateway: NOT RUNNING
Session: lab
  user:      ada
  variables: 1
  history:   2 (last: 2^10 = 1024)
  x range:   [-10, 10]
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	hb := &heartbeat.Heartbeat{PID: 42, Address: "127.0.0.1:18421", Uptime: "5s"}
	if err := writeStatus(&buf, heartbeat.StatusAlive, hb, nil); err != nil {
		t.Fatalf("writeStatus: %v", err)
	}
	if got := buf.String(); got != "Gateway: ALIVE on 127.0.0.1:18421 (PID 42, uptime 5s)\n" {
		t.Errorf("alive output = %q", got)
	}
}

func TestLocalSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()

	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	if _, err := a.calc.Evaluate(ctx, "6*7"); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if err := a.store.SignIn(ctx, "ada"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	a.Close()

	snap, err := localSnapshot(ctx, cfg)
	if err != nil {
		t.Fatalf("localSnapshot: %v", err)
	}
	if snap.User != "ada" || len(snap.History) != 1 || snap.History[0].Result != "42" {
		t.Errorf("snapshot = %+v", snap)
	}
}
