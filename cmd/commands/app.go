package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/calculus"
	"github.com/dohr-michael/graphcalc/internal/config"
	"github.com/dohr-michael/graphcalc/internal/secrets"
	"github.com/dohr-michael/graphcalc/internal/session"
	"github.com/dohr-michael/graphcalc/internal/storage"
	"github.com/dohr-michael/graphcalc/internal/storage/badgerstore"
	"github.com/dohr-michael/graphcalc/internal/storage/dirstore"
	"github.com/dohr-michael/graphcalc/internal/storage/sqlitestore"
)

// logLevel is shared by every handler so a config reload can change it.
var logLevel = new(slog.LevelVar)

func setupLogging(cmd *cli.Command, level slog.Level) {
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logLevel.Set(level)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if name := cmd.String("session"); name != "" {
		cfg.Session.Name = name
	}
	return cfg, nil
}

// openRecords builds the configured record backend, sealing user profiles
// when encryption is enabled.
func openRecords(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	var (
		records storage.Store
		err     error
	)
	switch cfg.Driver {
	case config.DriverFile:
		records = dirstore.New(cfg.Dir)
	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("create records dir: %w", err)
		}
		records, err = sqlitestore.Open(ctx, filepath.Join(cfg.Dir, "records.db"))
	case config.DriverBadger:
		records, err = badgerstore.Open(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.EncryptProfiles {
		return records, nil
	}
	identity, err := secrets.GenerateIdentity(cfg.KeyPath)
	if err != nil {
		records.Close()
		return nil, fmt.Errorf("profile encryption key: %w", err)
	}
	return secrets.Seal(records, identity, storage.KindUser), nil
}

// app is the calculator stack opened by a command.
type app struct {
	cfg     *config.Config
	records storage.Store
	store   *session.Store
	calc    *calculator.Calculator
}

// openApp opens storage and restores the session. notifier may be nil.
func openApp(ctx context.Context, cfg *config.Config, notifier session.Notifier) (*app, error) {
	records, err := openRecords(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	store := session.New(records, session.Options{Name: cfg.Session.Name, Notifier: notifier})
	if err := store.Restore(ctx); err != nil {
		records.Close()
		return nil, fmt.Errorf("restore session %q: %w", cfg.Session.Name, err)
	}
	slog.Debug("session restored", "session", cfg.Session.Name, "driver", cfg.Storage.Driver, "user", store.User())

	return &app{
		cfg:     cfg,
		records: records,
		store:   store,
		calc:    calculator.New(store, calculatorOptions(cfg)),
	}, nil
}

func calculatorOptions(cfg *config.Config) calculator.Options {
	return calculator.Options{
		Integration: calculus.Options{
			Tolerance: cfg.Integration.Tolerance,
			MaxDepth:  cfg.Integration.MaxDepth,
			MaxEvals:  cfg.Integration.MaxEvals,
		},
		Samples2D: cfg.Plot.Samples2D,
		Samples3D: cfg.Plot.Samples3D,
	}
}

func (a *app) Close() {
	if err := a.records.Close(); err != nil {
		slog.Warn("close records", "error", err)
	}
}

// withApp opens the stack for a one-shot command.
func withApp(fn func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		setupLogging(cmd, parseLevel(cfg.Log.Level))

		a, err := openApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a)
	}
}

var errUsage = errors.New("usage")

// IsUsage reports whether err came from malformed command-line input.
func IsUsage(err error) bool { return errors.Is(err, errUsage) }

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// expression joins the positional arguments so unquoted input like
// `graphcalc eval 1 + 2` works.
func expression(cmd *cli.Command) (string, error) {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if text == "" {
		return "", usageError("%s <expression>", cmd.FullName())
	}
	return text, nil
}
