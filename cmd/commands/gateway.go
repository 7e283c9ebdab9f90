package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/config"
	"github.com/dohr-michael/graphcalc/internal/events"
	"github.com/dohr-michael/graphcalc/internal/gateway"
	"github.com/dohr-michael/graphcalc/internal/heartbeat"
	"github.com/dohr-michael/graphcalc/internal/storage"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Serve the calculator over HTTP and WebSocket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runGateway,
	}
}

func runGateway(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, parseLevel(cfg.Log.Level))

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	journal := storage.NewJournal(config.JournalPath(), bus)
	defer journal.Close()

	a, err := openApp(ctx, cfg, bus)
	if err != nil {
		return err
	}
	defer a.Close()

	// SIGHUP re-reads .env and config.
	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), cfg)
	reloader.OnReload(func(c *config.Config, ch config.Change) {
		if ch.Log && !cmd.Bool("debug") {
			logLevel.Set(parseLevel(c.Log.Level))
		}
		if ch.Plot || ch.Integration {
			a.calc.SetOptions(calculatorOptions(c))
		}
	})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if _, err := reloader.Reload(); err != nil {
					slog.Warn("config reload failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	server := gateway.NewServer(bus, a.calc, cfg.Gateway.Host, cfg.Gateway.Port)

	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(func(addr string) { ready <- addr })
	}()

	select {
	case addr := <-ready:
		hb := heartbeat.NewWriter(config.HeartbeatPath(), addr, a.store.Name())
		if err := hb.Start(); err != nil {
			slog.Warn("heartbeat disabled", "error", err)
		} else {
			defer hb.Stop()
		}
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return a.store.Persist(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	}
}
