package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/config"
	"github.com/dohr-michael/graphcalc/internal/expr"
	"github.com/dohr-michael/graphcalc/internal/gateway"
	"github.com/dohr-michael/graphcalc/internal/heartbeat"
	"github.com/dohr-michael/graphcalc/internal/session"
)

// staleAfter is four missed refreshes at the default heartbeat schedule.
const staleAfter = 2 * time.Minute

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show gateway liveness and the session it serves",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, parseLevel(cfg.Log.Level))

	status, hb, err := heartbeat.Check(config.HeartbeatPath(), staleAfter)
	if err != nil {
		return fmt.Errorf("check heartbeat: %w", err)
	}

	// A live gateway owns the records (badger locks its directory), so
	// ask it; otherwise read the persisted session directly.
	var snap session.Snapshot
	if status == heartbeat.StatusAlive && hb.Address != "" {
		snap, err = remoteSnapshot(ctx, hb.Address)
	} else {
		snap, err = localSnapshot(ctx, cfg)
	}
	if err != nil {
		slog.Warn("session unavailable", "error", err)
		return writeStatus(os.Stdout, status, hb, nil)
	}
	return writeStatus(os.Stdout, status, hb, &snap)
}

func remoteSnapshot(ctx context.Context, addr string) (session.Snapshot, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c, err := dialGatewayURL(dialCtx, "ws://"+addr+"/api/ws")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer c.Close()

	var snap session.Snapshot
	if err := c.Call(dialCtx, gateway.MethodSession, nil, &snap); err != nil {
		return session.Snapshot{}, err
	}
	return snap, nil
}

func localSnapshot(ctx context.Context, cfg *config.Config) (session.Snapshot, error) {
	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer a.Close()
	return a.store.Snapshot(), nil
}

// writeStatus prints gateway liveness followed by the session summary;
// snap is nil when the session could not be read.
func writeStatus(w io.Writer, status heartbeat.Status, hb *heartbeat.Heartbeat, snap *session.Snapshot) error {
	switch status {
	case heartbeat.StatusAlive:
		fmt.Fprintf(w, "Gateway: ALIVE on %s (PID %d, uptime %s)\n", hb.Address, hb.PID, hb.Uptime)
	case heartbeat.StatusStale:
		fmt.Fprintf(w, "Gateway: STALE (PID %d, last heartbeat %s ago)\n",
			hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
	default:
		fmt.Fprintln(w, "Gateway: NOT RUNNING")
	}
	if snap == nil {
		return nil
	}

	user := snap.User
	if user == "" {
		user = "(signed out)"
	}
	fmt.Fprintf(w, "Session: %s\n", snap.Name)
	fmt.Fprintf(w, "  user:      %s\n", user)
	fmt.Fprintf(w, "  variables: %d\n", len(snap.Variables))
	if n := len(snap.History); n > 0 {
		last := snap.History[n-1]
		fmt.Fprintf(w, "  history:   %d (last: %s = %s)\n", n, last.Expression, last.Result)
	} else {
		fmt.Fprintln(w, "  history:   0")
	}
	x := snap.PlotRange.X
	_, err := fmt.Fprintf(w, "  x range:   [%s, %s]\n", expr.FormatNumber(x.Min), expr.FormatNumber(x.Max))
	return err
}
