package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/dohr-michael/graphcalc/clients/ws"
	"github.com/dohr-michael/graphcalc/internal/config"
	"github.com/dohr-michael/graphcalc/internal/heartbeat"
)

// NewRemoteCommand returns the remote subcommand.
func NewRemoteCommand() *cli.Command {
	addr := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "addr",
			Usage: "Gateway host:port (default: read from the heartbeat)",
		}
	}
	return &cli.Command{
		Name:  "remote",
		Usage: "Talk to a running gateway over WebSocket",
		Commands: []*cli.Command{
			{
				Name:      "call",
				Usage:     "Send one request, e.g. call eval '{\"expression\":\"1+2\"}'",
				ArgsUsage: "<method> [json-params]",
				Flags:     []cli.Flag{addr()},
				Action:    runRemoteCall,
			},
			{
				Name:   "watch",
				Usage:  "Stream session events until interrupted",
				Flags:  []cli.Flag{addr()},
				Action: runRemoteWatch,
			},
		},
	}
}

func gatewayURL(cmd *cli.Command) (string, error) {
	addr := cmd.String("addr")
	if addr == "" {
		status, hb, err := heartbeat.Check(config.HeartbeatPath(), 2*time.Minute)
		if err != nil {
			return "", err
		}
		if status != heartbeat.StatusAlive || hb.Address == "" {
			return "", fmt.Errorf("gateway not running (status %s); pass --addr", status)
		}
		addr = hb.Address
	}
	return "ws://" + addr + "/api/ws", nil
}

func dialGateway(ctx context.Context, cmd *cli.Command) (*wsclient.Client, error) {
	url, err := gatewayURL(cmd)
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return dialGatewayURL(dialCtx, url)
}

func dialGatewayURL(ctx context.Context, url string) (*wsclient.Client, error) {
	c, err := wsclient.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", url, err)
	}
	return c, nil
}

func runRemoteCall(ctx context.Context, cmd *cli.Command) error {
	method := cmd.Args().First()
	if method == "" {
		return usageError("graphcalc remote call <method> [json-params]")
	}
	var params json.RawMessage
	if raw := cmd.Args().Get(1); raw != "" {
		if !json.Valid([]byte(raw)) {
			return usageError("params must be a JSON object")
		}
		params = json.RawMessage(raw)
	}

	c, err := dialGateway(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	var result json.RawMessage
	if err := c.Call(ctx, method, params, &result); err != nil {
		return err
	}
	if len(result) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(result, &v); err != nil {
		return err
	}
	return encode(os.Stdout, formatJSON, v)
}

func runRemoteWatch(ctx context.Context, cmd *cli.Command) error {
	c, err := dialGateway(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	for {
		select {
		case f, ok := <-c.Events():
			if !ok {
				return nil
			}
			fmt.Printf("%s  %-18s %s\n", time.Now().Format("15:04:05"), f.Event, f.Payload)
		case <-ctx.Done():
			return nil
		}
	}
}
