package commands

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	graphcalcmcp "github.com/dohr-michael/graphcalc/internal/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp-serve",
		Usage:     "Expose the calculator as an MCP server (stdio)",
		ArgsUsage: "[tool...]",
		Action:    runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol, so log to stderr and keep it quiet
	setupLogging(cmd, slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	filter := cmd.Args().Slice()
	slog.Debug("starting MCP server", "filter", filter, "session", a.store.Name())

	server := graphcalcmcp.NewMCPServer(a.calc, filter...)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
