package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dohr-michael/graphcalc/cmd/commands"
	"github.com/dohr-michael/graphcalc/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		slog.Warn("failed to load .env", "path", config.DotenvPath(), "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := commands.NewRootCommand().Run(ctx, os.Args)
	switch {
	case err == nil:
		return 0
	case commands.IsUsage(err):
		fmt.Fprintln(os.Stderr, err)
		return 2
	default:
		slog.Error("graphcalc failed", "error", err)
		return 1
	}
}
