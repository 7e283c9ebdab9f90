package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "graphcalc",
		Usage: "Graphing calculator with symbolic calculus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Session name (overrides session.name)",
			},
		},
		Commands: []*cli.Command{
			NewEvalCommand(),
			NewDeriveCommand(),
			NewIntegrateCommand(),
			NewPlotCommand(),
			NewHistoryCommand(),
			NewVarsCommand(),
			NewUserCommand(),
			NewViewCommand(),
			NewREPLCommand(),
			NewGatewayCommand(),
			NewStatusCommand(),
			NewRemoteCommand(),
			NewJournalCommand(),
			NewMCPServeCommand(),
			NewKeygenCommand(),
		},
	}
}
