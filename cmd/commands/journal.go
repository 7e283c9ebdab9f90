package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/config"
	"github.com/dohr-michael/graphcalc/internal/storage"
)

// NewJournalCommand returns the journal subcommand.
func NewJournalCommand() *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Show session events recorded by the gateway",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Show only the last n events (0 = all)",
				Value:   20,
			},
			formatFlag(formatText),
		},
		Action: runJournal,
	}
}

func runJournal(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	list, err := storage.ReadJournal(config.JournalPath(), cfg.Session.Name, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if f := cmd.String("format"); f != formatText {
		return encode(os.Stdout, f, list)
	}
	if len(list) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tPAYLOAD")
	for _, e := range list {
		payload, _ := json.Marshal(e.Payload)
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, payload)
	}
	return w.Flush()
}
