package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/session"
)

// NewHistoryCommand returns the history subcommand.
func NewHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or manage the evaluation history",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List past evaluations, oldest first",
				Action: withApp(runHistoryList),
			},
			{
				Name:   "clear",
				Usage:  "Clear the history",
				Action: withApp(runHistoryClear),
			},
			{
				Name:  "export",
				Usage: "Export the history",
				Flags: []cli.Flag{
					formatFlag(formatYAML),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to file instead of stdout",
					},
				},
				Action: withApp(runHistoryExport),
			},
		},
		DefaultCommand: "list",
	}
}

func runHistoryList(_ context.Context, _ *cli.Command, a *app) error {
	h := a.store.History()
	if len(h) == 0 {
		fmt.Println("No history.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tEXPRESSION\tRESULT")
	for i, e := range h {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, e.Expression, e.Result)
	}
	return w.Flush()
}

func runHistoryClear(ctx context.Context, _ *cli.Command, a *app) error {
	n := len(a.store.History())
	if err := a.store.ClearHistory(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	fmt.Printf("Cleared %d entries.\n", n)
	return nil
}

// historyExport is the export document.
type historyExport struct {
	Session    string `json:"session" yaml:"session"`
	User       string `json:"user,omitempty" yaml:"user,omitempty"`
	ExportedAt string `json:"exported_at" yaml:"exported_at"`
	// yaml.v3 lowercases the untagged entry fields to match the JSON keys.
	Entries []session.HistoryEntry `json:"entries" yaml:"entries"`
}

func runHistoryExport(_ context.Context, cmd *cli.Command, a *app) error {
	doc := historyExport{
		Session:    a.store.Name(),
		User:       a.store.User(),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    a.store.History(),
	}

	out := os.Stdout
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer f.Close()
		out = f
	}
	return encode(out, cmd.String("format"), doc)
}
