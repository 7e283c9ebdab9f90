package commands

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/expr"
)

// NewVarsCommand returns the vars subcommand.
func NewVarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "vars",
		Usage: "Manage variable bindings (user bindings when signed in)",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List active bindings",
				Action: withApp(runVarsList),
			},
			{
				Name:      "set",
				Usage:     "Bind a variable (use -- before negative values)",
				ArgsUsage: "<name> <value>",
				Action:    withApp(runVarsSet),
			},
			{
				Name:      "unset",
				Usage:     "Remove a binding",
				ArgsUsage: "<name>",
				Action:    withApp(runVarsUnset),
			},
		},
		DefaultCommand: "list",
	}
}

func runVarsList(_ context.Context, _ *cli.Command, a *app) error {
	env := a.store.Env()
	if len(env) == 0 {
		fmt.Println("No variables.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVALUE")
	for _, name := range slices.Sorted(maps.Keys(env)) {
		fmt.Fprintf(w, "%s\t%s\n", name, expr.FormatNumber(env[name]))
	}
	return w.Flush()
}

func runVarsSet(ctx context.Context, cmd *cli.Command, a *app) error {
	if cmd.Args().Len() != 2 {
		return usageError("graphcalc vars set <name> <value>")
	}
	name := cmd.Args().Get(0)
	value, err := strconv.ParseFloat(cmd.Args().Get(1), 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", cmd.Args().Get(1), err)
	}
	if err := a.store.SetVar(ctx, name, value); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", name, expr.FormatNumber(value))
	return nil
}

func runVarsUnset(ctx context.Context, cmd *cli.Command, a *app) error {
	name := cmd.Args().First()
	if name == "" {
		return usageError("graphcalc vars unset <name>")
	}
	return a.store.UnsetVar(ctx, name)
}
