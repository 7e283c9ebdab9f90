package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/session"
)

// NewViewCommand returns the view subcommand.
func NewViewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Plot ranges and display preferences",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show ranges and preferences",
				Flags:  []cli.Flag{formatFlag(formatText)},
				Action: withApp(runViewShow),
			},
			{
				Name:  "zoom-in",
				Usage: "Shrink both ranges by 0.8",
				Action: withApp(func(ctx context.Context, _ *cli.Command, a *app) error {
					return zoomAndShow(ctx, a, a.store.ZoomIn)
				}),
			},
			{
				Name:  "zoom-out",
				Usage: "Grow both ranges by 1.2",
				Action: withApp(func(ctx context.Context, _ *cli.Command, a *app) error {
					return zoomAndShow(ctx, a, a.store.ZoomOut)
				}),
			},
			{
				Name:  "range",
				Usage: "Set one axis range",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "axis", Value: "x", Usage: "x or y"},
					&cli.FloatFlag{Name: "min", Required: true},
					&cli.FloatFlag{Name: "max", Required: true},
				},
				Action: withApp(runViewRange),
			},
			{
				Name:      "theme",
				Usage:     "Switch between light and dark mode",
				ArgsUsage: "<light|dark>",
				Action:    withApp(runViewTheme),
			},
			{
				Name:      "font",
				Usage:     fmt.Sprintf("Set the font size (%d-%d)", session.MinFontSize, session.MaxFontSize),
				ArgsUsage: "<size>",
				Action:    withApp(runViewFont),
			},
		},
		DefaultCommand: "show",
	}
}

func printView(a *app) {
	pr, prefs := a.store.PlotRange(), a.store.Preferences()
	theme := "light"
	if prefs.DarkMode {
		theme = "dark"
	}
	fmt.Printf("x:     [%g, %g]\n", pr.X.Min, pr.X.Max)
	fmt.Printf("y:     [%g, %g]\n", pr.Y.Min, pr.Y.Max)
	fmt.Printf("theme: %s\n", theme)
	fmt.Printf("font:  %d\n", prefs.FontSize)
}

func runViewShow(_ context.Context, cmd *cli.Command, a *app) error {
	if f := cmd.String("format"); f != formatText {
		return encode(os.Stdout, f, struct {
			PlotRange   session.PlotRange   `json:"plot_range" yaml:"plot_range"`
			Preferences session.Preferences `json:"preferences" yaml:"preferences"`
		}{a.store.PlotRange(), a.store.Preferences()})
	}
	printView(a)
	return nil
}

func zoomAndShow(ctx context.Context, a *app, zoom func(context.Context) error) error {
	if err := zoom(ctx); err != nil {
		return err
	}
	printView(a)
	return nil
}

func runViewRange(ctx context.Context, cmd *cli.Command, a *app) error {
	axis := session.Axis(cmd.String("axis"))
	if err := a.store.SetRange(ctx, axis, cmd.Float("min"), cmd.Float("max")); err != nil {
		return err
	}
	printView(a)
	return nil
}

func runViewTheme(ctx context.Context, cmd *cli.Command, a *app) error {
	var dark bool
	switch cmd.Args().First() {
	case "dark":
		dark = true
	case "light":
	default:
		return usageError("graphcalc view theme <light|dark>")
	}
	return a.store.SetDarkMode(ctx, dark)
}

func runViewFont(ctx context.Context, cmd *cli.Command, a *app) error {
	size, err := strconv.Atoi(cmd.Args().First())
	if err != nil {
		return usageError("graphcalc view font <size>")
	}
	return a.store.SetFontSize(ctx, size)
}
