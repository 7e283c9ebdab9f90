package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/compile"
)

// NewEvalCommand returns the eval subcommand.
func NewEvalCommand() *cli.Command {
	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate an expression and record it in the history",
		ArgsUsage: "<expression>",
		Flags:     []cli.Flag{formatFlag(formatText)},
		Action:    withApp(runEval),
	}
}

func runEval(ctx context.Context, cmd *cli.Command, a *app) error {
	text, err := expression(cmd)
	if err != nil {
		return err
	}
	res, err := a.calc.Evaluate(ctx, text)
	if err != nil {
		return err
	}
	if f := cmd.String("format"); f != formatText {
		return encode(os.Stdout, f, res)
	}
	fmt.Println(res.Result)
	return nil
}

// NewDeriveCommand returns the derive subcommand.
func NewDeriveCommand() *cli.Command {
	return &cli.Command{
		Name:      "derive",
		Usage:     "Differentiate an expression symbolically",
		ArgsUsage: "<expression>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "var",
				Aliases: []string{"v"},
				Usage:   "Variable to differentiate by",
				Value:   "x",
			},
		},
		Action: withApp(runDerive),
	}
}

func runDerive(_ context.Context, cmd *cli.Command, a *app) error {
	text, err := expression(cmd)
	if err != nil {
		return err
	}
	d, err := a.calc.Derive(text, cmd.String("var"))
	if err != nil {
		return err
	}
	fmt.Println(d)
	return nil
}

// NewIntegrateCommand returns the integrate subcommand.
func NewIntegrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "integrate",
		Usage:     "Definite integral; bounds default to the session x range",
		ArgsUsage: "<expression>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "var",
				Aliases: []string{"v"},
				Usage:   "Integration variable",
				Value:   "x",
			},
			&cli.FloatFlag{Name: "from", Usage: "Lower bound"},
			&cli.FloatFlag{Name: "to", Usage: "Upper bound"},
			formatFlag(formatText),
		},
		Action: withApp(runIntegrate),
	}
}

func runIntegrate(ctx context.Context, cmd *cli.Command, a *app) error {
	text, err := expression(cmd)
	if err != nil {
		return err
	}

	var bounds *calculator.Bounds
	switch {
	case cmd.IsSet("from") && cmd.IsSet("to"):
		bounds = &calculator.Bounds{Lower: cmd.Float("from"), Upper: cmd.Float("to")}
	case cmd.IsSet("from") || cmd.IsSet("to"):
		return usageError("--from and --to must be given together")
	}

	res, err := a.calc.Integrate(ctx, text, cmd.String("var"), bounds)
	if err != nil {
		return err
	}
	if f := cmd.String("format"); f != formatText {
		return encode(os.Stdout, f, res)
	}
	fmt.Printf("%.12g  (±%.2g over [%g, %g])\n", res.Value, res.AbsErr, res.Lower, res.Upper)
	return nil
}

// NewPlotCommand returns the plot subcommand.
func NewPlotCommand() *cli.Command {
	samples := func() cli.Flag {
		return &cli.IntFlag{
			Name:    "samples",
			Aliases: []string{"n"},
			Usage:   "Points per axis (0 = configured default)",
		}
	}
	return &cli.Command{
		Name:  "plot",
		Usage: "Sample an expression over the session plot ranges",
		Commands: []*cli.Command{
			{
				Name:      "2d",
				Usage:     "Sample y = f(x)",
				ArgsUsage: "<expression>",
				Flags:     []cli.Flag{samples(), formatFlag(formatJSON)},
				Action:    withApp(runPlot2D),
			},
			{
				Name:      "3d",
				Usage:     "Sample z = f(x, y)",
				ArgsUsage: "<expression>",
				Flags:     []cli.Flag{samples(), formatFlag(formatJSON)},
				Action:    withApp(runPlot3D),
			},
		},
	}
}

func runPlot2D(_ context.Context, cmd *cli.Command, a *app) error {
	text, err := expression(cmd)
	if err != nil {
		return err
	}
	series, err := a.calc.Plot2D(text, cmd.Int("samples"))
	if err != nil {
		return err
	}
	if cmd.String("format") == formatText {
		for i := range series.X {
			fmt.Printf("%g\t%g\n", series.X[i], series.Y[i])
		}
		return nil
	}
	return encode(os.Stdout, cmd.String("format"), series)
}

// surface is the YAML shape of a sampled grid.
type surface struct {
	X [][]float64 `yaml:"x"`
	Y [][]float64 `yaml:"y"`
	Z [][]float64 `yaml:"z"`
}

func runPlot3D(_ context.Context, cmd *cli.Command, a *app) error {
	text, err := expression(cmd)
	if err != nil {
		return err
	}
	grid, err := a.calc.Plot3D(text, cmd.Int("samples"))
	if err != nil {
		return err
	}

	switch f := cmd.String("format"); f {
	case formatJSON:
		return encode(os.Stdout, f, grid)
	case formatYAML:
		x, y, z := grid.Rows()
		return encode(os.Stdout, f, surface{X: x, Y: y, Z: z})
	case formatText:
		return printGrid(grid)
	default:
		return usageError("unsupported format %q", f)
	}
}

func printGrid(g *compile.Grid) error {
	x, y, z := g.Rows()
	for i := range z {
		for j := range z[i] {
			fmt.Printf("%g\t%g\t%g\n", x[i][j], y[i][j], z[i][j])
		}
	}
	return nil
}
