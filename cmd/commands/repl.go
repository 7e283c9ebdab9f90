package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/expr"
)

const replPrompt = "graphcalc> "

const replHelp = `Type an expression to evaluate it. Commands:
  :vars                      list variables
  :set <name> <value>        bind a variable
  :unset <name>              remove a binding
  :derive <expr>             d/dx of expr
  :integrate <lo> <hi> <expr> integral over x from lo to hi
  :history                   show the history
  :clear                     clear the history
  :signin <user>             sign in
  :signout                   sign out
  :zoom <in|out>             zoom the plot ranges
  :help                      this text
  :quit                      exit`

// NewREPLCommand returns the repl subcommand.
func NewREPLCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Interactive calculator session",
		Action: withApp(runREPL),
	}
}

func runREPL(ctx context.Context, _ *cli.Command, a *app) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return replLoop(ctx, a.calc, bufio.NewScanner(os.Stdin), os.Stdout)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, replPrompt)
	t.AutoCompleteCallback = completer(a.calc)

	fmt.Fprintln(t, "graphcalc: :help for commands, :quit or Ctrl-D to exit")
	r := &repl{calc: a.calc, out: t}
	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if r.exec(ctx, line) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// replLoop serves piped input without a prompt.
func replLoop(ctx context.Context, calc *calculator.Calculator, in *bufio.Scanner, out io.Writer) error {
	r := &repl{calc: calc, out: out}
	for in.Scan() {
		if r.exec(ctx, in.Text()) || ctx.Err() != nil {
			return nil
		}
	}
	return in.Err()
}

type repl struct {
	calc *calculator.Calculator
	out  io.Writer
}

// exec runs one line and reports whether the session should end.
func (r *repl) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ":") {
		res, err := r.calc.Evaluate(ctx, line)
		r.print(res.Result, err)
		return false
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	store := r.calc.Store()

	switch name {
	case "q", "quit", "exit":
		return true
	case "help", "h":
		r.print(replHelp, nil)
	case "vars":
		env := store.Env()
		for _, k := range slices.Sorted(maps.Keys(env)) {
			fmt.Fprintf(r.out, "%s = %s\n", k, expr.FormatNumber(env[k]))
		}
	case "set":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			r.print("", usageError(":set <name> <value>"))
			return false
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			r.print("", fmt.Errorf("invalid value %q", fields[1]))
			return false
		}
		r.print(fields[0]+" = "+expr.FormatNumber(v), store.SetVar(ctx, fields[0], v))
	case "unset":
		r.print("", store.UnsetVar(ctx, rest))
	case "derive":
		d, err := r.calc.Derive(rest, "x")
		r.print(d, err)
	case "integrate":
		fields := strings.SplitN(rest, " ", 3)
		if len(fields) != 3 {
			r.print("", usageError(":integrate <lo> <hi> <expr>"))
			return false
		}
		lo, err1 := strconv.ParseFloat(fields[0], 64)
		hi, err2 := strconv.ParseFloat(fields[1], 64)
		if err := errors.Join(err1, err2); err != nil {
			r.print("", err)
			return false
		}
		res, err := r.calc.Integrate(ctx, fields[2], "x", &calculator.Bounds{Lower: lo, Upper: hi})
		r.print(expr.FormatNumber(res.Value), err)
	case "history":
		for i, e := range store.History() {
			fmt.Fprintf(r.out, "%3d  %s = %s\n", i+1, e.Expression, e.Result)
		}
	case "clear":
		r.print("", store.ClearHistory(ctx))
	case "signin":
		r.print("signed in as "+rest, store.SignIn(ctx, rest))
	case "signout":
		r.print("", store.SignOut(ctx))
	case "zoom":
		switch rest {
		case "in":
			r.print("", store.ZoomIn(ctx))
		case "out":
			r.print("", store.ZoomOut(ctx))
		default:
			r.print("", usageError(":zoom <in|out>"))
		}
	default:
		r.print("", fmt.Errorf("unknown command :%s (try :help)", name))
	}
	return false
}

func (r *repl) print(s string, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(r.out, "error: %v\n", err)
	case s != "":
		fmt.Fprintln(r.out, s)
	}
}

// completer completes function and variable names at the cursor.
func completer(calc *calculator.Calculator) func(line string, pos int, key rune) (string, int, bool) {
	return func(line string, pos int, key rune) (string, int, bool) {
		if key != '\t' {
			return "", 0, false
		}
		start := pos
		for start > 0 && isIdentByte(line[start-1]) {
			start--
		}
		prefix := line[start:pos]
		if prefix == "" {
			return "", 0, false
		}

		var names []string
		for _, f := range expr.Funcs {
			names = append(names, string(f)+"(")
		}
		names = append(names, slices.Sorted(maps.Keys(calc.Store().Env()))...)

		for _, n := range names {
			if strings.HasPrefix(n, prefix) && n != prefix {
				return line[:start] + n + line[pos:], start + len(n), true
			}
		}
		return "", 0, false
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
