package commands

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"
)

// NewUserCommand returns the user subcommand.
func NewUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Sign in and out of per-user variable profiles",
		Commands: []*cli.Command{
			{
				Name:      "signin",
				Usage:     "Sign in, loading the user's variables",
				ArgsUsage: "<user>",
				Action:    withApp(runUserSignIn),
			},
			{
				Name:   "signout",
				Usage:  "Save the user's variables and sign out",
				Action: withApp(runUserSignOut),
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in user",
				Action: withApp(runUserWhoami),
			},
			{
				Name:      "list",
				Usage:     "List users with saved profiles",
				ArgsUsage: "[glob]",
				Action:    withApp(runUserList),
			},
		},
		DefaultCommand: "whoami",
	}
}

func runUserSignIn(ctx context.Context, cmd *cli.Command, a *app) error {
	user := cmd.Args().First()
	if user == "" {
		return usageError("graphcalc user signin <user>")
	}
	if err := a.store.SignIn(ctx, user); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%d variables).\n", user, len(a.store.Env()))
	return nil
}

func runUserSignOut(ctx context.Context, _ *cli.Command, a *app) error {
	user := a.store.User()
	if user == "" {
		fmt.Println("Not signed in.")
		return nil
	}
	if err := a.store.SignOut(ctx); err != nil {
		return err
	}
	fmt.Printf("Signed out %s.\n", user)
	return nil
}

func runUserWhoami(_ context.Context, _ *cli.Command, a *app) error {
	if user := a.store.User(); user != "" {
		fmt.Println(user)
		return nil
	}
	fmt.Println("Not signed in.")
	return nil
}

func runUserList(ctx context.Context, cmd *cli.Command, a *app) error {
	pattern := cmd.Args().First()
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return usageError("invalid glob %q", pattern)
	}

	users, err := a.store.Users(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	users = filterUsers(users, pattern)
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	current := a.store.User()
	for _, u := range users {
		marker := " "
		if u == current {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, u)
	}
	return nil
}

// filterUsers keeps the names matching a doublestar glob. An empty
// pattern keeps everything.
func filterUsers(users []string, pattern string) []string {
	if pattern == "" {
		return users
	}
	var out []string
	for _, u := range users {
		if ok, _ := doublestar.Match(pattern, u); ok {
			out = append(out, u)
		}
	}
	return out
}
