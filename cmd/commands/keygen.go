package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/graphcalc/internal/secrets"
)

// NewKeygenCommand returns the keygen subcommand.
func NewKeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Create the age key used to encrypt user profiles",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			id, err := secrets.GenerateIdentity(cfg.Storage.KeyPath)
			if err != nil {
				return err
			}
			fmt.Printf("Key: %s\nRecipient: %s\n", cfg.Storage.KeyPath, id.Recipient())
			if !cfg.Storage.EncryptProfiles {
				fmt.Println(`Set "storage": {"encrypt_profiles": true} in the config to encrypt user profiles.`)
			}
			return nil
		},
	}
}
