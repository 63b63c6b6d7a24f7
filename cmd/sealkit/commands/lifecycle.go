package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sealkit/internal/app"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the configuration file",
		Annotations: map[string]string{skipWire: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to overwrite)", configPath)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Generate a key pair and publish it to the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := wire.Session.Register(cmd.Context())
			if err != nil {
				return err
			}
			return printRegistered(cmd, "Registered", card.ID)
		},
	}
}

func rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Replace the published key with a fresh one",
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := wire.Session.RotatePrivateKey(cmd.Context())
			if err != nil {
				return err
			}
			return printRegistered(cmd, "Rotated", card.ID)
		},
	}
}

func printRegistered(cmd *cobra.Command, verb, cardID string) error {
	fp, err := wire.Session.Fingerprint()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s.\nCard: %s\nFingerprint: %s\n", verb, wire.Session.Identity(), cardID, fp)
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the key state and fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := wire.Session.State(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identity: %s\nState: %s\n", wire.Session.Identity(), state)
			if ok, err := wire.Session.HasLocalPrivateKey(); err != nil {
				return err
			} else if ok {
				fp, err := wire.Session.Fingerprint()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Fingerprint: %s\n", fp)
			}
			if wire.Config.LocalVault == app.LocalVaultFile {
				fmt.Fprintf(out, "Key file: %s/keys\n", wire.Config.Home)
			}
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the local private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.Session.Cleanup(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local private key deleted")
			return nil
		},
	}
}
