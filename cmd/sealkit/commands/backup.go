package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Store the private key in the backup vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readNewPassword(cmd, "Backup password")
			if err != nil {
				return err
			}
			if err := wire.Session.BackupPrivateKey(cmd.Context(), pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Private key backed up")
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Fetch the private key from the backup vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, "Backup password")
			if err != nil {
				return err
			}
			if err := wire.Session.RestorePrivateKey(cmd.Context(), pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Private key restored")
			return nil
		},
	}
}

func changePasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Re-encrypt the backup under a new password",
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := readPassword(cmd, "Current backup password")
			if err != nil {
				return err
			}
			pw, err := readNewPassword(cmd, "New backup password")
			if err != nil {
				return err
			}
			if err := wire.Session.ChangePassword(cmd.Context(), old, pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Backup password changed")
			return nil
		},
	}
}

func resetBackupCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reset-backup",
		Short: "Delete the backup for a password, or every backup with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := wire.Session.ResetAllPrivateKeyBackups(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All backups deleted")
				return nil
			}
			pw, err := readPassword(cmd, "Backup password")
			if err != nil {
				return err
			}
			if pw == "" {
				return errors.New("password required (or use --all)")
			}
			if err := wire.Session.ResetPrivateKeyBackup(cmd.Context(), pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Backup deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every backup of this identity")
	return cmd
}
