package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func encryptCmd() *cobra.Command {
	var to []string
	cmd := &cobra.Command{
		Use:   "encrypt [text]",
		Short: "Sign and encrypt text for recipients; prints base64",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArg(cmd, args)
			if err != nil {
				return err
			}
			rcpts, err := resolveRecipients(cmd.Context(), to)
			if err != nil {
				return err
			}
			env, err := wire.Messages.EncryptText(text, rcpts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), env)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient identities (you are always included)")
	return cmd
}

func decryptCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "decrypt [envelope]",
		Short: "Decrypt base64 text and verify the sender's signature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := textArg(cmd, args)
			if err != nil {
				return err
			}
			sender, err := resolveSender(cmd.Context(), from)
			if err != nil {
				return err
			}
			text, err := wire.Messages.DecryptText(strings.TrimSpace(env), sender)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender identity (default: yourself)")
	return cmd
}

// textArg returns the positional argument or, without one, all of stdin.
func textArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(input)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}
