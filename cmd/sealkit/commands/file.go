package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sealkit/internal/blob"
	"sealkit/internal/domain"
	filesvc "sealkit/internal/services/file"
)

const sealedExt = ".sks"

type fileOptions = filesvc.Options

func encryptFileCmd() *cobra.Command {
	var to []string
	var out string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "encrypt-file <path>",
		Short: "Sign and encrypt a file for recipients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + sealedExt
			}
			rcpts, err := resolveRecipients(cmd.Context(), to)
			if err != nil {
				return err
			}
			return transform(cmd, args[0], out, quiet, func(in blob.Blob, opts fileOptions) (blob.Blob, error) {
				return wire.Files.EncryptFile(cmd.Context(), in, rcpts, opts)
			})
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient identities (you are always included)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <path>.sks)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

func decryptFileCmd() *cobra.Command {
	var from string
	var out string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "decrypt-file <path>",
		Short: "Decrypt a file and verify the sender's signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = strings.TrimSuffix(args[0], sealedExt)
				if out == args[0] {
					out += ".out"
				}
			}
			sender, err := resolveSender(cmd.Context(), from)
			if err != nil {
				return err
			}
			return transform(cmd, args[0], out, quiet, func(in blob.Blob, opts fileOptions) (blob.Blob, error) {
				return wire.Files.DecryptFile(cmd.Context(), in, sender, opts)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender identity (default: yourself)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <path> without .sks)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

// transform opens inPath, runs fn and writes the result to outPath.
func transform(cmd *cobra.Command, inPath, outPath string, quiet bool, fn func(blob.Blob, fileOptions) (blob.Blob, error)) error {
	in, f, err := blob.OpenFile(inPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var progress *progressLine
	if !quiet {
		progress = &progressLine{w: cmd.ErrOrStderr()}
	}
	opts := wire.FileOptions(progress.report)
	opts.BufferDir = filepath.Dir(outPath)

	res, err := fn(in, opts)
	progress.done()
	if err != nil {
		return err
	}
	if err := blob.WriteFile(res.Source, outPath, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", outPath, res.Size())
	return nil
}

// progressLine redraws a single status line per phase.
type progressLine struct {
	w     io.Writer
	phase domain.Phase
	drawn bool
}

func (p *progressLine) report(ev domain.Progress) {
	if p == nil {
		return
	}
	if p.drawn && ev.Phase != p.phase {
		fmt.Fprintln(p.w)
	}
	p.phase, p.drawn = ev.Phase, true
	pct := 100.0
	if ev.TotalSize > 0 {
		pct = float64(ev.BytesProcessed) * 100 / float64(ev.TotalSize)
	}
	fmt.Fprintf(p.w, "\r%-10s %5.1f%% (%d/%d bytes)", ev.Phase, pct, ev.BytesProcessed, ev.TotalSize)
}

func (p *progressLine) done() {
	if p != nil && p.drawn {
		fmt.Fprintln(p.w)
	}
}
