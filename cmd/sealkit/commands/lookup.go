package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
)

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <identity>...",
		Short: "Print the published key fingerprints of identities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := wire.Cards.LookupPublicKeys(cmd.Context(), identities(args)...)
			var lookupErr *domain.LookupError
			if err != nil && !errors.As(err, &lookupErr) {
				return err
			}
			for _, id := range sortedIdentities(found) {
				fp := crypto.Fingerprint(wire.Crypto.ExportPublicKey(found[id]))
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, fp)
			}
			if lookupErr != nil {
				for _, id := range args {
					if ferr := lookupErr.Failure(domain.Identity(id)); ferr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s\t%v\n", id, ferr)
					}
				}
			}
			return err
		},
	}
}

// resolveRecipients looks up every identity; any failure aborts.
func resolveRecipients(ctx context.Context, names []string) ([]domain.PublicKey, error) {
	if len(names) == 0 {
		return nil, nil
	}
	found, err := wire.Cards.LookupPublicKeys(ctx, identities(names)...)
	if err != nil {
		return nil, err
	}
	return found.Keys(), nil
}

// resolveSender returns nil for an empty name, meaning this identity.
func resolveSender(ctx context.Context, name string) (*domain.PublicKey, error) {
	if name == "" {
		return nil, nil
	}
	pub, err := wire.Cards.LookupPublicKey(ctx, domain.Identity(name))
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func identities(names []string) []domain.Identity {
	out := make([]domain.Identity, len(names))
	for i, n := range names {
		out[i] = domain.Identity(n)
	}
	return out
}

func sortedIdentities(r domain.LookupResult) []domain.Identity {
	out := make([]domain.Identity, 0, len(r))
	for id := range r {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
