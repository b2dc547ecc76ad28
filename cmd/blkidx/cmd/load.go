package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/blkidx/pkg/blockindex"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file|->",
		Short: "Load blocks from getblock JSON",
		Long: `Load blocks from a stream of getblock (verbosity 1) JSON objects, as
printed by "bitcoin-cli getblock <hash> 1". Each block's header, metadata
summary and transaction id list are written in one batch. Use - to read
from standard input.

Example:
  bitcoin-cli getblock $(bitcoin-cli getblockhash 0) 1 | blkidx load -`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{storeAnnotation: storeWrite},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			n, err := blockindex.NewWriter(a.store, a.log).LoadJSON(in)
			cmd.Printf("Loaded %d blocks\n", n)
			return err
		}),
	}
}
