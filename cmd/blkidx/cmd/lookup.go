package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/blkidx/pkg/blockindex"
	"github.com/ssargent/blkidx/pkg/inspect"
)

// session evaluates a lookup with the same formatting the REPL uses
func session(cmd *cobra.Command, a *app) *inspect.Session {
	display, _ := cmd.Flags().GetBool("display")

	var opts []blockindex.ReaderOption
	if verify, _ := cmd.Flags().GetBool("verify"); verify {
		opts = append(opts, blockindex.WithHeaderVerification())
	}

	return inspect.NewSession(a.reader(opts...), cmd.OutOrStdout(),
		inspect.WithDisplayOrder(display),
		inspect.WithLogger(a.log))
}

// newLookupCmd builds a command that runs one session command over its args
func newLookupCmd(use, short, long, command string, nargs int) *cobra.Command {
	return &cobra.Command{
		Use:         use,
		Short:       short,
		Long:        long,
		Args:        cobra.ExactArgs(nargs),
		Annotations: map[string]string{storeAnnotation: storeRead},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return session(cmd, a).Eval(command + " " + strings.Join(args, " "))
		}),
	}
}

func newGetCmd() *cobra.Command {
	return newLookupCmd("get <kind> <hash>",
		"Dump the stored value of a record as hex",
		`Dump the stored value of a record as hex. kind is header, meta or txids.

Example:
  blkidx get meta 6fe28c0ab6f1b372c1a6a246ae63f74f931e8365e15a089c68d6190000000000`,
		"raw", 2)
}

func newMetaCmd() *cobra.Command {
	return newLookupCmd("meta <hash>",
		"Show the metadata summary of a block",
		`Show the transaction count, size and weight recorded for a block.

Example:
  blkidx meta --display 000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f`,
		"meta", 1)
}

func newTxidsCmd() *cobra.Command {
	return newLookupCmd("txids <hash>",
		"List the transaction ids of a block",
		`List the transaction ids of a block in block order.`,
		"txids", 1)
}

func newHeaderCmd() *cobra.Command {
	cmd := newLookupCmd("header <hash>",
		"Decode the header of a block",
		`Decode the consensus header stored for a block. With --verify the header
must hash to the requested block hash.`,
		"header", 1)
	cmd.Flags().Bool("verify", false, "Check that the header hashes to the requested hash")
	return cmd
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <kind> <hash>",
		Short: "Print the store key of a record",
		Long: `Print the store key of a record as hex: the record kind's prefix letter
followed by the 32-byte block hash. The store is not opened.

Example:
  blkidx key meta 0000000000000000000000000000000000000000000000000000000000000000`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{storeAnnotation: storeNone},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			display, _ := cmd.Flags().GetBool("display")
			s := inspect.NewSession(nil, cmd.OutOrStdout(), inspect.WithDisplayOrder(display))
			return s.Eval("key " + strings.Join(args, " "))
		}),
	}
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <kind>",
		Short: "List records of one kind in key order",
		Long: `List records of one kind in key order with a short summary of each value.

Example:
  blkidx scan meta --limit 100`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{storeAnnotation: storeRead},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			limit, _ := cmd.Flags().GetInt("limit")
			s := session(cmd, a)
			return s.Eval("scan " + args[0] + " " + strconv.Itoa(limit))
		}),
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of records to list")
	return cmd
}
