package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ssargent/blkidx/pkg/inspect"
	"github.com/ssargent/blkidx/pkg/schema"
)

// completer offers command words and record kinds
func completer() *readline.PrefixCompleter {
	kinds := func() []readline.PrefixCompleterInterface {
		var items []readline.PrefixCompleterInterface
		for _, k := range schema.Kinds() {
			items = append(items, readline.PcItem(k.String()))
		}
		return items
	}

	var items []readline.PrefixCompleterInterface
	for _, c := range inspect.Commands() {
		switch c {
		case "raw", "key", "scan":
			items = append(items, readline.PcItem(c, kinds()...))
		case "order":
			items = append(items, readline.PcItem(c, readline.PcItem("display"), readline.PcItem("stored")))
		default:
			items = append(items, readline.PcItem(c))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// lineSource adapts readline to the session loop. Ctrl-C on an empty line
// ends the session; on a partial line it discards the line.
func lineSource(rl *readline.Instance) func() (string, error) {
	return func() (string, error) {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return "", io.EOF
			}
			return "", nil
		}
		return line, err
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive block index lookups",
		Long: `Start an interactive session. Enter a block hash to see its metadata
summary, or "help" for the full command list. "q" quits.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{storeAnnotation: storeRead},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			display, _ := cmd.Flags().GetBool("display")

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "blkidx> ",
				HistoryFile:     filepath.Join(os.TempDir(), ".blkidx_history"),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				AutoComplete:    completer(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize readline: %w", err)
			}
			defer rl.Close()

			s := inspect.NewSession(a.reader(), rl.Stdout(),
				inspect.WithDisplayOrder(display),
				inspect.WithLogger(a.log))

			fmt.Fprintf(rl.Stdout(), "blkidx on %s. Enter a block hash, or help.\n", a.cfg.DataDir)
			return s.Run(lineSource(rl))
		}),
	}
}
