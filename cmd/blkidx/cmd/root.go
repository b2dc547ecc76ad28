/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockindex"
	"github.com/ssargent/blkidx/pkg/config"
	"github.com/ssargent/blkidx/pkg/logging"
	"github.com/ssargent/blkidx/pkg/storage"
)

// storeAnnotation marks how a command uses the store
const storeAnnotation = "store"

const (
	storeNone  = "none"
	storeRead  = "read"
	storeWrite = "write"
)

type appKey struct{}

// app is the state shared by every command for one invocation
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, fmt.Errorf("application state not initialized")
	}
	return a, nil
}

func (a *app) reader(opts ...blockindex.ReaderOption) *blockindex.Reader {
	return blockindex.NewReader(a.store, append([]blockindex.ReaderOption{blockindex.WithLogger(a.log)}, opts...)...)
}

// NewRootCmd builds the blkidx command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blkidx",
		Short: "blkidx - Block index inspector",
		Long: `blkidx reads and writes the block index of a Bitcoin indexer: block
headers, metadata summaries and transaction id lists stored under
prefix-tagged keys in an LSM key-value store (pebble or LevelDB).`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (default "+config.GetDefaultConfigPath()+" when present)")
	flags.StringP("data-dir", "d", "", "Data directory of the store (overrides config)")
	flags.String("engine", "", "Storage engine: pebble or leveldb (overrides config)")
	flags.String("log-level", "", "Log level (overrides config)")
	flags.Bool("display", false, "Read and print hashes byte-reversed, as node RPCs show them")

	rootCmd.AddCommand(
		newInitCmd(),
		newGetCmd(),
		newMetaCmd(),
		newTxidsCmd(),
		newHeaderCmd(),
		newKeyCmd(),
		newScanCmd(),
		newLoadCmd(),
		newReplCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	switch {
	case path != "" && !config.ConfigExists(path) && cmd.Name() == "init":
		// init creates the file
	case path != "":
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case config.ConfigExists(config.GetDefaultConfigPath()):
		loaded, err := config.LoadConfig(config.GetDefaultConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
		cfg.Store.Engine = engine
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, cfg.Validate()
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a := &app{cfg: cfg, log: log}

	switch cmd.Annotations[storeAnnotation] {
	case storeRead, storeWrite:
		storeCfg := cfg.Store
		storeCfg.ReadOnly = cmd.Annotations[storeAnnotation] == storeRead
		if storeCfg.ReadOnly {
			storeCfg.CreateIfMissing = false
		} else if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		store, err := storage.Open(cfg.DataDir, storeCfg, log)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		a.store = store
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey{}, a))
	return nil
}

// close releases the store and flushes the logger
func (a *app) close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	// Sync on a terminal reports EINVAL; only the store result matters.
	_ = a.log.Sync()
	return err
}

// withApp adapts a command body that needs the application state. The
// state is closed when the body returns, whether or not it failed.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, a.close())
		}()
		return fn(cmd, args, a)
	}
}
