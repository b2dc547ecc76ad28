/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/config"
	"github.com/ssargent/blkidx/pkg/storage"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file and an empty block index",
		Long: `Create a config file with a generated API key and an empty store in the
data directory.

Examples:
  blkidx init
  blkidx init --config ./blkidx.yaml --data-dir ./index --engine leveldb`,
		Annotations: map[string]string{storeAnnotation: storeNone},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}
			force, _ := cmd.Flags().GetBool("force")

			if config.ConfigExists(configPath) && !force {
				cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", configPath)
				return nil
			}

			cfg, err := initialize(configPath, a.cfg, a.log)
			if err != nil {
				return err
			}

			cmd.Printf("Config written to %s\n", configPath)
			cmd.Printf("Data directory: %s (%s)\n", cfg.DataDir, cfg.Store.Engine)
			cmd.Printf("API key: %s...\n", cfg.Server.APIKey[:8])
			return nil
		}),
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

// initialize writes a bootstrap config derived from base and creates an
// empty store in its data directory
func initialize(configPath string, base *config.Config, log *zap.Logger) (*config.Config, error) {
	cfg, err := config.BootstrapConfig(configPath, base.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Store.Engine = base.Store.Engine
	cfg.Logging = base.Logging
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	storeCfg := cfg.Store
	storeCfg.ReadOnly = false
	storeCfg.CreateIfMissing = true
	store, err := storage.Open(cfg.DataDir, storeCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Close(); err != nil {
		return nil, fmt.Errorf("failed to close store: %w", err)
	}
	return cfg, nil
}
