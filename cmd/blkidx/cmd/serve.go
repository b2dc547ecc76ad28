/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/api"
	"github.com/ssargent/blkidx/pkg/blockindex"
	"github.com/ssargent/blkidx/pkg/config"
)

// serverConfig merges the config file with command line overrides. An
// api_key of "auto" is replaced with a key generated for this run.
func serverConfig(cmd *cobra.Command, cfg *config.Config) (api.ServerConfig, bool, error) {
	sc := api.ServerConfig{
		Bind:   cfg.Server.Bind,
		Port:   cfg.Server.Port,
		APIKey: cfg.Server.APIKey,
	}
	if cmd.Flags().Changed("port") {
		sc.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		sc.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		sc.APIKey, _ = cmd.Flags().GetString("api-key")
	}

	generated := false
	if sc.APIKey == "auto" {
		key, err := config.GenerateSecureKey(32)
		if err != nil {
			return sc, false, err
		}
		sc.APIKey = key
		generated = true
	}
	return sc, generated, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP lookup API",
		Long: `Start the HTTP lookup API over the block index.

Routes:
  GET /api/v1/health
  GET /api/v1/blocks/{hash}/meta
  GET /api/v1/blocks/{hash}/txids
  GET /api/v1/blocks/{hash}/header
  GET /api/v1/keys/{kind}/{hash}
  GET /metrics

Hashes are read in display order unless ?order=stored is given. Requests
must carry X-API-Key unless the key is empty.

Examples:
  blkidx serve
  blkidx serve --port 8080 --api-key mysecretkey`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{storeAnnotation: storeRead},
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			sc, generated, err := serverConfig(cmd, a.cfg)
			if err != nil {
				return err
			}
			if generated {
				cmd.Printf("Generated API key for this run: %s\n", sc.APIKey)
			}
			if sc.APIKey == "" {
				a.log.Warn("api key is empty; authentication disabled")
			}

			var opts []blockindex.ReaderOption
			if verify, _ := cmd.Flags().GetBool("verify"); verify {
				opts = append(opts, blockindex.WithHeaderVerification())
			}

			server := api.NewServer(a.reader(opts...), sc, api.NewMetrics(), a.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.Info("serving block index", zap.String("addr", server.Addr()), zap.String("data_dir", a.cfg.DataDir))
			return server.ListenAndServe(ctx)
		}),
	}

	cmd.Flags().IntP("port", "p", 9200, "Port to listen on (overrides config)")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind (overrides config)")
	cmd.Flags().String("api-key", "", "API key for authentication (overrides config)")
	cmd.Flags().Bool("verify", false, "Check that headers hash to the requested hash")
	return cmd
}

