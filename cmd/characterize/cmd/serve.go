/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/characterize/pkg/api"
	"github.com/ssargent/characterize/pkg/config"
)

// autoAPIKey in the config asks serve to generate a key for this run.
const autoAPIKey = "auto"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the characterize REST API server.

Uploads posted to /api/v1/characterize are characterized and, unless
store=false is given, saved in the report store. When the configured API
key is "auto" a key is generated and printed at startup.

Examples:
  characterize serve --port=8080
  characterize serve --api-key=mysecretkey --bind=0.0.0.0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			appConfig.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			appConfig.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			appConfig.Security.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		maxUpload, _ := cmd.Flags().GetInt64("max-upload-size")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cmd, appConfig, maxUpload)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for authentication (empty disables authentication)")
	serveCmd.Flags().Int64("max-upload-size", 1<<30, "Largest accepted upload in bytes (0 for no limit)")
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, maxUpload int64) error {
	c, err := requireContainer()
	if err != nil {
		return err
	}

	apiKey := cfg.Security.APIKey
	if apiKey == autoAPIKey {
		apiKey, err = config.GenerateSecureKey(32)
		if err != nil {
			return err
		}
		cmd.Printf("Generated API key for this run: %s\n", apiKey)
	}

	engine, err := c.NewEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	reports, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer reports.Close()

	cmd.Printf("Starting characterize server on %s:%d\n", cfg.Bind, cfg.Port)
	cmd.Printf("Report store: %s\n", cfg.StoreDir())

	starter := c.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, engine, reports, api.ServerConfig{
		Port:          cfg.Port,
		Bind:          cfg.Bind,
		APIKey:        apiKey,
		MaxUploadSize: maxUpload,
	})
}
