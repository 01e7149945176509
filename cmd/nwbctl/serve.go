package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/app"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator's HTTP API and push channel in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		if stagingDir != "" {
			cfg.StagingDir = stagingDir
		}
		if verbose {
			cfg.LogMode = "development"
		}

		a, err := app.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		return a.Run(cfg.ListenAddr)
	},
}
