package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/app"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/config"
)

// simulateCmd drives one conversation in-process, without the HTTP API,
// so a developer can exercise the state machine against a real recording
// directory without standing up a client.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Upload a recording in-process, start its conversion, and print the resulting status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		cfg.LLMProvider = "mock"
		if verbose {
			cfg.LogMode = "development"
		}

		a, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		defer a.Close()

		siblings, err := siblingsOf(inputPath)
		if err != nil {
			return fmt.Errorf("list siblings of %q: %w", inputPath, err)
		}

		if err := a.State.BeginUpload(inputPath); err != nil {
			return fmt.Errorf("begin upload: %w", err)
		}

		ctx := context.Background()
		if err := a.Convo.StartConversion(ctx, inputPath, siblings); err != nil {
			return fmt.Errorf("start conversion: %w", err)
		}

		snap := a.State.Snapshot()
		fmt.Printf("status: %s  phase: %s\n", snap.Status, snap.ConversationPhase)
		if snap.LLMMessage != "" {
			fmt.Printf("agent: %s\n", snap.LLMMessage)
		}
		if snap.OutputReady {
			fmt.Printf("nwb output: %s\n", a.State.OutputPath())
		}
		return nil
	},
}

// siblingsOf lists the other files in inputPath's directory, mirroring
// httpapi.siblingsOf so the CLI and the HTTP upload path feed the
// Conversion Agent's format detector the same candidate set.
func siblingsOf(inputPath string) ([]string, error) {
	dir := filepath.Dir(inputPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if full == inputPath {
			continue
		}
		out = append(out, full)
	}
	return out, nil
}
