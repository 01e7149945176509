// Command server runs the conversion orchestrator's External Interface
// Layer: the HTTP request/reply API and the push channel, backed by the
// Conversation Agent and the single shared Workflow State (§5, §6).
package main

import (
	"fmt"
	"os"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/app"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/config"
)

func main() {
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(cfg.ListenAddr); err != nil {
		a.Log.Fatal("server failed", "error", err)
	}
}
