// Package app wires the conversion orchestrator's components into a
// runnable process: a single New() builds every dependency once, and
// cmd/server and cmd/nwbctl's "serve" subcommand both drive the same App
// rather than duplicating construction order.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversation"
	convagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/conversion"
	evalagent "github.com/agentic-neurodata/conversion-orchestrator/internal/agents/evaluation"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/bus"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/config"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/llm"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/transport/httpapi"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/transport/push"
)

// App holds every long-lived component the orchestrator needs to serve
// traffic: the Workflow State, the wired agents, and the HTTP router.
type App struct {
	Log    *logging.Logger
	Config config.Config

	State   *state.WorkflowState
	Bus     *bus.Bus
	Convo   *conversation.Agent
	Hub     *push.Hub
	Router  http.Handler
}

// New constructs every component: the bus, the Workflow State, the three
// agents registered onto the bus, the push hub subscribed to state
// transitions, and the External Interface Layer router.
func New(cfg config.Config) (*App, error) {
	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %q: %w", cfg.StagingDir, err)
	}

	gateway, err := llm.NewMultiProviderClient(cfg.LLMProvider, "", cfg.AnthropicAPIKey, "", cfg.OpenAIAPIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init LM gateway: %w", err)
	}
	var lmGateway llm.Gateway = llm.NewBreakerGateway(gateway, "lm-gateway")

	b := bus.New()
	s := state.New(cfg.MaxRetries)

	convAgent := convagent.New(&convagent.MockConverter{}, lmGateway, log.With("agent", "conversion"))
	if err := convAgent.RegisterHandlers(b); err != nil {
		return nil, fmt.Errorf("register conversion agent: %w", err)
	}
	evalAgent := evalagent.New(&evalagent.MockInspector{}, log.With("agent", "evaluation"))
	if err := evalAgent.RegisterHandlers(b); err != nil {
		return nil, fmt.Errorf("register evaluation agent: %w", err)
	}

	convoAgent := conversation.New(s, b, lmGateway, log.With("agent", "conversation"))
	hub := push.NewHub(s, log.With("component", "push"))

	handler := httpapi.NewHandler(convoAgent, s, log, cfg.StagingDir, cfg.MaxUploadMB)
	router := httpapi.NewRouter(handler, hub)

	return &App{
		Log:    log,
		Config: cfg,
		State:  s,
		Bus:    b,
		Convo:  convoAgent,
		Hub:    hub,
		Router: router,
	}, nil
}

// Close flushes the logger. Call via defer after New succeeds.
func (a *App) Close() {
	if a == nil || a.Log == nil {
		return
	}
	a.Log.Sync()
}

const shutdownGrace = 15 * time.Second

// Run serves a.Router on addr until SIGINT/SIGTERM, then drains in-flight
// requests for up to shutdownGrace before returning. Shared by cmd/server
// and nwbctl's "serve" subcommand so both entry points shut down the same
// way.
func (a *App) Run(addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.Router}

	serveErr := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		a.Log.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		a.Log.Info("server shut down cleanly")
		return nil
	}
}
