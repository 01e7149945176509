// Package push implements the push channel (§6): a server-to-client SSE
// stream that delivers a Snapshot on every Workflow State transition. The
// per-client channel subscription map collapses to a single broadcast set
// because this engine tracks exactly one conversion per process (§5), and
// clients are distinguished only for buffering and disconnect bookkeeping,
// not authorization.
package push

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentic-neurodata/conversion-orchestrator/internal/logging"
	"github.com/agentic-neurodata/conversion-orchestrator/internal/state"
)

// outboundBuffer bounds each client's pending-event channel; a slow client
// drops events rather than blocking the Workflow State's notifyLocked,
// which runs synchronously inside every transition (§5).
const outboundBuffer = 16

// heartbeatInterval keeps intermediary proxies from closing an idle
// connection.
const heartbeatInterval = 15 * time.Second

// Client is one subscribed SSE connection.
type Client struct {
	ID       uuid.UUID
	Outbound chan state.Snapshot
	done     chan struct{}
}

// Hub fans Workflow State transitions out to every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	log     *logging.Logger
}

// NewHub constructs a Hub and subscribes it to s so every transition is
// broadcast automatically.
func NewHub(s *state.WorkflowState, log *logging.Logger) *Hub {
	h := &Hub{clients: make(map[*Client]bool), log: log.With("component", "push.Hub")}
	s.Subscribe(h.Broadcast)
	return h
}

// NewClient registers a new subscriber and returns it; call RemoveClient
// when the connection ends.
func (h *Hub) NewClient() *Client {
	c := &Client{ID: uuid.New(), Outbound: make(chan state.Snapshot, outboundBuffer), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

// RemoveClient unregisters c and closes its channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.done)
}

// Broadcast delivers snap to every connected client, dropping it for any
// client whose buffer is full instead of blocking the caller (the caller
// is always inside WorkflowState.notifyLocked, holding the state's lock).
func (h *Hub) Broadcast(snap state.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Outbound <- snap:
		default:
			h.log.Warn("dropping push event, client buffer full", "client_id", c.ID)
		}
	}
}

// ServeHTTP streams snapshots to one client as SSE, reconnecting
// transparently per §6 ("the client may request a full snapshot on
// reconnect" is satisfied by the status() endpoint; this handler only
// carries the live stream).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, c *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case snap := <-c.Outbound:
			body, err := json.Marshal(snap)
			if err != nil {
				h.log.Warn("failed to marshal push snapshot", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", snap.Event, body)
			flusher.Flush()
		}
	}
}
