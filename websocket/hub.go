// Package websocket is the transport of the chat core: it upgrades connections,
// turns frames into inbound events and delivers outbound payloads.
package websocket

import (
	"context"
	"log/slog"
	"sync"
	"tipster-chat/contract"
	"tipster-chat/domain"
	"tipster-chat/observability"
)

var _ contract.Emitter = (*Hub)(nil)

const defaultBufferSize = 256

// Hub keeps the live connections and delivers outbound payloads to them.
type Hub struct {
	log        *slog.Logger
	bufferSize int
	monitoring *observability.MonitoringManager

	mu      sync.RWMutex
	clients map[domain.ConnectionID]*Client
}

func NewHub(log *slog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{log: log, bufferSize: bufferSize, clients: make(map[domain.ConnectionID]*Client)}
}

// WithMonitoring counts payloads lost on full buffers.
func (h *Hub) WithMonitoring(monitoring *observability.MonitoringManager) *Hub {
	h.monitoring = monitoring
	return h
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
	h.log.Debug("Client registered", "conn", client.id, "addr", client.addr, "clients", len(h.clients))
}

// Unregister forgets the connection and closes its send buffer, ending its write pump.
func (h *Hub) Unregister(id domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(client.send)
	h.log.Debug("Client unregistered", "conn", id, "clients", len(h.clients))
}

// Emit encodes the payload once and queues it on every target.
// It never blocks: a full buffer loses the payload for that connection only.
func (h *Hub) Emit(_ context.Context, out domain.Outbound) {
	frame, err := EncodePayload(out.Payload)
	if err != nil {
		h.log.Error("Failed to encode payload", "type", out.Payload.PayloadType(), "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, target := range out.Targets {
		client, ok := h.clients[target]
		if !ok {
			continue
		}
		select {
		case client.send <- frame:
		default:
			h.monitoring.IncrDropped()
			h.log.Warn("Send buffer full, dropping payload", "conn", target, "type", out.Payload.PayloadType())
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every send buffer, clients are told to close and their read pumps end.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
	h.log.Info("Hub shut down")
}
