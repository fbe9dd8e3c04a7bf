// Package network exposes the face store over WebSocket and REST.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/engine"
	"github.com/MRamiBalles/ParaBot/internal/platform/logger"
	"github.com/MRamiBalles/ParaBot/internal/platform/metrics"
)

// Message types on the wire.
const (
	MsgTypeFaceState  = "FACE_STATE"
	MsgTypeSetEmotion = "SET_EMOTION"
)

// Message is what the hub sends to clients.
type Message struct {
	Type      string         `json:"type"`
	Seq       uint64         `json:"seq"`
	Timestamp int64          `json:"timestamp"` // unix millis
	State     face.FaceState `json:"state"`
}

// HubConfig sizes the hub's queues.
type HubConfig struct {
	BroadcastBuffer int
	SendBuffer      int
	// ActionCooldown is the minimum time between two actions from one client.
	// Zero disables rate limiting.
	ActionCooldown time.Duration
}

// DefaultHubConfig matches config.DefaultConfig.
func DefaultHubConfig() HubConfig {
	return HubConfig{BroadcastBuffer: 64, SendBuffer: 256}
}

type broadcastMsg struct {
	seq     uint64
	payload []byte
}

// Hub maintains the set of active clients and broadcasts store snapshots to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMsg
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	cfg        HubConfig

	store   *engine.Store
	metrics *metrics.Collector
	logger  *logger.Logger
}

// NewHub initializes a new WebSocket Hub. collector may be nil.
func NewHub(store *engine.Store, collector *metrics.Collector, cfg HubConfig, log *logger.Logger) *Hub {
	if collector == nil {
		collector = metrics.Get()
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = DefaultHubConfig().BroadcastBuffer
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultHubConfig().SendBuffer
	}
	return &Hub{
		broadcast:  make(chan broadcastMsg, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		cfg:        cfg,
		store:      store,
		metrics:    collector,
		logger:     log,
	}
}

// Run subscribes to the store and serves clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	unsubscribe := h.store.Subscribe(h.onUpdate)
	defer func() {
		close(h.done)
		unsubscribe()
		h.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			return
		case client := <-h.register:
			state, seq := h.store.Snapshot()
			client.lastSeq = seq
			payload, err := encodeState(seq, state, time.Now())
			if err == nil {
				client.send <- payload
			}
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Debug("websocket client connected", "client", client.id, "clients", n)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Debug("websocket client disconnected", "client", client.id)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				// Skip what the client already saw in its connect snapshot.
				if msg.seq <= client.lastSeq {
					continue
				}
				select {
				case client.send <- msg.payload:
					client.lastSeq = msg.seq
				default:
					h.logger.Warn("dropping slow websocket client", "client", client.id)
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
				}
			}
			h.mu.Unlock()
		}
	}
}

// onUpdate runs on the store's delivery goroutine for this hub.
func (h *Hub) onUpdate(u engine.Update) {
	payload, err := encodeState(u.Seq, u.State, u.At)
	if err != nil {
		h.logger.Error("failed to encode face state", "error", err)
		return
	}
	select {
	case h.broadcast <- broadcastMsg{seq: u.Seq, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		h.metrics.RecordWSConnection(-1)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func encodeState(seq uint64, state face.FaceState, at time.Time) ([]byte, error) {
	return json.Marshal(Message{
		Type:      MsgTypeFaceState,
		Seq:       seq,
		Timestamp: at.UnixMilli(),
		State:     state,
	})
}
