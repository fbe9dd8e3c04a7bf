package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the face UI may be served from another origin
	},
}

// ClientAction is an incoming command from a client.
type ClientAction struct {
	Type    string `json:"type"`
	Emotion string `json:"emotion"`
	Source  string `json:"source,omitempty"`
}

// Client is one WebSocket connection.
type Client struct {
	id             string
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastSeq        uint64 // hub goroutine only
	lastActionTime time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.cfg.SendBuffer),
	}
}

// ServeWs upgrades the request and attaches the connection to the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("failed to upgrade websocket connection", "error", err)
		hub.metrics.RecordWSError()
		return
	}

	client := NewClient(hub, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}

// Register adds the client to the hub. It fails once the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

func (c *Client) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps actions from the websocket connection to the store.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "client", c.id, "error", err)
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action ClientAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("failed to parse client action", "client", c.id, "error", err)
			continue
		}

		c.handleAction(action)
	}
}

func (c *Client) handleAction(action ClientAction) {
	if cd := c.hub.cfg.ActionCooldown; cd > 0 {
		if time.Since(c.lastActionTime) < cd {
			c.hub.logger.Warn("rate limit exceeded for client action", "client", c.id)
			return
		}
		c.lastActionTime = time.Now()
	}

	switch action.Type {
	case MsgTypeSetEmotion:
		c.handleSetEmotion(action)
	default:
		c.hub.logger.Warn("unknown client action type", "client", c.id, "type", action.Type)
	}
}

func (c *Client) handleSetEmotion(action ClientAction) {
	e, err := face.ParseEmotion(action.Emotion)
	if err != nil {
		c.hub.logger.Warn("rejected emotion from client", "client", c.id, "error", err)
		return
	}

	source := action.Source
	if source == "" {
		source = "WS:" + c.id
	}
	if err := c.hub.store.SetEmotionBy(source, e); err != nil {
		if errors.Is(err, engine.ErrStoreClosed) {
			c.hub.logger.Debug("store closed, ignoring client action", "client", c.id)
			return
		}
		c.hub.logger.Error("failed to set emotion", "client", c.id, "error", err)
	}
}

// WritePump pumps messages from the hub to the websocket connection, one
// JSON document per frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
			c.hub.metrics.RecordWSMessage(false)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
