package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"inkwell/internal/document/model"
	"inkwell/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SPA dev server runs on a different origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one live connection. A connection belongs to at most one room;
// joining a different document means a new connection. Tier is resolved by
// the API layer at join time and enforced on every mutating message type.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	DocID     string
	Principal string
	Tier      model.Tier
	Send      chan []byte
}

// ServeWs upgrades the connection and joins the client to its document room.
// The caller has already authenticated the principal and verified it holds
// at least viewer tier on docID.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, principal, docID string, tier model.Tier) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:       hub,
		Conn:      conn,
		DocID:     docID,
		Principal: principal,
		Tier:      tier,
		Send:      make(chan []byte, 256),
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Overwrite with server-authoritative values so a client cannot
		// publish into another room or as another principal.
		msg.DocID = c.DocID
		msg.Principal = c.Principal

		// Viewers may watch and move cursors, never emit content updates.
		// The persisted save path re-checks tier against a fresh read.
		if msg.Type == UpdateType && !c.Tier.CanWrite() {
			logger.Sugar.Warnf("Permission denied: %s (tier %s) tried to edit doc %s", c.Principal, c.Tier, c.DocID)
			continue
		}

		c.Hub.publishFrom(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
