package socket

import (
	"encoding/json"
	"sync"
	"time"

	"inkwell/pkg/logger"
)

const (
	UpdateType         = "UPDATE"          // Document content changed
	CursorType         = "CURSOR"          // A member moved their cursor
	PresenceUpdateType = "PRESENCE_UPDATE" // A member joined or left
)

// Message is the wire format on the live channel. Payload is opaque: the hub
// fans out whole-document snapshots and never inspects or stores them.
type Message struct {
	Type      string          `json:"type"`
	DocID     string          `json:"document_id"`
	Principal string          `json:"principal"`
	Payload   json.RawMessage `json:"payload"`
}

type UserStatus struct {
	Principal string    `json:"principal"`
	LastSeen  time.Time `json:"last_seen"`
}

type broadcast struct {
	msg    Message
	sender *Client // nil when the publish originates from the HTTP API
}

// Hub tracks the ephemeral per-document rooms. Rooms exist only while at
// least one connection is joined; membership never touches the store, and
// the hub performs no authorization itself. Callers verify tier before
// handing a connection to ServeWs.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcasts chan broadcast

	mu       sync.Mutex
	rooms    map[string]map[*Client]bool
	presence map[string]map[string]UserStatus // docID -> principal -> status
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcasts: make(chan broadcast),
		rooms:      make(map[string]map[*Client]bool),
		presence:   make(map[string]map[string]UserStatus),
	}
}

// Publish fans payload out to every member of the document's room except the
// originator. With no sender connection (API-initiated saves), clients
// belonging to the same principal are treated as the originator instead.
func (h *Hub) Publish(msg Message) {
	h.broadcasts <- broadcast{msg: msg}
}

func (h *Hub) publishFrom(sender *Client, msg Message) {
	h.broadcasts <- broadcast{msg: msg, sender: sender}
}

// RoomSize reports the current member count of a room. Zero means the room
// has been garbage-collected.
func (h *Hub) RoomSize(docID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[docID])
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.DocID] == nil {
				h.rooms[client.DocID] = make(map[*Client]bool)
				h.presence[client.DocID] = make(map[string]UserStatus)
			}
			h.rooms[client.DocID][client] = true
			h.presence[client.DocID][client.Principal] = UserStatus{Principal: client.Principal, LastSeen: time.Now()}
			h.mu.Unlock()

			h.broadcastPresenceUpdate(client.DocID)

		case client := <-h.unregister:
			h.mu.Lock()
			docID := client.DocID
			if _, ok := h.rooms[docID][client]; ok {
				delete(h.rooms[docID], client)
				delete(h.presence[docID], client.Principal)
				close(client.Send)

				// Last member out: the room evaporates.
				if len(h.rooms[docID]) == 0 {
					delete(h.rooms, docID)
					delete(h.presence, docID)
					logger.Sugar.Infof("Closed empty room: %s", docID)
				}
			}
			stillOpen := h.rooms[docID] != nil
			h.mu.Unlock()

			if stillOpen {
				h.broadcastPresenceUpdate(docID)
			}

		case b := <-h.broadcasts:
			payload, err := json.Marshal(b.msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Collect recipients under the lock, send outside it.
			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.rooms[b.msg.DocID]))
			for client := range h.rooms[b.msg.DocID] {
				if client == b.sender {
					continue
				}
				if b.sender == nil && client.Principal == b.msg.Principal {
					continue
				}
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// Full send buffer means the client is lagging. Closing
					// the connection drives its read pump into the normal
					// unregister path without blocking the hub loop.
					logger.Sugar.Warnf("Client %s's send buffer is full. Disconnecting.", client.Principal)
					client.Conn.Close()
				}
			}
		}
	}
}

// RemoveDocument tears down a deleted document's room: every live connection
// is closed, which drives the normal unregister path per client.
func (h *Hub) RemoveDocument(docID string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.rooms[docID]))
	for client := range h.rooms[docID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.Conn.Close()
	}
}

func (h *Hub) broadcastPresenceUpdate(docID string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.presence[docID]; ok {
		userStatuses = make([]UserStatus, 0, len(h.presence[docID]))
		for _, status := range h.presence[docID] {
			userStatuses = append(userStatuses, status)
		}
		clientsToSend = make([]*Client, 0, len(h.rooms[docID]))
		for client := range h.rooms[docID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(Message{Type: PresenceUpdateType, DocID: docID, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.Principal)
		}
	}
}
