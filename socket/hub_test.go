package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/document/model"
)

// Helper to read one message with a deadline so tests never hang.
func readMessage(t *testing.T, conn *websocket.Conn) Message {
	var msg Message
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal Message JSON")
	return msg
}

func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no message, but one arrived")
}

// newTestServer stands in for the API layer: it trusts principal, docId and
// tier from the query string, which in production are resolved before the
// upgrade.
func newTestServer(t *testing.T, hub *Hub) string {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := r.URL.Query().Get("principal")
		docID := r.URL.Query().Get("docId")
		tier := model.TierEditor
		if r.URL.Query().Get("tier") == "viewer" {
			tier = model.TierViewer
		}
		ServeWs(hub, w, r, principal, docID, tier)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, wsURL, principal, docID, tier string) *websocket.Conn {
	url := wsURL + "/ws?docId=" + docID + "&principal=" + principal
	if tier != "" {
		url += "&tier=" + tier
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "client %s failed to connect", principal)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastExcludesOriginator(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	wsURL := newTestServer(t, hub)

	docID := "doc-1"
	conn1 := dial(t, wsURL, "user1", docID, "")
	// conn1 sees its own join in the presence stream.
	presence := readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)

	conn2 := dial(t, wsURL, "user2", docID, "")
	_ = readMessage(t, conn2) // conn2's own join presence

	// conn1 is told user2 joined.
	presence = readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(presence.Payload, &statuses))
	assert.Len(t, statuses, 2)

	// user2 publishes an edit; user1 receives it, user2 gets no echo.
	payload := `{"ops":[{"insert":"hello"}]}`
	msgBytes, _ := json.Marshal(Message{Type: UpdateType, Payload: json.RawMessage(payload)})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, msgBytes))

	got := readMessage(t, conn1)
	assert.Equal(t, UpdateType, got.Type)
	assert.Equal(t, docID, got.DocID)
	assert.Equal(t, "user2", got.Principal, "principal must be server-authoritative")
	assert.JSONEq(t, payload, string(got.Payload))

	assertNoMessage(t, conn2)
}

func TestViewerCannotPublishUpdates(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	wsURL := newTestServer(t, hub)

	docID := "doc-2"
	editor := dial(t, wsURL, "editor1", docID, "")
	_ = readMessage(t, editor)
	viewer := dial(t, wsURL, "viewer1", docID, "viewer")
	_ = readMessage(t, viewer)
	_ = readMessage(t, editor) // viewer join presence

	// The viewer's UPDATE is dropped; its CURSOR goes through. Messages on
	// one connection are handled in order, so the cursor arriving without a
	// preceding update proves the drop.
	update, _ := json.Marshal(Message{Type: UpdateType, Payload: json.RawMessage(`{"ops":[]}`)})
	require.NoError(t, viewer.WriteMessage(websocket.TextMessage, update))
	cursor, _ := json.Marshal(Message{Type: CursorType, Payload: json.RawMessage(`{"pos":4}`)})
	require.NoError(t, viewer.WriteMessage(websocket.TextMessage, cursor))

	got := readMessage(t, editor)
	assert.Equal(t, CursorType, got.Type)
	assert.Equal(t, "viewer1", got.Principal)
}

func TestRoomsAreScopedByDocument(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	wsURL := newTestServer(t, hub)

	connA := dial(t, wsURL, "userA", "doc-a", "")
	_ = readMessage(t, connA)
	connB := dial(t, wsURL, "userB", "doc-b", "")
	_ = readMessage(t, connB)

	msg, _ := json.Marshal(Message{Type: UpdateType, Payload: json.RawMessage(`{"ops":[]}`)})
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, msg))

	// A different document's room never sees the edit.
	assertNoMessage(t, connB)
}

func TestAPIPublishSkipsOriginatingPrincipal(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	wsURL := newTestServer(t, hub)

	docID := "doc-3"
	saver := dial(t, wsURL, "saver", docID, "")
	_ = readMessage(t, saver)
	other := dial(t, wsURL, "other", docID, "")
	_ = readMessage(t, other)
	_ = readMessage(t, saver)

	hub.Publish(Message{
		Type:      UpdateType,
		DocID:     docID,
		Principal: "saver",
		Payload:   json.RawMessage(`{"ops":[{"insert":"saved"}]}`),
	})

	got := readMessage(t, other)
	assert.Equal(t, UpdateType, got.Type)
	assert.Equal(t, "saver", got.Principal)

	assertNoMessage(t, saver)
}

func TestEmptyRoomIsGarbageCollected(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	wsURL := newTestServer(t, hub)

	docID := "doc-4"
	conn := dial(t, wsURL, "user1", docID, "")
	_ = readMessage(t, conn)
	require.Equal(t, 1, hub.RoomSize(docID))

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.RoomSize(docID) == 0
	}, time.Second, 10*time.Millisecond, "room should be removed when the last member leaves")
}
