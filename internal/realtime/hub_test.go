package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"crewdesk/internal/domain"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameType, conversationID string) {
	t.Helper()
	err := conn.WriteJSON(map[string]string{"type": frameType, "conversation_id": conversationID})
	if err != nil {
		t.Fatalf("write %s: %v", frameType, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev envelope
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

// Joins are processed by the hub's read loop, so give it a beat before
// broadcasting.
func settle() { time.Sleep(50 * time.Millisecond) }

func TestHubBroadcastsToJoinedRoomOnly(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	inRoom := dialHub(t, srv)
	outOfRoom := dialHub(t, srv)
	sendFrame(t, inRoom, "join_conversation", "conv-1")
	sendFrame(t, outOfRoom, "join_conversation", "conv-2")
	settle()

	msg := domain.Message{ID: "m-1", ConversationID: "conv-1", SenderID: "u-1", SenderName: "Alice Moss", Content: "hello"}
	hub.MessageCreated(msg)

	ev := readEnvelope(t, inRoom)
	if ev.Event != "new_message" {
		t.Fatalf("event = %q", ev.Event)
	}
	data, _ := json.Marshal(ev.Data)
	var got domain.Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "m-1" || got.Content != "hello" {
		t.Fatalf("payload = %+v", got)
	}

	outOfRoom.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := outOfRoom.ReadJSON(&ev); err == nil {
		t.Fatalf("unexpected event in conv-2 room: %+v", ev)
	}
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	sendFrame(t, conn, "join_conversation", "conv-1")
	settle()
	sendFrame(t, conn, "leave_conversation", "conv-1")
	settle()

	hub.MessageDeleted("conv-1", "m-1")
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var ev envelope
	if err := conn.ReadJSON(&ev); err == nil {
		t.Fatalf("unexpected event after leave: %+v", ev)
	}
}

func TestHubDeleteAndUpdateEvents(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	sendFrame(t, conn, "join_conversation", "conv-1")
	settle()

	hub.MessageUpdated(domain.Message{ID: "m-1", ConversationID: "conv-1", Content: "edited"})
	if ev := readEnvelope(t, conn); ev.Event != "message_update" {
		t.Fatalf("event = %q", ev.Event)
	}

	hub.MessageDeleted("conv-1", "m-1")
	ev := readEnvelope(t, conn)
	if ev.Event != "message_deleted" {
		t.Fatalf("event = %q", ev.Event)
	}
	data, _ := json.Marshal(ev.Data)
	var ref map[string]string
	if err := json.Unmarshal(data, &ref); err != nil {
		t.Fatal(err)
	}
	if ref["message_id"] != "m-1" || ref["conversation_id"] != "conv-1" {
		t.Fatalf("payload = %v", ref)
	}
}

func TestHubDisconnectCleansRooms(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	sendFrame(t, conn, "join_conversation", "conv-1")
	settle()
	conn.Close()
	settle()

	hub.mu.RLock()
	_, ok := hub.rooms["conv-1"]
	hub.mu.RUnlock()
	if ok {
		t.Fatal("room should be removed once its last client disconnects")
	}
}
