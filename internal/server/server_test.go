package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"crewdesk/internal/db"
	"crewdesk/internal/domain"
	"crewdesk/internal/engine"
	"crewdesk/internal/migrate"
	"crewdesk/internal/realtime"
)

type testServer struct {
	URL    string
	client *http.Client
	Alice  domain.User
	Bob    domain.User
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	hub := realtime.NewHub(nil)
	e.Broadcast = hub

	ctx := context.Background()
	alice, err := e.CreateUser(ctx, engine.UserCreateOptions{FirstName: "Alice", LastName: "Moss", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	bob, err := e.CreateUser(ctx, engine.UserCreateOptions{FirstName: "Bob", LastName: "Hale", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	handler, err := New(Config{
		Engine:   e,
		Hub:      hub,
		BasePath: "/api",
		Auth:     AuthConfig{AllowUserHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		Alice:  alice,
		Bob:    bob,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func (s *testServer) doJSON(t *testing.T, method, path, userID string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	res, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s %s (%d): %v: %s", method, path, res.StatusCode, err, data)
		}
	}
	return res
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type taskPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Participants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"participants"`
	Subtasks []subtaskPayload `json:"subtasks"`
}

type subtaskPayload struct {
	ID       string           `json:"id"`
	TaskID   string           `json:"task_id"`
	Progress int              `json:"progress"`
	Comments []commentPayload `json:"comments"`
}

type commentPayload struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"author"`
	Replies []commentPayload `json:"replies"`
}

func (s *testServer) createTask(t *testing.T, title string) taskPayload {
	t.Helper()
	var task taskPayload
	res := s.doJSON(t, http.MethodPost, "/api/tasks", s.Alice.ID, map[string]any{
		"title":    title,
		"due_date": "2024-02-01T00:00:00Z",
	}, &task)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: status %d", res.StatusCode)
	}
	return task
}

func (s *testServer) createSubtask(t *testing.T, taskID, title string) subtaskPayload {
	t.Helper()
	var sub subtaskPayload
	res := s.doJSON(t, http.MethodPost, "/api/tasks/"+taskID+"/subtasks", s.Alice.ID, map[string]any{
		"title":    title,
		"due_date": "2024-02-01T00:00:00Z",
	}, &sub)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create subtask: status %d", res.StatusCode)
	}
	return sub
}

func (s *testServer) getTask(t *testing.T, taskID string) taskPayload {
	t.Helper()
	var task taskPayload
	res := s.doJSON(t, http.MethodGet, "/api/tasks/"+taskID, s.Alice.ID, nil, &task)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get task: status %d", res.StatusCode)
	}
	return task
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	res := s.doJSON(t, http.MethodGet, "/api/tasks", "", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	// health stays open
	res = s.doJSON(t, http.MethodGet, "/api/health", "", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", res.StatusCode)
	}
}

func TestTaskProgressOverHTTP(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "Ship release")
	if task.Progress != 0 {
		t.Fatalf("fresh task progress = %d, want 0", task.Progress)
	}

	s1 := s.createSubtask(t, task.ID, "write docs")
	var sub subtaskPayload
	res := s.doJSON(t, http.MethodPut, fmt.Sprintf("/api/tasks/%s/subtasks/%s/progress", task.ID, s1.ID), s.Alice.ID, map[string]any{"progress": 40}, &sub)
	if res.StatusCode != http.StatusOK || sub.Progress != 40 {
		t.Fatalf("set progress: status %d progress %d", res.StatusCode, sub.Progress)
	}
	if got := s.getTask(t, task.ID).Progress; got != 40 {
		t.Fatalf("task progress = %d, want 40", got)
	}

	s2 := s.createSubtask(t, task.ID, "cut tag")
	s.doJSON(t, http.MethodPut, fmt.Sprintf("/api/tasks/%s/subtasks/%s/progress", task.ID, s2.ID), s.Alice.ID, map[string]any{"progress": 100}, nil)
	if got := s.getTask(t, task.ID).Progress; got != 70 {
		t.Fatalf("task progress = %d, want 70", got)
	}

	res = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%s/subtasks/%s", task.ID, s1.ID), s.Alice.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete subtask: status %d", res.StatusCode)
	}
	if got := s.getTask(t, task.ID).Progress; got != 100 {
		t.Fatalf("task progress = %d, want 100", got)
	}

	// explicit recompute endpoint agrees
	var prog struct {
		TaskID   string `json:"task_id"`
		Progress int    `json:"progress"`
	}
	res = s.doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/progress", s.Alice.ID, map[string]any{}, &prog)
	if res.StatusCode != http.StatusOK || prog.Progress != 100 {
		t.Fatalf("recompute: status %d progress %d", res.StatusCode, prog.Progress)
	}

	// out-of-range progress is rejected
	var envelope errorEnvelope
	res = s.doJSON(t, http.MethodPut, fmt.Sprintf("/api/tasks/%s/subtasks/%s/progress", task.ID, s2.ID), s.Alice.ID, map[string]any{"progress": 150}, &envelope)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("progress 150: status %d, want 400", res.StatusCode)
	}
}

func TestSubtaskScopedToTask(t *testing.T) {
	s := newTestServer(t)
	t1 := s.createTask(t, "one")
	t2 := s.createTask(t, "two")
	sub := s.createSubtask(t, t1.ID, "child")

	var envelope errorEnvelope
	res := s.doJSON(t, http.MethodPut, fmt.Sprintf("/api/tasks/%s/subtasks/%s/progress", t2.ID, sub.ID), s.Alice.ID, map[string]any{"progress": 10}, &envelope)
	if res.StatusCode != http.StatusNotFound || envelope.Error.Code != "not_found" {
		t.Fatalf("cross-task subtask: status %d code %q", res.StatusCode, envelope.Error.Code)
	}
}

func TestParticipantEndpoints(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "shared")

	var envelope errorEnvelope
	res := s.doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/participants", s.Alice.ID, map[string]any{"user_id": "not-a-uuid"}, &envelope)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed id: status %d, want 400", res.StatusCode)
	}

	envelope = errorEnvelope{}
	res = s.doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/participants", s.Alice.ID, map[string]any{"user_id": "00000000-0000-0000-0000-000000000000"}, &envelope)
	if res.StatusCode != http.StatusNotFound || envelope.Error.Code != "not_found" {
		t.Fatalf("unknown user: status %d code %q", res.StatusCode, envelope.Error.Code)
	}

	var task2 taskPayload
	res = s.doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/participants", s.Alice.ID, map[string]any{"user_id": s.Bob.ID}, &task2)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("add participant: status %d", res.StatusCode)
	}
	if len(task2.Participants) != 1 || task2.Participants[0].ID != s.Bob.ID {
		t.Fatalf("participants = %+v, want just bob", task2.Participants)
	}

	envelope = errorEnvelope{}
	res = s.doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/participants", s.Alice.ID, map[string]any{"user_id": s.Bob.ID}, &envelope)
	if res.StatusCode != http.StatusBadRequest || envelope.Error.Code != "conflict" {
		t.Fatalf("duplicate: status %d code %q", res.StatusCode, envelope.Error.Code)
	}
	if !strings.Contains(envelope.Error.Message, "already a participant") {
		t.Fatalf("duplicate message = %q", envelope.Error.Message)
	}

	res = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%s/participants/%s", task.ID, s.Bob.ID), s.Alice.ID, nil, &task2)
	if res.StatusCode != http.StatusOK || len(task2.Participants) != 0 {
		t.Fatalf("remove: status %d participants %+v", res.StatusCode, task2.Participants)
	}

	// removing again succeeds unchanged
	res = s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%s/participants/%s", task.ID, s.Bob.ID), s.Alice.ID, nil, &task2)
	if res.StatusCode != http.StatusOK || len(task2.Participants) != 0 {
		t.Fatalf("idempotent remove: status %d participants %+v", res.StatusCode, task2.Participants)
	}
}

func TestCommentThreadOverHTTP(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "discussion")
	sub := s.createSubtask(t, task.ID, "review")
	commentsPath := fmt.Sprintf("/api/tasks/%s/subtasks/%s/comments", task.ID, sub.ID)

	var withComments subtaskPayload
	res := s.doJSON(t, http.MethodPost, commentsPath, s.Alice.ID, map[string]any{"text": "first pass done"}, &withComments)
	if res.StatusCode != http.StatusCreated || len(withComments.Comments) != 1 {
		t.Fatalf("root comment: status %d comments %+v", res.StatusCode, withComments.Comments)
	}
	rootID := withComments.Comments[0].ID

	res = s.doJSON(t, http.MethodPost, commentsPath, s.Bob.ID, map[string]any{
		"text":              "looks good",
		"parent_comment_id": rootID,
	}, &withComments)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("reply: status %d", res.StatusCode)
	}
	if len(withComments.Comments) != 1 {
		t.Fatalf("root comments = %d, want reply nested not appended", len(withComments.Comments))
	}
	root := withComments.Comments[0]
	if len(root.Replies) != 1 || root.Replies[0].Text != "looks good" {
		t.Fatalf("replies = %+v", root.Replies)
	}
	if root.Replies[0].Author.Name != "Bob Hale" {
		t.Fatalf("reply author = %q", root.Replies[0].Author.Name)
	}
	if root.Replies[0].Replies == nil {
		t.Fatalf("leaf replies must be an empty array, not null")
	}
}

func TestDeleteTaskCascadesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "doomed")
	sub := s.createSubtask(t, task.ID, "child")
	s.doJSON(t, http.MethodPost, fmt.Sprintf("/api/tasks/%s/subtasks/%s/comments", task.ID, sub.ID), s.Alice.ID, map[string]any{"text": "gone soon"}, nil)
	s.doJSON(t, http.MethodPost, "/api/tasks/"+task.ID+"/participants", s.Alice.ID, map[string]any{"user_id": s.Bob.ID}, nil)

	res := s.doJSON(t, http.MethodDelete, "/api/tasks/"+task.ID, s.Alice.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d, want 204", res.StatusCode)
	}

	var envelope errorEnvelope
	res = s.doJSON(t, http.MethodGet, "/api/tasks/"+task.ID, s.Alice.ID, nil, &envelope)
	if res.StatusCode != http.StatusNotFound || envelope.Error.Code != "not_found" {
		t.Fatalf("get after delete: status %d code %q", res.StatusCode, envelope.Error.Code)
	}

	res = s.doJSON(t, http.MethodDelete, "/api/tasks/"+task.ID, s.Alice.ID, nil, &envelope)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("delete again: status %d, want 404", res.StatusCode)
	}
}

type messagePayload struct {
	ID             string   `json:"id"`
	ConversationID string   `json:"conversation_id"`
	SenderID       string   `json:"sender_id"`
	SenderName     string   `json:"sender_name"`
	Content        string   `json:"content"`
	ReadBy         []string `json:"read_by"`
	ReplyTo        *struct {
		MessageID  string `json:"id"`
		SenderName string `json:"sender_name"`
		Content    string `json:"content"`
	} `json:"reply_to"`
}

type conversationPayload struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	UnreadCount int    `json:"unread_count"`
	LastMessage *struct {
		Content  string `json:"content"`
		SenderID string `json:"sender_id"`
	} `json:"last_message"`
}

func (s *testServer) createConversation(t *testing.T, taskID string) conversationPayload {
	t.Helper()
	var conv conversationPayload
	res := s.doJSON(t, http.MethodPost, "/api/chat/conversations", s.Alice.ID, map[string]any{
		"task_id":     taskID,
		"task_title":  "Ship release",
		"task_status": "in-progress",
		"participants": []map[string]any{
			{"id": s.Alice.ID, "name": "Alice Moss", "role": "owner"},
			{"id": s.Bob.ID, "name": "Bob Hale", "role": "member"},
		},
	}, &conv)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create conversation: status %d", res.StatusCode)
	}
	return conv
}

func (s *testServer) dialWS(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/chat/ws"
	header := http.Header{"X-User-Id": []string{userID}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read ws event: %v", err)
	}
	return ev.Event, ev.Data
}

func TestChatOverWebsocket(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "chatty")
	conv := s.createConversation(t, task.ID)

	conn := s.dialWS(t, s.Bob.ID)
	if err := conn.WriteJSON(map[string]string{
		"type":            "join_conversation",
		"conversation_id": conv.ID,
	}); err != nil {
		t.Fatalf("join: %v", err)
	}
	// give the hub a moment to register the room membership
	time.Sleep(100 * time.Millisecond)

	var sent messagePayload
	res := s.doJSON(t, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/messages", s.Alice.ID, map[string]any{"content": "hello"}, &sent)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("send: status %d", res.StatusCode)
	}
	if sent.SenderName != "Alice Moss" {
		t.Fatalf("sender name = %q", sent.SenderName)
	}
	if len(sent.ReadBy) != 1 || sent.ReadBy[0] != s.Alice.ID {
		t.Fatalf("read_by = %v, want only sender", sent.ReadBy)
	}

	event, data := readEvent(t, conn)
	if event != "new_message" {
		t.Fatalf("event = %q, want new_message", event)
	}
	var pushed messagePayload
	if err := json.Unmarshal(data, &pushed); err != nil {
		t.Fatalf("decode pushed message: %v", err)
	}
	if pushed.ID != sent.ID || pushed.Content != "hello" {
		t.Fatalf("pushed = %+v, want the message just sent", pushed)
	}

	// reply with a frozen snapshot
	var reply messagePayload
	s.doJSON(t, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/messages", s.Bob.ID, map[string]any{
		"content":  "hi there",
		"reply_to": sent.ID,
	}, &reply)
	if reply.ReplyTo == nil || reply.ReplyTo.Content != "hello" || reply.ReplyTo.SenderName != "Alice Moss" {
		t.Fatalf("reply snapshot = %+v", reply.ReplyTo)
	}
	event, _ = readEvent(t, conn)
	if event != "new_message" {
		t.Fatalf("event = %q, want new_message", event)
	}

	// edits and deletes are pushed too
	s.doJSON(t, http.MethodPut, "/api/chat/messages/"+sent.ID, s.Alice.ID, map[string]any{"content": "hello, edited"}, nil)
	event, data = readEvent(t, conn)
	if event != "message_update" {
		t.Fatalf("event = %q, want message_update", event)
	}
	if err := json.Unmarshal(data, &pushed); err != nil || pushed.Content != "hello, edited" {
		t.Fatalf("pushed update = %+v (%v)", pushed, err)
	}

	res = s.doJSON(t, http.MethodDelete, "/api/chat/messages/"+reply.ID, s.Bob.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete message: status %d", res.StatusCode)
	}
	event, data = readEvent(t, conn)
	if event != "message_deleted" {
		t.Fatalf("event = %q, want message_deleted", event)
	}
	var deleted struct {
		ConversationID string `json:"conversation_id"`
		MessageID      string `json:"message_id"`
	}
	if err := json.Unmarshal(data, &deleted); err != nil || deleted.MessageID != reply.ID {
		t.Fatalf("deleted payload = %+v (%v)", deleted, err)
	}
}

func TestMarkConversationReadOverHTTP(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "chatty")
	conv := s.createConversation(t, task.ID)

	var sent messagePayload
	s.doJSON(t, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/messages", s.Alice.ID, map[string]any{"content": "one"}, &sent)
	s.doJSON(t, http.MethodPost, "/api/chat/conversations/"+conv.ID+"/messages", s.Alice.ID, map[string]any{"content": "two"}, nil)

	var got conversationPayload
	res := s.doJSON(t, http.MethodGet, "/api/chat/conversations/"+conv.ID, s.Bob.ID, nil, &struct {
		Conversation *conversationPayload `json:"conversation"`
		Messages     []messagePayload     `json:"messages"`
	}{Conversation: &got})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get conversation: status %d", res.StatusCode)
	}
	if got.UnreadCount != 2 || got.LastMessage == nil || got.LastMessage.Content != "two" {
		t.Fatalf("conversation = %+v", got)
	}

	res = s.doJSON(t, http.MethodPut, "/api/chat/conversations/"+conv.ID+"/read", s.Bob.ID, nil, &got)
	if res.StatusCode != http.StatusOK || got.UnreadCount != 0 {
		t.Fatalf("mark read: status %d unread %d", res.StatusCode, got.UnreadCount)
	}

	var detail struct {
		Messages []messagePayload `json:"messages"`
	}
	s.doJSON(t, http.MethodGet, "/api/chat/conversations/"+conv.ID, s.Bob.ID, nil, &detail)
	for _, m := range detail.Messages {
		found := false
		for _, id := range m.ReadBy {
			if id == s.Bob.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("message %s read_by = %v, missing bob", m.ID, m.ReadBy)
		}
	}
}

func TestConversationListScopedToUser(t *testing.T) {
	s := newTestServer(t)
	task := s.createTask(t, "chatty")
	conv := s.createConversation(t, task.ID)

	carol, err := s.doJSONUser(t, "Carol", "Wu", "carol@example.com")
	if err != nil {
		t.Fatal(err)
	}

	var mine []conversationPayload
	s.doJSON(t, http.MethodGet, "/api/chat/conversations", s.Alice.ID, nil, &mine)
	if len(mine) != 1 || mine[0].ID != conv.ID {
		t.Fatalf("alice conversations = %+v", mine)
	}

	var theirs []conversationPayload
	s.doJSON(t, http.MethodGet, "/api/chat/conversations", carol, nil, &theirs)
	if len(theirs) != 0 {
		t.Fatalf("carol conversations = %+v, want none", theirs)
	}
}

func TestUserSearch(t *testing.T) {
	s := newTestServer(t)

	var matches []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	res := s.doJSON(t, http.MethodPost, "/api/users/search", s.Alice.ID, map[string]any{"query": "ali"}, &matches)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("search: status %d", res.StatusCode)
	}
	if len(matches) != 1 || matches[0].ID != s.Alice.ID {
		t.Fatalf("matches = %+v, want just alice", matches)
	}

	res = s.doJSON(t, http.MethodPost, "/api/users/search", s.Alice.ID, map[string]any{"query": "example.com"}, &matches)
	if res.StatusCode != http.StatusOK || len(matches) != 2 {
		t.Fatalf("email search: status %d matches %+v", res.StatusCode, matches)
	}

	var envelope errorEnvelope
	res = s.doJSON(t, http.MethodPost, "/api/users/search", s.Alice.ID, map[string]any{"query": ""}, &envelope)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty query: status %d, want 400", res.StatusCode)
	}
}

func (s *testServer) doJSONUser(t *testing.T, first, last, email string) (string, error) {
	t.Helper()
	var u struct {
		ID string `json:"id"`
	}
	res := s.doJSON(t, http.MethodPost, "/api/users", s.Alice.ID, map[string]any{
		"first_name": first,
		"last_name":  last,
		"email":      email,
	}, &u)
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create user: status %d", res.StatusCode)
	}
	return u.ID, nil
}
