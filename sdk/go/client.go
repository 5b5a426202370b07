package crewdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Crewdesk HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	UserID      string // fallback auth via X-User-Id when the server allows it
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. "http://127.0.0.1:8080/api".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents the API user model.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
}

// UserRef is the compact user shape embedded in task views.
type UserRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Comment is a threaded subtask comment. Replies nest recursively.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    UserRef   `json:"author"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt string    `json:"created_at"`
	Replies   []Comment `json:"replies"`
}

// SubTask represents the API subtask view.
type SubTask struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Progress    int       `json:"progress"`
	DueDate     string    `json:"due_date"`
	AssignedTo  *UserRef  `json:"assigned_to,omitempty"`
	CreatedBy   UserRef   `json:"created_by"`
	Comments    []Comment `json:"comments"`
}

// Task represents the API task view with subtasks populated.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Progress     int       `json:"progress"`
	DueDate      string    `json:"due_date"`
	AssignedTo   *UserRef  `json:"assigned_to,omitempty"`
	CreatedBy    UserRef   `json:"created_by"`
	Participants []UserRef `json:"participants"`
	Subtasks     []SubTask `json:"subtasks"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
}

// MessageSummary is the denormalized last-message snapshot on a conversation.
type MessageSummary struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Timestamp  string `json:"timestamp"`
}

// Conversation represents a task chat room.
type Conversation struct {
	ID          string          `json:"id"`
	TaskID      string          `json:"task_id"`
	TaskTitle   string          `json:"task_title"`
	TaskStatus  string          `json:"task_status"`
	LastMessage *MessageSummary `json:"last_message,omitempty"`
	UnreadCount int             `json:"unread_count"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// ReplyRef is the frozen snippet of a quoted message.
type ReplyRef struct {
	MessageID  string `json:"id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

// Message represents a chat message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	Timestamp      string    `json:"timestamp"`
	ReadBy         []string  `json:"read_by"`
	ReplyTo        *ReplyRef `json:"reply_to,omitempty"`
}

// ConversationDetail bundles a conversation with its messages.
type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// Event represents a log entry. Payload is the JSON document as stored;
// use PayloadMap to decode it.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// PayloadMap decodes the event payload.
func (e Event) PayloadMap() (map[string]any, error) {
	if e.Payload == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(e.Payload), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login mints a bearer token for the user with the given email and stores it
// on the client for subsequent calls.
func (c *Client) Login(ctx context.Context, email string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{"email": email}, &resp)
	if err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, title, dueDate string, opts map[string]any) (Task, error) {
	body := map[string]any{
		"title":    title,
		"due_date": dueDate,
	}
	for k, v := range opts {
		body[k] = v
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

// GetTask returns a task with subtasks, comments, and participants populated.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListTasks returns all tasks.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "tasks", nil, &resp)
	return resp, err
}

// DeleteTask removes a task, its subtasks, their comments, and participants.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

// RecalculateProgress recomputes and returns the task's aggregated progress.
func (c *Client) RecalculateProgress(ctx context.Context, taskID string) (int, error) {
	var resp struct {
		TaskID   string `json:"task_id"`
		Progress int    `json:"progress"`
	}
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/progress", map[string]any{}, &resp)
	return resp.Progress, err
}

// CreateSubtask adds a subtask under a task.
func (c *Client) CreateSubtask(ctx context.Context, taskID, title, dueDate string, opts map[string]any) (SubTask, error) {
	body := map[string]any{
		"title":    title,
		"due_date": dueDate,
	}
	for k, v := range opts {
		body[k] = v
	}
	var resp SubTask
	endpoint := fmt.Sprintf("tasks/%s/subtasks", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// SetSubtaskProgress sets a subtask's progress (0..100).
func (c *Client) SetSubtaskProgress(ctx context.Context, taskID, subtaskID string, progress int) (SubTask, error) {
	var resp SubTask
	endpoint := fmt.Sprintf("tasks/%s/subtasks/%s/progress", url.PathEscape(taskID), url.PathEscape(subtaskID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"progress": progress}, &resp)
	return resp, err
}

// CreateComment posts a comment on a subtask. parentID may be empty for a
// top-level comment.
func (c *Client) CreateComment(ctx context.Context, taskID, subtaskID, text, parentID string) (SubTask, error) {
	body := map[string]any{"text": text}
	if parentID != "" {
		body["parent_comment_id"] = parentID
	}
	var resp SubTask
	endpoint := fmt.Sprintf("tasks/%s/subtasks/%s/comments", url.PathEscape(taskID), url.PathEscape(subtaskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// AddParticipant adds a user to a task's participant list.
func (c *Client) AddParticipant(ctx context.Context, taskID, userID string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("tasks/%s/participants", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"user_id": userID}, &resp)
	return resp, err
}

// RemoveParticipant removes a user from a task's participant list.
func (c *Client) RemoveParticipant(ctx context.Context, taskID, userID string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("tasks/%s/participants/%s", url.PathEscape(taskID), url.PathEscape(userID))
	err := c.do(ctx, http.MethodDelete, endpoint, nil, &resp)
	return resp, err
}

// Conversations lists the current user's conversations.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var resp []Conversation
	err := c.do(ctx, http.MethodGet, "chat/conversations", nil, &resp)
	return resp, err
}

// GetConversation returns a conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (ConversationDetail, error) {
	var resp ConversationDetail
	err := c.do(ctx, http.MethodGet, "chat/conversations/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SendMessage sends a message. replyTo may be empty, or the id of the
// message being quoted.
func (c *Client) SendMessage(ctx context.Context, conversationID, content, replyTo string) (Message, error) {
	body := map[string]any{"content": content}
	if replyTo != "" {
		body["reply_to"] = replyTo
	}
	var resp Message
	endpoint := fmt.Sprintf("chat/conversations/%s/messages", url.PathEscape(conversationID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// MarkAsRead marks every message in the conversation as read for the current
// user and resets the unread counter.
func (c *Client) MarkAsRead(ctx context.Context, conversationID string) (Conversation, error) {
	var resp Conversation
	endpoint := fmt.Sprintf("chat/conversations/%s/read", url.PathEscape(conversationID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{}, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.UserID != "":
		req.Header.Set("X-User-Id", c.UserID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
