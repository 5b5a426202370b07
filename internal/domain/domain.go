package domain

type User struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email" format:"email"`
	Avatar    *string `json:"avatar,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Task struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status" enum:"in-progress,completed,expired,closed"`
	Priority     string   `json:"priority" enum:"low,medium,high"`
	DueDate      string   `json:"due_date" format:"date-time"`
	AssignedTo   *string  `json:"assigned_to,omitempty"`
	CreatedBy    string   `json:"created_by"`
	Progress     int      `json:"progress"`
	Participants []string `json:"participants"`
	Subtasks     []string `json:"subtasks"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
	UpdatedAt    string   `json:"updated_at" format:"date-time"`
}

type SubTask struct {
	ID          string   `json:"id"`
	TaskID      string   `json:"task_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status" enum:"in-progress,completed,expired,closed"`
	Priority    string   `json:"priority" enum:"low,medium,high"`
	DueDate     string   `json:"due_date" format:"date-time"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	CreatedBy   string   `json:"created_by"`
	Progress    int      `json:"progress"`
	Comments    []string `json:"comments"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

type Comment struct {
	ID        string  `json:"id"`
	SubTaskID string  `json:"subtask_id"`
	AuthorID  string  `json:"author_id"`
	Text      string  `json:"text"`
	ParentID  *string `json:"parent_comment_id,omitempty"`
	IsEdited  bool    `json:"is_edited"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Conversation struct {
	ID           string                    `json:"id"`
	TaskID       string                    `json:"task_id"`
	TaskTitle    string                    `json:"task_title"`
	TaskStatus   string                    `json:"task_status" enum:"in-progress,completed,expired,closed"`
	Participants []ConversationParticipant `json:"participants"`
	LastMessage  *MessageSummary           `json:"last_message,omitempty"`
	UnreadCount  int                       `json:"unread_count"`
	CreatedAt    string                    `json:"created_at" format:"date-time"`
	UpdatedAt    string                    `json:"updated_at" format:"date-time"`
}

type ConversationParticipant struct {
	UserID   string  `json:"id"`
	Name     string  `json:"name"`
	Avatar   *string `json:"avatar,omitempty"`
	Role     string  `json:"role" enum:"owner,member"`
	LastSeen *string `json:"last_seen,omitempty" format:"date-time"`
}

// MessageSummary is the denormalized last-message snapshot kept on a conversation.
type MessageSummary struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Timestamp  string `json:"timestamp" format:"date-time"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	Timestamp      string    `json:"timestamp" format:"date-time"`
	ReadBy         []string  `json:"read_by"`
	ReplyTo        *ReplyRef `json:"reply_to,omitempty"`
}

// ReplyRef is a frozen snapshot of the quoted message; it does not track edits.
type ReplyRef struct {
	MessageID  string `json:"id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// TaskDetail is a task with all of its references resolved to records.
// Raw Task carries ids only; handlers choose explicitly which shape they need.
type TaskDetail struct {
	Task         Task
	CreatedBy    User
	AssignedTo   *User
	Participants []User
	Subtasks     []SubTaskDetail
}

type SubTaskDetail struct {
	SubTask    SubTask
	CreatedBy  User
	AssignedTo *User
	Comments   []CommentDetail
}

type CommentDetail struct {
	Comment Comment
	Author  User
}

type ConversationDetail struct {
	Conversation Conversation
	Messages     []Message
}
