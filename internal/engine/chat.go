package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crewdesk/internal/domain"
	"crewdesk/internal/events"
)

// Broadcaster fans chat mutations out to connected clients. Implementations
// are called only after the triggering write has committed.
type Broadcaster interface {
	MessageCreated(msg domain.Message)
	MessageUpdated(msg domain.Message)
	MessageDeleted(conversationID, messageID string)
}

// NopBroadcaster is used when no realtime transport is attached (CLI, tests).
type NopBroadcaster struct{}

func (NopBroadcaster) MessageCreated(domain.Message) {}
func (NopBroadcaster) MessageUpdated(domain.Message) {}
func (NopBroadcaster) MessageDeleted(string, string) {}

// ConversationCreateOptions are parameters for opening a conversation.
// Task title and status are stored as a denormalized snapshot; nothing keeps
// them in sync with the task afterwards, and no per-task uniqueness is
// enforced.
type ConversationCreateOptions struct {
	TaskID       string
	TaskTitle    string
	TaskStatus   string
	Participants []domain.ConversationParticipant
	ActorID      string
}

func (e Engine) CreateConversation(ctx context.Context, opts ConversationCreateOptions) (domain.Conversation, error) {
	if opts.TaskID == "" {
		return domain.Conversation{}, fmt.Errorf("%w: task_id is required", ErrValidation)
	}
	if opts.TaskTitle == "" {
		return domain.Conversation{}, fmt.Errorf("%w: task_title is required", ErrValidation)
	}
	if err := validStatus(opts.TaskStatus); err != nil {
		return domain.Conversation{}, err
	}
	for _, p := range opts.Participants {
		if p.UserID == "" || p.Name == "" {
			return domain.Conversation{}, fmt.Errorf("%w: participant id and name are required", ErrValidation)
		}
		if p.Role != "owner" && p.Role != "member" {
			return domain.Conversation{}, fmt.Errorf("%w: invalid participant role %q", ErrValidation, p.Role)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Conversation{
		ID:           uuid.New().String(),
		TaskID:       opts.TaskID,
		TaskTitle:    opts.TaskTitle,
		TaskStatus:   opts.TaskStatus,
		Participants: opts.Participants,
		UnreadCount:  0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertConversationTx(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "conversation.created", "conversation", c.ID, opts.ActorID, events.EventPayload{"task_id": c.TaskID}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

func (e Engine) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return e.Repo.ListConversations(ctx, userID)
}

func (e Engine) GetConversationDetail(ctx context.Context, conversationID string) (domain.ConversationDetail, error) {
	c, err := e.Repo.GetConversation(ctx, conversationID)
	if err != nil {
		return domain.ConversationDetail{}, err
	}
	msgs, err := e.Repo.ListMessages(ctx, conversationID)
	if err != nil {
		return domain.ConversationDetail{}, err
	}
	return domain.ConversationDetail{Conversation: c, Messages: msgs}, nil
}

// MessageCreateOptions are parameters for sending a message. The reply
// snapshot, when present, freezes the quoted content at send time.
type MessageCreateOptions struct {
	ConversationID string
	SenderID       string
	Content        string
	ReplyTo        *domain.ReplyRef
}

// SendMessage stores the message, the sender's own read receipt, and the
// conversation's last-message snapshot and unread counter in one transaction,
// then broadcasts after the commit.
func (e Engine) SendMessage(ctx context.Context, opts MessageCreateOptions) (domain.Message, error) {
	if opts.Content == "" {
		return domain.Message{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if _, err := e.Repo.GetConversation(ctx, opts.ConversationID); err != nil {
		return domain.Message{}, err
	}
	sender, err := e.Repo.GetUser(ctx, opts.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	m := domain.Message{
		ID:             uuid.New().String(),
		ConversationID: opts.ConversationID,
		SenderID:       sender.ID,
		SenderName:     sender.FirstName + " " + sender.LastName,
		Content:        opts.Content,
		Timestamp:      now,
		ReadBy:         []string{sender.ID},
		ReplyTo:        opts.ReplyTo,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertMessageTx(ctx, tx, m); err != nil {
		return m, err
	}
	if err := e.Repo.InsertMessageReadTx(ctx, tx, m.ID, sender.ID, now); err != nil {
		return m, err
	}
	if err := e.Repo.TouchConversationOnSendTx(ctx, tx, m.ConversationID, domain.MessageSummary{
		ID:         m.ID,
		Content:    m.Content,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp,
	}, now); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "message.sent", "message", m.ID, sender.ID, events.EventPayload{"conversation_id": m.ConversationID}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	e.broadcaster().MessageCreated(m)
	return m, nil
}

// MarkAsRead adds the user to the read set of every message in the
// conversation and resets its unread counter. The two writes are separate
// statements; a send interleaving between them is tolerated.
func (e Engine) MarkAsRead(ctx context.Context, conversationID, userID string) error {
	if _, err := e.Repo.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.MarkConversationRead(ctx, conversationID, userID, now); err != nil {
		return err
	}
	return e.Repo.ResetUnreadCount(ctx, conversationID)
}

// EditMessage replaces the content and broadcasts the updated message.
// Reply snapshots pointing at this message keep the original content.
func (e Engine) EditMessage(ctx context.Context, messageID, content, actorID string) (domain.Message, error) {
	if content == "" {
		return domain.Message{}, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if _, err := e.Repo.GetMessage(ctx, messageID); err != nil {
		return domain.Message{}, err
	}
	if err := e.Repo.UpdateMessageContent(ctx, messageID, content); err != nil {
		return domain.Message{}, err
	}
	m, err := e.Repo.GetMessage(ctx, messageID)
	if err != nil {
		return m, err
	}
	e.broadcaster().MessageUpdated(m)
	return m, nil
}

func (e Engine) DeleteMessage(ctx context.Context, messageID, actorID string) error {
	m, err := e.Repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	e.broadcaster().MessageDeleted(m.ConversationID, m.ID)
	return nil
}
