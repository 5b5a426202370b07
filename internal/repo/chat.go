package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crewdesk/internal/domain"
)

// --- conversations ---

func (r Repo) InsertConversationTx(ctx context.Context, tx *sql.Tx, c domain.Conversation) error {
	last, err := marshalLastMessage(c.LastMessage)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO conversations(id,task_id,task_title,task_status,last_message_json,unread_count,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.TaskID, c.TaskTitle, c.TaskStatus, last, c.UnreadCount, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	for _, p := range c.Participants {
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversation_participants(conversation_id,user_id,name,avatar,role,last_seen) VALUES (?,?,?,?,?,?)`,
			c.ID, p.UserID, p.Name, nullableStringPtr(p.Avatar), p.Role, nullableStringPtr(p.LastSeen)); err != nil {
			return err
		}
	}
	return nil
}

func scanConversationRow(scan func(dest ...any) error) (domain.Conversation, error) {
	var c domain.Conversation
	var last sql.NullString
	err := scan(&c.ID, &c.TaskID, &c.TaskTitle, &c.TaskStatus, &last, &c.UnreadCount, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if last.Valid && last.String != "" {
		var summary domain.MessageSummary
		if err := json.Unmarshal([]byte(last.String), &summary); err != nil {
			return c, fmt.Errorf("decode last message: %w", err)
		}
		c.LastMessage = &summary
	}
	return c, nil
}

const conversationColumns = `id,task_id,task_title,task_status,last_message_json,unread_count,created_at,updated_at`

func (r Repo) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	c, err := scanConversationRow(r.DB.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id=?`, id).Scan)
	if err != nil {
		return c, err
	}
	c.Participants, err = r.listConversationParticipants(ctx, id)
	return c, err
}

// ListConversations returns conversations the user belongs to, most recent activity first.
func (r Repo) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT c.id,c.task_id,c.task_title,c.task_status,c.last_message_json,c.unread_count,c.created_at,c.updated_at
FROM conversations c
JOIN conversation_participants p ON p.conversation_id = c.id
WHERE p.user_id=?
ORDER BY c.updated_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Conversation
	for rows.Next() {
		c, err := scanConversationRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Participants, err = r.listConversationParticipants(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) listConversationParticipants(ctx context.Context, conversationID string) ([]domain.ConversationParticipant, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id,name,avatar,role,last_seen FROM conversation_participants WHERE conversation_id=? ORDER BY user_id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ConversationParticipant
	for rows.Next() {
		var p domain.ConversationParticipant
		var avatar, lastSeen sql.NullString
		if err := rows.Scan(&p.UserID, &p.Name, &avatar, &p.Role, &lastSeen); err != nil {
			return nil, err
		}
		if avatar.Valid {
			p.Avatar = &avatar.String
		}
		if lastSeen.Valid {
			p.LastSeen = &lastSeen.String
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// TouchConversationOnSendTx refreshes the denormalized last-message snapshot and
// bumps the unread counter in the same transaction as the message insert.
func (r Repo) TouchConversationOnSendTx(ctx context.Context, tx *sql.Tx, conversationID string, last domain.MessageSummary, updatedAt string) error {
	payload, err := json.Marshal(last)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE conversations SET last_message_json=?, unread_count=unread_count+1, updated_at=? WHERE id=?`,
		string(payload), updatedAt, conversationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ResetUnreadCount(ctx context.Context, conversationID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE conversations SET unread_count=0 WHERE id=?`, conversationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalLastMessage(m *domain.MessageSummary) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// --- messages ---

const messageColumns = `id,conversation_id,sender_id,sender_name,content,ts,reply_to_json`

func (r Repo) InsertMessageTx(ctx context.Context, tx *sql.Tx, m domain.Message) error {
	var replyTo any
	if m.ReplyTo != nil {
		b, err := json.Marshal(m.ReplyTo)
		if err != nil {
			return err
		}
		replyTo = string(b)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO messages(`+messageColumns+`) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.ConversationID, m.SenderID, m.SenderName, m.Content, m.Timestamp, replyTo)
	return err
}

func scanMessageRow(scan func(dest ...any) error) (domain.Message, error) {
	var m domain.Message
	var replyTo sql.NullString
	err := scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &m.Timestamp, &replyTo)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if replyTo.Valid && replyTo.String != "" {
		var ref domain.ReplyRef
		if err := json.Unmarshal([]byte(replyTo.String), &ref); err != nil {
			return m, fmt.Errorf("decode reply snapshot: %w", err)
		}
		m.ReplyTo = &ref
	}
	return m, nil
}

func (r Repo) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	m, err := scanMessageRow(r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=?`, id).Scan)
	if err != nil {
		return m, err
	}
	m.ReadBy, err = r.listMessageReaders(ctx, id)
	return m, err
}

func (r Repo) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE conversation_id=? ORDER BY ts ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Message
	for rows.Next() {
		m, err := scanMessageRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	readers, err := r.conversationReaders(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].ReadBy = readers[res[i].ID]
	}
	return res, nil
}

func (r Repo) listMessageReaders(ctx context.Context, messageID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id FROM message_reads WHERE message_id=? ORDER BY read_at ASC, user_id ASC`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) conversationReaders(ctx context.Context, conversationID string) (map[string][]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT r.message_id, r.user_id FROM message_reads r
JOIN messages m ON m.id = r.message_id
WHERE m.conversation_id=?
ORDER BY r.read_at ASC, r.user_id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string][]string{}
	for rows.Next() {
		var messageID, userID string
		if err := rows.Scan(&messageID, &userID); err != nil {
			return nil, err
		}
		res[messageID] = append(res[messageID], userID)
	}
	return res, rows.Err()
}

func (r Repo) InsertMessageReadTx(ctx context.Context, tx *sql.Tx, messageID, userID, readAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO message_reads(message_id,user_id,read_at) VALUES (?,?,?)`, messageID, userID, readAt)
	return err
}

// MarkConversationRead back-fills the reader into every message of the
// conversation in one atomic statement.
func (r Repo) MarkConversationRead(ctx context.Context, conversationID, userID, readAt string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO message_reads(message_id,user_id,read_at)
SELECT id, ?, ? FROM messages WHERE conversation_id=?`, userID, readAt, conversationID)
	return err
}

func (r Repo) UpdateMessageContent(ctx context.Context, id, content string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE messages SET content=? WHERE id=?`, content, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM messages WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
