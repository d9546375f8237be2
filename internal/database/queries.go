package database

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const chatColumns = `
	c.id,
	c.last_message,
	c.last_message_at,
	c.created_at,
	c.updated_at,
	array_agg(p.user_id ORDER BY p.user_id) AS participants`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (Chat, error) {
	var (
		chat          Chat
		lastMessageAt sql.NullTime
		participants  pq.StringArray
	)

	err := row.Scan(
		&chat.Id,
		&chat.LastMessage,
		&lastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
		&participants,
	)
	if err != nil {
		return Chat{}, err
	}

	if lastMessageAt.Valid {
		t := lastMessageAt.Time.UTC()
		chat.LastMessageAt = &t
	}
	chat.Participants = []string(participants)
	chat.Messages = []Message{}

	return chat, nil
}

func (db *PgRepository) ListChats(ctx context.Context, userId string) ([]Chat, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT"+chatColumns+" FROM chats c "+
			"JOIN chat_participants p ON p.chat_id = c.id "+
			"WHERE c.id IN (SELECT chat_id FROM chat_participants WHERE user_id = $1) "+
			"GROUP BY c.id "+
			"ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC",
		userId,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	defer rows.Close()

	chats := make([]Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan chat")
		}
		chats = append(chats, chat)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return chats, nil
}

func (db *PgRepository) FindChatBetween(ctx context.Context, userA, userB string) (Chat, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT pa.chat_id FROM chat_participants pa "+
			"JOIN chat_participants pb ON pb.chat_id = pa.chat_id "+
			"WHERE pa.user_id = $1 AND pb.user_id = $2 "+
			"LIMIT 1",
		userA,
		userB,
	)

	var chatId string
	if err := row.Scan(&chatId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chat{}, ErrNotFound
		}
		return Chat{}, errors.Wrap(err, "find chat")
	}

	return db.GetChat(ctx, chatId)
}

func (db *PgRepository) CreateChat(ctx context.Context, participants []string) (Chat, error) {
	id, err := db.newId()
	if err != nil {
		return Chat{}, errors.Wrap(err, "generate chat id")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Chat{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	now := Now()
	chat := Chat{
		Id:           id,
		Participants: participants,
		Messages:     []Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO chats (id, created_at, updated_at) VALUES ($1, $2, $3)",
		chat.Id,
		chat.CreatedAt,
		chat.UpdatedAt,
	); err != nil {
		return Chat{}, errors.Wrap(err, "insert chat")
	}

	for _, userId := range participants {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			chat.Id,
			userId,
		); err != nil {
			return Chat{}, errors.Wrap(err, "insert participant")
		}
	}

	if err := tx.Commit(); err != nil {
		return Chat{}, errors.Wrap(err, "commit tx")
	}

	return chat, nil
}

func (db *PgRepository) GetChat(ctx context.Context, chatId string) (Chat, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT"+chatColumns+" FROM chats c "+
			"JOIN chat_participants p ON p.chat_id = c.id "+
			"WHERE c.id = $1 "+
			"GROUP BY c.id",
		chatId,
	)

	chat, err := scanChat(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chat{}, ErrNotFound
		}
		return Chat{}, errors.Wrap(err, "get chat")
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, chat_id, sender_id, text, created_at FROM messages "+
			"WHERE chat_id = $1 ORDER BY id ASC",
		chatId,
	)
	if err != nil {
		return Chat{}, errors.Wrap(err, "get messages")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg Message
			id  int64
		)
		if err := rows.Scan(
			&id,
			&msg.ChatId,
			&msg.SenderId,
			&msg.Text,
			&msg.CreatedAt,
		); err != nil {
			return Chat{}, errors.Wrap(err, "scan message")
		}
		msg.Id = strconv.FormatInt(id, 10)
		msg.CreatedAt = msg.CreatedAt.UTC()
		chat.Messages = append(chat.Messages, msg)
	}

	if err := rows.Err(); err != nil {
		return Chat{}, errors.Wrap(err, "rows error")
	}

	return chat, nil
}

// AppendMessage stores a message and updates the chat's last message summary
// in one transaction. The returned Message is exactly what was stored.
func (db *PgRepository) AppendMessage(ctx context.Context, chatId string, params AppendMessageParams) (Message, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	msg := Message{
		ChatId:    chatId,
		SenderId:  params.SenderId,
		Text:      params.Text,
		CreatedAt: Now(),
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE chats SET last_message = $2, last_message_at = $3, updated_at = $3 WHERE id = $1",
		chatId,
		msg.Text,
		msg.CreatedAt,
	)
	if err != nil {
		return Message{}, errors.Wrap(err, "update chat")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Message{}, errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return Message{}, ErrNotFound
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		"INSERT INTO messages (chat_id, sender_id, text, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id",
		msg.ChatId,
		msg.SenderId,
		msg.Text,
		msg.CreatedAt,
	).Scan(&id); err != nil {
		return Message{}, errors.Wrap(err, "insert message")
	}
	msg.Id = strconv.FormatInt(id, 10)

	if err := tx.Commit(); err != nil {
		return Message{}, errors.Wrap(err, "commit tx")
	}

	return msg, nil
}

func (db *PgRepository) CreateNotification(ctx context.Context, params CreateNotificationParams) (Notification, error) {
	n := Notification{
		RecipientId: params.RecipientId,
		SenderId:    params.SenderId,
		Type:        params.Type,
		IdeaId:      params.IdeaId,
		ProposalId:  params.ProposalId,
		Message:     params.Message,
		CreatedAt:   Now(),
	}

	var id int64
	err := db.conn.QueryRowContext(ctx,
		"INSERT INTO notifications (recipient_id, sender_id, type, idea_id, proposal_id, message, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		n.RecipientId,
		n.SenderId,
		n.Type,
		n.IdeaId,
		n.ProposalId,
		n.Message,
		n.CreatedAt,
	).Scan(&id)
	if err != nil {
		return Notification{}, errors.Wrap(err, "insert notification")
	}
	n.Id = strconv.FormatInt(id, 10)

	return n, nil
}

func (db *PgRepository) ListNotifications(ctx context.Context, recipientId string) ([]Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, recipient_id, sender_id, type, idea_id, proposal_id, message, read, created_at "+
			"FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC, id DESC",
		recipientId,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var (
			n  Notification
			id int64
		)
		if err := rows.Scan(
			&id,
			&n.RecipientId,
			&n.SenderId,
			&n.Type,
			&n.IdeaId,
			&n.ProposalId,
			&n.Message,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		n.Id = strconv.FormatInt(id, 10)
		n.CreatedAt = n.CreatedAt.UTC()
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	return notifications, nil
}

func (db *PgRepository) MarkNotificationRead(ctx context.Context, id, recipientId string) error {
	nid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrNotFound
	}

	res, err := db.conn.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2",
		nid,
		recipientId,
	)
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
