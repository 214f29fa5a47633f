package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
)

type MessageStore struct {
	conn *sql.DB
}

func NewMessageStore(conn *sql.DB) *MessageStore {
	return &MessageStore{conn: conn}
}

const messageColumns = `id, sender_id, receiver_id, content, job_id, read, created_at`

func scanMessage(row rowScanner, m *models.Message, extra ...any) error {
	var (
		sender, receiver string
		job              sql.NullString
		created          int64
	)
	dest := append([]any{&m.ID, &sender, &receiver, &m.Content, &job, &m.Read, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}

	var err error
	if m.SenderID, err = uuid.Parse(sender); err != nil {
		return fmt.Errorf("parse sender id: %w", err)
	}
	if m.ReceiverID, err = uuid.Parse(receiver); err != nil {
		return fmt.Errorf("parse receiver id: %w", err)
	}
	if m.JobID, err = parseNullUUID(job); err != nil {
		return err
	}
	m.CreatedAt = fromNanos(created)
	return nil
}

func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	m.CreatedAt = now()
	m.Read = false

	query := `
		INSERT INTO messages (sender_id, receiver_id, content, job_id, read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`

	res, err := s.conn.ExecContext(ctx, query,
		m.SenderID.String(), m.ReceiverID.String(), m.Content, nullableUUID(m.JobID), toNanos(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	m.ID = id
	return nil
}

func (s *MessageStore) ListBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.conn.QueryContext(ctx, query, a.String(), b.String(), b.String(), a.String())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE messages SET read = 1 WHERE sender_id = ? AND receiver_id = ? AND read = 0`,
		senderID.String(), receiverID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

// Conversations uses the same window-function rollup as the Postgres
// store. The viewer id is bound once per placeholder.
func (s *MessageStore) Conversations(ctx context.Context, viewerID uuid.UUID) ([]models.ConversationSummary, error) {
	query := `
		WITH mine AS (
			SELECT m.*,
			       CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END AS counterpart_id
			FROM messages m
			WHERE m.sender_id = ? OR m.receiver_id = ?
		),
		ranked AS (
			SELECT mine.*,
			       ROW_NUMBER() OVER (PARTITION BY counterpart_id ORDER BY created_at DESC, id DESC) AS rn,
			       SUM(CASE WHEN receiver_id = ? AND read = 0 THEN 1 ELSE 0 END)
			           OVER (PARTITION BY counterpart_id) AS unread
			FROM mine
		)
		SELECT ` + messageColumns + `, counterpart_id, unread
		FROM ranked
		WHERE rn = 1
		ORDER BY created_at DESC, id DESC`

	v := viewerID.String()
	rows, err := s.conn.QueryContext(ctx, query, v, v, v, v)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var (
			c            models.ConversationSummary
			counterparty string
			unread       int64
		)
		if err := scanMessage(rows, &c.LastMessage, &counterparty, &unread); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if c.CounterpartyID, err = uuid.Parse(counterparty); err != nil {
			return nil, fmt.Errorf("parse counterparty id: %w", err)
		}
		c.UnreadCount = int(unread)
		summaries = append(summaries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return summaries, nil
}
