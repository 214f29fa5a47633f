package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/guardpost/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id, sender_id, receiver_id, content, job_id, read, created_at`

func scanMessage(row pgx.Row, m *models.Message) error {
	return row.Scan(
		&m.ID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Content,
		&m.JobID,
		&m.Read,
		&m.CreatedAt,
	)
}

func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	// Messages use bigserial, so Postgres generates the id.
	query := `
		INSERT INTO messages (sender_id, receiver_id, content, job_id, read, created_at)
		VALUES ($1, $2, $3, $4, false, now())
		RETURNING ` + messageColumns

	if err := scanMessage(s.pool.QueryRow(ctx, query, m.SenderID, m.ReceiverID, m.Content, m.JobID), m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) ListBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, a, b)
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
	// "AND read = false" keeps the count honest: re-marking touches no rows.
	query := `
		UPDATE messages
		SET read = true
		WHERE sender_id = $1 AND receiver_id = $2 AND read = false`

	tag, err := s.pool.Exec(ctx, query, senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Conversations is the one multi-stage aggregation of the store:
//
//  1. mine:   every message the viewer sent or received, tagged with the
//     other party (counterpart_id).
//  2. ranked: per counterpart, number rows newest first and count the
//     unread ones addressed to the viewer over the whole partition.
//  3. keep rn = 1, the latest message of each conversation.
func (s *MessageStore) Conversations(ctx context.Context, viewerID uuid.UUID) ([]models.ConversationSummary, error) {
	query := `
		WITH mine AS (
			SELECT m.*,
			       CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS counterpart_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.receiver_id = $1
		),
		ranked AS (
			SELECT mine.*,
			       ROW_NUMBER() OVER (PARTITION BY counterpart_id ORDER BY created_at DESC, id DESC) AS rn,
			       SUM(CASE WHEN receiver_id = $1 AND NOT read THEN 1 ELSE 0 END)
			           OVER (PARTITION BY counterpart_id) AS unread
			FROM mine
		)
		SELECT counterpart_id, ` + messageColumns + `, unread
		FROM ranked
		WHERE rn = 1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var (
			c      models.ConversationSummary
			unread int64
		)
		err := rows.Scan(
			&c.CounterpartyID,
			&c.LastMessage.ID,
			&c.LastMessage.SenderID,
			&c.LastMessage.ReceiverID,
			&c.LastMessage.Content,
			&c.LastMessage.JobID,
			&c.LastMessage.Read,
			&c.LastMessage.CreatedAt,
			&unread,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.UnreadCount = int(unread)
		summaries = append(summaries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return summaries, nil
}
