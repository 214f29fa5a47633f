package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/apperr"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"go.uber.org/zap"
)

// Publisher pushes a stored message to whoever is connected as its
// receiver. Delivery is best effort.
type Publisher interface {
	PublishMessage(ctx context.Context, m *models.Message) error
}

// MessageService is the conversation router.
type MessageService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	jobs      repository.JobRepository
	publisher Publisher
	logger    *zap.Logger
}

func NewMessageService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	jobs repository.JobRepository,
	publisher Publisher,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messages:  messages,
		users:     users,
		jobs:      jobs,
		publisher: publisher,
		logger:    logger,
	}
}

// Send stores the message and then pushes it to the receiver's live
// sessions. A failed push is logged and does not fail the send.
func (s *MessageService) Send(ctx context.Context, actor Actor, receiverID uuid.UUID, content string, jobID *uuid.UUID) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("message content is required")
	}

	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperr.NotFound("receiver not found")
	}
	if jobID != nil {
		j, err := s.jobs.GetByID(ctx, *jobID)
		if err != nil {
			return nil, err
		}
		if j == nil {
			return nil, apperr.NotFound("job not found")
		}
	}

	m := &models.Message{
		SenderID:   actor.UserID,
		ReceiverID: receiverID,
		Content:    content,
		JobID:      jobID,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMessage(ctx, m); err != nil {
			s.logger.Warn("failed to publish message",
				zap.Int64("message_id", m.ID),
				zap.String("receiver_id", receiverID.String()),
				zap.Error(err),
			)
		}
	}
	return m, nil
}

// Conversation marks everything counterpartyID sent to actor as read, then
// returns the whole exchange oldest first.
func (s *MessageService) Conversation(ctx context.Context, actor Actor, counterpartyID uuid.UUID) ([]models.Message, error) {
	if _, err := s.messages.MarkRead(ctx, counterpartyID, actor.UserID); err != nil {
		return nil, err
	}
	return s.messages.ListBetween(ctx, actor.UserID, counterpartyID)
}

// Conversations returns one summary per counterparty, newest activity
// first. Counterparties whose accounts no longer exist are left out.
func (s *MessageService) Conversations(ctx context.Context, actor Actor) ([]models.ConversationSummary, error) {
	summaries, err := s.messages.Conversations(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]uuid.UUID, len(summaries))
	for i, c := range summaries {
		ids[i] = c.CounterpartyID
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{}, len(users))
	for _, u := range users {
		known[u.ID] = struct{}{}
	}

	out := make([]models.ConversationSummary, 0, len(summaries))
	for _, c := range summaries {
		if _, ok := known[c.CounterpartyID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// MarkRead is the explicit read receipt. It returns how many messages
// flipped from unread to read.
func (s *MessageService) MarkRead(ctx context.Context, actor Actor, counterpartyID uuid.UUID) (int64, error) {
	return s.messages.MarkRead(ctx, counterpartyID, actor.UserID)
}
