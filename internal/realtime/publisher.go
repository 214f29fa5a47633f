package realtime

import (
	"context"
	"fmt"

	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/present"
)

// MessagePublisher pushes newly stored messages to their receivers with
// sender, receiver and job already resolved.
type MessagePublisher struct {
	presenter *present.Presenter
	broker    Broker
}

func NewMessagePublisher(presenter *present.Presenter, broker Broker) *MessagePublisher {
	return &MessagePublisher{presenter: presenter, broker: broker}
}

func (p *MessagePublisher) PublishMessage(ctx context.Context, m *models.Message) error {
	view, err := p.presenter.Message(ctx, m)
	if err != nil {
		return fmt.Errorf("present message: %w", err)
	}
	return p.broker.Publish(ctx, m.ReceiverID, Event{Type: EventNewMessage, Data: view})
}
