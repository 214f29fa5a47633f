package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/apperr"
	"github.com/lalith-99/guardpost/internal/models"
)

func TestSend_ValidatesAndPublishes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "a", models.RoleClient)
	b := e.register(t, "b", models.RoleGuard)

	if _, err := e.messages.Send(ctx, a, b.UserID, "   ", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("blank content: expected validation error, got %v", err)
	}
	if _, err := e.messages.Send(ctx, a, uuid.New(), "hi", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown receiver: expected not found, got %v", err)
	}
	missingJob := uuid.New()
	if _, err := e.messages.Send(ctx, a, b.UserID, "hi", &missingJob); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown job: expected not found, got %v", err)
	}
	if n := e.published.count(); n != 0 {
		t.Fatalf("rejected sends must not publish, got %d", n)
	}

	m, err := e.messages.Send(ctx, a, b.UserID, "  see you at 6  ", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.ID == 0 || m.Content != "see you at 6" || m.Read || m.SenderID != a.UserID {
		t.Fatalf("unexpected message: %+v", m)
	}
	if n := e.published.count(); n != 1 {
		t.Fatalf("expected one publish, got %d", n)
	}
}

func TestSend_PublishFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "a", models.RoleClient)
	b := e.register(t, "b", models.RoleGuard)
	e.published.err = errors.New("broker down")

	m, err := e.messages.Send(ctx, a, b.UserID, "hello", nil)
	if err != nil {
		t.Fatalf("Send must succeed when publishing fails: %v", err)
	}
	msgs, _ := e.messages.Conversation(ctx, a, b.UserID)
	if len(msgs) != 1 || msgs[0].ID != m.ID {
		t.Fatalf("message not stored: %+v", msgs)
	}
}

func TestConversation_MarksReadAndOrders(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "a", models.RoleClient)
	b := e.register(t, "b", models.RoleGuard)
	client := e.register(t, "owner", models.RoleClient)
	j := e.postJob(t, client)

	first, _ := e.messages.Send(ctx, b, a.UserID, "one", &j.ID)
	_, _ = e.messages.Send(ctx, a, b.UserID, "two", nil)
	_, _ = e.messages.Send(ctx, b, a.UserID, "three", nil)

	convs, err := e.messages.Conversations(ctx, a)
	if err != nil || len(convs) != 1 || convs[0].UnreadCount != 2 {
		t.Fatalf("before reading: %v %+v", err, convs)
	}

	msgs, err := e.messages.Conversation(ctx, a, b.UserID)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
	if msgs[0].ID != first.ID || msgs[0].JobID == nil || *msgs[0].JobID != j.ID {
		t.Fatalf("job reference lost: %+v", msgs[0])
	}
	for _, m := range msgs {
		if m.ReceiverID == a.UserID && !m.Read {
			t.Fatalf("message %d to viewer still unread", m.ID)
		}
		if m.ReceiverID == b.UserID && m.Read {
			t.Fatalf("message %d to counterparty must stay unread", m.ID)
		}
	}

	convs, _ = e.messages.Conversations(ctx, a)
	if convs[0].UnreadCount != 0 || convs[0].LastMessage.Content != "three" {
		t.Fatalf("after reading: %+v", convs[0])
	}

	// b has not read "two" yet.
	convs, _ = e.messages.Conversations(ctx, b)
	if len(convs) != 1 || convs[0].CounterpartyID != a.UserID || convs[0].UnreadCount != 1 {
		t.Fatalf("counterparty view: %+v", convs)
	}
}

func TestMarkRead_Idempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "a", models.RoleClient)
	b := e.register(t, "b", models.RoleGuard)
	_, _ = e.messages.Send(ctx, b, a.UserID, "ping", nil)
	_, _ = e.messages.Send(ctx, b, a.UserID, "ping again", nil)

	n, err := e.messages.MarkRead(ctx, a, b.UserID)
	if err != nil || n != 2 {
		t.Fatalf("first MarkRead: %d %v", n, err)
	}
	n, err = e.messages.MarkRead(ctx, a, b.UserID)
	if err != nil || n != 0 {
		t.Fatalf("second MarkRead: %d %v", n, err)
	}
}

func TestConversations_SortedByLatest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "a", models.RoleClient)
	b := e.register(t, "b", models.RoleGuard)
	c := e.register(t, "c", models.RoleGuard)

	_, _ = e.messages.Send(ctx, a, b.UserID, "to b", nil)
	_, _ = e.messages.Send(ctx, c, a.UserID, "from c", nil)
	_, _ = e.messages.Send(ctx, b, a.UserID, "from b", nil)

	convs, err := e.messages.Conversations(ctx, a)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].CounterpartyID != b.UserID || convs[1].CounterpartyID != c.UserID {
		t.Fatalf("wrong order: %+v", convs)
	}
	if convs[0].LastMessage.Content != "from b" || convs[1].UnreadCount != 1 {
		t.Fatalf("unexpected summaries: %+v", convs)
	}
}
