package realtime

import (
	"sync"

	"github.com/google/uuid"
)

const defaultSendBuffer = 64

// Session is one connection's outbound queue.
type Session struct {
	UserID uuid.UUID

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(userID uuid.UUID, buffer int) *Session {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Session{
		UserID: userID,
		send:   make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Enqueue never blocks. It reports false when the session is closed or its
// buffer is full; the event is dropped in both cases.
func (s *Session) Enqueue(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) Events() <-chan Event {
	return s.send
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
