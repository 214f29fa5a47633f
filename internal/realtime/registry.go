package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the set of joined sessions per user. It is safe for
// concurrent use; construct one per process and inject it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*Session]struct{}
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[uuid.UUID]map[*Session]struct{}),
		logger:   logger,
	}
}

func (r *Registry) Join(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[s.UserID] = set
	}
	set[s] = struct{}{}
}

// Leave removes s. The user's key goes away with their last session.
func (r *Registry) Leave(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.UserID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, s.UserID)
	}
}

// Sessions returns a snapshot of userID's sessions.
func (r *Registry) Sessions(userID uuid.UUID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[userID]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Broadcast enqueues ev on every session of userID and returns how many
// accepted it. Sessions with a full buffer miss the event.
func (r *Registry) Broadcast(userID uuid.UUID, ev Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for s := range r.sessions[userID] {
		if s.Enqueue(ev) {
			delivered++
			continue
		}
		r.logger.Debug("dropped event for slow session",
			zap.String("user_id", userID.String()),
			zap.String("type", ev.Type),
		)
	}
	return delivered
}

// Count is the number of joined sessions of userID.
func (r *Registry) Count(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID])
}

// Online is the number of users with at least one session.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
