package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/guardpost/internal/repository"
)

// NewStore wires every Postgres repository onto one pool. The pool is
// goroutine-safe, so sharing it is fine.
func NewStore(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Users:    NewUserStore(pool),
		Jobs:     NewJobStore(pool),
		Messages: NewMessageStore(pool),
		Reviews:  NewReviewStore(pool),
	}
}
