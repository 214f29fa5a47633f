package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lalith-99/guardpost/internal/db"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"github.com/lalith-99/guardpost/internal/repository/sqlite"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

type env struct {
	store     repository.Store
	users     *service.UserService
	jobs      *service.JobService
	messages  *service.MessageService
	reviews   *service.ReviewService
	published *recordingPublisher
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.Message
	err  error
}

func (p *recordingPublisher) PublishMessage(_ context.Context, m *models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, *m)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	d, err := db.OpenSQLite(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	store := sqlite.NewStore(d.Conn())
	logger := zap.NewNop()
	pub := &recordingPublisher{}
	return &env{
		store:     store,
		users:     service.NewUserService(store.Users, logger),
		jobs:      service.NewJobService(store.Jobs, logger),
		messages:  service.NewMessageService(store.Messages, store.Users, store.Jobs, pub, logger),
		reviews:   service.NewReviewService(store.Reviews, store.Jobs, logger),
		published: pub,
	}
}

func (e *env) register(t *testing.T, name string, role models.Role) service.Actor {
	t.Helper()
	u, err := e.users.Register(context.Background(), service.Registration{
		Email:     name + "@example.com",
		Password:  "password123",
		FirstName: name,
		LastName:  "Tester",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return service.Actor{UserID: u.ID, Role: u.Role}
}

func draftJob() models.Job {
	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	return models.Job{
		Title:          "Event security",
		Description:    "Concert crowd control",
		Location:       models.Location{Type: "Point", Coordinates: []float64{-0.12, 51.5}},
		Requirements:   []string{"SIA licence"},
		Duration:       models.Duration{StartDate: start, EndDate: start.Add(24 * time.Hour), HoursPerDay: 10},
		ShiftDetails:   models.ShiftDetails{StartTime: "18:00", EndTime: "04:00", DaysOfWeek: []string{"Friday", "Saturday"}},
		SecurityType:   models.SecurityEvent,
		NumberOfGuards: 4,
		Rate:           models.Rate{Amount: 20, PaymentSchedule: models.PayHourly},
	}
}

func (e *env) postJob(t *testing.T, client service.Actor) *models.Job {
	t.Helper()
	j, err := e.jobs.Create(context.Background(), client, draftJob())
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func ptr[T any](v T) *T { return &v }
