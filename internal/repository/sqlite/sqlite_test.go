package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/db"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"github.com/lalith-99/guardpost/internal/repository/sqlite"
)

func newStore(t *testing.T) repository.Store {
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
	return sqlite.NewStore(d.Conn())
}

func mustUser(t *testing.T, s repository.Store, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FirstName: "F", LastName: "L", Role: role}
	if err := s.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustJob(t *testing.T, s repository.Store, clientID uuid.UUID) *models.Job {
	t.Helper()
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	j := &models.Job{
		ClientID:       clientID,
		Title:          "Night watch",
		Description:    "Warehouse patrol",
		Location:       models.Location{Type: "Point", Coordinates: []float64{-73.9, 40.7}},
		Requirements:   []string{"licensed"},
		Duration:       models.Duration{StartDate: start, EndDate: start.Add(48 * time.Hour), HoursPerDay: 8},
		ShiftDetails:   models.ShiftDetails{StartTime: "22:00", EndTime: "06:00", DaysOfWeek: []string{"Monday"}},
		SecurityType:   models.SecurityCorporate,
		NumberOfGuards: 2,
		Rate:           models.Rate{Amount: 25, Currency: "USD", PaymentSchedule: models.PayHourly},
		Status:         models.JobStatusOpen,
	}
	if err := s.Jobs.Create(context.Background(), j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	s := newStore(t)
	mustUser(t, s, "a@example.com", models.RoleClient)

	err := s.Users.Create(context.Background(), &models.User{
		Email: "a@example.com", PasswordHash: "x", FirstName: "F", LastName: "L", Role: models.RoleGuard,
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserStore_GetMissing(t *testing.T) {
	s := newStore(t)
	u, err := s.Users.GetByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil user, got %+v", u)
	}
}

func TestJobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	client := mustUser(t, s, "c@example.com", models.RoleClient)
	guard := mustUser(t, s, "g@example.com", models.RoleGuard)
	j := mustJob(t, s, client.ID)

	got, err := s.Jobs.GetByID(ctx, j.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Title != j.Title || got.Location.Coordinates[1] != 40.7 || got.Requirements[0] != "licensed" {
		t.Fatalf("unexpected job: %+v", got)
	}
	if !got.Duration.StartDate.Equal(j.Duration.StartDate) {
		t.Fatalf("start date mismatch: %v vs %v", got.Duration.StartDate, j.Duration.StartDate)
	}
	if got.SelectedGuard != nil || got.Rating != nil {
		t.Fatalf("expected no selection or rating")
	}

	got.Status = models.JobStatusInProgress
	got.SelectedGuard = &guard.ID
	got.Rating = &models.Rating{Score: 4.5, Comment: "good", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.Jobs.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := s.Jobs.GetByID(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.Status != models.JobStatusInProgress || again.SelectedGuard == nil || *again.SelectedGuard != guard.ID {
		t.Fatalf("selection not persisted: %+v", again)
	}
	if again.Rating == nil || again.Rating.Score != 4.5 || again.Rating.Comment != "good" {
		t.Fatalf("rating not persisted: %+v", again.Rating)
	}
}

func TestJobStore_ApplicationsOrderedAndIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	client := mustUser(t, s, "c@example.com", models.RoleClient)
	g1 := mustUser(t, s, "g1@example.com", models.RoleGuard)
	g2 := mustUser(t, s, "g2@example.com", models.RoleGuard)
	j := mustJob(t, s, client.ID)

	for _, id := range []uuid.UUID{g2.ID, g1.ID, g2.ID} {
		if err := s.Jobs.AddApplication(ctx, j.ID, id); err != nil {
			t.Fatalf("AddApplication: %v", err)
		}
	}

	got, _ := s.Jobs.GetByID(ctx, j.ID)
	if len(got.Applications) != 2 || got.Applications[0] != g2.ID || got.Applications[1] != g1.ID {
		t.Fatalf("unexpected applications: %v", got.Applications)
	}
}

func TestJobStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c1 := mustUser(t, s, "c1@example.com", models.RoleClient)
	c2 := mustUser(t, s, "c2@example.com", models.RoleClient)
	mustJob(t, s, c1.ID)
	j2 := mustJob(t, s, c2.ID)
	j2.Status = models.JobStatusCompleted
	if err := s.Jobs.Save(ctx, j2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := s.Jobs.List(ctx, models.JobFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("List all: %d %v", len(all), err)
	}

	open := models.JobStatusOpen
	byStatus, _ := s.Jobs.List(ctx, models.JobFilter{Status: &open})
	if len(byStatus) != 1 || byStatus[0].ClientID != c1.ID {
		t.Fatalf("status filter: %+v", byStatus)
	}

	byClient, _ := s.Jobs.List(ctx, models.JobFilter{ClientID: &c2.ID})
	if len(byClient) != 1 || byClient[0].ID != j2.ID {
		t.Fatalf("client filter: %+v", byClient)
	}
}

func TestJobStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	client := mustUser(t, s, "c@example.com", models.RoleClient)
	guard := mustUser(t, s, "g@example.com", models.RoleGuard)
	j := mustJob(t, s, client.ID)
	_ = s.Jobs.AddApplication(ctx, j.ID, guard.ID)

	if err := s.Jobs.Delete(ctx, j.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Jobs.Delete(ctx, j.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	got, _ := s.Jobs.GetByID(ctx, j.ID)
	if got != nil {
		t.Fatalf("job still present")
	}
}

func TestMessageStore_Conversations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := mustUser(t, s, "a@example.com", models.RoleClient)
	b := mustUser(t, s, "b@example.com", models.RoleGuard)
	c := mustUser(t, s, "c@example.com", models.RoleGuard)

	send := func(from, to uuid.UUID, content string) {
		t.Helper()
		if err := s.Messages.Create(ctx, &models.Message{SenderID: from, ReceiverID: to, Content: content}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	send(b.ID, a.ID, "hi from b")
	send(b.ID, a.ID, "again from b")
	send(a.ID, c.ID, "hello c")

	convs, err := s.Messages.Conversations(ctx, a.ID)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].CounterpartyID != c.ID || convs[0].UnreadCount != 0 {
		t.Fatalf("newest conversation should be with c: %+v", convs[0])
	}
	if convs[1].CounterpartyID != b.ID || convs[1].UnreadCount != 2 || convs[1].LastMessage.Content != "again from b" {
		t.Fatalf("unexpected b conversation: %+v", convs[1])
	}

	n, err := s.Messages.MarkRead(ctx, b.ID, a.ID)
	if err != nil || n != 2 {
		t.Fatalf("MarkRead: %d %v", n, err)
	}
	n, _ = s.Messages.MarkRead(ctx, b.ID, a.ID)
	if n != 0 {
		t.Fatalf("second MarkRead changed %d rows", n)
	}

	msgs, err := s.Messages.ListBetween(ctx, a.ID, b.ID)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("ListBetween: %d %v", len(msgs), err)
	}
	if msgs[0].Content != "hi from b" || !msgs[0].Read {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
}

func TestReviewStore_UniquePerReviewerAndJob(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	client := mustUser(t, s, "c@example.com", models.RoleClient)
	guard := mustUser(t, s, "g@example.com", models.RoleGuard)
	j := mustJob(t, s, client.ID)

	r := &models.Review{ReviewerID: client.ID, ReviewedID: guard.ID, JobID: j.ID, Rating: 5, Comment: "great"}
	if err := s.Reviews.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &models.Review{ReviewerID: client.ID, ReviewedID: guard.ID, JobID: j.ID, Rating: 3, Comment: "again"}
	if err := s.Reviews.Create(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	r.Rating = 4
	if err := s.Reviews.Update(ctx, r); err != nil {
		t.Fatalf("Update: %v", err)
	}
	list, err := s.Reviews.ListByReviewed(ctx, guard.ID)
	if err != nil || len(list) != 1 || list[0].Rating != 4 {
		t.Fatalf("ListByReviewed: %+v %v", list, err)
	}

	if err := s.Reviews.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := s.Reviews.GetByID(ctx, r.ID)
	if got != nil {
		t.Fatalf("review still present")
	}
}
