package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/api"
	"github.com/lalith-99/guardpost/internal/db"
	"github.com/lalith-99/guardpost/internal/present"
	"github.com/lalith-99/guardpost/internal/realtime"
	"github.com/lalith-99/guardpost/internal/repository/sqlite"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

const secret = "api-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	registry *realtime.Registry
}

type fixedCounter struct{ n int64 }

func (f *fixedCounter) Increment(context.Context, string) (int64, error) {
	f.n++
	return f.n, nil
}

func (f *fixedCounter) Expire(context.Context, string, time.Duration) error {
	return nil
}

func newServer(t *testing.T, limiter *fixedCounter, limit int) *testServer {
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

	logger := zap.NewNop()
	store := sqlite.NewStore(d.Conn())
	presenter := present.New(store.Users, store.Jobs)
	registry := realtime.NewRegistry(logger)
	publisher := realtime.NewMessagePublisher(presenter, realtime.NewLocalBroker(registry))

	deps := api.Deps{
		DB:               d,
		Users:            service.NewUserService(store.Users, logger),
		Jobs:             service.NewJobService(store.Jobs, logger),
		Messages:         service.NewMessageService(store.Messages, store.Users, store.Jobs, publisher, logger),
		Reviews:          service.NewReviewService(store.Reviews, store.Jobs, logger),
		Presenter:        presenter,
		Realtime:         realtime.NewServer(registry, realtime.DefaultConnConfig(), logger),
		Logger:           logger,
		JWTSecret:        secret,
		TokenTTL:         time.Hour,
		CORSOrigin:       "*",
		MessageRateLimit: limit,
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	return &testServer{router: api.SetupRouter(deps), registry: registry}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			raw = string(b)
		}
		buf.WriteString(raw)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

type account struct {
	token string
	id    uuid.UUID
}

func (s *testServer) register(t *testing.T, name, role string) account {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":     name + "@example.com",
		"password":  "password123",
		"firstName": name,
		"lastName":  "Tester",
		"role":      role,
	})
	expectStatus(t, w, http.StatusCreated)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatalf("register returned no token")
	}
	return account{token: resp.Token, id: resp.User.ID}
}

func jobBody() map[string]any {
	return map[string]any{
		"title":       "Warehouse night watch",
		"description": "Patrol the loading bays",
		"location":    map[string]any{"type": "Point", "coordinates": []float64{2.35, 48.85}},
		"duration": map[string]any{
			"startDate":   "2030-01-10T00:00:00Z",
			"endDate":     "2030-01-20T00:00:00Z",
			"hoursPerDay": 8,
		},
		"shiftDetails":   map[string]any{"startTime": "22:00", "endTime": "06:00", "daysOfWeek": []string{"Monday"}},
		"securityType":   "construction",
		"numberOfGuards": 1,
		"rate":           map[string]any{"amount": 18.5, "paymentSchedule": "hourly"},
	}
}

type jobResponse struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Status string    `json:"status"`
	Client struct {
		ID        uuid.UUID `json:"id"`
		FirstName string    `json:"firstName"`
	} `json:"client"`
	SelectedGuard *struct {
		ID uuid.UUID `json:"id"`
	} `json:"selectedGuard"`
	Rating *struct {
		Score float64 `json:"score"`
	} `json:"rating"`
}

func (s *testServer) postJob(t *testing.T, client account) jobResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/jobs", client.token, jobBody())
	expectStatus(t, w, http.StatusCreated)
	var j jobResponse
	decode(t, w, &j)
	return j
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil, 0)
	w := s.do(t, http.MethodGet, "/v1/health", "", nil)
	expectStatus(t, w, http.StatusOK)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t, nil, 0)
	s.register(t, "ada", "client")

	t.Run("duplicate email", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
			"email": "ADA@example.com", "password": "password123",
			"firstName": "Ada", "lastName": "Again", "role": "guard",
		})
		expectStatus(t, w, http.StatusConflict)
	})

	t.Run("short password", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
			"email": "bob@example.com", "password": "short",
			"firstName": "Bob", "lastName": "B", "role": "guard",
		})
		expectStatus(t, w, http.StatusBadRequest)
	})

	t.Run("login", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "ada@example.com", "password": "password123",
		})
		expectStatus(t, w, http.StatusOK)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "ada@example.com", "password": "not-the-password",
		})
		expectStatus(t, w, http.StatusUnauthorized)
		var body map[string]string
		decode(t, w, &body)
		if body["code"] != "unauthenticated" {
			t.Fatalf("unexpected code: %v", body)
		}
	})
}

func TestUpdateMe(t *testing.T) {
	s := newServer(t, nil, 0)
	g := s.register(t, "grace", "guard")

	w := s.do(t, http.MethodPut, "/v1/users/me", g.token, map[string]string{"phoneNumber": "555-0100"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPut, "/v1/users/me", g.token, map[string]string{"role": "client"})
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodGet, "/v1/users/me", g.token, nil)
	expectStatus(t, w, http.StatusOK)
	var me struct {
		Role        string `json:"role"`
		PhoneNumber string `json:"phoneNumber"`
	}
	decode(t, w, &me)
	if me.Role != "guard" || me.PhoneNumber != "555-0100" {
		t.Fatalf("unexpected profile: %+v", me)
	}
}

func TestJobWorkflowOverHTTP(t *testing.T) {
	s := newServer(t, nil, 0)
	client := s.register(t, "carol", "client")
	g1 := s.register(t, "gus", "guard")
	g2 := s.register(t, "gina", "guard")

	j := s.postJob(t, client)
	if j.Status != "open" || j.Client.ID != client.id || j.Client.FirstName != "carol" {
		t.Fatalf("unexpected job: %+v", j)
	}
	base := "/v1/jobs/" + j.ID.String()

	for _, g := range []account{g1, g2} {
		w := s.do(t, http.MethodPost, base+"/apply", g.token, nil)
		expectStatus(t, w, http.StatusOK)
	}

	w := s.do(t, http.MethodGet, base+"/applications", client.token, nil)
	expectStatus(t, w, http.StatusOK)
	var applicants []struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	}
	decode(t, w, &applicants)
	if len(applicants) != 2 || applicants[0].ID != g1.id || applicants[1].Email != "gina@example.com" {
		t.Fatalf("unexpected applicants: %+v", applicants)
	}

	w = s.do(t, http.MethodPost, base+"/hire", client.token, map[string]string{"guardId": g2.id.String()})
	expectStatus(t, w, http.StatusOK)
	var hired jobResponse
	decode(t, w, &hired)
	if hired.Status != "in-progress" || hired.SelectedGuard == nil || hired.SelectedGuard.ID != g2.id {
		t.Fatalf("unexpected hire result: %+v", hired)
	}

	w = s.do(t, http.MethodPost, base+"/rate", client.token, map[string]any{"score": 4})
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPost, base+"/complete", client.token, nil)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPost, base+"/rate", client.token, map[string]any{"score": 4, "comment": "solid"})
	expectStatus(t, w, http.StatusOK)
	var rated jobResponse
	decode(t, w, &rated)
	if rated.Status != "completed" || rated.Rating == nil || rated.Rating.Score != 4 {
		t.Fatalf("unexpected rate result: %+v", rated)
	}

	g3 := s.register(t, "gil", "guard")
	w = s.do(t, http.MethodPost, base+"/apply", g3.token, nil)
	expectStatus(t, w, http.StatusBadRequest)
	var failure map[string]string
	decode(t, w, &failure)
	if failure["code"] != "conflict" {
		t.Fatalf("expected conflict code, got %v", failure)
	}

	w = s.do(t, http.MethodGet, "/v1/jobs?status=completed&selectedGuard="+g2.id.String(), "", nil)
	expectStatus(t, w, http.StatusOK)
	var listed []jobResponse
	decode(t, w, &listed)
	if len(listed) != 1 || listed[0].ID != j.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}
}

func TestHireByPathRejectsNonApplicant(t *testing.T) {
	s := newServer(t, nil, 0)
	client := s.register(t, "carol", "client")
	g := s.register(t, "gus", "guard")
	j := s.postJob(t, client)

	w := s.do(t, http.MethodPost, "/v1/jobs/"+j.ID.String()+"/hire/"+g.id.String(), client.token, nil)
	expectStatus(t, w, http.StatusBadRequest)
	var body map[string]string
	decode(t, w, &body)
	if body["error"] != "guard did not apply for this job" || body["code"] != "validation" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUpdateUnknownFieldLeavesJobUnchanged(t *testing.T) {
	s := newServer(t, nil, 0)
	client := s.register(t, "carol", "client")
	j := s.postJob(t, client)
	path := "/v1/jobs/" + j.ID.String()

	w := s.do(t, http.MethodPut, path, client.token, `{"title":"Renamed","status":"completed"}`)
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodGet, path, "", nil)
	expectStatus(t, w, http.StatusOK)
	var got jobResponse
	decode(t, w, &got)
	if got.Title != "Warehouse night watch" || got.Status != "open" {
		t.Fatalf("job changed after rejected update: %+v", got)
	}

	w = s.do(t, http.MethodPut, path, client.token, `{"title":"Renamed"}`)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &got)
	if got.Title != "Renamed" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestJobAccessControl(t *testing.T) {
	s := newServer(t, nil, 0)
	owner := s.register(t, "carol", "client")
	other := s.register(t, "cleo", "client")
	g := s.register(t, "gus", "guard")
	j := s.postJob(t, owner)
	path := "/v1/jobs/" + j.ID.String()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodPost, "/v1/jobs", "", http.StatusUnauthorized},
		{"guard cannot post", http.MethodPost, "/v1/jobs", g.token, http.StatusForbidden},
		{"client cannot apply", http.MethodPost, path + "/apply", owner.token, http.StatusForbidden},
		{"non-owner cannot delete", http.MethodDelete, path, other.token, http.StatusForbidden},
		{"missing job", http.MethodGet, "/v1/jobs/" + uuid.NewString(), "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/v1/jobs/not-a-uuid", "", http.StatusBadRequest},
		{"owner deletes", http.MethodDelete, path, owner.token, http.StatusOK},
		{"gone after delete", http.MethodGet, path, "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body any
			if tc.method == http.MethodPost && tc.path == "/v1/jobs" {
				body = jobBody()
			}
			w := s.do(t, tc.method, tc.path, tc.token, body)
			expectStatus(t, w, tc.want)
		})
	}
}

func TestSendMessagePushesToReceiverSessions(t *testing.T) {
	s := newServer(t, nil, 0)
	alice := s.register(t, "alice", "client")
	bob := s.register(t, "bob", "guard")

	sess := realtime.NewSession(bob.id, 4)
	s.registry.Join(sess)
	defer s.registry.Leave(sess)

	w := s.do(t, http.MethodPost, "/v1/messages", alice.token, map[string]string{
		"receiverId": bob.id.String(),
		"content":    "  are you free friday?  ",
	})
	expectStatus(t, w, http.StatusCreated)
	var sent struct {
		Content string `json:"content"`
		Sender  struct {
			FirstName string `json:"firstName"`
		} `json:"sender"`
	}
	decode(t, w, &sent)
	if sent.Content != "are you free friday?" || sent.Sender.FirstName != "alice" {
		t.Fatalf("unexpected message: %+v", sent)
	}

	select {
	case ev := <-sess.Events():
		if ev.Type != realtime.EventNewMessage {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
		view, ok := ev.Data.(*present.MessageView)
		if !ok || view.Receiver.ID != bob.id {
			t.Fatalf("unexpected event data: %#v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver session got no event")
	}

	w = s.do(t, http.MethodGet, "/v1/messages/conversations", bob.token, nil)
	expectStatus(t, w, http.StatusOK)
	var convs []struct {
		CounterpartyID uuid.UUID `json:"counterpartyId"`
		UnreadCount    int       `json:"unreadCount"`
	}
	decode(t, w, &convs)
	if len(convs) != 1 || convs[0].CounterpartyID != alice.id || convs[0].UnreadCount != 1 {
		t.Fatalf("unexpected conversations: %+v", convs)
	}

	w = s.do(t, http.MethodGet, "/v1/messages/conversation/"+alice.id.String(), bob.token, nil)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPut, "/v1/messages/read/"+alice.id.String(), bob.token, nil)
	expectStatus(t, w, http.StatusOK)
	var marked struct {
		Updated int64 `json:"updated"`
	}
	decode(t, w, &marked)
	if marked.Updated != 0 {
		t.Fatalf("conversation fetch should already have marked messages read, updated=%d", marked.Updated)
	}
}

func TestSendMessageValidation(t *testing.T) {
	s := newServer(t, nil, 0)
	alice := s.register(t, "alice", "client")

	w := s.do(t, http.MethodPost, "/v1/messages", alice.token, map[string]string{
		"receiverId": uuid.NewString(), "content": "hello",
	})
	expectStatus(t, w, http.StatusNotFound)

	w = s.do(t, http.MethodPost, "/v1/messages", alice.token, map[string]string{"content": "hello"})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestSendMessageAboutJob(t *testing.T) {
	s := newServer(t, nil, 0)
	alice := s.register(t, "alice", "client")
	bob := s.register(t, "bob", "guard")
	j := s.postJob(t, alice)

	w := s.do(t, http.MethodPost, "/v1/messages", alice.token, map[string]string{
		"receiverId": bob.id.String(),
		"content":    "about the warehouse shift",
		"jobId":      j.ID.String(),
	})
	expectStatus(t, w, http.StatusCreated)
	var sent struct {
		Receiver struct {
			ID uuid.UUID `json:"id"`
		} `json:"receiver"`
		Job *struct {
			ID    uuid.UUID `json:"id"`
			Title string    `json:"title"`
		} `json:"job"`
	}
	decode(t, w, &sent)
	if sent.Receiver.ID != bob.id || sent.Job == nil || sent.Job.ID != j.ID || sent.Job.Title != "Warehouse night watch" {
		t.Fatalf("unexpected message: %s", w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/v1/messages", alice.token, map[string]string{
		"receiverId": bob.id.String(),
		"content":    "hello",
		"jobId":      uuid.NewString(),
	})
	expectStatus(t, w, http.StatusNotFound)
}

func TestSendMessageRateLimit(t *testing.T) {
	s := newServer(t, &fixedCounter{}, 1)
	alice := s.register(t, "alice", "client")
	bob := s.register(t, "bob", "guard")
	body := map[string]string{"receiverId": bob.id.String(), "content": "hi"}

	expectStatus(t, s.do(t, http.MethodPost, "/v1/messages", alice.token, body), http.StatusCreated)
	w := s.do(t, http.MethodPost, "/v1/messages", alice.token, body)
	expectStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestReviews(t *testing.T) {
	s := newServer(t, nil, 0)
	client := s.register(t, "carol", "client")
	g := s.register(t, "gus", "guard")
	j := s.postJob(t, client)

	w := s.do(t, http.MethodGet, "/v1/reviews/user/"+client.id.String(), g.token, nil)
	expectStatus(t, w, http.StatusOK)
	var empty struct {
		Reviews       []any   `json:"reviews"`
		AverageRating float64 `json:"averageRating"`
		TotalReviews  int     `json:"totalReviews"`
	}
	decode(t, w, &empty)
	if empty.Reviews == nil || len(empty.Reviews) != 0 || empty.AverageRating != 0 || empty.TotalReviews != 0 {
		t.Fatalf("unexpected empty summary: %s", w.Body.String())
	}

	review := map[string]any{"jobId": j.ID.String(), "score": 5, "comment": "paid on time"}
	w = s.do(t, http.MethodPost, "/v1/reviews", g.token, review)
	expectStatus(t, w, http.StatusCreated)
	var created struct {
		ID       uuid.UUID `json:"id"`
		Reviewed struct {
			ID uuid.UUID `json:"id"`
		} `json:"reviewed"`
	}
	decode(t, w, &created)
	if created.Reviewed.ID != client.id {
		t.Fatalf("review should target the job's client: %+v", created)
	}

	w = s.do(t, http.MethodPost, "/v1/reviews", g.token, review)
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPut, "/v1/reviews/"+created.ID.String(), client.token, map[string]any{"rating": 1, "comment": "x"})
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(t, http.MethodPut, "/v1/reviews/"+created.ID.String(), g.token, map[string]any{"score": 3, "comment": "late once"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/v1/reviews/job/"+j.ID.String(), g.token, nil)
	expectStatus(t, w, http.StatusOK)
	var summary struct {
		AverageRating float64 `json:"averageRating"`
		TotalReviews  int     `json:"totalReviews"`
	}
	decode(t, w, &summary)
	if summary.TotalReviews != 1 || summary.AverageRating != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	w = s.do(t, http.MethodDelete, "/v1/reviews/"+created.ID.String(), g.token, nil)
	expectStatus(t, w, http.StatusOK)
	w = s.do(t, http.MethodDelete, "/v1/reviews/"+created.ID.String(), g.token, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = s.do(t, http.MethodPost, "/v1/reviews", g.token, map[string]any{"job": j.ID.String(), "score": 4, "comment": "x"})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestCreateReviewAcceptsRatingKey(t *testing.T) {
	s := newServer(t, nil, 0)
	client := s.register(t, "carol", "client")
	g := s.register(t, "gus", "guard")
	j := s.postJob(t, client)

	w := s.do(t, http.MethodPost, "/v1/reviews", g.token, map[string]any{"jobId": j.ID.String(), "rating": 2, "comment": "slow to pay"})
	expectStatus(t, w, http.StatusCreated)
	var created struct {
		Rating int `json:"rating"`
	}
	decode(t, w, &created)
	if created.Rating != 2 {
		t.Fatalf("expected rating 2, got %d", created.Rating)
	}

	w = s.do(t, http.MethodPost, "/v1/reviews", client.token, map[string]any{"jobId": j.ID.String(), "comment": "no score"})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestWebsocketRequiresToken(t *testing.T) {
	s := newServer(t, nil, 0)
	expectStatus(t, s.do(t, http.MethodGet, "/ws", "", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodGet, "/ws?token=garbage", "", nil), http.StatusUnauthorized)
}
