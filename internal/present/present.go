// Package present turns stored records into response views.
//
// Records hold bare ids for users and jobs. A Presenter batch-loads the
// referenced rows once per call and fills in display fields, so a page of
// fifty jobs costs two queries, not a hundred. A reference whose row is
// gone renders with its id only.
package present

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"github.com/lalith-99/guardpost/internal/service"
)

type UserRef struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

type JobRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type JobView struct {
	ID             uuid.UUID           `json:"id"`
	Client         UserRef             `json:"client"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Location       models.Location     `json:"location"`
	Requirements   []string            `json:"requirements"`
	Duration       models.Duration     `json:"duration"`
	ShiftDetails   models.ShiftDetails `json:"shiftDetails"`
	SecurityType   models.SecurityType `json:"securityType"`
	NumberOfGuards int                 `json:"numberOfGuards"`
	Rate           models.Rate         `json:"rate"`
	Status         models.JobStatus    `json:"status"`
	Applications   []UserRef           `json:"applications"`
	SelectedGuard  *UserRef            `json:"selectedGuard,omitempty"`
	Rating         *models.Rating      `json:"rating,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// ApplicantView is what a job's owner sees about each applicant.
type ApplicantView struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
}

type MessageView struct {
	ID        int64     `json:"id"`
	Sender    UserRef   `json:"sender"`
	Receiver  UserRef   `json:"receiver"`
	Content   string    `json:"content"`
	Job       *JobRef   `json:"job,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type Counterparty struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type ConversationView struct {
	CounterpartyID uuid.UUID      `json:"counterpartyId"`
	User           Counterparty   `json:"user"`
	LastMessage    models.Message `json:"lastMessage"`
	UnreadCount    int            `json:"unreadCount"`
}

type ReviewView struct {
	ID        uuid.UUID `json:"id"`
	Reviewer  UserRef   `json:"reviewer"`
	Reviewed  UserRef   `json:"reviewed"`
	Job       JobRef    `json:"job"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ReviewSummaryView struct {
	Reviews       []ReviewView `json:"reviews"`
	AverageRating float64      `json:"averageRating"`
	TotalReviews  int          `json:"totalReviews"`
}

type Presenter struct {
	users repository.UserRepository
	jobs  repository.JobRepository
}

func New(users repository.UserRepository, jobs repository.JobRepository) *Presenter {
	return &Presenter{users: users, jobs: jobs}
}

type userSet map[uuid.UUID]models.User

func (s userSet) ref(id uuid.UUID) UserRef {
	u, ok := s[id]
	if !ok {
		return UserRef{ID: id}
	}
	return UserRef{ID: id, FirstName: u.FirstName, LastName: u.LastName}
}

type jobSet map[uuid.UUID]models.Job

func (s jobSet) ref(id uuid.UUID) JobRef {
	return JobRef{ID: id, Title: s[id].Title}
}

// loadUsers fetches every distinct id in one query.
func (p *Presenter) loadUsers(ctx context.Context, ids []uuid.UUID) (userSet, error) {
	users, err := p.users.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	out := make(userSet, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (p *Presenter) loadJobs(ctx context.Context, ids []uuid.UUID) (jobSet, error) {
	jobs, err := p.jobs.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	out := make(jobSet, len(jobs))
	for _, j := range jobs {
		out[j.ID] = j
	}
	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (p *Presenter) Jobs(ctx context.Context, jobs []models.Job) ([]JobView, error) {
	var ids []uuid.UUID
	for _, j := range jobs {
		ids = append(ids, j.ClientID)
		ids = append(ids, j.Applications...)
		if j.SelectedGuard != nil {
			ids = append(ids, *j.SelectedGuard)
		}
	}
	users, err := p.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]JobView, len(jobs))
	for i := range jobs {
		out[i] = jobView(&jobs[i], users)
	}
	return out, nil
}

func (p *Presenter) Job(ctx context.Context, j *models.Job) (*JobView, error) {
	views, err := p.Jobs(ctx, []models.Job{*j})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func jobView(j *models.Job, users userSet) JobView {
	v := JobView{
		ID:             j.ID,
		Client:         users.ref(j.ClientID),
		Title:          j.Title,
		Description:    j.Description,
		Location:       j.Location,
		Requirements:   j.Requirements,
		Duration:       j.Duration,
		ShiftDetails:   j.ShiftDetails,
		SecurityType:   j.SecurityType,
		NumberOfGuards: j.NumberOfGuards,
		Rate:           j.Rate,
		Status:         j.Status,
		Applications:   make([]UserRef, len(j.Applications)),
		Rating:         j.Rating,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
	for i, id := range j.Applications {
		v.Applications[i] = users.ref(id)
	}
	if j.SelectedGuard != nil {
		ref := users.ref(*j.SelectedGuard)
		v.SelectedGuard = &ref
	}
	return v
}

// Applicants keeps the order of ids and skips accounts that no longer exist.
func (p *Presenter) Applicants(ctx context.Context, ids []uuid.UUID) ([]ApplicantView, error) {
	users, err := p.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicantView, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			continue
		}
		out = append(out, ApplicantView{
			ID:          u.ID,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			Email:       u.Email,
			PhoneNumber: u.PhoneNumber,
		})
	}
	return out, nil
}

func (p *Presenter) Messages(ctx context.Context, messages []models.Message) ([]MessageView, error) {
	var userIDs, jobIDs []uuid.UUID
	for _, m := range messages {
		userIDs = append(userIDs, m.SenderID, m.ReceiverID)
		if m.JobID != nil {
			jobIDs = append(jobIDs, *m.JobID)
		}
	}
	users, err := p.loadUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	jobs, err := p.loadJobs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	out := make([]MessageView, len(messages))
	for i, m := range messages {
		out[i] = MessageView{
			ID:        m.ID,
			Sender:    users.ref(m.SenderID),
			Receiver:  users.ref(m.ReceiverID),
			Content:   m.Content,
			Read:      m.Read,
			CreatedAt: m.CreatedAt,
		}
		if m.JobID != nil {
			ref := jobs.ref(*m.JobID)
			out[i].Job = &ref
		}
	}
	return out, nil
}

func (p *Presenter) Message(ctx context.Context, m *models.Message) (*MessageView, error) {
	views, err := p.Messages(ctx, []models.Message{*m})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (p *Presenter) Conversations(ctx context.Context, summaries []models.ConversationSummary) ([]ConversationView, error) {
	ids := make([]uuid.UUID, len(summaries))
	for i, c := range summaries {
		ids[i] = c.CounterpartyID
	}
	users, err := p.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationView, len(summaries))
	for i, c := range summaries {
		u := users[c.CounterpartyID]
		out[i] = ConversationView{
			CounterpartyID: c.CounterpartyID,
			User:           Counterparty{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email},
			LastMessage:    c.LastMessage,
			UnreadCount:    c.UnreadCount,
		}
	}
	return out, nil
}

func (p *Presenter) Reviews(ctx context.Context, reviews []models.Review) ([]ReviewView, error) {
	var userIDs, jobIDs []uuid.UUID
	for _, r := range reviews {
		userIDs = append(userIDs, r.ReviewerID, r.ReviewedID)
		jobIDs = append(jobIDs, r.JobID)
	}
	users, err := p.loadUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	jobs, err := p.loadJobs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ReviewView, len(reviews))
	for i, r := range reviews {
		out[i] = ReviewView{
			ID:        r.ID,
			Reviewer:  users.ref(r.ReviewerID),
			Reviewed:  users.ref(r.ReviewedID),
			Job:       jobs.ref(r.JobID),
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return out, nil
}

func (p *Presenter) Review(ctx context.Context, r *models.Review) (*ReviewView, error) {
	views, err := p.Reviews(ctx, []models.Review{*r})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (p *Presenter) ReviewSummary(ctx context.Context, s *service.ReviewSummary) (*ReviewSummaryView, error) {
	views, err := p.Reviews(ctx, s.Reviews)
	if err != nil {
		return nil, err
	}
	return &ReviewSummaryView{Reviews: views, AverageRating: s.AverageRating, TotalReviews: s.TotalReviews}, nil
}
