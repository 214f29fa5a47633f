package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

type SecurityType string

const (
	SecurityEvent        SecurityType = "event"
	SecurityConstruction SecurityType = "construction"
	SecurityRetail       SecurityType = "retail"
	SecurityCorporate    SecurityType = "corporate"
	SecurityOther        SecurityType = "other"
)

func (t SecurityType) Valid() bool {
	switch t {
	case SecurityEvent, SecurityConstruction, SecurityRetail, SecurityCorporate, SecurityOther:
		return true
	}
	return false
}

type PaymentSchedule string

const (
	PayHourly PaymentSchedule = "hourly"
	PayDaily  PaymentSchedule = "daily"
	PayWeekly PaymentSchedule = "weekly"
)

func (p PaymentSchedule) Valid() bool {
	return p == PayHourly || p == PayDaily || p == PayWeekly
}

// Weekdays accepted in ShiftDetails.DaysOfWeek.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Location is a GeoJSON-style point: Coordinates is [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type Duration struct {
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	HoursPerDay float64   `json:"hoursPerDay"`
}

type ShiftDetails struct {
	StartTime  string   `json:"startTime"`
	EndTime    string   `json:"endTime"`
	DaysOfWeek []string `json:"daysOfWeek"`
}

type Rate struct {
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentSchedule PaymentSchedule `json:"paymentSchedule"`
}

type Rating struct {
	Score     float64   `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Job is a posted staffing request.
//
// Reference fields (ClientID, Applications, SelectedGuard) hold bare ids.
// Turning them into names is the presenter's job, not the model's.
type Job struct {
	ID             uuid.UUID    `json:"id"`
	ClientID       uuid.UUID    `json:"client"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Location       Location     `json:"location"`
	Requirements   []string     `json:"requirements"`
	Duration       Duration     `json:"duration"`
	ShiftDetails   ShiftDetails `json:"shiftDetails"`
	SecurityType   SecurityType `json:"securityType"`
	NumberOfGuards int          `json:"numberOfGuards"`
	Rate           Rate         `json:"rate"`
	Status         JobStatus    `json:"status"`
	Applications   []uuid.UUID  `json:"applications"`
	SelectedGuard  *uuid.UUID   `json:"selectedGuard,omitempty"`
	Rating         *Rating      `json:"rating,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// HasApplicant reports whether guardID is in the applicant list.
func (j *Job) HasApplicant(guardID uuid.UUID) bool {
	for _, id := range j.Applications {
		if id == guardID {
			return true
		}
	}
	return false
}

// JobPatch is the partial update an owner may send. Only the fields below
// exist, so "which fields are updatable" is answered by the type itself:
// decoding a body with any other key fails before the patch is built.
type JobPatch struct {
	Title          *string       `json:"title"`
	Description    *string       `json:"description"`
	Location       *Location     `json:"location"`
	Duration       *Duration     `json:"duration"`
	Rate           *Rate         `json:"rate"`
	Requirements   *[]string     `json:"requirements"`
	ShiftDetails   *ShiftDetails `json:"shiftDetails"`
	SecurityType   *SecurityType `json:"securityType"`
	NumberOfGuards *int          `json:"numberOfGuards"`
}

// Apply copies every non-nil field onto j.
func (p JobPatch) Apply(j *Job) {
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.Location != nil {
		j.Location = *p.Location
	}
	if p.Duration != nil {
		j.Duration = *p.Duration
	}
	if p.Rate != nil {
		j.Rate = *p.Rate
	}
	if p.Requirements != nil {
		j.Requirements = *p.Requirements
	}
	if p.ShiftDetails != nil {
		j.ShiftDetails = *p.ShiftDetails
	}
	if p.SecurityType != nil {
		j.SecurityType = *p.SecurityType
	}
	if p.NumberOfGuards != nil {
		j.NumberOfGuards = *p.NumberOfGuards
	}
}

// JobFilter narrows ListJobs. Nil fields are not filtered on.
type JobFilter struct {
	Status        *JobStatus
	ClientID      *uuid.UUID
	SelectedGuard *uuid.UUID
}
