package recruiting

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

const dateLayout = "2006-01-02"

type Metric struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	MetricType   string    `json:"metric_type" db:"metric_type"`
	Value        float64   `json:"value" db:"value"`
	DateRecorded time.Time `json:"date_recorded" db:"date_recorded"`
	Notes        string    `json:"notes" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type TrainingSession struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	SessionDate time.Time `json:"session_date" db:"session_date"`
	WorkoutType string    `json:"workout_type" db:"workout_type"`
	Completed   bool      `json:"completed" db:"completed"`
	Notes       string    `json:"notes" db:"notes"`
}

type Feedback struct {
	ID        int64     `json:"id" db:"id"`
	ScoutID   int64     `json:"scout_id" db:"scout_id"`
	AthleteID int64     `json:"athlete_id" db:"athlete_id"`
	Category  string    `json:"category" db:"category"`
	Feedback  string    `json:"feedback" db:"feedback"`
	Rating    int       `json:"rating" db:"rating"`
	ScoutName string    `json:"scout_name" db:"scout_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ContactRequest struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Title     string    `json:"title" db:"title"`
	School    string    `json:"school" db:"school"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewMetricRequest is the body of POST /api/metrics. The owner comes from the
// caller's claims, never from the body.
type NewMetricRequest struct {
	MetricType   string   `json:"metric_type"`
	Value        *float64 `json:"value"`
	DateRecorded string   `json:"date_recorded"`
	Notes        string   `json:"notes"`
}

func (r NewMetricRequest) ToMetric(userID int64) (Metric, error) {
	metricType := strings.TrimSpace(r.MetricType)
	if metricType == "" || len(metricType) > 32 {
		return Metric{}, fmt.Errorf("%w: metric_type is required", ErrInvalidInput)
	}
	if r.Value == nil {
		return Metric{}, fmt.Errorf("%w: value is required", ErrInvalidInput)
	}
	if *r.Value < 0 {
		return Metric{}, fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	}
	recorded, err := time.Parse(dateLayout, strings.TrimSpace(r.DateRecorded))
	if err != nil {
		return Metric{}, fmt.Errorf("%w: date_recorded must be YYYY-MM-DD", ErrInvalidInput)
	}
	return Metric{
		UserID:       userID,
		MetricType:   metricType,
		Value:        *r.Value,
		DateRecorded: recorded,
		Notes:        strings.TrimSpace(r.Notes),
	}, nil
}

// NewTrainingRequest is the body of POST /api/training.
type NewTrainingRequest struct {
	SessionDate string `json:"session_date"`
	WorkoutType string `json:"workout_type"`
	Notes       string `json:"notes"`
}

func (r NewTrainingRequest) ToSession(userID int64) (TrainingSession, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(r.SessionDate))
	if err != nil {
		return TrainingSession{}, fmt.Errorf("%w: session_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	workout := strings.TrimSpace(r.WorkoutType)
	if _, ok := LookupWorkout(workout); !ok {
		return TrainingSession{}, fmt.Errorf("%w: unknown workout_type %q", ErrInvalidInput, workout)
	}
	return TrainingSession{
		UserID:      userID,
		SessionDate: day,
		WorkoutType: workout,
		Notes:       strings.TrimSpace(r.Notes),
	}, nil
}

// CompleteTrainingRequest is the body of POST /api/training/complete.
type CompleteTrainingRequest struct {
	SessionID int64  `json:"sessionId"`
	Completed *bool  `json:"completed"`
	Notes     string `json:"notes"`
}

func (r CompleteTrainingRequest) Validate() error {
	if r.SessionID <= 0 {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidInput)
	}
	if r.Completed == nil {
		return fmt.Errorf("%w: completed is required", ErrInvalidInput)
	}
	return nil
}

// NewFeedbackRequest is the body of POST /api/feedback. Rating 0 means unrated.
type NewFeedbackRequest struct {
	AthleteID int64  `json:"athleteId"`
	Category  string `json:"category"`
	Feedback  string `json:"feedback"`
	Rating    int    `json:"rating"`
}

func (r NewFeedbackRequest) ToFeedback(scoutID int64, scoutName string) (Feedback, error) {
	if r.AthleteID <= 0 {
		return Feedback{}, fmt.Errorf("%w: athleteId is required", ErrInvalidInput)
	}
	category := strings.TrimSpace(r.Category)
	if category == "" || len(category) > 64 {
		return Feedback{}, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	text := strings.TrimSpace(r.Feedback)
	if text == "" {
		return Feedback{}, fmt.Errorf("%w: feedback is required", ErrInvalidInput)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return Feedback{}, fmt.Errorf("%w: rating must be between 0 (unrated) and 5", ErrInvalidInput)
	}
	return Feedback{
		ScoutID:   scoutID,
		AthleteID: r.AthleteID,
		Category:  category,
		Feedback:  text,
		Rating:    r.Rating,
		ScoutName: scoutName,
	}, nil
}

// ContactFormRequest is the body of POST /api/contact.
type ContactFormRequest struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	School  string `json:"school"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (r ContactFormRequest) ToContact() (ContactRequest, error) {
	c := ContactRequest{
		Name:    strings.TrimSpace(r.Name),
		Title:   strings.TrimSpace(r.Title),
		School:  strings.TrimSpace(r.School),
		Email:   strings.TrimSpace(r.Email),
		Phone:   strings.TrimSpace(r.Phone),
		Message: strings.TrimSpace(r.Message),
	}
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return ContactRequest{}, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ContactRequest{}, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return c, nil
}
