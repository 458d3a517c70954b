package recruiting

import (
	"context"
	"time"
)

// Store persists the recruiting data behind the dashboard endpoints. Every
// write is scoped to the owner taken from verified claims.
type Store interface {
	ListMetrics(ctx context.Context, userID int64) ([]Metric, error)
	CreateMetric(ctx context.Context, m Metric) (Metric, error)

	// ListTraining returns sessions dated on or after from, earliest first.
	ListTraining(ctx context.Context, userID int64, from time.Time) ([]TrainingSession, error)
	ScheduleTraining(ctx context.Context, s TrainingSession) (TrainingSession, error)
	// CompleteTraining returns ErrNotFound when the session does not exist
	// or belongs to someone else. Empty notes keep the stored notes.
	CompleteTraining(ctx context.Context, userID, sessionID int64, completed bool, notes string) (TrainingSession, error)

	CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
	ListFeedback(ctx context.Context, athleteID int64) ([]Feedback, error)

	SaveContact(ctx context.Context, c ContactRequest) (ContactRequest, error)
}

// Today returns midnight UTC of t's day.
func Today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
