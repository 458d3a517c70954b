package recruiting

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore backs the server when no database is configured. Data lives
// for the life of the process.
type MemoryStore struct {
	nowFunc func() time.Time

	mu       sync.RWMutex
	nextID   int64
	metrics  []Metric
	sessions map[int64]TrainingSession
	feedback []Feedback
	contacts []ContactRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nowFunc:  time.Now,
		sessions: make(map[int64]TrainingSession),
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) ListMetrics(_ context.Context, userID int64) ([]Metric, error) {
	s.mu.RLock()
	out := make([]Metric, 0)
	for _, m := range s.metrics {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DateRecorded.Equal(out[j].DateRecorded) {
			return out[i].ID > out[j].ID
		}
		return out[i].DateRecorded.After(out[j].DateRecorded)
	})
	return out, nil
}

func (s *MemoryStore) CreateMetric(_ context.Context, m Metric) (Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	m.CreatedAt = s.nowFunc().UTC()
	s.metrics = append(s.metrics, m)
	return m, nil
}

func (s *MemoryStore) ListTraining(_ context.Context, userID int64, from time.Time) ([]TrainingSession, error) {
	from = Today(from)
	s.mu.RLock()
	out := make([]TrainingSession, 0)
	for _, ts := range s.sessions {
		if ts.UserID == userID && !ts.SessionDate.Before(from) {
			out = append(out, ts)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].SessionDate.Before(out[j].SessionDate)
	})
	return out, nil
}

func (s *MemoryStore) ScheduleTraining(_ context.Context, ts TrainingSession) (TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts.ID = s.id()
	s.sessions[ts.ID] = ts
	return ts, nil
}

func (s *MemoryStore) CompleteTraining(_ context.Context, userID, sessionID int64, completed bool, notes string) (TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.sessions[sessionID]
	if !ok || ts.UserID != userID {
		return TrainingSession{}, ErrNotFound
	}
	ts.Completed = completed
	if notes != "" {
		ts.Notes = notes
	}
	s.sessions[sessionID] = ts
	return ts, nil
}

func (s *MemoryStore) CreateFeedback(_ context.Context, f Feedback) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.id()
	f.CreatedAt = s.nowFunc().UTC()
	s.feedback = append(s.feedback, f)
	return f, nil
}

func (s *MemoryStore) ListFeedback(_ context.Context, athleteID int64) ([]Feedback, error) {
	s.mu.RLock()
	out := make([]Feedback, 0)
	for i := len(s.feedback) - 1; i >= 0; i-- {
		if s.feedback[i].AthleteID == athleteID {
			out = append(out, s.feedback[i])
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *MemoryStore) SaveContact(_ context.Context, c ContactRequest) (ContactRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CreatedAt = s.nowFunc().UTC()
	s.contacts = append(s.contacts, c)
	return c, nil
}

// Contacts returns a copy of the saved contact requests, oldest first.
func (s *MemoryStore) Contacts() []ContactRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ContactRequest(nil), s.contacts...)
}
