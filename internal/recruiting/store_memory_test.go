package recruiting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCompleteTrainingChecksOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ts, err := store.ScheduleTraining(ctx, TrainingSession{UserID: 1, SessionDate: day("2024-03-12"), WorkoutType: "strength", Notes: "heavy"})
	require.NoError(t, err)

	_, err = store.CompleteTraining(ctx, 2, ts.ID, true, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.CompleteTraining(ctx, 1, ts.ID+100, true, "")
	assert.ErrorIs(t, err, ErrNotFound)

	done, err := store.CompleteTraining(ctx, 1, ts.ID, true, "")
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, "heavy", done.Notes)
}

func TestMemoryStoreListTrainingFromDate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, d := range []string{"2024-03-14", "2024-03-01", "2024-03-12"} {
		_, err := store.ScheduleTraining(ctx, TrainingSession{UserID: 1, SessionDate: day(d), WorkoutType: "film-study"})
		require.NoError(t, err)
	}
	_, err := store.ScheduleTraining(ctx, TrainingSession{UserID: 2, SessionDate: day("2024-03-13"), WorkoutType: "film-study"})
	require.NoError(t, err)

	got, err := store.ListTraining(ctx, 1, time.Date(2024, 3, 12, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-03-12"), got[0].SessionDate)
	assert.Equal(t, day("2024-03-14"), got[1].SessionDate)
}

func TestMemoryStoreMetricsAndFeedbackNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, _ = store.CreateMetric(ctx, Metric{UserID: 1, MetricType: "40yard", Value: 4.6, DateRecorded: day("2024-01-01")})
	_, _ = store.CreateMetric(ctx, Metric{UserID: 1, MetricType: "40yard", Value: 4.5, DateRecorded: day("2024-02-01")})
	_, _ = store.CreateMetric(ctx, Metric{UserID: 9, MetricType: "40yard", Value: 4.4, DateRecorded: day("2024-02-01")})

	metrics, err := store.ListMetrics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, 4.5, metrics[0].Value)

	_, _ = store.CreateFeedback(ctx, Feedback{ScoutID: 2, AthleteID: 1, Category: "speed", Feedback: "first"})
	_, _ = store.CreateFeedback(ctx, Feedback{ScoutID: 2, AthleteID: 1, Category: "speed", Feedback: "second"})
	feedback, err := store.ListFeedback(ctx, 1)
	require.NoError(t, err)
	require.Len(t, feedback, 2)
	assert.Equal(t, "second", feedback[0].Feedback)

	empty, err := store.ListFeedback(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryStoreSaveContact(t *testing.T) {
	store := NewMemoryStore()
	c, err := store.SaveContact(context.Background(), ContactRequest{Name: "Coach", Email: "c@x.edu", Message: "hi"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Len(t, store.Contacts(), 1)
}
