package recruiting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"recruitportal/portal-api/internal/database"
)

// SQLStore keeps recruiting data in MySQL (or Postgres). The users table
// must already exist; feedback listings join it for the scout's name.
type SQLStore struct {
	db      *sqlx.DB
	nowFunc func() time.Time
}

func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	s := &SQLStore{db: db, nowFunc: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var schema = []struct {
	table    string
	mysql    string
	postgres string
}{
	{
		table: "performance_metrics",
		mysql: `
CREATE TABLE IF NOT EXISTS performance_metrics (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	metric_type VARCHAR(32) NOT NULL,
	value DECIMAL(10,2) NOT NULL,
	date_recorded DATE NOT NULL,
	notes TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_metrics_user (user_id, date_recorded)
)`,
		postgres: `
CREATE TABLE IF NOT EXISTS performance_metrics (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	metric_type TEXT NOT NULL,
	value NUMERIC(10,2) NOT NULL,
	date_recorded DATE NOT NULL,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
	{
		table: "training_sessions",
		mysql: `
CREATE TABLE IF NOT EXISTS training_sessions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	session_date DATE NOT NULL,
	workout_type VARCHAR(32) NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT,
	INDEX idx_training_user (user_id, session_date)
)`,
		postgres: `
CREATE TABLE IF NOT EXISTS training_sessions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	session_date DATE NOT NULL,
	workout_type TEXT NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT
)`,
	},
	{
		table: "scout_feedback",
		mysql: `
CREATE TABLE IF NOT EXISTS scout_feedback (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	scout_id BIGINT NOT NULL,
	athlete_id BIGINT NOT NULL,
	category VARCHAR(64) NOT NULL,
	feedback TEXT NOT NULL,
	rating INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_feedback_athlete (athlete_id)
)`,
		postgres: `
CREATE TABLE IF NOT EXISTS scout_feedback (
	id BIGSERIAL PRIMARY KEY,
	scout_id BIGINT NOT NULL,
	athlete_id BIGINT NOT NULL,
	category TEXT NOT NULL,
	feedback TEXT NOT NULL,
	rating INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
	{
		table: "contact_requests",
		mysql: `
CREATE TABLE IF NOT EXISTS contact_requests (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	title VARCHAR(255),
	school VARCHAR(255),
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(64),
	message TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		postgres: `
CREATE TABLE IF NOT EXISTS contact_requests (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	title TEXT,
	school TEXT,
	email TEXT NOT NULL,
	phone TEXT,
	message TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	for _, t := range schema {
		if _, err := s.db.ExecContext(ctx, database.DDL(s.db, t.mysql, t.postgres)); err != nil {
			return fmt.Errorf("ensure %s schema: %w", t.table, err)
		}
	}
	return nil
}

func (s *SQLStore) ListMetrics(ctx context.Context, userID int64) ([]Metric, error) {
	metrics := make([]Metric, 0)
	q := s.db.Rebind(`SELECT id, user_id, metric_type, value, date_recorded, COALESCE(notes, '') AS notes, created_at
FROM performance_metrics WHERE user_id = ? ORDER BY date_recorded DESC, id DESC`)
	if err := s.db.SelectContext(ctx, &metrics, q, userID); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return metrics, nil
}

func (s *SQLStore) CreateMetric(ctx context.Context, m Metric) (Metric, error) {
	id, err := database.InsertID(ctx, s.db,
		`INSERT INTO performance_metrics (user_id, metric_type, value, date_recorded, notes) VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.MetricType, m.Value, m.DateRecorded.Format(dateLayout), m.Notes)
	if err != nil {
		return Metric{}, fmt.Errorf("insert metric: %w", err)
	}
	m.ID = id
	m.CreatedAt = s.nowFunc().UTC()
	return m, nil
}

func (s *SQLStore) ListTraining(ctx context.Context, userID int64, from time.Time) ([]TrainingSession, error) {
	sessions := make([]TrainingSession, 0)
	q := s.db.Rebind(`SELECT id, user_id, session_date, workout_type, completed, COALESCE(notes, '') AS notes
FROM training_sessions WHERE user_id = ? AND session_date >= ? ORDER BY session_date, id`)
	if err := s.db.SelectContext(ctx, &sessions, q, userID, Today(from).Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("list training: %w", err)
	}
	return sessions, nil
}

func (s *SQLStore) ScheduleTraining(ctx context.Context, ts TrainingSession) (TrainingSession, error) {
	id, err := database.InsertID(ctx, s.db,
		`INSERT INTO training_sessions (user_id, session_date, workout_type, completed, notes) VALUES (?, ?, ?, ?, ?)`,
		ts.UserID, ts.SessionDate.Format(dateLayout), ts.WorkoutType, ts.Completed, ts.Notes)
	if err != nil {
		return TrainingSession{}, fmt.Errorf("insert training session: %w", err)
	}
	ts.ID = id
	return ts, nil
}

// CompleteTraining reads the row inside the transaction before updating so
// a foreign or missing session is reported without touching it.
func (s *SQLStore) CompleteTraining(ctx context.Context, userID, sessionID int64, completed bool, notes string) (TrainingSession, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return TrainingSession{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ts TrainingSession
	q := tx.Rebind(`SELECT id, user_id, session_date, workout_type, completed, COALESCE(notes, '') AS notes
FROM training_sessions WHERE id = ?`)
	if err := tx.GetContext(ctx, &ts, q, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TrainingSession{}, ErrNotFound
		}
		return TrainingSession{}, fmt.Errorf("load training session: %w", err)
	}
	if ts.UserID != userID {
		return TrainingSession{}, ErrNotFound
	}

	ts.Completed = completed
	if notes != "" {
		ts.Notes = notes
	}
	upd := tx.Rebind(`UPDATE training_sessions SET completed = ?, notes = ? WHERE id = ? AND user_id = ?`)
	if _, err := tx.ExecContext(ctx, upd, ts.Completed, ts.Notes, ts.ID, userID); err != nil {
		return TrainingSession{}, fmt.Errorf("update training session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return TrainingSession{}, fmt.Errorf("commit: %w", err)
	}
	return ts, nil
}

func (s *SQLStore) CreateFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	id, err := database.InsertID(ctx, s.db,
		`INSERT INTO scout_feedback (scout_id, athlete_id, category, feedback, rating) VALUES (?, ?, ?, ?, ?)`,
		f.ScoutID, f.AthleteID, f.Category, f.Feedback, f.Rating)
	if err != nil {
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	f.ID = id
	f.CreatedAt = s.nowFunc().UTC()
	return f, nil
}

func (s *SQLStore) ListFeedback(ctx context.Context, athleteID int64) ([]Feedback, error) {
	feedback := make([]Feedback, 0)
	q := s.db.Rebind(`SELECT f.id, f.scout_id, f.athlete_id, f.category, f.feedback, f.rating,
COALESCE(u.username, '') AS scout_name, f.created_at
FROM scout_feedback f LEFT JOIN users u ON u.id = f.scout_id
WHERE f.athlete_id = ? ORDER BY f.created_at DESC, f.id DESC`)
	if err := s.db.SelectContext(ctx, &feedback, q, athleteID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return feedback, nil
}

func (s *SQLStore) SaveContact(ctx context.Context, c ContactRequest) (ContactRequest, error) {
	id, err := database.InsertID(ctx, s.db,
		`INSERT INTO contact_requests (name, title, school, email, phone, message) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Title, c.School, c.Email, c.Phone, c.Message)
	if err != nil {
		return ContactRequest{}, fmt.Errorf("insert contact request: %w", err)
	}
	c.ID = id
	c.CreatedAt = s.nowFunc().UTC()
	return c, nil
}
