package recruiting

import (
	"math"
	"sort"
	"time"
)

// MetricKind describes a combine measurement.
type MetricKind struct {
	Key           string `json:"key"`
	DisplayName   string `json:"display_name"`
	Unit          string `json:"unit"`
	LowerIsBetter bool   `json:"lower_is_better"`
}

var metricCatalogue = map[string]MetricKind{
	"40yard":   {Key: "40yard", DisplayName: "40-Yard Dash", Unit: "s", LowerIsBetter: true},
	"vertical": {Key: "vertical", DisplayName: "Vertical Jump", Unit: `"`},
	"broad":    {Key: "broad", DisplayName: "Broad Jump", Unit: `"`},
	"shuttle":  {Key: "shuttle", DisplayName: "20-Yard Shuttle", Unit: "s", LowerIsBetter: true},
	"cone":     {Key: "cone", DisplayName: "3-Cone Drill", Unit: "s", LowerIsBetter: true},
}

// LookupMetric returns the catalogue entry; unknown keys fall back to a
// higher-is-better kind named after the key.
func LookupMetric(key string) MetricKind {
	if k, ok := metricCatalogue[key]; ok {
		return k
	}
	return MetricKind{Key: key, DisplayName: key}
}

type Workout struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Drills      []string `json:"drills"`
}

var workoutCatalogue = map[string]Workout{
	"speed-agility": {
		Key:         "speed-agility",
		Title:       "Speed & Agility Training",
		Description: "Focus on acceleration, top speed, and change of direction",
		Drills:      []string{"40-yard dash (3 attempts)", "20-yard shuttle (3 attempts)", "Cone drills (5-10-5, 3-cone)", "Ladder drills for footwork"},
	},
	"coverage-drills": {
		Key:         "coverage-drills",
		Title:       "Coverage Technique Drills",
		Description: "Develop press coverage, backpedal, and hip turn techniques",
		Drills:      []string{"Press coverage stance and jam", "Backpedal with proper posture", "Hip turn and recovery drills", "Mirror drill with partner"},
	},
	"ball-skills": {
		Key:         "ball-skills",
		Title:       "Ball Skills Training",
		Description: "Improve catching, tracking, and ball-hawking abilities",
		Drills:      []string{"High-point catches", "Ball tracking with distractions", "One-handed catches", "Interception drills"},
	},
	"strength": {
		Key:         "strength",
		Title:       "Strength Training",
		Description: "Build functional strength for football performance",
		Drills:      []string{"Squats (3x8)", "Deadlifts (3x6)", "Single-leg RDL (3x8 each)", "Core stability circuit"},
	},
	"combine-prep": {
		Key:         "combine-prep",
		Title:       "Combine Preparation",
		Description: "Full combine simulation with timing",
		Drills:      []string{"40-yard dash (timed)", "Vertical jump", "Broad jump", "20-yard shuttle", "3-cone drill"},
	},
	"film-study": {
		Key:         "film-study",
		Title:       "Film Study Session",
		Description: "Analyze technique and game situations",
		Drills:      []string{"Review previous workout footage", "Study NFL cornerback techniques", "Analyze game film", "Identify areas for improvement"},
	},
}

func LookupWorkout(key string) (Workout, bool) {
	w, ok := workoutCatalogue[key]
	return w, ok
}

// Workouts lists the catalogue sorted by key.
func Workouts() []Workout {
	out := make([]Workout, 0, len(workoutCatalogue))
	for _, w := range workoutCatalogue {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

type TrendDirection string

const (
	TrendImproved TrendDirection = "improved"
	TrendDeclined TrendDirection = "declined"
	TrendSteady   TrendDirection = "steady"
)

// Change returns the signed improvement from previous to current: positive
// always means better, whichever direction the metric runs.
func Change(metricType string, current, previous float64) float64 {
	diff := current - previous
	if LookupMetric(metricType).LowerIsBetter {
		diff = -diff
	}
	return math.Round(diff*100) / 100
}

func Trend(metricType string, current, previous float64) TrendDirection {
	switch c := Change(metricType, current, previous); {
	case c > 0:
		return TrendImproved
	case c < 0:
		return TrendDeclined
	default:
		return TrendSteady
	}
}

// WeekStart returns the Sunday 00:00 UTC that opens the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeeklyAdherence is the rounded percentage of sessions completed among
// those scheduled from the start of now's week up to and including today.
// No sessions yields 0.
func WeeklyAdherence(sessions []TrainingSession, now time.Time) int {
	start := WeekStart(now)
	u := now.UTC()
	endOfToday := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	var completed, total int
	for _, s := range sessions {
		d := s.SessionDate.UTC()
		if d.Before(start) || !d.Before(endOfToday) {
			continue
		}
		total++
		if s.Completed {
			completed++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func MotivationalMessage(adherence int) string {
	switch {
	case adherence >= 90:
		return "Outstanding dedication! Keep up the excellent work!"
	case adherence >= 80:
		return "Great consistency! You're on track for success!"
	case adherence >= 70:
		return "Good progress! Let's push for even better consistency!"
	default:
		return "Every workout counts! Let's get back on track!"
	}
}

type MetricSummary struct {
	MetricKind
	Latest   float64         `json:"latest"`
	Recorded time.Time       `json:"recorded"`
	Previous *float64        `json:"previous,omitempty"`
	Change   *float64        `json:"change,omitempty"`
	Trend    *TrendDirection `json:"trend,omitempty"`
}

type ProgressReport struct {
	UserID    int64           `json:"user_id"`
	Adherence int             `json:"adherence"`
	Message   string          `json:"message"`
	Metrics   []MetricSummary `json:"metrics"`
}

// BuildProgress summarises the latest two readings of each metric type and
// the current week's adherence.
func BuildProgress(userID int64, metrics []Metric, sessions []TrainingSession, now time.Time) ProgressReport {
	byType := make(map[string][]Metric)
	for _, m := range metrics {
		byType[m.MetricType] = append(byType[m.MetricType], m)
	}

	summaries := make([]MetricSummary, 0, len(byType))
	for metricType, ms := range byType {
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].DateRecorded.Equal(ms[j].DateRecorded) {
				return ms[i].ID > ms[j].ID
			}
			return ms[i].DateRecorded.After(ms[j].DateRecorded)
		})
		s := MetricSummary{
			MetricKind: LookupMetric(metricType),
			Latest:     ms[0].Value,
			Recorded:   ms[0].DateRecorded,
		}
		if len(ms) > 1 {
			prev := ms[1].Value
			change := Change(metricType, ms[0].Value, prev)
			trend := Trend(metricType, ms[0].Value, prev)
			s.Previous = &prev
			s.Change = &change
			s.Trend = &trend
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Key < summaries[j].Key })

	adherence := WeeklyAdherence(sessions, now)
	return ProgressReport{
		UserID:    userID,
		Adherence: adherence,
		Message:   MotivationalMessage(adherence),
		Metrics:   summaries,
	}
}
