package domain

import "time"

// ContentType is the format of a training item.
type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentEbook ContentType = "ebook"
	ContentQuiz  ContentType = "quiz"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	return t == ContentVideo || t == ContentEbook || t == ContentQuiz
}

// TrainingContent is a course item worth points.
type TrainingContent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        ContentType `json:"type"`
	URL         string      `json:"url"`
	Points      int         `json:"points"`
}

// TrainingCompletion grants points once per (user, content).
type TrainingCompletion struct {
	UserID      string    `json:"user_id"`
	TrainingID  string    `json:"training_id"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletionResult reports whether a completion was recorded now.
type CompletionResult struct {
	Recorded bool `json:"recorded"`
}

// LeaderboardEntry is one user's point total.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	TotalPoints int    `json:"total_points"`
}
