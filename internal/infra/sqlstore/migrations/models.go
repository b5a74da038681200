package migrations

import (
	"time"

	"github.com/uptrace/bun"
)

// Schema snapshots used by the migrations. They are frozen here so that later
// changes to the store models do not rewrite already-applied migrations.

type exam struct {
	bun.BaseModel `bun:"table:exams"`

	ID               string    `bun:"id,pk"`
	CourseID         string    `bun:"course_id,notnull"`
	Title            string    `bun:"title,notnull"`
	Description      string    `bun:"description,notnull"`
	Category         string    `bun:"category,notnull"`
	Status           string    `bun:"status,notnull"`
	Complexity       string    `bun:"complexity,notnull"`
	EstimatedMinutes int       `bun:"estimated_minutes,notnull"`
	CreatedBy        string    `bun:"created_by,notnull"`
	Rating           float64   `bun:"rating,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
}

type option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type question struct {
	bun.BaseModel `bun:"table:questions"`

	ID              string    `bun:"id,pk"`
	CourseID        string    `bun:"course_id,notnull"`
	Category        string    `bun:"category,notnull"`
	Text            string    `bun:"text,notnull"`
	Options         []option  `bun:"options,notnull"`
	CorrectOptionID string    `bun:"correct_option_id,notnull"`
	Hint            string    `bun:"hint,notnull"`
	Media           string    `bun:"media,notnull"`
	Weight          float64   `bun:"weight,notnull"`
	Rating          float64   `bun:"rating,notnull"`
	CreatedBy       string    `bun:"created_by,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

type examQuestion struct {
	bun.BaseModel `bun:"table:exam_questions"`

	ExamID     string `bun:"exam_id,pk"`
	QuestionID string `bun:"question_id,pk"`
	Position   int    `bun:"position,notnull"`
}

type result struct {
	QuestionID string  `json:"questionId"`
	Question   string  `json:"question"`
	Selected   string  `json:"selected"`
	Correct    string  `json:"correct"`
	IsCorrect  bool    `json:"isCorrect"`
	Weight     float64 `json:"weight"`
}

type submission struct {
	bun.BaseModel `bun:"table:submissions"`

	ID            string    `bun:"id,pk"`
	ExamID        string    `bun:"exam_id,notnull"`
	UserID        string    `bun:"user_id,notnull"`
	Results       []result  `bun:"results,notnull"`
	ObtainedScore float64   `bun:"obtained_score,notnull"`
	TotalScore    float64   `bun:"total_score,notnull"`
	SubmittedAt   time.Time `bun:"submitted_at,notnull"`
}
