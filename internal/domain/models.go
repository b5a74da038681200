package domain

import "time"

// ExamStatus is the lifecycle state of an exam.
type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
	ExamArchived  ExamStatus = "archived"
)

// Complexity is optional authoring metadata on an exam.
type Complexity string

const (
	ComplexityEasy   Complexity = "easy"
	ComplexityMedium Complexity = "medium"
	ComplexityHard   Complexity = "hard"
)

// Option represents a possible answer for a question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"courseId"`
	Category        string    `json:"category,omitempty"`
	Text            string    `json:"text"`
	Options         []Option  `json:"options"`
	CorrectOptionID string    `json:"correctOptionId,omitempty"`
	Hint            string    `json:"hint,omitempty"`
	Media           string    `json:"media,omitempty"`
	Weight          float64   `json:"weight,omitempty"` // defaults to 1 if zero
	Rating          float64   `json:"rating"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// EffectiveWeight is the number of points the question is worth.
func (q Question) EffectiveWeight() float64 {
	if q.Weight <= 0 {
		return 1
	}
	return q.Weight
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Exam is a graded assessment bound to a course.
type Exam struct {
	ID               string     `json:"id"`
	CourseID         string     `json:"courseId"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Category         string     `json:"category,omitempty"`
	Status           ExamStatus `json:"status"`
	Complexity       Complexity `json:"complexity,omitempty"`
	EstimatedMinutes int        `json:"estimatedMinutes,omitempty"`
	CreatedBy        string     `json:"createdBy,omitempty"`
	Rating           float64    `json:"rating"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ExamPatch carries the mutable exam fields of an update; nil fields are left unchanged.
type ExamPatch struct {
	Title            *string     `json:"title"`
	Description      *string     `json:"description"`
	Category         *string     `json:"category"`
	Status           *ExamStatus `json:"status"`
	Complexity       *Complexity `json:"complexity"`
	EstimatedMinutes *int        `json:"estimatedMinutes"`
}

// Apply copies the set fields of the patch onto e.
func (p ExamPatch) Apply(e *Exam) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Complexity != nil {
		e.Complexity = *p.Complexity
	}
	if p.EstimatedMinutes != nil {
		e.EstimatedMinutes = *p.EstimatedMinutes
	}
}

// QuestionPatch carries the mutable question fields of an update.
type QuestionPatch struct {
	Category        *string   `json:"category"`
	Text            *string   `json:"text"`
	Options         *[]Option `json:"options"`
	CorrectOptionID *string   `json:"correctOptionId"`
	Hint            *string   `json:"hint"`
	Media           *string   `json:"media"`
	Weight          *float64  `json:"weight"`
}

// Apply copies the set fields of the patch onto q.
func (p QuestionPatch) Apply(q *Question) {
	if p.Category != nil {
		q.Category = *p.Category
	}
	if p.Text != nil {
		q.Text = *p.Text
	}
	if p.Options != nil {
		q.Options = append([]Option(nil), (*p.Options)...)
	}
	if p.CorrectOptionID != nil {
		q.CorrectOptionID = *p.CorrectOptionID
	}
	if p.Hint != nil {
		q.Hint = *p.Hint
	}
	if p.Media != nil {
		q.Media = *p.Media
	}
	if p.Weight != nil {
		q.Weight = *p.Weight
	}
}

// ExamQuestion binds a question to an exam at a 1-based position.
type ExamQuestion struct {
	ExamID     string `json:"examId"`
	QuestionID string `json:"questionId"`
	Position   int    `json:"position"`
}

// BoundQuestion is a question as it appears inside one exam.
type BoundQuestion struct {
	Question
	Position int `json:"position"`
}

// Answer is one element of a submitted answer set. QuestionID is optional;
// without it the answer is matched to the question at the same position.
type Answer struct {
	QuestionID string `json:"questionId,omitempty"`
	OptionID   string `json:"optionId"`
}

// QuestionResult is the graded outcome for one question of a submission.
type QuestionResult struct {
	QuestionID string  `json:"questionId"`
	Question   string  `json:"question"`
	Selected   string  `json:"selected"`
	Correct    string  `json:"correct"`
	IsCorrect  bool    `json:"isCorrect"`
	Weight     float64 `json:"weight"`
}

// Outcome summarizes a graded submission.
type Outcome struct {
	Results       []QuestionResult `json:"results"`
	ObtainedScore float64          `json:"obtainedScore"`
	TotalScore    float64          `json:"totalScore"`
	Percentage    float64          `json:"percentage"`
}

// Submission is the canonical record of one user's graded attempt at one exam.
type Submission struct {
	ID            string           `json:"id"`
	ExamID        string           `json:"examId"`
	UserID        string           `json:"userId"`
	Results       []QuestionResult `json:"results"`
	ObtainedScore float64          `json:"obtainedScore"`
	TotalScore    float64          `json:"totalScore"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}

// Percentage is the share of the total score obtained, 0 when nothing was gradable.
func (s Submission) Percentage() float64 {
	return Percentage(s.ObtainedScore, s.TotalScore)
}

// Percentage computes obtained / total * 100, guarding a zero total.
func Percentage(obtained, total float64) float64 {
	if total == 0 {
		return 0
	}
	return obtained / total * 100
}

// ExamSummary is the descriptive snapshot of an exam attached to submission listings.
type ExamSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SubmissionSummary is a submission joined with its exam's metadata.
type SubmissionSummary struct {
	ID            string           `json:"id"`
	Exam          *ExamSummary     `json:"exam"`
	ObtainedScore float64          `json:"obtainedScore"`
	TotalScore    float64          `json:"totalScore"`
	Percentage    float64          `json:"percentage"`
	Results       []QuestionResult `json:"results"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}

// LeaderboardEntry is a snapshot-friendly view of one user's submission.
type LeaderboardEntry struct {
	UserID        string    `json:"userId"`
	ObtainedScore float64   `json:"obtainedScore"`
	TotalScore    float64   `json:"totalScore"`
	Percentage    float64   `json:"percentage"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Leaderboard captures the ordered results board for an exam.
type Leaderboard struct {
	ExamID    string             `json:"examId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
