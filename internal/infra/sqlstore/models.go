package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"lms-exam-service/internal/domain"
)

type examModel struct {
	bun.BaseModel `bun:"table:exams,alias:e"`

	ID               string    `bun:"id,pk"`
	CourseID         string    `bun:"course_id"`
	Title            string    `bun:"title"`
	Description      string    `bun:"description"`
	Category         string    `bun:"category"`
	Status           string    `bun:"status"`
	Complexity       string    `bun:"complexity"`
	EstimatedMinutes int       `bun:"estimated_minutes"`
	CreatedBy        string    `bun:"created_by"`
	Rating           float64   `bun:"rating"`
	CreatedAt        time.Time `bun:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at"`
}

func (m examModel) toDomain() domain.Exam {
	return domain.Exam{
		ID:               m.ID,
		CourseID:         m.CourseID,
		Title:            m.Title,
		Description:      m.Description,
		Category:         m.Category,
		Status:           domain.ExamStatus(m.Status),
		Complexity:       domain.Complexity(m.Complexity),
		EstimatedMinutes: m.EstimatedMinutes,
		CreatedBy:        m.CreatedBy,
		Rating:           m.Rating,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

func examFromDomain(e domain.Exam) *examModel {
	return &examModel{
		ID:               e.ID,
		CourseID:         e.CourseID,
		Title:            e.Title,
		Description:      e.Description,
		Category:         e.Category,
		Status:           string(e.Status),
		Complexity:       string(e.Complexity),
		EstimatedMinutes: e.EstimatedMinutes,
		CreatedBy:        e.CreatedBy,
		Rating:           e.Rating,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID              string          `bun:"id,pk"`
	CourseID        string          `bun:"course_id"`
	Category        string          `bun:"category"`
	Text            string          `bun:"text"`
	Options         []domain.Option `bun:"options"`
	CorrectOptionID string          `bun:"correct_option_id"`
	Hint            string          `bun:"hint"`
	Media           string          `bun:"media"`
	Weight          float64         `bun:"weight"`
	Rating          float64         `bun:"rating"`
	CreatedBy       string          `bun:"created_by"`
	CreatedAt       time.Time       `bun:"created_at"`
	UpdatedAt       time.Time       `bun:"updated_at"`
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:              m.ID,
		CourseID:        m.CourseID,
		Category:        m.Category,
		Text:            m.Text,
		Options:         m.Options,
		CorrectOptionID: m.CorrectOptionID,
		Hint:            m.Hint,
		Media:           m.Media,
		Weight:          m.Weight,
		Rating:          m.Rating,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func questionFromDomain(q domain.Question) questionModel {
	options := q.Options
	if options == nil {
		options = []domain.Option{}
	}
	return questionModel{
		ID:              q.ID,
		CourseID:        q.CourseID,
		Category:        q.Category,
		Text:            q.Text,
		Options:         options,
		CorrectOptionID: q.CorrectOptionID,
		Hint:            q.Hint,
		Media:           q.Media,
		Weight:          q.Weight,
		Rating:          q.Rating,
		CreatedBy:       q.CreatedBy,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

type examQuestionModel struct {
	bun.BaseModel `bun:"table:exam_questions,alias:eq"`

	ExamID     string `bun:"exam_id,pk"`
	QuestionID string `bun:"question_id,pk"`
	Position   int    `bun:"position"`
}

type submissionModel struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID            string                  `bun:"id,pk"`
	ExamID        string                  `bun:"exam_id"`
	UserID        string                  `bun:"user_id"`
	Results       []domain.QuestionResult `bun:"results"`
	ObtainedScore float64                 `bun:"obtained_score"`
	TotalScore    float64                 `bun:"total_score"`
	SubmittedAt   time.Time               `bun:"submitted_at"`

	// FirstSubmittedAt is set on insert and left alone by later upserts.
	FirstSubmittedAt time.Time `bun:"first_submitted_at"`
}

func (m submissionModel) toDomain() domain.Submission {
	results := m.Results
	if results == nil {
		results = []domain.QuestionResult{}
	}
	return domain.Submission{
		ID:            m.ID,
		ExamID:        m.ExamID,
		UserID:        m.UserID,
		Results:       results,
		ObtainedScore: m.ObtainedScore,
		TotalScore:    m.TotalScore,
		SubmittedAt:   m.SubmittedAt.UTC(),
	}
}

func submissionFromDomain(s domain.Submission) *submissionModel {
	results := s.Results
	if results == nil {
		results = []domain.QuestionResult{}
	}
	return &submissionModel{
		ID:            s.ID,
		ExamID:        s.ExamID,
		UserID:        s.UserID,
		Results:       results,
		ObtainedScore: s.ObtainedScore,
		TotalScore:    s.TotalScore,
		SubmittedAt:   s.SubmittedAt,

		// upserts never overwrite this column
		FirstSubmittedAt: s.SubmittedAt,
	}
}
