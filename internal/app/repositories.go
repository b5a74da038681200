package app

import (
	"context"
	"time"

	"lms-exam-service/internal/domain"
)

// ExamReader looks up exam metadata.
type ExamReader interface {
	GetExam(ctx context.Context, examID string) (domain.Exam, error)
}

// ExamRepository persists exam metadata and the ordered question bindings.
type ExamRepository interface {
	ExamReader
	CreateExam(ctx context.Context, exam domain.Exam, questionIDs []string) error
	// UpdateExam stores exam metadata and, when questionIDs is non-nil, rebinds
	// the exam to exactly those questions at positions 1..n.
	UpdateExam(ctx context.Context, exam domain.Exam, questionIDs *[]string) error
	// DeleteExam removes the exam together with its bindings and submissions.
	DeleteExam(ctx context.Context, examID string) error
	ListExamsByCourse(ctx context.Context, courseID string) ([]domain.Exam, error)
	ListExamsByCreator(ctx context.Context, userID string) ([]domain.Exam, error)

	// AppendQuestions binds questions after the current highest position.
	AppendQuestions(ctx context.Context, examID string, questionIDs []string) error
	// RemoveQuestions unbinds questions without renumbering the remaining positions.
	RemoveQuestions(ctx context.Context, examID string, questionIDs []string) error
	// ExamsBinding lists the exams a question is bound to.
	ExamsBinding(ctx context.Context, questionID string) ([]string, error)
}

// QuestionRepository persists question definitions.
type QuestionRepository interface {
	CreateQuestions(ctx context.Context, questions []domain.Question) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) error
	DeleteQuestion(ctx context.Context, questionID string) error
	ListQuestionsByCourse(ctx context.Context, courseID, category string) ([]domain.Question, error)
	ListQuestionsByCreator(ctx context.Context, userID string) ([]domain.Question, error)
	CountQuestionsByCreator(ctx context.Context, userID string) (int, error)
	SetQuestionRating(ctx context.Context, questionID string, rating float64, updatedAt time.Time) error
	// DeleteUnboundByCategory removes ownerID's questions of the course and category
	// that no exam binds, returning what was removed.
	DeleteUnboundByCategory(ctx context.Context, courseID, category, ownerID string) ([]domain.Question, error)
}

// QuestionLoader loads the authoritative position-ordered question set of an exam
// from the backing store.
type QuestionLoader interface {
	LoadExamQuestions(ctx context.Context, examID string) ([]domain.BoundQuestion, error)
}

// QuestionSource serves exam question sets, possibly from a cache in front of a QuestionLoader.
type QuestionSource interface {
	QuestionsFor(ctx context.Context, examID string) ([]domain.BoundQuestion, error)
	Invalidate(ctx context.Context, examID string) error
}

// SubmissionRepository is the durable record of scoring outcomes.
type SubmissionRepository interface {
	// ReplaceSubmission atomically stores sub as the only submission for its (exam, user) pair.
	ReplaceSubmission(ctx context.Context, sub domain.Submission) error
	GetSubmission(ctx context.Context, examID, userID string) (domain.Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.SubmissionSummary, error)
	ListSubmissionsByExam(ctx context.Context, examID string) ([]domain.Submission, error)
	HasSubmission(ctx context.Context, examID, userID string) (bool, error)
	// Roster lists the users holding a submission for the exam in the order they first submitted.
	// Resubmitting does not move a user.
	Roster(ctx context.Context, examID string) ([]string, error)
}

// Notifier is told when an exam's submissions changed.
type Notifier interface {
	Notify(ctx context.Context, examID string) error
}

// Store bundles every repository a single backend provides.
type Store interface {
	ExamRepository
	QuestionRepository
	QuestionLoader
	SubmissionRepository
}
