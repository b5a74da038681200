package app

import (
	"context"
	"fmt"

	"lms-exam-service/internal/domain"
	"lms-exam-service/internal/logging"
)

// QuestionService manages the question bank.
type QuestionService struct {
	questions QuestionRepository
	exams     ExamRepository
	cache     QuestionSource
	rt        runtime
}

func NewQuestionService(questions QuestionRepository, exams ExamRepository, cache QuestionSource, opts ...Option) *QuestionService {
	return &QuestionService{questions: questions, exams: exams, cache: cache, rt: newRuntime(opts)}
}

// CreateQuestions validates and stores one or more questions for a course.
// Empty category or createdBy on a draft is filled from the arguments.
func (s *QuestionService) CreateQuestions(ctx context.Context, courseID, category, createdBy string, drafts []domain.Question) ([]domain.Question, error) {
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", domain.ErrValidation)
	}
	now := s.rt.now()
	created := make([]domain.Question, 0, len(drafts))
	for i, q := range drafts {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		q.ID = s.rt.newID()
		q.CourseID = courseID
		if q.Category == "" {
			q.Category = category
		}
		q.CreatedBy = createdBy
		q.CreatedAt = now
		q.UpdatedAt = now
		created = append(created, q)
	}
	if err := s.questions.CreateQuestions(ctx, created); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithField("course_id", courseID).
		WithField("count", len(created)).
		Info("questions created")
	return created, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return s.questions.GetQuestion(ctx, questionID)
}

// ListByCourse lists a course's questions newest first, optionally filtered by category.
func (s *QuestionService) ListByCourse(ctx context.Context, courseID, category string) ([]domain.Question, error) {
	return s.questions.ListQuestionsByCourse(ctx, courseID, category)
}

func (s *QuestionService) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Question, error) {
	return s.questions.ListQuestionsByCreator(ctx, teacherID)
}

// UpdateQuestion applies patch and drops the cached question set of every exam using it.
func (s *QuestionService) UpdateQuestion(ctx context.Context, questionID string, patch domain.QuestionPatch) (domain.Question, error) {
	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	patch.Apply(&q)
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	q.UpdatedAt = s.rt.now()
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	if err := s.invalidateBinding(ctx, questionID); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// RateQuestion records a 1..5 rating on the question.
func (s *QuestionService) RateQuestion(ctx context.Context, questionID string, rating float64) (domain.Question, error) {
	if rating < 1 || rating > 5 {
		return domain.Question{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	if err := s.questions.SetQuestionRating(ctx, questionID, rating, s.rt.now()); err != nil {
		return domain.Question{}, err
	}
	if err := s.invalidateBinding(ctx, questionID); err != nil {
		return domain.Question{}, err
	}
	return s.questions.GetQuestion(ctx, questionID)
}

// CountByTeacher counts the questions a teacher authored.
func (s *QuestionService) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	return s.questions.CountQuestionsByCreator(ctx, teacherID)
}

// DeleteByCategory removes ownerID's questions of one course category. Questions
// still bound to an exam are kept; the removed ones are returned.
func (s *QuestionService) DeleteByCategory(ctx context.Context, courseID, category, ownerID string) ([]domain.Question, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	deleted, err := s.questions.DeleteUnboundByCategory(ctx, courseID, category, ownerID)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithField("course_id", courseID).
		WithField("category", category).
		WithField("count", len(deleted)).
		Info("questions deleted by category")
	return deleted, nil
}

// invalidateBinding drops the cached question set of every exam using the question.
func (s *QuestionService) invalidateBinding(ctx context.Context, questionID string) error {
	examIDs, err := s.exams.ExamsBinding(ctx, questionID)
	if err != nil {
		return err
	}
	for _, examID := range examIDs {
		if err := s.cache.Invalidate(ctx, examID); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("exam_id", examID).Warn("question cache invalidation failed")
		}
	}
	return nil
}

// DeleteQuestion removes a question that no exam binds.
func (s *QuestionService) DeleteQuestion(ctx context.Context, questionID string) error {
	if _, err := s.questions.GetQuestion(ctx, questionID); err != nil {
		return err
	}
	examIDs, err := s.exams.ExamsBinding(ctx, questionID)
	if err != nil {
		return err
	}
	if len(examIDs) > 0 {
		return domain.ErrQuestionInUse
	}
	return s.questions.DeleteQuestion(ctx, questionID)
}
