package app

import (
	"context"
	"fmt"

	"lms-exam-service/internal/domain"
	"lms-exam-service/internal/logging"
)

// ExamService owns exam metadata and the ordered question bindings.
type ExamService struct {
	exams     ExamRepository
	questions QuestionRepository
	cache     QuestionSource
	rt        runtime
}

func NewExamService(exams ExamRepository, questions QuestionRepository, cache QuestionSource, opts ...Option) *ExamService {
	return &ExamService{exams: exams, questions: questions, cache: cache, rt: newRuntime(opts)}
}

// CreateExam validates and stores a new exam, binding questionIDs at positions 1..n.
func (s *ExamService) CreateExam(ctx context.Context, exam domain.Exam, questionIDs []string) (domain.Exam, error) {
	if exam.Status == "" {
		exam.Status = domain.ExamDraft
	}
	if err := exam.Validate(); err != nil {
		return domain.Exam{}, err
	}
	if err := s.requireQuestions(ctx, questionIDs); err != nil {
		return domain.Exam{}, err
	}
	now := s.rt.now()
	exam.ID = s.rt.newID()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	if err := s.exams.CreateExam(ctx, exam, questionIDs); err != nil {
		return domain.Exam{}, err
	}
	logging.FromContext(ctx).WithField("exam_id", exam.ID).
		WithField("questions", len(questionIDs)).
		Info("exam created")
	return exam, nil
}

func (s *ExamService) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	return s.exams.GetExam(ctx, examID)
}

// ListByCourse lists a course's exams, newest first.
func (s *ExamService) ListByCourse(ctx context.Context, courseID string) ([]domain.Exam, error) {
	return s.exams.ListExamsByCourse(ctx, courseID)
}

// ListByTeacher lists the exams a teacher authored, newest first.
func (s *ExamService) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Exam, error) {
	return s.exams.ListExamsByCreator(ctx, teacherID)
}

// UpdateExam applies patch and, when questionIDs is non-nil, replaces the bindings.
func (s *ExamService) UpdateExam(ctx context.Context, examID string, patch domain.ExamPatch, questionIDs *[]string) (domain.Exam, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return domain.Exam{}, err
	}
	patch.Apply(&exam)
	if err := exam.Validate(); err != nil {
		return domain.Exam{}, err
	}
	if questionIDs != nil {
		if err := s.requireQuestions(ctx, *questionIDs); err != nil {
			return domain.Exam{}, err
		}
	}
	exam.UpdatedAt = s.rt.now()
	if err := s.exams.UpdateExam(ctx, exam, questionIDs); err != nil {
		return domain.Exam{}, err
	}
	if questionIDs != nil {
		s.invalidate(ctx, examID)
	}
	return exam, nil
}

// DeleteExam removes an exam along with its bindings and submissions.
func (s *ExamService) DeleteExam(ctx context.Context, examID string) error {
	if err := s.exams.DeleteExam(ctx, examID); err != nil {
		return err
	}
	s.invalidate(ctx, examID)
	logging.FromContext(ctx).WithField("exam_id", examID).Info("exam deleted")
	return nil
}

// QuestionsFor returns the exam's questions ordered by position.
func (s *ExamService) QuestionsFor(ctx context.Context, examID string) ([]domain.BoundQuestion, error) {
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.cache.QuestionsFor(ctx, examID)
}

// AddQuestions appends questions after the exam's last position.
func (s *ExamService) AddQuestions(ctx context.Context, examID string, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return fmt.Errorf("%w: questionIds must not be empty", domain.ErrValidation)
	}
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return err
	}
	if err := s.requireQuestions(ctx, questionIDs); err != nil {
		return err
	}
	if err := s.exams.AppendQuestions(ctx, examID, questionIDs); err != nil {
		return err
	}
	s.invalidate(ctx, examID)
	return nil
}

// RemoveQuestions unbinds questions; remaining positions keep their numbers.
func (s *ExamService) RemoveQuestions(ctx context.Context, examID string, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return fmt.Errorf("%w: questionIds must not be empty", domain.ErrValidation)
	}
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return err
	}
	if err := s.exams.RemoveQuestions(ctx, examID, questionIDs); err != nil {
		return err
	}
	s.invalidate(ctx, examID)
	return nil
}

func (s *ExamService) requireQuestions(ctx context.Context, questionIDs []string) error {
	seen := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: question %s listed twice", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
		if _, err := s.questions.GetQuestion(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// invalidate drops a cached question set; a failure is logged and the entry expires by TTL.
func (s *ExamService) invalidate(ctx context.Context, examID string) {
	if err := s.cache.Invalidate(ctx, examID); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("exam_id", examID).Warn("question cache invalidation failed")
	}
}
