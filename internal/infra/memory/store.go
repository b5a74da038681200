package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Store is an in-process implementation of every repository, guarded by one lock
// so that multi-record writes are atomic.
type Store struct {
	mu          sync.RWMutex
	exams       map[string]domain.Exam
	questions   map[string]domain.Question
	bindings    map[string][]domain.ExamQuestion // by exam id, ordered by position
	submissions map[submissionKey]domain.Submission
	// firstAt survives replacement and orders the roster.
	firstAt     map[submissionKey]time.Time
}

type submissionKey struct {
	examID string
	userID string
}

func NewStore() *Store {
	return &Store{
		exams:       make(map[string]domain.Exam),
		questions:   make(map[string]domain.Question),
		bindings:    make(map[string][]domain.ExamQuestion),
		submissions: make(map[submissionKey]domain.Submission),
		firstAt:     make(map[submissionKey]time.Time),
	}
}

func (s *Store) CreateExam(_ context.Context, exam domain.Exam, questionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireQuestionsLocked(questionIDs); err != nil {
		return err
	}
	s.exams[exam.ID] = exam
	s.bindings[exam.ID] = bind(exam.ID, questionIDs, 1)
	return nil
}

func (s *Store) GetExam(_ context.Context, examID string) (domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exam, ok := s.exams[examID]
	if !ok {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	return exam, nil
}

func (s *Store) UpdateExam(_ context.Context, exam domain.Exam, questionIDs *[]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[exam.ID]; !ok {
		return domain.ErrExamNotFound
	}
	if questionIDs != nil {
		if err := s.requireQuestionsLocked(*questionIDs); err != nil {
			return err
		}
		s.bindings[exam.ID] = bind(exam.ID, *questionIDs, 1)
	}
	s.exams[exam.ID] = exam
	return nil
}

func (s *Store) DeleteExam(_ context.Context, examID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[examID]; !ok {
		return domain.ErrExamNotFound
	}
	delete(s.exams, examID)
	delete(s.bindings, examID)
	for key := range s.submissions {
		if key.examID == examID {
			delete(s.submissions, key)
			delete(s.firstAt, key)
		}
	}
	return nil
}

func (s *Store) ListExamsByCourse(_ context.Context, courseID string) ([]domain.Exam, error) {
	return s.listExams(func(e domain.Exam) bool { return e.CourseID == courseID }), nil
}

func (s *Store) ListExamsByCreator(_ context.Context, userID string) ([]domain.Exam, error) {
	return s.listExams(func(e domain.Exam) bool { return e.CreatedBy == userID }), nil
}

func (s *Store) listExams(keep func(domain.Exam) bool) []domain.Exam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Exam, 0)
	for _, e := range s.exams {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) AppendQuestions(_ context.Context, examID string, questionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[examID]; !ok {
		return domain.ErrExamNotFound
	}
	if err := s.requireQuestionsLocked(questionIDs); err != nil {
		return err
	}
	current := s.bindings[examID]
	next := 1
	bound := make(map[string]struct{}, len(current))
	for _, b := range current {
		bound[b.QuestionID] = struct{}{}
		if b.Position >= next {
			next = b.Position + 1
		}
	}
	fresh := make([]string, 0, len(questionIDs))
	for _, id := range questionIDs {
		if _, ok := bound[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	s.bindings[examID] = append(current, bind(examID, fresh, next)...)
	return nil
}

func (s *Store) RemoveQuestions(_ context.Context, examID string, questionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[examID]; !ok {
		return domain.ErrExamNotFound
	}
	drop := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		drop[id] = struct{}{}
	}
	kept := make([]domain.ExamQuestion, 0, len(s.bindings[examID]))
	for _, b := range s.bindings[examID] {
		if _, ok := drop[b.QuestionID]; !ok {
			kept = append(kept, b)
		}
	}
	s.bindings[examID] = kept
	return nil
}

func (s *Store) ExamsBinding(_ context.Context, questionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for examID, bindings := range s.bindings {
		for _, b := range bindings {
			if b.QuestionID == questionID {
				out = append(out, examID)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) LoadExamQuestions(_ context.Context, examID string) ([]domain.BoundQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.exams[examID]; !ok {
		return nil, domain.ErrExamNotFound
	}
	bindings := s.bindings[examID]
	out := make([]domain.BoundQuestion, 0, len(bindings))
	for _, b := range bindings {
		q, ok := s.questions[b.QuestionID]
		if !ok {
			continue
		}
		q.Options = append([]domain.Option(nil), q.Options...)
		out = append(out, domain.BoundQuestion{Question: q, Position: b.Position})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) CreateQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[question.ID] = question
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	return nil
}

func (s *Store) SetQuestionRating(_ context.Context, questionID string, rating float64, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Rating = rating
	q.UpdatedAt = updatedAt
	s.questions[questionID] = q
	return nil
}

func (s *Store) DeleteUnboundByCategory(_ context.Context, courseID, category, ownerID string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bound := make(map[string]struct{})
	for _, bindings := range s.bindings {
		for _, b := range bindings {
			bound[b.QuestionID] = struct{}{}
		}
	}
	deleted := make([]domain.Question, 0)
	for id, q := range s.questions {
		if q.CourseID != courseID || q.Category != category || q.CreatedBy != ownerID {
			continue
		}
		if _, inUse := bound[id]; inUse {
			continue
		}
		delete(s.questions, id)
		deleted = append(deleted, q)
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].ID < deleted[j].ID })
	return deleted, nil
}

func (s *Store) ListQuestionsByCourse(_ context.Context, courseID, category string) ([]domain.Question, error) {
	return s.listQuestions(func(q domain.Question) bool {
		return q.CourseID == courseID && (category == "" || q.Category == category)
	}), nil
}

func (s *Store) ListQuestionsByCreator(_ context.Context, userID string) ([]domain.Question, error) {
	return s.listQuestions(func(q domain.Question) bool { return q.CreatedBy == userID }), nil
}

func (s *Store) CountQuestionsByCreator(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, q := range s.questions {
		if q.CreatedBy == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) listQuestions(keep func(domain.Question) bool) []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ReplaceSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[sub.ExamID]; !ok {
		return domain.ErrExamNotFound
	}
	sub.Results = append([]domain.QuestionResult(nil), sub.Results...)
	key := submissionKey{sub.ExamID, sub.UserID}
	if _, ok := s.submissions[key]; !ok {
		s.firstAt[key] = sub.SubmittedAt
	}
	s.submissions[key] = sub
	return nil
}

func (s *Store) GetSubmission(_ context.Context, examID, userID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionKey{examID, userID}]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) ListSubmissionsByUser(_ context.Context, userID string) ([]domain.SubmissionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SubmissionSummary, 0)
	for key, sub := range s.submissions {
		if key.userID != userID {
			continue
		}
		summary := domain.SubmissionSummary{
			ID:            sub.ID,
			ObtainedScore: sub.ObtainedScore,
			TotalScore:    sub.TotalScore,
			Percentage:    sub.Percentage(),
			Results:       sub.Results,
			SubmittedAt:   sub.SubmittedAt,
		}
		if exam, ok := s.exams[sub.ExamID]; ok {
			summary.Exam = &domain.ExamSummary{
				ID:          exam.ID,
				Title:       exam.Title,
				Description: exam.Description,
				Category:    exam.Category,
				CreatedAt:   exam.CreatedAt,
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (s *Store) ListSubmissionsByExam(_ context.Context, examID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.examSubmissionsLocked(examID)
	return out, nil
}

func (s *Store) HasSubmission(_ context.Context, examID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.submissions[submissionKey{examID, userID}]
	return ok, nil
}

func (s *Store) Roster(_ context.Context, examID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0)
	for key := range s.submissions {
		if key.examID == examID {
			users = append(users, key.userID)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := s.firstAt[submissionKey{examID, users[i]}], s.firstAt[submissionKey{examID, users[j]}]
		if !a.Equal(b) {
			return a.Before(b)
		}
		return users[i] < users[j]
	})
	return users, nil
}

// examSubmissionsLocked returns the exam's submissions oldest first.
func (s *Store) examSubmissionsLocked(examID string) []domain.Submission {
	out := make([]domain.Submission, 0)
	for key, sub := range s.submissions {
		if key.examID == examID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (s *Store) requireQuestionsLocked(questionIDs []string) error {
	for _, id := range questionIDs {
		if _, ok := s.questions[id]; !ok {
			return domain.ErrQuestionNotFound
		}
	}
	return nil
}

func bind(examID string, questionIDs []string, start int) []domain.ExamQuestion {
	out := make([]domain.ExamQuestion, 0, len(questionIDs))
	for i, id := range questionIDs {
		out = append(out, domain.ExamQuestion{ExamID: examID, QuestionID: id, Position: start + i})
	}
	return out
}
