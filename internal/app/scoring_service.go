package app

import (
	"context"
	"sort"
	"time"

	"lms-exam-service/internal/domain"
	"lms-exam-service/internal/logging"
)

// ScoringService grades exam submissions and serves their results.
type ScoringService struct {
	exams       ExamReader
	questions   QuestionSource
	submissions SubmissionRepository
	rt          runtime
}

func NewScoringService(exams ExamReader, questions QuestionSource, submissions SubmissionRepository, opts ...Option) *ScoringService {
	return &ScoringService{
		exams:       exams,
		questions:   questions,
		submissions: submissions,
		rt:          newRuntime(opts),
	}
}

// Submit grades answers against the exam's stored questions and replaces the
// caller's previous submission for the exam.
func (s *ScoringService) Submit(ctx context.Context, examID, userID string, answers []domain.Answer) (domain.Outcome, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if exam.Status == domain.ExamArchived {
		return domain.Outcome{}, domain.ErrExamArchived
	}

	questions, err := s.questions.QuestionsFor(ctx, examID)
	if err != nil {
		return domain.Outcome{}, err
	}

	outcome, err := evaluate(questions, answers)
	if err != nil {
		return domain.Outcome{}, err
	}

	sub := domain.Submission{
		ID:            s.rt.newID(),
		ExamID:        examID,
		UserID:        userID,
		Results:       outcome.Results,
		ObtainedScore: outcome.ObtainedScore,
		TotalScore:    outcome.TotalScore,
		SubmittedAt:   s.rt.now(),
	}
	if err := s.submissions.ReplaceSubmission(ctx, sub); err != nil {
		return domain.Outcome{}, err
	}

	log := logging.FromContext(ctx).WithField("exam_id", examID)
	log.WithField("user_id", userID).
		WithField("obtained", outcome.ObtainedScore).
		WithField("total", outcome.TotalScore).
		Info("submission graded")

	if s.rt.notifier != nil {
		if err := s.rt.notifier.Notify(ctx, examID); err != nil {
			log.WithError(err).Warn("submission notification failed")
		}
	}
	return outcome, nil
}

// Result returns the caller's current submission for the exam.
func (s *ScoringService) Result(ctx context.Context, examID, userID string) (domain.Submission, error) {
	return s.submissions.GetSubmission(ctx, examID, userID)
}

// SubmissionsForUser lists a user's submissions, most recent first.
func (s *ScoringService) SubmissionsForUser(ctx context.Context, userID string) ([]domain.SubmissionSummary, error) {
	subs, err := s.submissions.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
	return subs, nil
}

// SubmissionsForExam lists every submission recorded for an exam.
func (s *ScoringService) SubmissionsForExam(ctx context.Context, examID string) ([]domain.Submission, error) {
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.submissions.ListSubmissionsByExam(ctx, examID)
}

// HasAttempted reports whether the user has a submission for the exam.
func (s *ScoringService) HasAttempted(ctx context.Context, examID, userID string) (bool, error) {
	return s.submissions.HasSubmission(ctx, examID, userID)
}

// Roster lists the users who have attempted the exam.
func (s *ScoringService) Roster(ctx context.Context, examID string) ([]string, error) {
	if _, err := s.exams.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.submissions.Roster(ctx, examID)
}

// Leaderboard ranks the exam's submissions by percentage, then by who submitted first.
func (s *ScoringService) Leaderboard(ctx context.Context, examID string) (domain.Leaderboard, error) {
	subs, err := s.submissions.ListSubmissionsByExam(ctx, examID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return rank(examID, subs, s.rt.now()), nil
}

func rank(examID string, subs []domain.Submission, now time.Time) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(subs))
	for _, sub := range subs {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:        sub.UserID,
			ObtainedScore: sub.ObtainedScore,
			TotalScore:    sub.TotalScore,
			Percentage:    sub.Percentage(),
			SubmittedAt:   sub.SubmittedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Percentage != entries[j].Percentage {
			return entries[i].Percentage > entries[j].Percentage
		}
		if !entries[i].SubmittedAt.Equal(entries[j].SubmittedAt) {
			return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	return domain.Leaderboard{ExamID: examID, Entries: entries, UpdatedAt: now}
}
