package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
	"lms-exam-service/internal/infra/memory"
)

func TestSubmitScoresWeightedExam(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	out, err := env.scoring.Submit(ctx, "exam-1", "u1", []domain.Answer{{OptionID: "A"}, {OptionID: "X"}, {OptionID: "C"}})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if out.ObtainedScore != 3 || out.TotalScore != 4 || out.Percentage != 75 {
		t.Fatalf("expected 3/4 (75%%), got %+v", out)
	}

	sub, err := env.scoring.Result(ctx, "exam-1", "u1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if sub.ObtainedScore != 3 || len(sub.Results) != 3 || !sub.SubmittedAt.Equal(env.now) {
		t.Fatalf("unexpected stored submission %+v", sub)
	}
}

func TestSubmitEmptyAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.exam(t, "exam-2", domain.ExamPublished, "q1", "q2")

	out, err := env.scoring.Submit(context.Background(), "exam-2", "u1", []domain.Answer{})
	if err != nil {
		t.Fatalf("empty answers must be accepted: %v", err)
	}
	if out.ObtainedScore != 0 || out.TotalScore != 2 || out.Percentage != 0 {
		t.Fatalf("expected 0/2, got %+v", out)
	}
}

func TestSubmitTooManyAnswersWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	answers := []domain.Answer{{OptionID: "A"}, {OptionID: "B"}, {OptionID: "C"}, {OptionID: "A"}}
	if _, err := env.scoring.Submit(ctx, "exam-1", "u1", answers); !errors.Is(err, domain.ErrTooManyAnswers) {
		t.Fatalf("expected too many answers, got %v", err)
	}
	if _, err := env.scoring.Result(ctx, "exam-1", "u1"); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected no submission, got %v", err)
	}
	roster, err := env.scoring.Roster(ctx, "exam-1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 0 {
		t.Fatalf("roster must stay untouched, got %v", roster)
	}
	if env.notified.Load() != 0 {
		t.Fatalf("rejected submission must not notify")
	}
}

func TestSubmitWithoutQuestions(t *testing.T) {
	env := newTestEnv(t)
	env.exam(t, "empty", domain.ExamPublished)

	_, err := env.scoring.Submit(context.Background(), "empty", "u1", nil)
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

func TestSubmitUnknownAndArchivedExam(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.exam(t, "old", domain.ExamArchived, "q1")

	if _, err := env.scoring.Submit(ctx, "missing", "u1", nil); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected exam not found, got %v", err)
	}
	if _, err := env.scoring.Submit(ctx, "old", "u1", nil); !errors.Is(err, domain.ErrExamArchived) {
		t.Fatalf("expected archived rejection, got %v", err)
	}
}

func TestResubmissionReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.scoring.Submit(ctx, "exam-1", "u1", []domain.Answer{{OptionID: "X"}}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	env.now = env.now.Add(time.Minute)
	if _, err := env.scoring.Submit(ctx, "exam-1", "u1", []domain.Answer{{OptionID: "A"}, {OptionID: "B"}, {OptionID: "C"}}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	subs, err := env.scoring.SubmissionsForExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(subs))
	}
	if subs[0].ObtainedScore != 4 || !subs[0].SubmittedAt.Equal(env.now) {
		t.Fatalf("stored submission should reflect the second call, got %+v", subs[0])
	}
}

func TestConcurrentSubmitsKeepRosterASet(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := env.scoring.Submit(ctx, "exam-1", "u1", []domain.Answer{{OptionID: "A"}})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent submit: %v", err)
	}

	roster, err := env.scoring.Roster(ctx, "exam-1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0] != "u1" {
		t.Fatalf("expected u1 exactly once, got %v", roster)
	}
	attempted, err := env.scoring.HasAttempted(ctx, "exam-1", "u1")
	if err != nil || !attempted {
		t.Fatalf("expected attempted, got %v (%v)", attempted, err)
	}
	if attempted, _ := env.scoring.HasAttempted(ctx, "exam-1", "u2"); attempted {
		t.Fatalf("u2 never submitted")
	}
}

func TestSubmissionsForUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.exam(t, "exam-2", domain.ExamPublished, "q1")

	if _, err := env.scoring.Submit(ctx, "exam-1", "u1", nil); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	env.now = env.now.Add(time.Hour)
	if _, err := env.scoring.Submit(ctx, "exam-2", "u1", []domain.Answer{{OptionID: "A"}}); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	subs, err := env.scoring.SubmissionsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].Exam == nil || subs[0].Exam.ID != "exam-2" || subs[0].Percentage != 100 {
		t.Fatalf("expected newest submission first, got %+v", subs[0])
	}
	if subs[1].Exam == nil || subs[1].Exam.Title != "Exam exam-1" {
		t.Fatalf("expected exam summary on older submission, got %+v", subs[1])
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	submit := func(user string, answers ...string) {
		t.Helper()
		var as []domain.Answer
		for _, a := range answers {
			as = append(as, domain.Answer{OptionID: a})
		}
		if _, err := env.scoring.Submit(ctx, "exam-1", user, as); err != nil {
			t.Fatalf("submit %s: %v", user, err)
		}
		env.now = env.now.Add(time.Second)
	}
	submit("carol", "A")
	submit("alice", "A", "B", "C")
	submit("bob", "X", "X", "C")
	submit("dave", "A", "X", "C")

	lb, err := env.scoring.Leaderboard(ctx, "exam-1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var order []string
	for _, e := range lb.Entries {
		order = append(order, e.UserID)
	}
	if fmt.Sprint(order) != "[alice dave bob carol]" {
		t.Fatalf("unexpected ranking %v", order)
	}
}

func TestNotifyFailureDoesNotFailSubmit(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	scoring := app.NewScoringService(store, memory.NewQuestionCache(store, time.Minute), store,
		app.WithNotifier(notifierFunc(func(context.Context, string) error { return errors.New("broker down") })))

	if _, err := scoring.Submit(context.Background(), "exam-1", "u1", nil); err != nil {
		t.Fatalf("notify failure leaked into submit: %v", err)
	}
}

type notifierFunc func(ctx context.Context, examID string) error

func (f notifierFunc) Notify(ctx context.Context, examID string) error { return f(ctx, examID) }

func TestRosterOrderSurvivesResubmission(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, user := range []string{"alice", "bob", "alice"} {
		if _, err := env.scoring.Submit(ctx, "exam-1", user, []domain.Answer{{OptionID: "A"}}); err != nil {
			t.Fatalf("submit %s: %v", user, err)
		}
		env.now = env.now.Add(time.Second)
	}
	roster, err := env.scoring.Roster(ctx, "exam-1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 2 || roster[0] != "alice" || roster[1] != "bob" {
		t.Fatalf("expected [alice bob], got %v", roster)
	}
}

type testEnv struct {
	store    *memory.Store
	scoring  *app.ScoringService
	now      time.Time
	notified atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: memory.NewStore(), now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	seed(t, env.store)
	var ids atomic.Int64
	env.scoring = app.NewScoringService(env.store, memory.NewQuestionCache(env.store, time.Minute), env.store,
		app.WithClock(func() time.Time { return env.now }),
		app.WithIDGenerator(func() string { return fmt.Sprintf("sub-%d", ids.Add(1)) }),
		app.WithNotifier(notifierFunc(func(context.Context, string) error {
			env.notified.Add(1)
			return nil
		})),
	)
	return env
}

func (env *testEnv) exam(t *testing.T, id string, status domain.ExamStatus, questionIDs ...string) {
	t.Helper()
	exam := domain.Exam{ID: id, CourseID: "course-1", Title: "Exam " + id, Status: status, CreatedAt: env.now}
	if err := env.store.CreateExam(context.Background(), exam, questionIDs); err != nil {
		t.Fatalf("create exam %s: %v", id, err)
	}
}

// seed creates exam-1 with weights [1,1,2] and correct options [A,B,C].
func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	options := []domain.Option{{ID: "A", Label: "a"}, {ID: "B", Label: "b"}, {ID: "C", Label: "c"}}
	questions := []domain.Question{
		{ID: "q1", CourseID: "course-1", Text: "first", Options: options, CorrectOptionID: "A", Weight: 1},
		{ID: "q2", CourseID: "course-1", Text: "second", Options: options, CorrectOptionID: "B", Weight: 1},
		{ID: "q3", CourseID: "course-1", Text: "third", Options: options, CorrectOptionID: "C", Weight: 2},
	}
	if err := store.CreateQuestions(ctx, questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	exam := domain.Exam{ID: "exam-1", CourseID: "course-1", Title: "Exam exam-1", Status: domain.ExamPublished}
	if err := store.CreateExam(ctx, exam, []string{"q1", "q2", "q3"}); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
}
