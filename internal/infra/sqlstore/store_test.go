package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"lms-exam-service/internal/domain"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, memoryDSN(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	n, err := Migrate(ctx, db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 migrations applied, got %d", n)
	}
	if n, err := Migrate(ctx, db); err != nil || n != 0 {
		t.Fatalf("second migrate should be a no-op, got %d (%v)", n, err)
	}
}

func TestExamBindingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	qs, err := s.LoadExamQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(qs) != 3 || qs[0].ID != "q1" || qs[2].Weight != 2 || qs[2].Position != 3 {
		t.Fatalf("unexpected bound questions %+v", qs)
	}
	if len(qs[0].Options) != 3 || qs[0].CorrectOptionID != "A" {
		t.Fatalf("options not round-tripped: %+v", qs[0])
	}

	if err := s.RemoveQuestions(ctx, "exam-1", []string{"q1"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.AppendQuestions(ctx, "exam-1", []string{"q1", "q2"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	qs, err = s.LoadExamQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := make([]string, 0, len(qs))
	for _, q := range qs {
		got = append(got, fmt.Sprintf("%s@%d", q.ID, q.Position))
	}
	if strings.Join(got, ",") != "q2@2,q3@3,q1@4" {
		t.Fatalf("unexpected positions %v", got)
	}

	order := []string{"q3", "q1"}
	exam, _ := s.GetExam(ctx, "exam-1")
	exam.Title = "Renamed"
	if err := s.UpdateExam(ctx, exam, &order); err != nil {
		t.Fatalf("update: %v", err)
	}
	qs, _ = s.LoadExamQuestions(ctx, "exam-1")
	if len(qs) != 2 || qs[0].ID != "q3" || qs[0].Position != 1 || qs[1].Position != 2 {
		t.Fatalf("rebind did not renumber: %+v", qs)
	}
	if exam, _ := s.GetExam(ctx, "exam-1"); exam.Title != "Renamed" {
		t.Fatalf("title not updated: %+v", exam)
	}

	ids, err := s.ExamsBinding(ctx, "q3")
	if err != nil || len(ids) != 1 || ids[0] != "exam-1" {
		t.Fatalf("expected q3 bound to exam-1, got %v (%v)", ids, err)
	}
}

func TestReplaceSubmissionUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	first := domain.Submission{
		ID: "s1", ExamID: "exam-1", UserID: "u1", ObtainedScore: 1, TotalScore: 4, SubmittedAt: at,
		Results: []domain.QuestionResult{{QuestionID: "q1", Question: "first", Selected: "A", Correct: "A", IsCorrect: true, Weight: 1}},
	}
	second := domain.Submission{ID: "s2", ExamID: "exam-1", UserID: "u1", ObtainedScore: 3, TotalScore: 4, SubmittedAt: at.Add(time.Minute)}
	for _, sub := range []domain.Submission{first, second} {
		if err := s.ReplaceSubmission(ctx, sub); err != nil {
			t.Fatalf("replace %s: %v", sub.ID, err)
		}
	}

	subs, err := s.ListSubmissionsByExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected one row per pair, got %d", len(subs))
	}
	if subs[0].ID != "s2" || subs[0].ObtainedScore != 3 || !subs[0].SubmittedAt.Equal(second.SubmittedAt) || len(subs[0].Results) != 0 {
		t.Fatalf("row should reflect second submission, got %+v", subs[0])
	}

	got, err := s.GetSubmission(ctx, "exam-1", "u1")
	if err != nil || got.ID != "s2" {
		t.Fatalf("get submission: %+v (%v)", got, err)
	}
	if _, err := s.GetSubmission(ctx, "exam-1", "u2"); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.ReplaceSubmission(ctx, domain.Submission{ID: "s3", ExamID: "ghost", UserID: "u1"}); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected exam not found, got %v", err)
	}
}

func TestConcurrentReplaceKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		i := i
		g.Go(func() error {
			return s.ReplaceSubmission(ctx, domain.Submission{
				ID: fmt.Sprintf("s%d", i), ExamID: "exam-1", UserID: "u1", TotalScore: 4,
				SubmittedAt: time.Date(2024, 6, 1, 12, 0, i, 0, time.UTC),
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent replace: %v", err)
	}
	roster, err := s.Roster(ctx, "exam-1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0] != "u1" {
		t.Fatalf("expected single roster entry, got %v", roster)
	}
	if ok, err := s.HasSubmission(ctx, "exam-1", "u1"); err != nil || !ok {
		t.Fatalf("expected attempted, got %v (%v)", ok, err)
	}
}

func TestRosterKeepsFirstSubmittedOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, user := range []string{"alice", "bob", "alice"} {
		sub := domain.Submission{
			ID: fmt.Sprintf("s%d", i), ExamID: "exam-1", UserID: user, TotalScore: 4,
			SubmittedAt: t0.Add(time.Duration(i) * time.Second),
		}
		if err := s.ReplaceSubmission(ctx, sub); err != nil {
			t.Fatalf("replace %s: %v", sub.ID, err)
		}
	}

	roster, err := s.Roster(ctx, "exam-1")
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if strings.Join(roster, ",") != "alice,bob" {
		t.Fatalf("resubmitting must not move alice, got %v", roster)
	}
	got, err := s.GetSubmission(ctx, "exam-1", "alice")
	if err != nil || got.ID != "s2" || !got.SubmittedAt.Equal(t0.Add(2*time.Second)) {
		t.Fatalf("submission should still be replaced, got %+v (%v)", got, err)
	}
}

func TestSubmissionsByUserCarryExamSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	exam2 := domain.Exam{ID: "exam-2", CourseID: "course-1", Title: "Final", Description: "all chapters", Category: "math", Status: domain.ExamPublished, CreatedAt: at, UpdatedAt: at}
	if err := s.CreateExam(ctx, exam2, []string{"q1"}); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	for i, examID := range []string{"exam-1", "exam-2"} {
		sub := domain.Submission{ID: "s-" + examID, ExamID: examID, UserID: "u1", ObtainedScore: 1, TotalScore: 2, SubmittedAt: at.Add(time.Duration(i) * time.Hour)}
		if err := s.ReplaceSubmission(ctx, sub); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}

	subs, err := s.ListSubmissionsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	first := subs[0]
	if first.Exam == nil || first.Exam.ID != "exam-2" || first.Exam.Description != "all chapters" || first.Exam.Category != "math" {
		t.Fatalf("expected newest submission with exam summary, got %+v", first)
	}
	if first.Percentage != 50 {
		t.Fatalf("expected 50%%, got %v", first.Percentage)
	}
}

func TestDeleteExamRemovesBindingsAndSubmissions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.ReplaceSubmission(ctx, domain.Submission{ID: "s1", ExamID: "exam-1", UserID: "u1"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.DeleteExam(ctx, "exam-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := s.HasSubmission(ctx, "exam-1", "u1"); ok {
		t.Fatalf("submission survived")
	}
	if ids, _ := s.ExamsBinding(ctx, "q1"); len(ids) != 0 {
		t.Fatalf("bindings survived: %v", ids)
	}
	if err := s.DeleteExam(ctx, "exam-1"); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := s.DeleteQuestion(ctx, "q1"); err != nil {
		t.Fatalf("delete unbound question: %v", err)
	}
}

func TestQuestionQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	geometry, err := s.ListQuestionsByCourse(ctx, "course-1", "geometry")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(geometry) != 1 || geometry[0].ID != "q3" {
		t.Fatalf("unexpected category filter result %+v", geometry)
	}
	all, _ := s.ListQuestionsByCourse(ctx, "course-1", "")
	if len(all) != 3 || all[0].ID != "q3" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	mine, _ := s.ListQuestionsByCreator(ctx, "teacher-1")
	if len(mine) != 3 {
		t.Fatalf("expected 3 authored questions, got %d", len(mine))
	}

	q, err := s.GetQuestion(ctx, "q2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	q.CorrectOptionID = "C"
	q.Options = append(q.Options, domain.Option{ID: "D", Label: "d"})
	if err := s.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("update: %v", err)
	}
	q, _ = s.GetQuestion(ctx, "q2")
	if q.CorrectOptionID != "C" || len(q.Options) != 4 {
		t.Fatalf("update not persisted: %+v", q)
	}
	if err := s.UpdateQuestion(ctx, domain.Question{ID: "ghost"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetQuestion(ctx, "ghost"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.CreateExam(ctx, domain.Exam{ID: "exam-x", Title: "x", Status: domain.ExamDraft}, []string{"ghost"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected unknown question rejection, got %v", err)
	}
}

func TestCategoryDeleteKeepsBoundAndForeignQuestions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	opts := []domain.Option{{ID: "A", Label: "a"}, {ID: "B", Label: "b"}}
	extra := []domain.Question{
		{ID: "q4", CourseID: "course-1", Category: "algebra", Text: "spare", Options: opts, CorrectOptionID: "A", CreatedBy: "teacher-1", CreatedAt: at, UpdatedAt: at},
		{ID: "q5", CourseID: "course-1", Category: "algebra", Text: "theirs", Options: opts, CorrectOptionID: "A", CreatedBy: "teacher-2", CreatedAt: at, UpdatedAt: at},
	}
	if err := s.CreateQuestions(ctx, extra); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := s.DeleteUnboundByCategory(ctx, "course-1", "algebra", "teacher-1")
	if err != nil {
		t.Fatalf("delete by category: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != "q4" {
		t.Fatalf("expected only q4 removed, got %+v", deleted)
	}
	for _, id := range []string{"q1", "q2", "q5"} {
		if _, err := s.GetQuestion(ctx, id); err != nil {
			t.Fatalf("%s should survive: %v", id, err)
		}
	}
	if n, err := s.CountQuestionsByCreator(ctx, "teacher-1"); err != nil || n != 3 {
		t.Fatalf("expected 3 questions left for teacher-1, got %d (%v)", n, err)
	}
	if n, _ := s.CountQuestionsByCreator(ctx, "nobody"); n != 0 {
		t.Fatalf("expected zero for unknown teacher, got %d", n)
	}
}

func TestSetQuestionRating(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	if err := s.SetQuestionRating(ctx, "q1", 4, at); err != nil {
		t.Fatalf("rate: %v", err)
	}
	q, err := s.GetQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.Rating != 4 || !q.UpdatedAt.Equal(at) || q.Text != "first" {
		t.Fatalf("rating not persisted cleanly: %+v", q)
	}
	if err := s.SetQuestionRating(ctx, "ghost", 3, at); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, memoryDSN(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := New(db)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	options := []domain.Option{{ID: "A", Label: "a"}, {ID: "B", Label: "b"}, {ID: "C", Label: "c"}}
	questions := []domain.Question{
		{ID: "q1", CourseID: "course-1", Category: "algebra", Text: "first", Options: options, CorrectOptionID: "A", Weight: 1, CreatedBy: "teacher-1", CreatedAt: base, UpdatedAt: base},
		{ID: "q2", CourseID: "course-1", Category: "algebra", Text: "second", Options: options, CorrectOptionID: "B", Weight: 1, CreatedBy: "teacher-1", CreatedAt: base.Add(time.Minute), UpdatedAt: base},
		{ID: "q3", CourseID: "course-1", Category: "geometry", Text: "third", Options: options, CorrectOptionID: "C", Weight: 2, CreatedBy: "teacher-1", CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base},
	}
	if err := s.CreateQuestions(ctx, questions); err != nil {
		t.Fatalf("create questions: %v", err)
	}
	exam := domain.Exam{ID: "exam-1", CourseID: "course-1", Title: "Midterm", Status: domain.ExamPublished, CreatedBy: "teacher-1", CreatedAt: base, UpdatedAt: base}
	if err := s.CreateExam(ctx, exam, []string{"q1", "q2", "q3"}); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return s
}

func memoryDSN(t *testing.T) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}
