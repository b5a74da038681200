package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Store implements every repository on top of a bun database handle.
type Store struct {
	db *bun.DB
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and shutdown.
func (s *Store) DB() *bun.DB { return s.db }

func (s *Store) CreateExam(ctx context.Context, exam domain.Exam, questionIDs []string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireQuestions(ctx, tx, questionIDs); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(examFromDomain(exam)).Exec(ctx); err != nil {
			return err
		}
		return insertBindings(ctx, tx, exam.ID, questionIDs, 1)
	})
	return domain.WrapStore("create exam", err)
}

func (s *Store) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	var m examModel
	err := s.db.NewSelect().Model(&m).Where("e.id = ?", examID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	if err != nil {
		return domain.Exam{}, domain.WrapStore("get exam", err)
	}
	return m.toDomain(), nil
}

func (s *Store) UpdateExam(ctx context.Context, exam domain.Exam, questionIDs *[]string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(examFromDomain(exam)).
			Column("title", "description", "category", "status", "complexity", "estimated_minutes", "rating", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrExamNotFound
		}
		if questionIDs == nil {
			return nil
		}
		if err := requireQuestions(ctx, tx, *questionIDs); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*examQuestionModel)(nil)).Where("exam_id = ?", exam.ID).Exec(ctx); err != nil {
			return err
		}
		return insertBindings(ctx, tx, exam.ID, *questionIDs, 1)
	})
	return domain.WrapStore("update exam", err)
}

func (s *Store) DeleteExam(ctx context.Context, examID string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*submissionModel)(nil)).Where("exam_id = ?", examID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*examQuestionModel)(nil)).Where("exam_id = ?", examID).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*examModel)(nil)).Where("id = ?", examID).Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrExamNotFound
		}
		return nil
	})
	return domain.WrapStore("delete exam", err)
}

func (s *Store) ListExamsByCourse(ctx context.Context, courseID string) ([]domain.Exam, error) {
	return s.listExams(ctx, "e.course_id = ?", courseID)
}

func (s *Store) ListExamsByCreator(ctx context.Context, userID string) ([]domain.Exam, error) {
	return s.listExams(ctx, "e.created_by = ?", userID)
}

func (s *Store) listExams(ctx context.Context, where string, arg string) ([]domain.Exam, error) {
	var rows []examModel
	err := s.db.NewSelect().Model(&rows).Where(where, arg).Order("e.created_at DESC", "e.id ASC").Scan(ctx)
	if err != nil {
		return nil, domain.WrapStore("list exams", err)
	}
	out := make([]domain.Exam, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *Store) AppendQuestions(ctx context.Context, examID string, questionIDs []string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireExam(ctx, tx, examID); err != nil {
			return err
		}
		if err := requireQuestions(ctx, tx, questionIDs); err != nil {
			return err
		}
		var bound []string
		if err := tx.NewSelect().Model((*examQuestionModel)(nil)).
			Column("question_id").
			Where("exam_id = ?", examID).
			Scan(ctx, &bound); err != nil {
			return err
		}
		var last int
		if err := tx.NewSelect().Model((*examQuestionModel)(nil)).
			ColumnExpr("COALESCE(MAX(position), 0)").
			Where("exam_id = ?", examID).
			Scan(ctx, &last); err != nil {
			return err
		}

		skip := make(map[string]struct{}, len(bound))
		for _, id := range bound {
			skip[id] = struct{}{}
		}
		fresh := make([]string, 0, len(questionIDs))
		for _, id := range questionIDs {
			if _, ok := skip[id]; !ok {
				fresh = append(fresh, id)
			}
		}
		return insertBindings(ctx, tx, examID, fresh, last+1)
	})
	return domain.WrapStore("append exam questions", err)
}

func (s *Store) RemoveQuestions(ctx context.Context, examID string, questionIDs []string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireExam(ctx, tx, examID); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*examQuestionModel)(nil)).
			Where("exam_id = ?", examID).
			Where("question_id IN (?)", bun.In(questionIDs)).
			Exec(ctx)
		return err
	})
	return domain.WrapStore("remove exam questions", err)
}

func (s *Store) ExamsBinding(ctx context.Context, questionID string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().Model((*examQuestionModel)(nil)).
		Column("exam_id").
		Where("question_id = ?", questionID).
		Order("exam_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, domain.WrapStore("list question bindings", err)
	}
	return ids, nil
}

// LoadExamQuestions joins the bindings with their questions, ordered by position.
func (s *Store) LoadExamQuestions(ctx context.Context, examID string) ([]domain.BoundQuestion, error) {
	if err := requireExam(ctx, s.db, examID); err != nil {
		return nil, domain.WrapStore("load exam questions", err)
	}
	var bindings []examQuestionModel
	if err := s.db.NewSelect().Model(&bindings).
		Where("eq.exam_id = ?", examID).
		Order("eq.position ASC").
		Scan(ctx); err != nil {
		return nil, domain.WrapStore("load exam questions", err)
	}
	if len(bindings) == 0 {
		return []domain.BoundQuestion{}, nil
	}

	ids := make([]string, 0, len(bindings))
	for _, b := range bindings {
		ids = append(ids, b.QuestionID)
	}
	var rows []questionModel
	if err := s.db.NewSelect().Model(&rows).Where("q.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, domain.WrapStore("load exam questions", err)
	}
	byID := make(map[string]questionModel, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}

	out := make([]domain.BoundQuestion, 0, len(bindings))
	for _, b := range bindings {
		m, ok := byID[b.QuestionID]
		if !ok {
			continue
		}
		out = append(out, domain.BoundQuestion{Question: m.toDomain(), Position: b.Position})
	}
	return out, nil
}

func (s *Store) CreateQuestions(ctx context.Context, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]questionModel, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionFromDomain(q))
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return domain.WrapStore("create questions", err)
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var m questionModel
	err := s.db.NewSelect().Model(&m).Where("q.id = ?", questionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, domain.WrapStore("get question", err)
	}
	return m.toDomain(), nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question domain.Question) error {
	m := questionFromDomain(question)
	res, err := s.db.NewUpdate().Model(&m).
		Column("category", "text", "options", "correct_option_id", "hint", "media", "weight", "rating", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.WrapStore("update question", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, questionID string) error {
	res, err := s.db.NewDelete().Model((*questionModel)(nil)).Where("id = ?", questionID).Exec(ctx)
	if err != nil {
		return domain.WrapStore("delete question", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) SetQuestionRating(ctx context.Context, questionID string, rating float64, updatedAt time.Time) error {
	m := questionModel{ID: questionID, Rating: rating, UpdatedAt: updatedAt}
	res, err := s.db.NewUpdate().Model(&m).
		Column("rating", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.WrapStore("rate question", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// DeleteUnboundByCategory selects and deletes in one transaction; questions an exam
// still binds are left in place.
func (s *Store) DeleteUnboundByCategory(ctx context.Context, courseID, category, ownerID string) ([]domain.Question, error) {
	deleted := make([]domain.Question, 0)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		bound := tx.NewSelect().Model((*examQuestionModel)(nil)).
			ColumnExpr("1").
			Where("eq.question_id = q.id")
		var rows []questionModel
		if err := tx.NewSelect().Model(&rows).
			Where("q.course_id = ?", courseID).
			Where("q.category = ?", category).
			Where("q.created_by = ?", ownerID).
			Where("NOT EXISTS (?)", bound).
			Order("q.id ASC").
			Scan(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]string, 0, len(rows))
		for _, m := range rows {
			ids = append(ids, m.ID)
			deleted = append(deleted, m.toDomain())
		}
		_, err := tx.NewDelete().Model((*questionModel)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, domain.WrapStore("delete questions by category", err)
	}
	return deleted, nil
}

func (s *Store) ListQuestionsByCourse(ctx context.Context, courseID, category string) ([]domain.Question, error) {
	q := s.db.NewSelect().Model((*questionModel)(nil)).Where("q.course_id = ?", courseID)
	if category != "" {
		q = q.Where("q.category = ?", category)
	}
	return listQuestions(ctx, q)
}

func (s *Store) ListQuestionsByCreator(ctx context.Context, userID string) ([]domain.Question, error) {
	return listQuestions(ctx, s.db.NewSelect().Model((*questionModel)(nil)).Where("q.created_by = ?", userID))
}

func (s *Store) CountQuestionsByCreator(ctx context.Context, userID string) (int, error) {
	n, err := s.db.NewSelect().Model((*questionModel)(nil)).Where("q.created_by = ?", userID).Count(ctx)
	if err != nil {
		return 0, domain.WrapStore("count questions", err)
	}
	return n, nil
}

func listQuestions(ctx context.Context, q *bun.SelectQuery) ([]domain.Question, error) {
	var rows []questionModel
	if err := q.Order("q.created_at DESC", "q.id ASC").Scan(ctx, &rows); err != nil {
		return nil, domain.WrapStore("list questions", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// ReplaceSubmission upserts on (exam_id, user_id) so a pair never has zero or two rows.
// first_submitted_at keeps the value from the first insert.
func (s *Store) ReplaceSubmission(ctx context.Context, sub domain.Submission) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireExam(ctx, tx, sub.ExamID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(submissionFromDomain(sub)).
			On("CONFLICT (exam_id, user_id) DO UPDATE").
			Set("id = EXCLUDED.id").
			Set("results = EXCLUDED.results").
			Set("obtained_score = EXCLUDED.obtained_score").
			Set("total_score = EXCLUDED.total_score").
			Set("submitted_at = EXCLUDED.submitted_at").
			Exec(ctx)
		return err
	})
	return domain.WrapStore("replace submission", err)
}

func (s *Store) GetSubmission(ctx context.Context, examID, userID string) (domain.Submission, error) {
	var m submissionModel
	err := s.db.NewSelect().Model(&m).
		Where("s.exam_id = ?", examID).
		Where("s.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, domain.WrapStore("get submission", err)
	}
	return m.toDomain(), nil
}

func (s *Store) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.SubmissionSummary, error) {
	var rows []submissionModel
	if err := s.db.NewSelect().Model(&rows).
		Where("s.user_id = ?", userID).
		Order("s.submitted_at DESC").
		Scan(ctx); err != nil {
		return nil, domain.WrapStore("list user submissions", err)
	}
	if len(rows) == 0 {
		return []domain.SubmissionSummary{}, nil
	}

	examIDs := make([]string, 0, len(rows))
	for _, m := range rows {
		examIDs = append(examIDs, m.ExamID)
	}
	var exams []examModel
	if err := s.db.NewSelect().Model(&exams).Where("e.id IN (?)", bun.In(examIDs)).Scan(ctx); err != nil {
		return nil, domain.WrapStore("list user submissions", err)
	}
	byID := make(map[string]examModel, len(exams))
	for _, e := range exams {
		byID[e.ID] = e
	}

	out := make([]domain.SubmissionSummary, 0, len(rows))
	for _, m := range rows {
		sub := m.toDomain()
		summary := domain.SubmissionSummary{
			ID:            sub.ID,
			ObtainedScore: sub.ObtainedScore,
			TotalScore:    sub.TotalScore,
			Percentage:    sub.Percentage(),
			Results:       sub.Results,
			SubmittedAt:   sub.SubmittedAt,
		}
		if e, ok := byID[m.ExamID]; ok {
			summary.Exam = &domain.ExamSummary{
				ID:          e.ID,
				Title:       e.Title,
				Description: e.Description,
				Category:    e.Category,
				CreatedAt:   e.CreatedAt.UTC(),
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) ListSubmissionsByExam(ctx context.Context, examID string) ([]domain.Submission, error) {
	var rows []submissionModel
	if err := s.db.NewSelect().Model(&rows).
		Where("s.exam_id = ?", examID).
		Order("s.submitted_at ASC", "s.user_id ASC").
		Scan(ctx); err != nil {
		return nil, domain.WrapStore("list exam submissions", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *Store) HasSubmission(ctx context.Context, examID, userID string) (bool, error) {
	ok, err := s.db.NewSelect().Model((*submissionModel)(nil)).
		Where("exam_id = ?", examID).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, domain.WrapStore("check submission", err)
	}
	return ok, nil
}

func (s *Store) Roster(ctx context.Context, examID string) ([]string, error) {
	users := make([]string, 0)
	err := s.db.NewSelect().Model((*submissionModel)(nil)).
		Column("user_id").
		Where("exam_id = ?", examID).
		Order("first_submitted_at ASC", "user_id ASC").
		Scan(ctx, &users)
	if err != nil {
		return nil, domain.WrapStore("list roster", err)
	}
	return users, nil
}

func requireExam(ctx context.Context, db bun.IDB, examID string) error {
	ok, err := db.NewSelect().Model((*examModel)(nil)).Where("id = ?", examID).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrExamNotFound
	}
	return nil
}

func requireQuestions(ctx context.Context, db bun.IDB, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	unique := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		unique[id] = struct{}{}
	}
	n, err := db.NewSelect().Model((*questionModel)(nil)).Where("id IN (?)", bun.In(questionIDs)).Count(ctx)
	if err != nil {
		return err
	}
	if n != len(unique) {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func insertBindings(ctx context.Context, db bun.IDB, examID string, questionIDs []string, start int) error {
	if len(questionIDs) == 0 {
		return nil
	}
	rows := make([]examQuestionModel, 0, len(questionIDs))
	for i, id := range questionIDs {
		rows = append(rows, examQuestionModel{ExamID: examID, QuestionID: id, Position: start + i})
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}
