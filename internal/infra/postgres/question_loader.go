package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/domain"
)

var _ app.QuestionLoader = (*QuestionLoader)(nil)

const examQuestionsSQL = `
SELECT q.id, q.course_id, q.category, q.text, q.options, q.correct_option_id,
       q.hint, q.media, q.weight, q.rating, q.created_by, q.created_at, q.updated_at,
       eq.position
FROM exam_questions eq
JOIN questions q ON q.id = eq.question_id
WHERE eq.exam_id = $1
ORDER BY eq.position ASC`

// QuestionLoader reads an exam's bound questions straight from Postgres in one round trip.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadExamQuestions(ctx context.Context, examID string) ([]domain.BoundQuestion, error) {
	rows, err := l.pool.Query(ctx, examQuestionsSQL, examID)
	if err != nil {
		return nil, domain.WrapStore("load exam questions", err)
	}
	defer rows.Close()

	out := make([]domain.BoundQuestion, 0)
	for rows.Next() {
		var (
			bq      domain.BoundQuestion
			options []byte
		)
		if err := rows.Scan(
			&bq.ID, &bq.CourseID, &bq.Category, &bq.Text, &options, &bq.CorrectOptionID,
			&bq.Hint, &bq.Media, &bq.Weight, &bq.Rating, &bq.CreatedBy, &bq.CreatedAt, &bq.UpdatedAt,
			&bq.Position,
		); err != nil {
			return nil, domain.WrapStore("scan exam question", err)
		}
		if err := json.Unmarshal(options, &bq.Options); err != nil {
			return nil, domain.WrapStore("decode question options", fmt.Errorf("question %s: %w", bq.ID, err))
		}
		bq.CreatedAt = bq.CreatedAt.UTC()
		bq.UpdatedAt = bq.UpdatedAt.UTC()
		out = append(out, bq)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStore("load exam questions", err)
	}

	if len(out) == 0 {
		var exists bool
		if err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1)`, examID).Scan(&exists); err != nil {
			return nil, domain.WrapStore("check exam", err)
		}
		if !exists {
			return nil, domain.ErrExamNotFound
		}
	}
	return out, nil
}
