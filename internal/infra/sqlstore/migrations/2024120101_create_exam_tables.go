package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds every schema change of the relational store, in file order.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				for _, model := range []interface{}{(*exam)(nil), (*question)(nil)} {
					if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
						return err
					}
				}
				if _, err := tx.NewCreateTable().Model((*examQuestion)(nil)).
					IfNotExists().
					ForeignKey(`("exam_id") REFERENCES "exams" ("id") ON DELETE CASCADE`).
					ForeignKey(`("question_id") REFERENCES "questions" ("id")`).
					Exec(ctx); err != nil {
					return err
				}

				indexes := []struct {
					model   interface{}
					name    string
					unique  bool
					columns []string
				}{
					{(*exam)(nil), "exams_course_id_idx", false, []string{"course_id"}},
					{(*exam)(nil), "exams_created_by_idx", false, []string{"created_by"}},
					{(*question)(nil), "questions_course_id_idx", false, []string{"course_id", "category"}},
					{(*question)(nil), "questions_created_by_idx", false, []string{"created_by"}},
					{(*examQuestion)(nil), "exam_questions_position_key", true, []string{"exam_id", "position"}},
					{(*examQuestion)(nil), "exam_questions_question_id_idx", false, []string{"question_id"}},
				}
				for _, idx := range indexes {
					q := tx.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
					if idx.unique {
						q = q.Unique()
					}
					if _, err := q.Exec(ctx); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, model := range []interface{}{(*examQuestion)(nil), (*question)(nil), (*exam)(nil)} {
				if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
