package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.NewCreateTable().Model((*submission)(nil)).
					IfNotExists().
					ForeignKey(`("exam_id") REFERENCES "exams" ("id") ON DELETE CASCADE`).
					Exec(ctx); err != nil {
					return err
				}
				// one canonical submission per (exam, user); the upsert targets this index
				if _, err := tx.NewCreateIndex().Model((*submission)(nil)).
					Index("submissions_exam_user_key").
					Unique().
					Column("exam_id", "user_id").
					IfNotExists().
					Exec(ctx); err != nil {
					return err
				}
				_, err := tx.NewCreateIndex().Model((*submission)(nil)).
					Index("submissions_user_id_idx").
					Column("user_id", "submitted_at").
					IfNotExists().
					Exec(ctx)
				return err
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropTable().Model((*submission)(nil)).IfExists().Exec(ctx)
			return err
		},
	)
}
