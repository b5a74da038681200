package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// first_submitted_at is written once per (exam, user) and orders the roster.
func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			colType := "TIMESTAMP"
			if db.Dialect().Name() == dialect.PG {
				colType = "TIMESTAMPTZ"
			}
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.NewAddColumn().Model((*submission)(nil)).
					ColumnExpr("first_submitted_at " + colType).
					Exec(ctx); err != nil {
					return err
				}
				if _, err := tx.NewUpdate().Model((*submission)(nil)).
					Set("first_submitted_at = submitted_at").
					Where("first_submitted_at IS NULL").
					Exec(ctx); err != nil {
					return err
				}
				_, err := tx.NewCreateIndex().Model((*submission)(nil)).
					Index("submissions_exam_first_idx").
					Column("exam_id", "first_submitted_at").
					IfNotExists().
					Exec(ctx)
				return err
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropColumn().Model((*submission)(nil)).
				ColumnExpr("first_submitted_at").
				Exec(ctx)
			return err
		},
	)
}
