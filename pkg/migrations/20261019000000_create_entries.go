package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		// Book records, book blobs, and preferences all live here, addressed
		// by string keys such as "folio:book:<id>" and "folio:book:<id>:blob".
		_, err := db.Exec(`
			CREATE TABLE entries (
				key TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				value BLOB NOT NULL,
				size INTEGER NOT NULL
			)
		`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS entries")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
