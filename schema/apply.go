package schema

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const migrationTable = "schema_migrations"

// Apply applies each of the Migrations to the DB which hasn't already been
// applied. Each migration is applied and recorded within a single transaction,
// such that a failed migration leaves no trace.
func Apply(ctx context.Context, db *sql.DB, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationTable+` (
			name       TEXT   PRIMARY KEY,
			applied_at BIGINT NOT NULL
		);`); err != nil {
		return errors.WithMessage(err, "creating "+migrationTable)
	}

	for _, m := range migrations {
		if applied, err := isApplied(ctx, db, m.Name); err != nil {
			return errors.WithMessagef(err, "checking migration %s", m.Name)
		} else if applied {
			continue
		}

		if err := applyOne(ctx, db, m); err != nil {
			return errors.WithMessagef(err, "applying migration %s", m.Name)
		}
		log.WithField("migration", m.Name).Info("applied schema migration")
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	var txn, err = db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err = txn.ExecContext(ctx, m.Up); err != nil {
		_ = txn.Rollback()
		return err
	}
	if _, err = txn.ExecContext(ctx,
		`INSERT INTO `+migrationTable+` (name, applied_at) VALUES ($1, $2);`,
		m.Name, time.Now().UTC().UnixMilli()); err != nil {
		_ = txn.Rollback()
		return errors.WithMessage(err, "recording migration")
	}
	return txn.Commit()
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found int
	var err = db.QueryRowContext(ctx,
		`SELECT 1 FROM `+migrationTable+` WHERE name = $1;`, name).Scan(&found)

	if err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
