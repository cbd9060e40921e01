package engine

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/pkg/errors"
)

// SQLEngine is an Engine over a "database/sql" handle. The handle's schema
// must include the feed_cache and feed_cache_images tables (see package schema).
type SQLEngine struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewSQLEngine returns a SQLEngine of the DB and its Dialect.
func NewSQLEngine(db *sql.DB, dialect Dialect) *SQLEngine {
	return &SQLEngine{DB: db, Dialect: dialect}
}

// Begin implements the Engine interface.
func (e *SQLEngine) Begin(ctx context.Context) (Txn, error) {
	var tx, err = e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "begin transaction")
	}
	return &sqlTxn{tx: tx}, nil
}

type sqlTxn struct {
	tx *sql.Tx
}

func (t *sqlTxn) FetchFeed(ctx context.Context) (FeedEntity, bool, error) {
	// Select up to two rows, so that a violation of the single-slot
	// invariant is detected rather than silently masked.
	var rows, err = t.tx.QueryContext(ctx,
		`SELECT id, timestamp FROM feed_cache ORDER BY id LIMIT 2;`)
	if err != nil {
		return FeedEntity{}, false, errors.WithMessage(err, "fetch feed")
	}
	defer rows.Close()

	var out []FeedEntity
	for rows.Next() {
		var entity FeedEntity
		var nanos int64

		if err = rows.Scan(&entity.ID, &nanos); err != nil {
			return FeedEntity{}, false, errors.WithMessage(err, "scanning feed")
		}
		entity.Timestamp = fromNanos(nanos)
		out = append(out, entity)
	}
	if err = rows.Err(); err != nil {
		return FeedEntity{}, false, errors.WithMessage(err, "fetch feed")
	}

	switch len(out) {
	case 0:
		return FeedEntity{}, false, nil
	case 1:
		return out[0], true, nil
	default:
		return FeedEntity{}, false, errors.Errorf("expected at most one cached feed (found ids %d and %d)",
			out[0].ID, out[1].ID)
	}
}

func (t *sqlTxn) FetchImages(ctx context.Context, feedID int64) ([]ImageEntity, error) {
	var rows, err = t.tx.QueryContext(ctx, `
		SELECT ordinal, id, description, location, url
		FROM feed_cache_images WHERE feed_id = $1 ORDER BY ordinal;`, feedID)
	if err != nil {
		return nil, errors.WithMessage(err, "fetch images")
	}
	defer rows.Close()

	var out []ImageEntity
	for rows.Next() {
		var img = ImageEntity{FeedID: feedID}
		var desc, loc sql.NullString

		if err = rows.Scan(&img.Ordinal, &img.ID, &desc, &loc, &img.URL); err != nil {
			return nil, errors.WithMessage(err, "scanning image")
		}
		img.Description = fromNullString(desc)
		img.Location = fromNullString(loc)
		out = append(out, img)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.WithMessage(err, "fetch images")
	}
	return out, nil
}

func (t *sqlTxn) InsertFeed(ctx context.Context, timestamp time.Time) (id int64, err error) {
	if timestamp.Before(minTimestamp) || timestamp.After(maxTimestamp) {
		return 0, errors.Errorf("timestamp %s is outside of the representable range", timestamp)
	}
	err = t.tx.QueryRowContext(ctx,
		`INSERT INTO feed_cache (timestamp) VALUES ($1) RETURNING id;`,
		timestamp.UnixNano()).Scan(&id)

	return id, errors.WithMessage(err, "insert feed")
}

func (t *sqlTxn) InsertImage(ctx context.Context, img ImageEntity) error {
	var _, err = t.tx.ExecContext(ctx, `
		INSERT INTO feed_cache_images (feed_id, ordinal, id, description, location, url)
		VALUES ($1, $2, $3, $4, $5, $6);`,
		img.FeedID, img.Ordinal, img.ID.String(), toNullString(img.Description), toNullString(img.Location), img.URL)

	return errors.WithMessagef(err, "insert image %d", img.Ordinal)
}

func (t *sqlTxn) DeleteFeed(ctx context.Context, feedID int64) error {
	// The foreign key also cascades, but images are deleted explicitly so
	// that ownership doesn't depend on foreign key enforcement being enabled.
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM feed_cache_images WHERE feed_id = $1;`, feedID); err != nil {
		return errors.WithMessage(err, "delete images")
	}
	var res, err = t.tx.ExecContext(ctx, `DELETE FROM feed_cache WHERE id = $1;`, feedID)
	if err != nil {
		return errors.WithMessage(err, "delete feed")
	}

	if n, err := res.RowsAffected(); err != nil {
		return errors.WithMessage(err, "delete feed")
	} else if n != 1 {
		return errors.Errorf("delete feed: expected to delete one row (feed %d; deleted %d)", feedID, n)
	}
	return nil
}

func (t *sqlTxn) Commit() error {
	return errors.WithMessage(t.tx.Commit(), "commit transaction")
}

func (t *sqlTxn) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return errors.WithMessage(err, "rollback transaction")
	}
	return nil
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	var out = s.String
	return &out
}

var (
	minTimestamp = time.Unix(0, math.MinInt64)
	maxTimestamp = time.Unix(0, math.MaxInt64)
)

var _ Engine = (*SQLEngine)(nil)
