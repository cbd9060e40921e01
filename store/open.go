package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.feedcache.dev/core/engine"
	"go.feedcache.dev/core/metrics"
	"go.feedcache.dev/core/queue"
	"go.feedcache.dev/core/schema"
)

// Option configures Open.
type Option func(*options)

type options struct {
	decorate    func(engine.Engine) engine.Engine
	logger      *log.Entry
	busyTimeout time.Duration
}

// WithEngine decorates the engine.Engine of the Store. It's used to
// compose instrumentation or fault injection over the engine's primitives.
func WithEngine(decorate func(engine.Engine) engine.Engine) Option {
	return func(o *options) { o.decorate = decorate }
}

// WithLogger sets the logger of the Store.
func WithLogger(entry *log.Entry) Option {
	return func(o *options) { o.logger = entry }
}

// WithBusyTimeout bounds how long a SQLite engine waits on a lock of its
// database file held by another connection before failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// DefaultBusyTimeout is the busy timeout of Stores opened without WithBusyTimeout.
const DefaultBusyTimeout = 5 * time.Second

// Open the Store at |location|, creating it if it doesn't exist, and apply
// migrations of the schema Source. Supported locations are:
//
//   - A filesystem path of a SQLite database. Missing parent directories are
//     created, and the location is locked for exclusive use by the Store.
//     Locking requires flock(2) or LockFileEx, and isn't enforced on
//     platforms having neither.
//   - ":memory:" or "/dev/null", for a private in-memory SQLite database
//     which is discarded on Close.
//   - A "postgres://" or "postgresql://" URL. The Store holds a session
//     advisory lock of the database for exclusive use.
//
// Open fails with a *ConstructionError if the schema cannot be loaded
// (SchemaLoadFailed) or the backing store cannot be opened, locked, or
// migrated (StoreOpenFailed). A Store is never returned with an error.
func Open(ctx context.Context, location string, source schema.Source, opts ...Option) (*Store, error) {
	var o = options{
		busyTimeout: DefaultBusyTimeout,
		logger:      log.WithField("location", location),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var loc, err = engine.ParseLocation(location, engine.SQLiteOptions{
		BusyTimeoutMillis: o.busyTimeout.Milliseconds(),
	})
	if err != nil {
		return nil, &ConstructionError{Kind: StoreOpenFailed, Location: location, Err: err}
	}

	migrations, err := source.Migrations(loc.Dialect)
	if err != nil {
		return nil, &ConstructionError{Kind: SchemaLoadFailed, Location: location, Err: err}
	}

	var s = &Store{
		location: location,
		log:      o.logger,
	}
	if err = s.open(ctx, loc, migrations, o); err != nil {
		if rErr := s.release(); rErr != nil {
			s.log.WithField("err", rErr).Warn("failed to release partially opened store")
		}
		return nil, &ConstructionError{Kind: StoreOpenFailed, Location: location, Err: err}
	}

	s.queue = queue.New(location)
	metrics.StoreOpenStores.Inc()

	s.log.WithFields(log.Fields{
		"dialect":    loc.Dialect,
		"migrations": len(migrations),
	}).Info("opened feed cache store")

	return s, nil
}

// open acquires resources of the Store. On error, the caller must release
// whatever was acquired.
func (s *Store) open(ctx context.Context, loc engine.Location, migrations []schema.Migration, o options) error {
	var err error

	if loc.Path != "" {
		if err = os.MkdirAll(filepath.Dir(loc.Path), 0755); err != nil {
			return errors.WithMessage(err, "creating store directory")
		}
		if s.lock, err = lockLocation(loc.Path); err != nil {
			return err
		}
	}

	if s.db, err = sql.Open(loc.Dialect.DriverName(), loc.DSN); err != nil {
		return errors.WithMessage(err, "opening database")
	}
	// All operations are serialized through one worker, and an in-memory
	// database lives only as long as its single connection. Postgres reserves
	// one more connection to hold the advisory lock.
	var conns = 1
	if loc.Dialect == engine.Postgres {
		conns = 2
	}
	s.db.SetMaxOpenConns(conns)
	s.db.SetMaxIdleConns(conns)
	s.db.SetConnMaxLifetime(0)
	s.db.SetConnMaxIdleTime(0)

	if err = s.db.PingContext(ctx); err != nil {
		if engine.IsBusy(err) {
			return errors.WithMessage(err, "database is locked by another process")
		}
		return errors.WithMessage(err, "connecting to database")
	}
	if loc.Dialect == engine.Postgres {
		var l, lErr = lockDatabase(ctx, s.db)
		if lErr != nil {
			return lErr
		}
		s.lock = l
	}
	if err = schema.Apply(ctx, s.db, migrations); err != nil {
		if engine.IsCorrupt(err) {
			return errors.WithMessage(err, "database is corrupt")
		}
		return errors.WithMessage(err, "applying schema")
	}

	s.engine = engine.NewSQLEngine(s.db, loc.Dialect)
	if o.decorate != nil {
		s.engine = o.decorate(s.engine)
	}
	return nil
}

// release resources held by the Store.
func (s *Store) release() error {
	var err error

	// An advisory lock is held over a connection of the database, and is
	// released before it.
	if l, ok := s.lock.(*advisoryLock); ok {
		err = l.Close()
		s.lock = nil
	}
	if s.db != nil {
		if dErr := s.db.Close(); dErr != nil && err == nil {
			err = errors.WithMessage(dErr, "closing database")
		}
		s.db = nil
	}
	if s.lock != nil {
		if lErr := s.lock.Close(); lErr != nil && err == nil {
			err = errors.WithMessage(lErr, "releasing storage lock")
		}
		s.lock = nil
	}
	return err
}
