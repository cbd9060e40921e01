package engine

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Dialect of a SQL backing store.
type Dialect int

const (
	// SQLite is served by the "sqlite3" driver of github.com/mattn/go-sqlite3.
	SQLite Dialect = iota
	// Postgres is served by the "postgres" driver of github.com/lib/pq.
	Postgres
)

// String returns the Dialect name, which is also the directory name of its
// schema migrations.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// DriverName returns the "database/sql" driver name of the Dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "postgres"
	default:
		return "sqlite3"
	}
}

// Location is a parsed storage location.
type Location struct {
	Dialect Dialect
	// Path of the SQLite database file. Empty for in-memory SQLite databases
	// and for Postgres.
	Path string
	// DSN passed to sql.Open.
	DSN string
}

// InMemory is true if the Location is an in-memory SQLite database.
func (l Location) InMemory() bool { return l.Dialect == SQLite && l.Path == "" }

// SQLiteOptions are URI parameters of opened SQLite databases.
type SQLiteOptions struct {
	BusyTimeoutMillis int64
}

// ParseLocation maps a storage location to a Location. Recognized forms are:
//
//   - "postgres://..." or "postgresql://..." URLs, passed through to lib/pq.
//   - ":memory:" or "/dev/null", which select a private in-memory SQLite
//     database which leaves no artifacts behind.
//   - Any other non-empty value is a filesystem path of a SQLite database,
//     which is created if it doesn't exist.
func ParseLocation(location string, opts SQLiteOptions) (Location, error) {
	location = strings.TrimSpace(location)

	switch {
	case location == "":
		return Location{}, errors.New("storage location is required")

	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		if _, err := url.Parse(location); err != nil {
			return Location{}, errors.WithMessage(err, "parsing postgres URL")
		}
		return Location{Dialect: Postgres, DSN: location}, nil

	case location == ":memory:", location == "/dev/null":
		// Without "cache=shared", each connection has a private database.
		// Handles of in-memory stores are limited to one connection.
		return Location{
			Dialect: SQLite,
			DSN:     "file::memory:?" + sqliteParams(opts, false).Encode(),
		}, nil

	default:
		return Location{
			Dialect: SQLite,
			Path:    location,
			DSN:     "file:" + uriPathEscaper.Replace(location) + "?" + sqliteParams(opts, true).Encode(),
		}, nil
	}
}

// uriPathEscaper escapes characters of a path which SQLite would otherwise
// parse as URI delimiters. SQLite decodes %HH escapes of the URI path.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

func sqliteParams(opts SQLiteOptions, durable bool) url.Values {
	var v = url.Values{
		"_foreign_keys": {"1"},
		"_txlock":       {"immediate"},
	}
	if durable {
		v.Set("_journal_mode", "WAL")
		v.Set("_synchronous", "FULL")
	}
	if opts.BusyTimeoutMillis > 0 {
		v.Set("_busy_timeout", strconv.FormatInt(opts.BusyTimeoutMillis, 10))
	}
	return v
}
