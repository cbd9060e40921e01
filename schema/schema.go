// Package schema defines the persisted layout of the feed cache, as ordered
// SQL migrations for each engine.Dialect, and applies them to a database.
//
// A Source is a filesystem holding a directory per dialect ("sqlite",
// "postgres"), each having migration files ordered by name:
//
//	sqlite/001_feed_cache.sql
//	postgres/001_feed_cache.sql
//
// Only the "-- +migrate Up" section of a migration file is applied. Applied
// migrations are recorded in a "schema_migrations" table, and each is applied
// at most once, in its own transaction.
package schema

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.feedcache.dev/core/engine"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// Source of schema migrations.
type Source struct {
	FS fs.FS
}

// Embedded is the Source of migrations compiled into this package.
var Embedded = Source{FS: embedded}

// DirSource returns a Source of migrations rooted at |dir| of the afero.Fs.
func DirSource(afs afero.Fs, dir string) Source {
	return Source{FS: afero.NewIOFS(afero.NewBasePathFs(afs, dir))}
}

// Migration is a single, named schema migration.
type Migration struct {
	// Name of the migration, relative to the Source root (eg "sqlite/001_feed_cache.sql").
	Name string
	// Up is the SQL applied by the migration.
	Up string
}

// ErrNoMigrations is returned by Migrations if the Source holds no
// migrations for the requested Dialect.
var ErrNoMigrations = errors.New("no schema migrations found")

// Migrations returns the ordered Migrations of the Dialect.
func (s Source) Migrations(dialect engine.Dialect) ([]Migration, error) {
	if s.FS == nil {
		return nil, errors.New("schema source is not configured")
	}
	var root = dialect.String()

	var entries, err = fs.ReadDir(s.FS, root)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading schema directory %q", root)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var out []Migration
	for _, name := range names {
		var p = path.Join(root, name)

		content, err := fs.ReadFile(s.FS, p)
		if err != nil {
			return nil, errors.WithMessagef(err, "reading migration %s", p)
		}
		var up = ExtractUp(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}
		out = append(out, Migration{Name: p, Up: up})
	}

	if len(out) == 0 {
		return nil, errors.WithMessagef(ErrNoMigrations, "dialect %s", dialect)
	}
	return out, nil
}

// ExtractUp returns the SQL of the "-- +migrate Up" section of the migration
// |content|. If there's no such marker, all of |content| is returned.
func ExtractUp(content string) string {
	var upIdx = strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	var downIdx = strings.Index(content, downMarker)
	if downIdx == -1 || downIdx < upIdx {
		return content[upIdx+len(upMarker):]
	}
	return content[upIdx+len(upMarker) : downIdx]
}

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)
