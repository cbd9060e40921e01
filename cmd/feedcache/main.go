package main

import (
	"context"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	mbp "go.feedcache.dev/core/mainboilerplate"
	"go.feedcache.dev/core/schema"
	"go.feedcache.dev/core/store"
)

const iniFilename = "feedcache.ini"

// StoreConfig configures the Store which commands operate on.
type StoreConfig struct {
	Location    string        `long:"location" env:"LOCATION" default:"feedcache.db" description:"Store location: a SQLite database path, ':memory:', or a postgres:// URL"`
	SchemaDir   string        `long:"schema-dir" env:"SCHEMA_DIR" description:"Directory of schema migrations to apply, in place of the built-in schema"`
	BusyTimeout time.Duration `long:"busy-timeout" env:"BUSY_TIMEOUT" default:"5s" description:"Time to wait on a SQLite database locked by another connection"`
}

// MustOpen opens the configured Store, or panics.
func (cfg StoreConfig) MustOpen(ctx context.Context) *store.Store {
	var source = schema.Embedded
	if cfg.SchemaDir != "" {
		source = schema.DirSource(afero.NewOsFs(), cfg.SchemaDir)
	}

	var s, err = store.Open(ctx, cfg.Location, source,
		store.WithBusyTimeout(cfg.BusyTimeout),
		store.WithLogger(log.WithField("location", cfg.Location)))
	mbp.Must(err, "failed to open store", "location", cfg.Location)

	return s
}

var (
	baseCfg = new(struct {
		Store       StoreConfig           `group:"Store" namespace:"store" env-namespace:"STORE"`
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
	})
	commands = mbp.NewCommandRegistry()
)

// startup initializes logging and diagnostics, and returns a closure which
// the command must defer.
func startup() func() {
	mbp.InitLog(baseCfg.Log)
	return mbp.InitDiagnosticsAndRecover(baseCfg.Diagnostics)
}

func main() {
	var parser = flags.NewParser(baseCfg, flags.Default)

	parser.LongDescription = `feedcache inspects and modifies a durable cache of one image feed.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure feedcache with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/feedcache/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`
	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.Must(commands.AddCommands("", parser.Command, true), "could not add sub-commands")

	mbp.MustParseConfig(parser, iniFilename)
}
