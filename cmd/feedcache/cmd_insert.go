package main

import (
	"context"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	mbp "go.feedcache.dev/core/mainboilerplate"
)

type cmdInsert struct {
	File      string `long:"file" short:"f" default:"-" description:"Path of the YAML feed document to insert. Use '-' for stdin"`
	Timestamp string `long:"timestamp" description:"RFC 3339 timestamp of the feed. Overrides a timestamp of the document. Defaults to now"`
}

func init() {
	commands.AddCommand("", "insert", "Replace the cached feed", `
Insert a feed into the store, replacing in full any feed it currently holds.

The feed is read from a YAML document of the form:

timestamp: 2024-05-01T10:00:00Z
images:
  - id: 3f3a5f62-4b7b-4c54-8a38-2b8b3a1f0d3e
    description: A description
    location: A location
    url: https://example.com/images/1.jpg
  - id: 0b4c0f0d-8f38-44f5-9d1a-2a6f0f7e42f1
    url: https://example.com/images/2.jpg

Description and location are optional. Image IDs must be unique, and URLs
must be absolute. The timestamp of the feed is, in order of precedence, the
--timestamp flag, the document timestamp, or the current time.

Examples:

# Insert a feed document, stamped with the current time:
feedcache insert --file feed.yaml --timestamp $(date -u +%Y-%m-%dT%H:%M:%SZ)
`, &cmdInsert{})
}

func (cmd *cmdInsert) Execute([]string) error {
	defer startup()()

	var b, err = readInput(afero.NewOsFs(), cmd.File)
	mbp.Must(err, "failed to read feed document", "file", cmd.File)

	record, err := decodeDocument(b)
	mbp.Must(err, "invalid feed document", "file", cmd.File)

	if cmd.Timestamp != "" {
		record.Timestamp, err = time.Parse(time.RFC3339Nano, cmd.Timestamp)
		mbp.Must(err, "failed to parse --timestamp")
	} else if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	var s = baseCfg.Store.MustOpen(context.Background())
	defer s.Close()

	err = s.InsertAsync(record.Feed, record.Timestamp.UTC()).Err()
	mbp.Must(err, "failed to insert feed")

	log.WithFields(log.Fields{
		"images":    len(record.Feed),
		"timestamp": record.Timestamp,
	}).Info("inserted feed")
	return nil
}

// readInput reads the file |path| of |fs|, or stdin if |path| is "-".
func readInput(fs afero.Fs, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return afero.ReadFile(fs, path)
}
