package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"go.feedcache.dev/core/feed"
	mbp "go.feedcache.dev/core/mainboilerplate"
	"go.feedcache.dev/core/store"
)

type cmdInspect struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" default:"table" description:"Output format"`
}

func init() {
	commands.AddCommand("", "inspect", "Print the cached feed", `
Retrieve the feed held by the store and print it.

Output --format options are:
table: Prints images of the feed as a table, preceded by its humanized timestamp.
yaml:  Prints the feed as a YAML document, suitable for use with "insert --file".

If the store is empty, "<empty>" is printed in table format, and nothing is
printed in yaml format.

Examples:

# Print the feed of the default store location as a table:
feedcache inspect

# Save the feed of a store as YAML:
feedcache inspect --store.location /var/lib/feeds/cache.db -o yaml > feed.yaml
`, &cmdInspect{})
}

func (cmd *cmdInspect) Execute([]string) error {
	defer startup()()

	var s = baseCfg.Store.MustOpen(context.Background())
	defer s.Close()

	var r = s.RetrieveAsync().Result()
	mbp.Must(r.Err, "failed to retrieve feed")

	return writeInspection(os.Stdout, cmd.Format, r.Record, r.Kind == store.Empty, time.Now())
}

// writeInspection writes the Record to |w| in |format|. An empty store is
// written as "<empty>" in table format, and as no document at all in yaml
// format.
func writeInspection(w io.Writer, format string, r feed.Record, empty bool, now time.Time) error {
	switch {
	case format == "yaml" && empty:
		return nil
	case format == "yaml":
		var b, err = encodeDocument(r)
		if err != nil {
			return errors.WithMessage(err, "encoding feed")
		}
		_, err = w.Write(b)
		return err
	case empty:
		_, err := fmt.Fprintln(w, "<empty>")
		return err
	default:
		return writeTable(w, r, now)
	}
}

// writeTable writes a humanized table of the Record to |w|.
func writeTable(w io.Writer, r feed.Record, now time.Time) error {
	fmt.Fprintf(w, "Feed of %s images, cached %s (%s).\n",
		humanize.Comma(int64(len(r.Feed))),
		humanize.RelTime(r.Timestamp, now, "ago", "from now"),
		r.Timestamp.UTC().Format(time.RFC3339))

	var table = tablewriter.NewWriter(w)
	table.Header("#", "ID", "Description", "Location", "URL")

	for i, img := range r.Feed {
		if err := table.Append([]string{
			strconv.Itoa(i),
			img.ID.String(),
			orNone(img.Description),
			orNone(img.Location),
			img.URL.String(),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func orNone(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}
