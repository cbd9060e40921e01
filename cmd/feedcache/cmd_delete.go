package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	mbp "go.feedcache.dev/core/mainboilerplate"
)

type cmdDelete struct{}

func init() {
	commands.AddCommand("", "delete", "Delete the cached feed", `
Delete the feed held by the store, leaving it empty. Deleting the feed of an
empty store succeeds.
`, &cmdDelete{})
}

func (cmd *cmdDelete) Execute([]string) error {
	defer startup()()

	var s = baseCfg.Store.MustOpen(context.Background())
	defer s.Close()

	mbp.Must(s.DeleteAsync().Err(), "failed to delete feed")
	log.Info("deleted feed")
	return nil
}
