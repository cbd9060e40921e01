package storetest

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.feedcache.dev/core/feed"
)

// UniqueImage returns a LocalFeedImage having a new random ID, and a
// Description, Location and URL derived from it.
func UniqueImage() feed.LocalFeedImage {
	var id = uuid.New()
	var desc, loc = "description of " + id.String(), "location of " + id.String()

	return feed.LocalFeedImage{
		ID:          id,
		Description: &desc,
		Location:    &loc,
		URL:         MustParseURL("https://a-url.com/images/" + id.String()),
	}
}

// UniqueFeed returns a Feed of |n| UniqueImages. Every other image omits its
// Description, and every third omits its Location.
func UniqueFeed(n int) feed.Feed {
	var out = make(feed.Feed, n)
	for i := range out {
		out[i] = UniqueImage()
		if i%2 == 1 {
			out[i].Description = nil
		}
		if i%3 == 2 {
			out[i].Location = nil
		}
	}
	return out
}

// Timestamp returns the UTC time of |sec| seconds past the Unix epoch. Store
// timestamps are returned in UTC, and compare Equal to a Timestamp.
func Timestamp(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// MustParseURL parses |s| or panics.
func MustParseURL(s string) *url.URL {
	var u, err = url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// StringPtr returns a pointer to |s|.
func StringPtr(s string) *string { return &s }
