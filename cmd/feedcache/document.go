package main

import (
	"bytes"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.feedcache.dev/core/feed"
	"gopkg.in/yaml.v2"
)

// document is the YAML representation of a feed.Record.
type document struct {
	// Timestamp in RFC 3339 format.
	Timestamp string          `yaml:"timestamp,omitempty"`
	Images    []imageDocument `yaml:"images"`
}

type imageDocument struct {
	ID          string  `yaml:"id"`
	Description *string `yaml:"description,omitempty"`
	Location    *string `yaml:"location,omitempty"`
	URL         string  `yaml:"url"`
}

// decodeDocument decodes a YAML document into a feed.Record. If the document
// has no timestamp, the returned Record has a zero-valued Timestamp.
func decodeDocument(b []byte) (feed.Record, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return feed.Record{}, errors.New(`document is empty (an empty feed is "images: []")`)
	}
	var doc document
	if err := yaml.UnmarshalStrict(b, &doc); err != nil {
		return feed.Record{}, errors.WithMessage(err, "decoding YAML")
	}

	var out = feed.Record{Feed: make(feed.Feed, 0, len(doc.Images))}

	if doc.Timestamp != "" {
		var ts, err = time.Parse(time.RFC3339Nano, doc.Timestamp)
		if err != nil {
			return feed.Record{}, errors.WithMessage(err, "parsing timestamp")
		}
		out.Timestamp = ts.UTC()
	}

	for i, img := range doc.Images {
		var id, err = uuid.Parse(img.ID)
		if err != nil {
			return feed.Record{}, errors.WithMessagef(err, "images[%d]: parsing id", i)
		}
		u, err := url.Parse(img.URL)
		if err != nil {
			return feed.Record{}, errors.WithMessagef(err, "images[%d]: parsing url", i)
		}
		out.Feed = append(out.Feed, feed.LocalFeedImage{
			ID:          id,
			Description: img.Description,
			Location:    img.Location,
			URL:         u,
		})
	}
	if err := out.Feed.Validate(); err != nil {
		return feed.Record{}, err
	}
	return out, nil
}

// encodeDocument encodes a feed.Record as a YAML document.
func encodeDocument(r feed.Record) ([]byte, error) {
	var doc = document{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		Images:    make([]imageDocument, 0, len(r.Feed)),
	}
	for _, img := range r.Feed {
		doc.Images = append(doc.Images, imageDocument{
			ID:          img.ID.String(),
			Description: img.Description,
			Location:    img.Location,
			URL:         img.URL.String(),
		})
	}
	return yaml.Marshal(doc)
}
