package feed

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// LocalFeedImage is a reference to a single image of a Feed. Its identity is
// its ID. Description and Location are optional and may be nil.
type LocalFeedImage struct {
	ID          uuid.UUID
	Description *string
	Location    *string
	URL         *url.URL
}

// Feed is an ordered sequence of LocalFeedImages. Order is significant (it's
// the display order of the feed) and is preserved by the store.
type Feed []LocalFeedImage

// Record is the content of the cache slot: a Feed and its cache Timestamp.
type Record struct {
	Feed      Feed
	Timestamp time.Time
}

// Validate returns an error if the LocalFeedImage is not well-formed.
func (img LocalFeedImage) Validate() error {
	if img.ID == uuid.Nil {
		return NewValidationError("expected ID")
	} else if img.URL == nil {
		return NewValidationError("expected URL")
	} else if !img.URL.IsAbs() {
		return NewValidationError("URL is not absolute (%s)", img.URL)
	}
	return nil
}

// Validate returns an error if any image of the Feed is invalid, or if an
// image ID is repeated.
func (f Feed) Validate() error {
	var seen = make(map[uuid.UUID]int, len(f))

	for i, img := range f {
		if err := img.Validate(); err != nil {
			return ExtendContext(err, "Feed[%d]", i)
		} else if j, ok := seen[img.ID]; ok {
			return NewValidationError("duplicate image ID (index %d; ID %s also at index %d)", i, img.ID, j)
		}
		seen[img.ID] = i
	}
	return nil
}

// Validate returns an error if the Record's Feed is invalid or its Timestamp
// is zero-valued.
func (r Record) Validate() error {
	if err := r.Feed.Validate(); err != nil {
		return err
	} else if r.Timestamp.IsZero() {
		return NewValidationError("expected Timestamp")
	}
	return nil
}

// Clone returns a deep copy of the Feed, such that mutations of the returned
// Feed (or of its optional fields) are not observed through |f|.
func (f Feed) Clone() Feed {
	var out = make(Feed, len(f))

	for i, img := range f {
		out[i] = LocalFeedImage{
			ID:          img.ID,
			Description: cloneString(img.Description),
			Location:    cloneString(img.Location),
		}
		if img.URL != nil {
			var u = *img.URL
			if u.User != nil {
				var user = *u.User
				u.User = &user
			}
			out[i].URL = &u
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	var out = *s
	return &out
}
