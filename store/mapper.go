package store

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"go.feedcache.dev/core/engine"
	"go.feedcache.dev/core/feed"
)

// toPersisted creates the FeedEntity of |record|, and an ImageEntity for each
// of its images having Ordinal equal to the image's index, all within |txn|.
// It returns the ID of the created FeedEntity.
func toPersisted(ctx context.Context, txn engine.Txn, record feed.Record) (int64, error) {
	var feedID, err = txn.InsertFeed(ctx, record.Timestamp)
	if err != nil {
		return 0, err
	}
	for i, img := range record.Feed {
		if err = txn.InsertImage(ctx, toImageEntity(feedID, i, img)); err != nil {
			return 0, err
		}
	}
	return feedID, nil
}

func toImageEntity(feedID int64, ordinal int, img feed.LocalFeedImage) engine.ImageEntity {
	return engine.ImageEntity{
		FeedID:      feedID,
		Ordinal:     ordinal,
		ID:          img.ID,
		Description: img.Description,
		Location:    img.Location,
		URL:         img.URL.String(),
	}
}

// toLocal reads the images of |entity| within |txn|, and returns the
// feed.Record they represent.
func toLocal(ctx context.Context, txn engine.Txn, entity engine.FeedEntity) (feed.Record, error) {
	var images, err = txn.FetchImages(ctx, entity.ID)
	if err != nil {
		return feed.Record{}, err
	}

	var out = feed.Record{
		Feed:      make(feed.Feed, 0, len(images)),
		Timestamp: entity.Timestamp,
	}
	for i, img := range images {
		if img.Ordinal != i {
			return feed.Record{}, errors.Errorf(
				"image ordinals are not contiguous (feed %d; index %d has ordinal %d)", entity.ID, i, img.Ordinal)
		}
		local, err := toLocalImage(img)
		if err != nil {
			return feed.Record{}, errors.WithMessagef(err, "image %d", i)
		}
		out.Feed = append(out.Feed, local)
	}
	return out, nil
}

func toLocalImage(img engine.ImageEntity) (feed.LocalFeedImage, error) {
	var u, err = url.Parse(img.URL)
	if err != nil {
		return feed.LocalFeedImage{}, errors.WithMessage(err, "parsing URL")
	}
	return feed.LocalFeedImage{
		ID:          img.ID,
		Description: img.Description,
		Location:    img.Location,
		URL:         u,
	}, nil
}
