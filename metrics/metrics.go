package metrics

import "github.com/prometheus/client_golang/prometheus"

// Key constants are exported primarily for documentation reasons. Typically,
// they will not be used programmatically outside of defining the collectors.

// Keys for feed cache store metrics.
const (
	StoreOperationsTotalKey    = "feedcache_store_operations_total"
	StoreOperationSecondsKey   = "feedcache_store_operation_seconds"
	StoreFeedImagesKey         = "feedcache_store_feed_images"
	StoreOpenStoresKey         = "feedcache_store_open_stores"
	QueueDepthKey              = "feedcache_queue_depth"
	QueueExecutedItemsTotalKey = "feedcache_queue_executed_items_total"

	Fail = "fail"
	Ok   = "ok"
)

// Collectors for feed cache store metrics.
var (
	StoreOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: StoreOperationsTotalKey,
		Help: "Cumulative number of completed store operations.",
	}, []string{"operation", "status"})
	StoreOperationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    StoreOperationSecondsKey,
		Help:    "Duration of store operations, from submission to completion.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"operation"})
	StoreFeedImages = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: StoreFeedImagesKey,
		Help: "Number of images of the cached feed, as of the last committed mutation or retrieval.",
	}, []string{"location"})
	StoreOpenStores = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: StoreOpenStoresKey,
		Help: "Number of currently open stores.",
	})
)

// Collectors for the serial execution queue.
var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: QueueDepthKey,
		Help: "Number of submitted work items not yet started.",
	}, []string{"queue"})
	QueueExecutedItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: QueueExecutedItemsTotalKey,
		Help: "Cumulative number of executed work items.",
	}, []string{"queue"})
)

// FeedCacheCollectors lists collectors used by feed cache stores.
func FeedCacheCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		StoreOperationsTotal,
		StoreOperationSeconds,
		StoreFeedImages,
		StoreOpenStores,
		QueueDepth,
		QueueExecutedItemsTotal,
	}
}
