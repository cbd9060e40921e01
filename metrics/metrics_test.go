package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestFeedCacheCollectorsRegister(t *testing.T) {
	var reg = prometheus.NewRegistry()
	assert.NotPanics(t, func() { reg.MustRegister(FeedCacheCollectors()...) })

	StoreOperationsTotal.WithLabelValues("retrieve", Ok).Inc()
	QueueDepth.WithLabelValues("test").Set(0)

	var families, err = reg.Gather()
	assert.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, StoreOperationsTotalKey)
	assert.Contains(t, names, QueueDepthKey)
	assert.Contains(t, names, StoreOpenStoresKey)
}
