package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues(CacheHit))
	CacheLookups.WithLabelValues(CacheHit).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CacheLookups.WithLabelValues(CacheHit)))

	before = testutil.ToFloat64(QueueJobs.WithLabelValues(OutcomeDropped))
	QueueJobs.WithLabelValues(OutcomeDropped).Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(QueueJobs.WithLabelValues(OutcomeDropped)))
}

func TestHistogramsRegistered(t *testing.T) {
	BatchDuration.WithLabelValues(SourceCLI).Observe(0.2)
	BatchSize.Observe(3)
	assert.Equal(t, 1, testutil.CollectAndCount(BatchDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(BatchSize))
}
