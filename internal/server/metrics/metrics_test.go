package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(AuthAttempts.WithLabelValues(ChannelCalcKey, OutcomeSuccess))
	AuthAttempts.WithLabelValues(ChannelCalcKey, OutcomeSuccess).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AuthAttempts.WithLabelValues(ChannelCalcKey, OutcomeSuccess)))

	before = testutil.ToFloat64(FileUploads.WithLabelValues("stored"))
	FileUploads.WithLabelValues("stored").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(FileUploads.WithLabelValues("stored")))

	before = testutil.ToFloat64(LeaderboardMutations.WithLabelValues("increment", "true"))
	LeaderboardMutations.WithLabelValues("increment", "true").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LeaderboardMutations.WithLabelValues("increment", "true")))
}
