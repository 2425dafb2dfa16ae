package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordForecast("hit")
	r.RecordForecast("hit")
	r.RecordForecast("computed")
	r.RecordError("timeout")
	r.RecordPriceLookupFailure("AAPL")
	r.RecordQuotes(5)
	r.RecordTraining(1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.forecasts.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.forecasts.WithLabelValues("computed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookupFailures.WithLabelValues("AAPL")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.quotes))
	assert.Equal(t, 1, testutil.CollectAndCount(r.training))
}
