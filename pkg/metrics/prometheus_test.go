package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordError("fetch")
	r.RecordError("fetch")
	r.RecordLastPrice("AAPL", 190.5)
	r.RecordSimulatedPrice("AAPL", 191)
	r.RecordAssetResult("present")
	r.SetReadiness(5, 4, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("fetch")))
	assert.Equal(t, 190.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
	assert.Equal(t, 191.0, testutil.ToFloat64(r.simulatedPrice.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.assetResults.WithLabelValues("present")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.readyAssets))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.trackedAssets))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ready))
}
