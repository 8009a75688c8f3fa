package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordComputation(t *testing.T) {
	before := testutil.ToFloat64(ComputationErrors.WithLabelValues("rfm", "DATA_ERROR"))
	RecordComputation("rfm", "", 0.01)
	RecordComputation("rfm", "DATA_ERROR", 0.02)
	assert.Equal(t, before+1, testutil.ToFloat64(ComputationErrors.WithLabelValues("rfm", "DATA_ERROR")))
}

func TestRecordReload(t *testing.T) {
	failed := testutil.ToFloat64(DatasetReloads.WithLabelValues("failed"))
	RecordReload(false, 0, 0, 0)
	assert.Equal(t, failed+1, testutil.ToFloat64(DatasetReloads.WithLabelValues("failed")))

	RecordReload(true, 120, 7, 1700000000)
	assert.Equal(t, 120.0, testutil.ToFloat64(DatasetRows.WithLabelValues("orders")))
	assert.Equal(t, 7.0, testutil.ToFloat64(DatasetRows.WithLabelValues("locations")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(DatasetLastLoad))
}

func TestRecordExportAndHTTP(t *testing.T) {
	before := testutil.ToFloat64(ReportExports.WithLabelValues("cli", "failed"))
	RecordExport("cli", false)
	assert.Equal(t, before+1, testutil.ToFloat64(ReportExports.WithLabelValues("cli", "failed")))

	before = testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/rfm", "400"))
	RecordHTTPRequest("/api/rfm", 400)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/rfm", "400")))
}
