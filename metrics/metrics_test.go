package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("/detect", "400"))
	RecordRequest("/detect", 400, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("/detect", "400")))
}

func TestRecordInference(t *testing.T) {
	before := testutil.ToFloat64(DetectionsTotal.WithLabelValues("pothole"))
	RecordInference("onnxruntime", 40*time.Millisecond, []string{"pothole", "cracks", "pothole"})
	assert.Equal(t, before+2, testutil.ToFloat64(DetectionsTotal.WithLabelValues("pothole")))
}

func TestRecordDecodeFailure(t *testing.T) {
	before := testutil.ToFloat64(DecodeFailures.WithLabelValues("http"))
	RecordDecodeFailure("http")
	assert.Equal(t, before+1, testutil.ToFloat64(DecodeFailures.WithLabelValues("http")))
}
