package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
)

func TestHandler_WritesRegisteredMetrics(t *testing.T) {
	counter := metrics.GetOrCreateCounter(`pix_metrics_test_total{result="ok"}`)
	counter.Inc()
	SinceMs(metrics.GetOrCreateHistogram(`pix_metrics_test_duration_milliseconds`), time.Now().Add(-10*time.Millisecond))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pix_metrics_test_total{result="ok"}`)
	assert.Contains(t, rec.Body.String(), `pix_metrics_test_duration_milliseconds`)
}
