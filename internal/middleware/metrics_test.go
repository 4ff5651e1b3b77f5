package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/atriumhq/atrium/internal/telemetry"
)

// collectCounter reads the current value from a CounterVec for the given label
// values. Returns -1 if no matching series exists yet.
func collectCounter(cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	ch := make(chan prometheus.Metric, 20)
	cv.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if metricMatches(&dm, labels) {
			return dm.GetCounter().GetValue()
		}
	}
	return -1
}

// collectHistogramCount returns the sample count from a HistogramVec for the
// given labels.
func collectHistogramCount(hv *prometheus.HistogramVec, labels prometheus.Labels) uint64 {
	ch := make(chan prometheus.Metric, 20)
	hv.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		if metricMatches(&dm, labels) {
			return dm.GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func metricMatches(dm *dto.Metric, labels prometheus.Labels) bool {
	for k, want := range labels {
		found := false
		for _, lp := range dm.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func newMetricsRouter(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/tenants/:id", handler)
	return r
}

// ---------------------------------------------------------------------------
// MetricsMiddleware tests
// ---------------------------------------------------------------------------

func TestMetricsMiddleware_RecordsRequestsTotal(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/tenants/:id", "status": "200"}
	before := collectCounter(telemetry.HTTPRequestsTotal, labels)

	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenants/ten-1", nil))

	after := collectCounter(telemetry.HTTPRequestsTotal, labels)
	if before < 0 {
		before = 0
	}
	if after-before < 1 {
		t.Errorf("http_requests_total increment not observed: before=%.0f after=%.0f", before, after)
	}
}

func TestMetricsMiddleware_RecordsRequestDuration(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/tenants/:id"}
	before := collectHistogramCount(telemetry.HTTPRequestDuration, labels)

	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenants/ten-2", nil))

	after := collectHistogramCount(telemetry.HTTPRequestDuration, labels)
	if after <= before {
		t.Errorf("http_request_duration_seconds sample count did not increase: before=%d after=%d", before, after)
	}
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	// The path label must be the route template, never the raw URL, so
	// tenant IDs cannot explode label cardinality.
	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenants/ten-42", nil))

	ch := make(chan prometheus.Metric, 50)
	telemetry.HTTPRequestsTotal.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		for _, lp := range dm.GetLabel() {
			if lp.GetName() == "path" && lp.GetValue() == "/tenants/ten-42" {
				t.Error("path label used raw URL /tenants/ten-42; expected route template /tenants/:id")
			}
		}
	}
}

func TestMetricsMiddleware_NoRouteSentinel(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	labels := prometheus.Labels{"method": "GET", "path": "<no-route>", "status": "404"}
	if collectCounter(telemetry.HTTPRequestsTotal, labels) < 1 {
		t.Error("expected a <no-route> series for the unmatched request")
	}
}

func TestMetricsMiddleware_RecordsErrorStatus(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/tenants/:id", "status": "500"}
	before := collectCounter(telemetry.HTTPRequestsTotal, labels)

	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenants/ten-3", nil))

	after := collectCounter(telemetry.HTTPRequestsTotal, labels)
	if before < 0 {
		before = 0
	}
	if after-before < 1 {
		t.Errorf("http_requests_total for status=500 not incremented: before=%.0f after=%.0f", before, after)
	}
}
