package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry.
func TestMetricsRegistered(t *testing.T) {
	RequestsTotal.WithLabelValues("GET", "2xx", "test").Inc()
	RequestDuration.WithLabelValues("GET", "test").Observe(0.1)
	CatalogFetchTotal.WithLabelValues("witsy", "ok").Inc()
	CatalogFetchLatency.WithLabelValues("witsy").Observe(0.1)
	CatalogSavesTotal.WithLabelValues("witsy", "ok").Inc()
	CatalogModels.WithLabelValues("witsy", "chat").Set(2)
	IgnitionsTotal.WithLabelValues("fallback").Inc()
	IgnitionFailuresTotal.WithLabelValues("custom").Inc()
	EngineRequestsTotal.WithLabelValues("witsy", "complete", "ok").Inc()
	EngineLatency.WithLabelValues("witsy", "complete").Observe(0.1)
	EngineTokensTotal.WithLabelValues("witsy", "input").Add(10)
	AuthRejectedTotal.WithLabelValues("invalid").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"enginehub_requests_total":                false,
		"enginehub_request_duration_seconds":      false,
		"enginehub_streaming_connections_active":  false,
		"enginehub_catalog_fetch_total":           false,
		"enginehub_catalog_fetch_latency_seconds": false,
		"enginehub_catalog_saves_total":           false,
		"enginehub_catalog_models":                false,
		"enginehub_ignitions_total":               false,
		"enginehub_ignition_failures_total":       false,
		"enginehub_engine_requests_total":         false,
		"enginehub_engine_latency_seconds":        false,
		"enginehub_engine_tokens_total":           false,
		"enginehub_auth_rejected_total":           false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestMiddlewareRecordsRoutePattern verifies that the matched mux pattern
// is used as the route label.
func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	const route = "GET /v1/engines/{engine}"
	before := counterValue(t, RequestsTotal, "GET", "2xx", route)
	beforeHist := histogramCount(t, RequestDuration, "GET", route)

	mux := http.NewServeMux()
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	MetricsMiddleware(mux).ServeHTTP(rec, httptest.NewRequest("GET", "/v1/engines/witsy", nil))

	if delta := counterValue(t, RequestsTotal, "GET", "2xx", route) - before; delta != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", delta)
	}
	if delta := histogramCount(t, RequestDuration, "GET", route) - beforeHist; delta != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", delta)
	}
}

// TestMiddlewareUnmatchedRoute verifies that requests no pattern matched
// share one label value.
func TestMiddlewareUnmatchedRoute(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "4xx", "unmatched")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/nowhere/abc", nil))

	if delta := counterValue(t, RequestsTotal, "POST", "4xx", "unmatched") - before; delta != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", delta)
	}
}

// TestMiddlewareStreamingGauge verifies that the streaming connections gauge
// increments once the handler starts an event stream and decrements after.
func TestMiddlewareStreamingGauge(t *testing.T) {
	baseline := gaugeValue(t, StreamingConnections)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		during = gaugeValue(t, StreamingConnections)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/engines/witsy/completions", nil))

	if during != baseline+1 {
		t.Errorf("expected streaming gauge=%f during request, got %f", baseline+1, during)
	}
	if after := gaugeValue(t, StreamingConnections); after != baseline {
		t.Errorf("expected streaming gauge=%f after request, got %f", baseline, after)
	}
}

// TestStatusWriterFlush verifies that Flush delegates to the underlying writer.
func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
