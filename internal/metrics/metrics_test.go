package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getHistogramCount(hv *prometheus.HistogramVec, labels ...string) uint64 {
	m := &dto.Metric{}
	if c, ok := hv.WithLabelValues(labels...).(prometheus.Metric); ok {
		if err := c.Write(m); err != nil {
			return 0
		}
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET /api/metrics/{userId}", http.MethodGet, 200, 15*time.Millisecond)
	m.ObserveRequest("GET /api/metrics/{userId}", http.MethodGet, 200, 5*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, 404, time.Millisecond)

	if v := getCounterValue(m.HTTPRequestsTotal, "GET /api/metrics/{userId}", "GET", "200"); v != 2 {
		t.Fatalf("requests counter = %v, want 2", v)
	}
	if v := getCounterValue(m.HTTPRequestsTotal, "unmatched", "GET", "404"); v != 1 {
		t.Fatalf("unmatched counter = %v, want 1", v)
	}
	if n := getHistogramCount(m.HTTPRequestDurationSeconds, "GET /api/metrics/{userId}"); n != 2 {
		t.Fatalf("histogram count = %d, want 2", n)
	}
}

func TestRecordLoginAndDenied(t *testing.T) {
	m := New()
	m.RecordLogin("success")
	m.RecordLogin("invalid_credentials")
	m.RecordLogin("invalid_credentials")
	m.RecordDenied("scout-only")

	if v := getCounterValue(m.LoginsTotal, "invalid_credentials"); v != 2 {
		t.Fatalf("failed logins = %v, want 2", v)
	}
	if v := getCounterValue(m.AccessDeniedTotal, "scout-only"); v != 1 {
		t.Fatalf("denials = %v, want 1", v)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("x", "GET", 200, time.Millisecond)
	m.RecordLogin("success")
	m.RecordDenied("open")
	m.RecordRateLimited()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordRateLimited()
	m.RecordLogin("success")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		"portal_rate_limited_total 1",
		`portal_logins_total{outcome="success"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q in exposition", want)
		}
	}
}
