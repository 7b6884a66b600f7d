package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBuildIncrementsCounter(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordBuild("btree", 5*time.Millisecond)
	m.RecordBuild("btree", 10*time.Millisecond)

	if got := testutil.ToFloat64(m.buildsTotal.WithLabelValues("btree")); got != 2 {
		t.Fatalf("expected 2 build observations, got %v", got)
	}
}

func TestRecordLookupSplitsHitAndMiss(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordLookup("rmi", true, time.Millisecond)
	m.RecordLookup("rmi", false, time.Millisecond)
	m.RecordLookup("rmi", true, time.Millisecond)

	hits := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("rmi", statusHit))
	misses := testutil.ToFloat64(m.lookupsTotal.WithLabelValues("rmi", statusMiss))
	if hits != 2 {
		t.Errorf("expected 2 hits, got %v", hits)
	}
	if misses != 1 {
		t.Errorf("expected 1 miss, got %v", misses)
	}
}

func TestSetMemoryUsage(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetMemoryUsage("fitingtree", 4096)

	if got := testutil.ToFloat64(m.memoryUsageBytes.WithLabelValues("fitingtree")); got != 4096 {
		t.Fatalf("expected gauge 4096, got %v", got)
	}
}

func TestRecordRangeQueryAndInsert(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordRangeQuery("radixspline", time.Millisecond)
	m.RecordInsert("fitingtree")

	if got := testutil.ToFloat64(m.rangeQueriesTotal.WithLabelValues("radixspline")); got != 1 {
		t.Fatalf("expected 1 range query observation, got %v", got)
	}
	if got := testutil.ToFloat64(m.insertsTotal.WithLabelValues("fitingtree")); got != 1 {
		t.Fatalf("expected 1 insert observation, got %v", got)
	}
}

func TestInstrumentHandlerTracksStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())

	handler := m.InstrumentHandler("GET", "/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/health", "2xx")); got != 1 {
		t.Fatalf("expected 1 request recorded, got %v", got)
	}
}

func TestInstrumentHandlerTracks4xx(t *testing.T) {
	m := New(prometheus.NewRegistry())

	handler := m.InstrumentHandler("GET", "/api/v1/engines/bad/lookup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/engines/bad/lookup", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/engines/bad/lookup", "4xx")); got != 1 {
		t.Fatalf("expected 1 4xx request recorded, got %v", got)
	}
}

func TestInstrumentHandlerDefaultsStatusWhenHandlerNeverWritesHeader(t *testing.T) {
	m := New(prometheus.NewRegistry())

	handler := m.InstrumentHandler("GET", "/api/v1/engines", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/engines", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/engines", "2xx")); got != 1 {
		t.Fatalf("expected implicit 200 to be recorded as 2xx, got %v", got)
	}
}
