package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/indexlab/learnedindex/pkg/index"
	"github.com/indexlab/learnedindex/pkg/metrics"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s, err := NewServer(index.Params{
		BTreeOrder:           4,
		BPlusTreeOrder:       4,
		FITingTreeEpsilon:    8,
		RadixSplineRadixBits: 6,
	}, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, NewRouter(s, 8080)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("expected success response, got %+v", resp)
	}
}

func TestHandleListEnginesBeforeBuild(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/engines", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	statuses, ok := resp.Data.([]interface{})
	if !ok || len(statuses) != 5 {
		t.Fatalf("expected 5 engine statuses, got %#v", resp.Data)
	}
}

func TestHandleBuildThenLookupAndRange(t *testing.T) {
	_, router := newTestServer(t)

	keys := make([]uint64, 0, 100)
	for i := uint64(0); i < 100; i++ {
		keys = append(keys, i*2)
	}
	body, err := json.Marshal(BuildRequest{Keys: keys})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/engines/btree/build", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("build: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/engines/btree/lookup?key=50", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if found, _ := data["found"].(bool); !found {
		t.Fatalf("expected key 50 to be found, got %+v", data)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/engines/btree/range?lo=10&hi=20", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("range: expected 200, got %d", rec.Code)
	}
	resp = decodeResponse(t, rec)
	rangeData := resp.Data.(map[string]interface{})
	gotKeys, ok := rangeData["keys"].([]interface{})
	if !ok || len(gotKeys) != 6 {
		t.Fatalf("expected 6 keys in [10,20], got %#v", rangeData["keys"])
	}
}

func TestHandleBuildUnknownKind(t *testing.T) {
	_, router := newTestServer(t)

	body, _ := json.Marshal(BuildRequest{Keys: []uint64{1, 2, 3}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engines/not-a-kind/build", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleInsertOnNonInserterEngineRejected(t *testing.T) {
	_, router := newTestServer(t)

	body, _ := json.Marshal(BuildRequest{Keys: []uint64{1, 2, 3}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engines/rmi/build", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("build: expected 200, got %d", rec.Code)
	}

	insertBody, _ := json.Marshal(InsertRequest{Key: 4})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/engines/rmi/insert", bytes.NewReader(insertBody))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleDeleteOnlySupportedByBTree(t *testing.T) {
	_, router := newTestServer(t)

	body, _ := json.Marshal(BuildRequest{Keys: []uint64{1, 2, 3}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engines/bptree/build", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("build: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/engines/bptree/delete?key=2", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleLookupMissingKeyParam(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/engines/btree/lookup", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected non-empty metrics body")
	}
}
