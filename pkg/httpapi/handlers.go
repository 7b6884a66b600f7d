package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/indexlab/learnedindex/pkg/index"
	"github.com/indexlab/learnedindex/pkg/metrics"
)

// Server holds the inspection API's state: one registry of engines and
// the metrics collector every handler reports to.
type Server struct {
	reg     *registry
	metrics *metrics.Metrics
}

// NewServer builds a Server with one engine instance per Kind, configured
// from p.
func NewServer(p index.Params, m *metrics.Metrics) (*Server, error) {
	reg, err := newRegistry(p)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	return &Server{reg: reg, metrics: m}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	statuses := make([]EngineStatus, 0, len(index.AllKinds()))
	for _, kind := range index.AllKinds() {
		entry, _ := s.reg.get(kind)
		entry.mu.Lock()
		_, canInsert := entry.idx.(index.Inserter[uint64])
		_, canDelete := entry.idx.(index.Deleter[uint64])
		status := EngineStatus{
			Kind:           string(kind),
			Built:          entry.built,
			MemoryUsage:    entry.idx.MemoryUsage(),
			SupportsWrite:  canInsert,
			SupportsDelete: canDelete,
		}
		entry.mu.Unlock()
		statuses = append(statuses, status)
	}
	sendSuccess(w, statuses)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind := index.Kind(chi.URLParam(r, "kind"))
	entry, ok := s.reg.get(kind)
	if !ok {
		sendError(w, fmt.Sprintf("unknown engine kind %q", kind), http.StatusNotFound)
		return
	}

	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	entry.idx.Build(req.Keys)
	entry.built = true
	usage := entry.idx.MemoryUsage()
	entry.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordBuild(string(kind), time.Since(start))
		s.metrics.SetMemoryUsage(string(kind), usage)
	}

	sendSuccess(w, EngineStatus{Kind: string(kind), Built: true, KeyCount: len(req.Keys), MemoryUsage: usage})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind := index.Kind(chi.URLParam(r, "kind"))
	entry, ok := s.reg.get(kind)
	if !ok {
		sendError(w, fmt.Sprintf("unknown engine kind %q", kind), http.StatusNotFound)
		return
	}

	key, err := strconv.ParseUint(r.URL.Query().Get("key"), 10, 64)
	if err != nil {
		sendError(w, "missing or invalid 'key' query parameter", http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	pos, found := entry.idx.Lookup(key)
	entry.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordLookup(string(kind), found, time.Since(start))
	}

	sendSuccess(w, map[string]interface{}{"key": key, "found": found, "position": pos})
}

func (s *Server) handleRangeQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind := index.Kind(chi.URLParam(r, "kind"))
	entry, ok := s.reg.get(kind)
	if !ok {
		sendError(w, fmt.Sprintf("unknown engine kind %q", kind), http.StatusNotFound)
		return
	}

	lo, errLo := strconv.ParseUint(r.URL.Query().Get("lo"), 10, 64)
	hi, errHi := strconv.ParseUint(r.URL.Query().Get("hi"), 10, 64)
	if errLo != nil || errHi != nil {
		sendError(w, "missing or invalid 'lo'/'hi' query parameters", http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	results := entry.idx.RangeQuery(lo, hi)
	entry.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRangeQuery(string(kind), time.Since(start))
	}

	sendSuccess(w, map[string]interface{}{"lo": lo, "hi": hi, "keys": results})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	kind := index.Kind(chi.URLParam(r, "kind"))
	entry, ok := s.reg.get(kind)
	if !ok {
		sendError(w, fmt.Sprintf("unknown engine kind %q", kind), http.StatusNotFound)
		return
	}

	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	inserter, canInsert := entry.idx.(index.Inserter[uint64])
	if !canInsert {
		entry.mu.Unlock()
		sendError(w, fmt.Sprintf("engine %q does not support incremental insert", kind), http.StatusMethodNotAllowed)
		return
	}
	inserter.Insert(req.Key)
	usage := entry.idx.MemoryUsage()
	entry.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordInsert(string(kind))
		s.metrics.SetMemoryUsage(string(kind), usage)
	}

	sendSuccess(w, map[string]interface{}{"key": req.Key, "inserted": true})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind := index.Kind(chi.URLParam(r, "kind"))
	entry, ok := s.reg.get(kind)
	if !ok {
		sendError(w, fmt.Sprintf("unknown engine kind %q", kind), http.StatusNotFound)
		return
	}

	key, err := strconv.ParseUint(r.URL.Query().Get("key"), 10, 64)
	if err != nil {
		sendError(w, "missing or invalid 'key' query parameter", http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	deleter, canDelete := entry.idx.(index.Deleter[uint64])
	if !canDelete {
		entry.mu.Unlock()
		sendError(w, fmt.Sprintf("engine %q does not support delete", kind), http.StatusMethodNotAllowed)
		return
	}
	deleter.Delete(key)
	usage := entry.idx.MemoryUsage()
	entry.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetMemoryUsage(string(kind), usage)
	}

	sendSuccess(w, map[string]interface{}{"key": key, "deleted": true})
}
