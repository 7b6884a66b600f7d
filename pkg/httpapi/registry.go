package httpapi

import (
	"sync"

	"github.com/indexlab/learnedindex/pkg/index"
)

// engineEntry pairs one Index instance with the mutex that serializes
// access to it. Each engine is single-threaded and non-reentrant on its
// own; this mutex is the HTTP layer's concession to concurrent requests,
// not a concurrency guarantee added to the engine itself.
type engineEntry struct {
	mu    sync.Mutex
	idx   index.Index[uint64]
	built bool
}

// registry owns one engineEntry per Kind, constructed eagerly at server
// startup from the configured Params.
type registry struct {
	entries map[index.Kind]*engineEntry
}

func newRegistry(p index.Params) (*registry, error) {
	r := &registry{entries: make(map[index.Kind]*engineEntry)}
	for _, kind := range index.AllKinds() {
		idx, err := index.New[uint64](kind, p)
		if err != nil {
			return nil, err
		}
		r.entries[kind] = &engineEntry{idx: idx}
	}
	return r, nil
}

func (r *registry) get(kind index.Kind) (*engineEntry, bool) {
	e, ok := r.entries[kind]
	return e, ok
}
