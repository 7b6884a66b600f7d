package httpapi

// APIResponse is the envelope every endpoint in this package returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BuildRequest is the body of a build request.
type BuildRequest struct {
	Keys []uint64 `json:"keys"`
}

// InsertRequest is the body of an incremental-insert request.
type InsertRequest struct {
	Key uint64 `json:"key"`
}

// EngineStatus summarizes one registered engine for listing endpoints.
type EngineStatus struct {
	Kind          string `json:"kind"`
	Built         bool   `json:"built"`
	KeyCount      int    `json:"key_count"`
	MemoryUsage   int64  `json:"memory_usage_bytes"`
	SupportsWrite bool   `json:"supports_insert"`
	SupportsDelete bool  `json:"supports_delete"`
}
