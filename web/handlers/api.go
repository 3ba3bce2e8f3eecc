package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/moneta-hq/moneta/internal/engine"
	"github.com/moneta-hq/moneta/pkg/types"
)

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	engine *engine.MemoryEngine
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(eng *engine.MemoryEngine) *APIHandlers {
	return &APIHandlers{engine: eng}
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// createMemoryRequest is the body of POST /api/memories.
type createMemoryRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// reinforceRequest is the body of POST /api/memories/{id}/reinforce.
type reinforceRequest struct {
	Amount float64 `json:"amount"`
}

// CreateMemory handles POST /api/memories.
func (h *APIHandlers) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	mem, err := h.engine.AddMemory(r.Context(), req.Content, req.Tags)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	// Embeddings are engine-internal, never exposed over the API.
	mem.Embedding = nil
	respondJSON(w, http.StatusCreated, memoryResponse(mem))
}

// ListMemories handles GET /api/memories - all memories sorted by score.
func (h *APIHandlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	memories := h.engine.List()

	out := make([]map[string]interface{}, 0, len(memories))
	for _, mem := range memories {
		out = append(out, memoryResponse(mem))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"memories": out,
		"count":    len(out),
	})
}

// GetMemory handles GET /api/memories/{id}.
func (h *APIHandlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	mem, err := h.engine.Get(r.PathValue("id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}

	mem.Embedding = nil
	respondJSON(w, http.StatusOK, memoryResponse(mem))
}

// DeleteMemory handles DELETE /api/memories/{id}.
func (h *APIHandlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteMemory(r.Context(), r.PathValue("id")); err != nil {
		respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search?q=...&top_k=...&min_relevance=...
func (h *APIHandlers) Search(w http.ResponseWriter, r *http.Request) {
	opts := engine.SearchOptions{
		Query:        r.URL.Query().Get("q"),
		TopK:         parseInt(r.URL.Query().Get("top_k"), 0),
		MinRelevance: parseFloat(r.URL.Query().Get("min_relevance"), -1),
	}

	results, err := h.engine.Search(r.Context(), opts)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(results))
	for _, res := range results {
		entry := memoryResponse(res.Memory)
		entry["similarity"] = res.Similarity
		entry["hybrid_score"] = res.HybridScore
		out = append(out, entry)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   opts.Query,
		"results": out,
		"count":   len(out),
	})
}

// Network handles GET /api/network?threshold=... - the visualization graph.
func (h *APIHandlers) Network(w http.ResponseWriter, r *http.Request) {
	threshold := parseFloat(r.URL.Query().Get("threshold"), 0)
	if threshold < 0 || threshold > 1 {
		respondError(w, http.StatusBadRequest, "threshold must be between 0 and 1", nil)
		return
	}

	network, err := h.engine.Network(threshold)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, network)
}

// Reinforce handles POST /api/memories/{id}/reinforce - a manual boost.
func (h *APIHandlers) Reinforce(w http.ResponseWriter, r *http.Request) {
	var req reinforceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	id := r.PathValue("id")
	if err := h.engine.Reinforce(r.Context(), id, req.Amount); err != nil {
		respondEngineError(w, err)
		return
	}

	mem, err := h.engine.Get(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	mem.Embedding = nil
	respondJSON(w, http.StatusOK, memoryResponse(mem))
}

// Recalculate handles POST /api/recalculate - full rebuild and rescore,
// resetting accumulated reinforcement.
func (h *APIHandlers) Recalculate(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Recalculate(r.Context()); err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "recalculated",
		"count":  h.engine.Count(),
	})
}

// Health handles GET /api/health.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"memories": h.engine.Count(),
	})
}

// memoryResponse shapes one memory for JSON output. The combined score is
// included alongside its components so the UI doesn't re-derive it.
func memoryResponse(mem *types.Memory) map[string]interface{} {
	out := map[string]interface{}{
		"id":            mem.ID,
		"content":       mem.Content,
		"base_score":    mem.BaseScore,
		"reinforcement": mem.Reinforcement,
		"score":         mem.Score(),
		"created_at":    mem.CreatedAt,
	}
	if len(mem.Tags) > 0 {
		out["tags"] = mem.Tags
	}
	if mem.LastReinforcedAt != nil {
		out["last_reinforced_at"] = mem.LastReinforcedAt
	}
	return out
}

// respondEngineError maps engine errors to HTTP status codes.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrMemoryNotFound):
		respondError(w, http.StatusNotFound, "memory not found", err)
	case errors.Is(err, engine.ErrInvalidInput), errors.Is(err, engine.ErrInvalidQuery):
		respondError(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, engine.ErrEmbeddingUnavailable):
		respondError(w, http.StatusServiceUnavailable, "embedding provider unavailable", err)
	case errors.Is(err, engine.ErrWritesBlocked), errors.Is(err, engine.ErrGraphRebuild):
		respondError(w, http.StatusConflict, "memory graph needs recalculation", err)
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// parseFloat parses a float from a string, returning defaultValue if parsing fails.
func parseFloat(s string, defaultValue float64) float64 {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing more to do.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
