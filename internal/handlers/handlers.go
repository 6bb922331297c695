// Package handlers implements the HTTP query surface over the index:
// two-hop retrieval, the semantic-graph snapshot, and a health probe.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/corpusflower/corpusflower/internal/config"
	"github.com/corpusflower/corpusflower/internal/graph"
	"github.com/corpusflower/corpusflower/internal/retrieval"
	"github.com/corpusflower/corpusflower/internal/vectorstore"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

type QueryRequest struct {
	Question  string `json:"question"`
	NDocs     int    `json:"n_docs,omitempty"`
	NPassages int    `json:"n_passages,omitempty"`
}

type QueryResponse struct {
	DocSummaries []vectorstore.Result `json:"doc_summaries"`
	Passages     []vectorstore.Result `json:"passages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	retriever *retrieval.Retriever
	graph     *graph.Store
	nDocs     int
	nPassages int
	logger    *logger_i.Logger
}

func New(retriever *retrieval.Retriever, graphStore *graph.Store, nDocs, nPassages int) *Handler {
	if nDocs <= 0 {
		nDocs = config.DefaultNDocs
	}
	if nPassages <= 0 {
		nPassages = config.DefaultNPassages
	}
	return &Handler{
		retriever: retriever,
		graph:     graphStore,
		nDocs:     nDocs,
		nPassages: nPassages,
		logger:    logger_i.NewLogger("handlers"),
	}
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("closing request body", "error", err)
		}
	}(r.Body)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("bad query request", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"}, h.logger)
		return
	}

	nDocs := req.NDocs
	if nDocs <= 0 {
		nDocs = h.nDocs
	}
	nPassages := req.NPassages
	if nPassages <= 0 {
		nPassages = h.nPassages
	}

	docs, passages, err := h.retriever.Retrieve(r.Context(), req.Question, nDocs, nPassages)
	if err != nil {
		h.logger.Error("retrieval failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "retrieval failed"}, h.logger)
		return
	}

	if docs == nil {
		docs = []vectorstore.Result{}
	}
	if passages == nil {
		passages = []vectorstore.Result{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{DocSummaries: docs, Passages: passages}, h.logger)
}

func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	snap, err := h.graph.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("graph snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "graph unavailable"}, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, snap, h.logger)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any, log *logger_i.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("encoding response", "error", err)
	}
}
