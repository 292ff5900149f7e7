package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
	"github.com/poiesic/sift/search"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// indexRequest is the body of POST /api/v1/index.
type indexRequest struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
	Force    bool   `json:"force"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query core.SearchQuery
	if err := decodeBody(r, &query); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.searcher.Search(r.Context(), query.WithDefaults())
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.fail(w, "stats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.searcher.Health(r.Context())
	status := http.StatusOK
	if report.Status == search.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, http.StatusNotImplemented, errors.New("indexing is not enabled"))
		return
	}

	var req indexRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scope := core.IndexScope{Category: req.Category, Slug: req.Slug}
	result, err := s.indexer.Run(r.Context(), scope, &ingestion.RunOptions{Force: req.Force})
	if err != nil {
		s.fail(w, "indexing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fail maps an error to its status code and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "err", err)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidQuery), errors.Is(err, core.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrEmbeddingUnavailable),
		errors.Is(err, core.ErrIndexUnavailable),
		errors.Is(err, core.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
