package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
	"github.com/docutag/curator/slug"
)

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC(),
	}
	if s.counter != nil {
		count, err := s.counter.Count(r.Context())
		if err != nil {
			s.logger.Error("health check failed", "error", err)
			respondError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		resp["count"] = count
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleIngest runs one ingestion. New items answer 201, duplicates 200.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.ingester.Ingest(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, res.Response())
}

// handleList serves GET /api/items?view=&cursor=&limit=&threshold=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	view, err := pagination.ParseView(q.Get("view"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	req := pagination.Request{View: view, Cursor: q.Get("cursor"), Limit: limit}
	if raw := q.Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		req.Threshold = &threshold
	}

	page, err := s.reader.List(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := s.reader.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// handleContent serves the stored clean text of an item.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	doc, err := s.reader.Content(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", slug.Filename(doc.Title, doc.ID, "txt")))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.Text))
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	topK, err := intParam(r.URL.Query().Get("topK"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "topK must be an integer")
		return
	}

	hits, err := s.reader.Similar(r.Context(), r.PathValue("id"), topK)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": hits, "count": len(hits)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	hits, err := s.reader.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": hits, "count": len(hits)})
}

// StatusRequest is the body of PATCH /api/items/{id}/status
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.reader.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// PinRequest is the body of PATCH /api/items/{id}/pin
type PinRequest struct {
	Pin *int `json:"pin" validate:"required"`
}

func (s *Server) handleSetPin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.reader.SetPin(r.Context(), r.PathValue("id"), *req.Pin)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// intParam parses an optional integer query parameter; empty is zero.
func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", raw, err)
	}
	return n, nil
}
