package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/docutag/curator"
	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
	"github.com/docutag/curator/portal"
	"github.com/docutag/curator/urlnorm"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// badRequest lists the errors a caller can fix by changing the request.
var badRequest = []error{
	urlnorm.ErrInvalidURL,
	pagination.ErrInvalidCursor,
	pagination.ErrUnknownView,
	pagination.ErrInvalidThreshold,
	models.ErrInvalidStatus,
	models.ErrInvalidPin,
	portal.ErrEmptyQuery,
}

// respondErr maps err to a status code. Unclassified errors are logged and
// reported without detail.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, curator.ErrIngestInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case curator.IsFetchError(err):
		s.logger.Warn("source fetch failed", "request_id", RequestID(r.Context()), "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes and validates a JSON request body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	if err := s.validate.Struct(v); err != nil {
		return validationMessage(err)
	}
	return nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
