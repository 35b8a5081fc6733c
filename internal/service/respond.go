package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"campusdual-backend/internal/extract"
	"campusdual-backend/internal/portal"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeText passes an upstream answer through unchanged.
func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, errorBody{Error: message})
}

// classify maps an error from the portal or the extractor to the status and the short message
// the client gets to see, upstream bodies are never passed through.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, portal.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, portal.ErrUpstreamUnreachable):
		return http.StatusInternalServerError, "CampusDual is not reachable"
	case errors.Is(err, portal.ErrUpstreamFormat):
		return http.StatusInternalServerError, "CampusDual returned garbage"
	case errors.Is(err, portal.ErrHashNotFound):
		return http.StatusInternalServerError, "Could not find user hash"
	case errors.Is(err, portal.ErrSessionCookieMissing):
		return http.StatusInternalServerError, "Could not find session cookie"
	case errors.Is(err, extract.ErrTableMissing):
		return http.StatusInternalServerError, "Could not find table in CampusDual page"
	case errors.Is(err, extract.ErrRowShapeMismatch):
		return http.StatusInternalServerError, "Could not parse CampusDual page"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

func (s *Service) fail(w http.ResponseWriter, id string, err error) {
	status, message := classify(err)
	if status >= 500 {
		s.tel.ReportWarning(id, err)
	} else {
		s.tel.ReportDebug(id, err)
	}
	writeError(w, status, message)
}
