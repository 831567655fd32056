package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"middag/internal/app"
	"middag/internal/i18n"
	"middag/internal/planner"
	"middag/internal/storage"
)

type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) lang(r *http.Request) string {
	return s.langFor(r, "")
}

// langFor picks the language of messages: the lang query parameter, then
// the language of the state involved, then the server default.
func (s *Server) langFor(r *http.Request, stateLang string) string {
	if l := r.URL.Query().Get("lang"); i18n.Supported(l) {
		return l
	}
	if i18n.Supported(stateLang) {
		return stateLang
	}
	return s.defaultLanguage
}

func (s *Server) writeError(w http.ResponseWriter, status int, lang, key string) {
	writeJSON(w, status, errorResp{Error: s.tr.T(lang, key, nil)})
}

// fail maps err to a status and a localized message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, lang string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, planner.ErrSlotNotFound):
		s.writeError(w, http.StatusNotFound, lang, i18n.KeyNotFound)
	case app.IsBadInput(err):
		s.writeError(w, http.StatusBadRequest, lang, i18n.KeyBadRequest)
	case errors.Is(err, app.ErrMenuUnavailable):
		s.logger.Error("menu unavailable", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusServiceUnavailable, lang, i18n.KeyLoadError)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, lang, i18n.KeySaveError)
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", app.ErrBadInput, err)
	}
	return nil
}
