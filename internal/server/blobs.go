package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"middag/internal/app"
	"middag/internal/i18n"
	"middag/internal/metrics"
	"middag/internal/storage"
)

// readBlob reads a request body that must be a JSON document.
func readBlob(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrBadInput, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: body is not JSON", app.ErrBadInput)
	}
	return data, nil
}

func (s *Server) handleCreateBlob(w http.ResponseWriter, r *http.Request) {
	data, err := readBlob(w, r)
	if err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	id := storage.NewID()
	if err := s.blobs.Create(r.Context(), id, data); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, s.lang(r), i18n.KeyBadRequest)
		return
	}
	data, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handlePutBlob(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, s.lang(r), i18n.KeyBadRequest)
		return
	}
	data, err := readBlob(w, r)
	if err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	if err := s.sessions.Store(r.Context(), id, data); err != nil {
		s.fail(w, r, s.lang(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type metricsResp struct {
	Usage  []metrics.DailyUsage `json:"usage"`
	Health metrics.SysHealth    `json:"health"`
}

const defaultUsageDays = 7

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	days := defaultUsageDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, s.lang(r), i18n.KeyBadRequest)
			return
		}
		days = n
	}

	resp := metricsResp{Usage: []metrics.DailyUsage{}, Health: metrics.GetSysHealth(s.dataPath)}
	if s.usage != nil {
		usage, err := s.usage.GetDailyUsage(r.Context(), days)
		if err != nil {
			s.fail(w, r, s.lang(r), err)
			return
		}
		if usage != nil {
			resp.Usage = usage
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
