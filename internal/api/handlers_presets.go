// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/go-chi/chi/v5"
)

// PresetsResponse wraps the preset list.
type PresetsResponse struct {
	Presets []dvr.Preset `json:"presets"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: s.recordings.ListPresets()})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.recordings.GetPreset(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var p dvr.Preset
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.recordings.CreatePreset(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	var p dvr.Preset
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.recordings.UpdatePreset(chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.recordings.DeletePreset(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
