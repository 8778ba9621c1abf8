// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import "net/http"

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	SaveHealthy   bool   `json:"save_healthy"`
	LastSaveError string `json:"last_save_error,omitempty"`
	Recording     bool   `json:"recording"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(s.now().Sub(s.startTime).Seconds()),
		SaveHealthy:   true,
	}
	if err := s.recordings.LastSaveError(); err != nil {
		resp.SaveHealthy = false
		resp.LastSaveError = err.Error()
	} else if err := s.events.LastSaveError(); err != nil {
		resp.SaveHealthy = false
		resp.LastSaveError = err.Error()
	}
	if !resp.SaveHealthy {
		resp.Status = "degraded"
	}
	_, resp.Recording = s.recordings.ActiveCapture()
	writeJSON(w, http.StatusOK, resp)
}
