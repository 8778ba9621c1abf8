// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/recorder"
	"github.com/go-chi/chi/v5"
)

// RecordingsResponse wraps recording lists.
type RecordingsResponse struct {
	Recordings []dvr.ScheduledRecording `json:"recordings"`
}

// RecorderStatus is the snapshot of the capture slot.
type RecorderStatus struct {
	Active  bool           `json:"active"`
	Item    *recorder.Item `json:"item,omitempty"`
	Percent float64        `json:"percent"`
}

func (s *Server) handleListRecordings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RecordingsResponse{Recordings: s.recordings.ListRecordings()})
}

func (s *Server) handleUpcomingRecordings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RecordingsResponse{Recordings: s.recordings.GetUpcomingRecordings()})
}

func (s *Server) handleScheduleRecording(w http.ResponseWriter, r *http.Request) {
	var req dvr.ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.recordings.ScheduleRecording(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleRecordNow(w http.ResponseWriter, r *http.Request) {
	var req dvr.ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.recordings.RecordNow(req)
	if err != nil {
		if errors.Is(err, recorder.ErrBusy) {
			// The refused job is kept as failed; hand it back with the conflict.
			writeJSON(w, http.StatusConflict, struct {
				ErrorResponse
				Recording dvr.ScheduledRecording `json:"recording"`
			}{ErrorResponse{Error: "conflict", Detail: err.Error()}, rec})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recordings.GetRecording(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecording(w http.ResponseWriter, r *http.Request) {
	var req dvr.ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.recordings.UpdateRecording(chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCancelRecording(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.recordings.CancelRecording(id); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.recordings.GetRecording(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := s.recordings.DeleteRecording(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecorderStatus(w http.ResponseWriter, _ *http.Request) {
	item, ok := s.recordings.ActiveCapture()
	if !ok {
		writeJSON(w, http.StatusOK, RecorderStatus{})
		return
	}
	writeJSON(w, http.StatusOK, RecorderStatus{Active: true, Item: &item, Percent: item.Percent(s.now())})
}

func (s *Server) handleRecorderStop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": s.recordings.StopActive()})
}
