// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/upload"

	"github.com/go-chi/chi/v5"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type keyBody struct {
	Key string `json:"key"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the upload error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "InternalError"
	switch {
	case errors.Is(err, upload.ErrValidation):
		status, code = http.StatusBadRequest, "ValidationError"
	case errors.Is(err, upload.ErrNotTemporary):
		status, code = http.StatusUnprocessableEntity, "NotTemporary"
	case errors.Is(err, upload.ErrNotFound):
		status, code = http.StatusNotFound, "NotFound"
	case errors.Is(err, upload.ErrAllocationExhausted):
		status, code = http.StatusServiceUnavailable, "AllocationExhausted"
	case errors.Is(err, upload.ErrBackend):
		status, code = http.StatusBadGateway, "BackendError"
	}

	if status >= 500 {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.issuer.IssueToken(r.Context(), r.URL.Query().Get("mime"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) promote(w http.ResponseWriter, r *http.Request) {
	var body keyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "ValidationError", Message: "body must be {\"key\": \"...\"}"})
		return
	}

	key, err := s.manager.Promote(r.Context(), body.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keyBody{Key: key})
}

func (s *Server) exists(w http.ResponseWriter, r *http.Request) {
	ok, err := s.manager.Exists(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Remove(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
