/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/friendsincode/eventdesk/internal/artifact"
	"github.com/friendsincode/eventdesk/internal/events"
	"github.com/friendsincode/eventdesk/internal/project"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// API exposes HTTP handlers.
type API struct {
	projects   *project.Service
	artifacts  *artifact.Service
	bus        *events.Bus
	validate   *validator.Validate
	renderRate int
	baseURL    string
	logger     zerolog.Logger
}

// New creates the API router wrapper. renderRate limits artifact generation
// per client IP per minute; zero disables the limit.
func New(projects *project.Service, artifacts *artifact.Service, bus *events.Bus, renderRate int, logger zerolog.Logger) *API {
	return &API{
		projects:   projects,
		artifacts:  artifacts,
		bus:        bus,
		validate:   newValidator(),
		renderRate: renderRate,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// SetBaseURL prefixes generated download links, e.g. "https://desk.example".
func (a *API) SetBaseURL(u string) {
	a.baseURL = strings.TrimRight(u, "/")
}

// Routes registers API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/timetable/resolve", a.handleResolve)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", a.handleProjectsList)
			r.Post("/", a.handleProjectsCreate)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", a.handleProjectsGet)
				r.Put("/", a.handleProjectsUpdate)
				r.Delete("/", a.handleProjectsDelete)
				r.Get("/timetable", a.handleProjectTimetable)

				r.Put("/slots", a.handleSlotsReplace)
				r.Post("/slots", a.handleSlotsAdd)
				r.Post("/slots/move", a.handleSlotsMove)
				r.Delete("/slots/{index}", a.handleSlotsRemove)
				r.Post("/goods-rows", a.handleGoodsRows)

				r.Get("/export/ical", a.handleExport(exportICal))
				r.Get("/export/xlsx", a.handleExport(exportXLSX))

				r.Get("/artifacts", a.handleArtifactsList)
				r.With(a.renderLimiter()).Post("/artifacts/{type}", a.handleArtifactsGenerate)

				r.Get("/events", a.handleProjectEvents)
			})
		})

		r.Get("/artifacts/{artifactID}/download", a.handleArtifactDownload)
	})
}

func (a *API) renderLimiter() func(http.Handler) http.Handler {
	if a.renderRate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(a.renderRate, time.Minute)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// It writes the error response itself and reports whether the handler may
// continue.
func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation_failed",
				"fields": validationFields(verrs),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP responses.
func (a *API) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeError(w, http.StatusNotFound, "project_not_found")
	case errors.Is(err, artifact.ErrNotFound):
		writeError(w, http.StatusNotFound, "artifact_not_found")
	case errors.Is(err, project.ErrSlotIndex):
		writeError(w, http.StatusBadRequest, "slot_index_out_of_range")
	case errors.Is(err, project.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict")
	case errors.Is(err, artifact.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "unsupported_artifact_type")
	case errors.Is(err, artifact.ErrRendererUnavailable):
		writeError(w, http.StatusServiceUnavailable, "renderer_unavailable")
	default:
		a.logger.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
