/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/eventdesk/internal/project"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

func projectID(r *http.Request) string {
	return chi.URLParam(r, "projectID")
}

type projectCreateRequest struct {
	Title     string         `json:"title" validate:"required,max=255"`
	Venue     string         `json:"venue" validate:"max=255"`
	EventDate string         `json:"event_date" validate:"omitempty,eventdate"`
	OpenTime  string         `json:"open_time" validate:"omitempty,clock"`
	StartTime string         `json:"start_time" validate:"omitempty,clock"`
	Notes     string         `json:"notes"`
	Metadata  map[string]any `json:"metadata"`
	Slots     any            `json:"slots"`
}

type projectUpdateRequest struct {
	Title     *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Venue     *string        `json:"venue" validate:"omitempty,max=255"`
	EventDate *string        `json:"event_date" validate:"omitempty,eventdate"`
	OpenTime  *string        `json:"open_time" validate:"omitempty,clock"`
	StartTime *string        `json:"start_time" validate:"omitempty,clock"`
	Notes     *string        `json:"notes"`
	Metadata  map[string]any `json:"metadata"`
}

func (a *API) handleProjectsList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	projects, err := a.projects.List(r.Context(), limit, offset)
	if err != nil {
		a.writeServiceError(w, err, "list_projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (a *API) handleProjectsCreate(w http.ResponseWriter, r *http.Request) {
	var req projectCreateRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	p, err := a.projects.Create(r.Context(), project.CreateInput{
		Title:     req.Title,
		Venue:     req.Venue,
		EventDate: req.EventDate,
		OpenTime:  req.OpenTime,
		StartTime: req.StartTime,
		Notes:     req.Notes,
		Metadata:  req.Metadata,
		Slots:     timetable.DecodeSlots(req.Slots),
	})
	if err != nil {
		a.writeServiceError(w, err, "create_project")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleProjectsGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.projects.Get(r.Context(), projectID(r))
	if err != nil {
		a.writeServiceError(w, err, "get_project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProjectsUpdate(w http.ResponseWriter, r *http.Request) {
	var req projectUpdateRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	p, err := a.projects.Update(r.Context(), projectID(r), project.UpdateInput{
		Title:     req.Title,
		Venue:     req.Venue,
		EventDate: req.EventDate,
		OpenTime:  req.OpenTime,
		StartTime: req.StartTime,
		Notes:     req.Notes,
		Metadata:  req.Metadata,
	})
	if err != nil {
		a.writeServiceError(w, err, "update_project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProjectsDelete(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if err := a.projects.Delete(r.Context(), id); err != nil {
		a.writeServiceError(w, err, "delete_project")
		return
	}
	if a.artifacts != nil {
		if err := a.artifacts.PurgeProject(r.Context(), id); err != nil {
			a.logger.Warn().Err(err).Str("project_id", id).Msg("artifact purge failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
