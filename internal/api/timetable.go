/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/project"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

// resolveRequest is deliberately loose: slots may arrive in any shape the
// editor ever stored and anchors may be malformed.
type resolveRequest struct {
	OpenTime  any `json:"open_time"`
	StartTime any `json:"start_time"`
	Slots     any `json:"slots"`
}

type timetableResponse struct {
	Project *models.Project `json:"project,omitempty"`
	Rows    []timetable.Row `json:"rows"`
}

func (a *API) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	rows := project.Resolve(timetable.DecodeSlots(req.Slots), timetable.Text(req.OpenTime), timetable.Text(req.StartTime), project.SourceRequest)
	writeJSON(w, http.StatusOK, timetableResponse{Rows: rows})
}

func (a *API) handleProjectTimetable(w http.ResponseWriter, r *http.Request) {
	p, rows, err := a.projects.Timetable(r.Context(), projectID(r))
	if err != nil {
		a.writeServiceError(w, err, "project_timetable")
		return
	}
	writeJSON(w, http.StatusOK, timetableResponse{Project: p, Rows: rows})
}
