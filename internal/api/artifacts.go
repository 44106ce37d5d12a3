/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/friendsincode/eventdesk/internal/export"
	"github.com/friendsincode/eventdesk/internal/models"
)

type artifactResponse struct {
	*models.Artifact
	Reused      bool   `json:"reused"`
	DownloadURL string `json:"download_url"`
}

func (a *API) artifactResponse(art *models.Artifact, reused bool) artifactResponse {
	url := a.artifacts.URL(art)
	if url == "" {
		url = a.baseURL + "/api/v1/artifacts/" + art.ID + "/download"
	}
	return artifactResponse{Artifact: art, Reused: reused, DownloadURL: url}
}

func (a *API) handleArtifactsGenerate(w http.ResponseWriter, r *http.Request) {
	if a.artifacts == nil {
		writeError(w, http.StatusServiceUnavailable, "artifacts_unavailable")
		return
	}
	t := models.ArtifactType(chi.URLParam(r, "type"))
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported_artifact_type")
		return
	}

	art, reused, err := a.artifacts.Generate(r.Context(), projectID(r), t)
	if errors.Is(err, export.ErrNoEventDate) {
		writeError(w, http.StatusUnprocessableEntity, "event_date_required")
		return
	}
	if err != nil {
		a.writeServiceError(w, err, "generate_artifact")
		return
	}

	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}
	writeJSON(w, status, a.artifactResponse(art, reused))
}

func (a *API) handleArtifactsList(w http.ResponseWriter, r *http.Request) {
	if a.artifacts == nil {
		writeJSON(w, http.StatusOK, map[string]any{"artifacts": []artifactResponse{}})
		return
	}
	list, err := a.artifacts.List(r.Context(), projectID(r))
	if err != nil {
		a.writeServiceError(w, err, "list_artifacts")
		return
	}
	out := make([]artifactResponse, len(list))
	for i := range list {
		out[i] = a.artifactResponse(&list[i], false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": out})
}

func (a *API) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "artifactID")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_artifact_id")
		return
	}
	if a.artifacts == nil {
		writeError(w, http.StatusNotFound, "artifact_not_found")
		return
	}

	art, err := a.artifacts.Get(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err, "get_artifact")
		return
	}
	if url := a.artifacts.URL(art); url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	data, err := a.artifacts.Open(r.Context(), art)
	if err != nil {
		a.writeServiceError(w, err, "open_artifact")
		return
	}
	writeFile(w, art.ContentType, path.Base(art.StorageKey), data)
}
