/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/friendsincode/eventdesk/internal/export"
	"github.com/friendsincode/eventdesk/internal/models"
)

const (
	exportICal = models.ArtifactTimetableICal
	exportXLSX = models.ArtifactTimetableXLSX
)

// handleExport streams a freshly built export without storing it.
func (a *API) handleExport(t models.ArtifactType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.artifacts == nil {
			writeError(w, http.StatusServiceUnavailable, "exports_unavailable")
			return
		}
		_, res, err := a.artifacts.Build(r.Context(), projectID(r), t)
		if errors.Is(err, export.ErrNoEventDate) {
			writeError(w, http.StatusUnprocessableEntity, "event_date_required")
			return
		}
		if err != nil {
			a.writeServiceError(w, err, "export_"+string(t))
			return
		}
		writeFile(w, res.ContentType, res.Filename, res.Data)
	}
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
