/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/eventdesk/internal/project"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

// Every slot mutation may carry the version the client last saw. A stale
// version is rejected before any change is applied.

// slotsReplaceRequest leaves the slot list alone when "slots" is absent, so a
// body carrying only anchors does not clear the running order.
type slotsReplaceRequest struct {
	Version   *int            `json:"version" validate:"omitempty,min=1"`
	OpenTime  *string         `json:"open_time" validate:"omitempty,clock"`
	StartTime *string         `json:"start_time" validate:"omitempty,clock"`
	Slots     json.RawMessage `json:"slots"`
}

type slotAddRequest struct {
	Version *int `json:"version" validate:"omitempty,min=1"`
	Index   *int `json:"index" validate:"omitempty,min=0"`
	Slot    any  `json:"slot" validate:"required"`
}

type slotMoveRequest struct {
	Version *int `json:"version" validate:"omitempty,min=1"`
	From    *int `json:"from" validate:"required,min=0"`
	To      *int `json:"to" validate:"required,min=0"`
}

type goodsRowsRequest struct {
	Version *int `json:"version" validate:"omitempty,min=1"`
	Pre     bool `json:"pre"`
	Post    bool `json:"post"`
}

// editSession loads a session, applies fn and saves the result.
func (a *API) editSession(w http.ResponseWriter, r *http.Request, version *int, op string, fn func(*project.Session) error) {
	sess, err := a.projects.LoadSession(r.Context(), projectID(r))
	if err != nil {
		a.writeServiceError(w, err, op)
		return
	}
	if version != nil && *version != sess.Version() {
		a.writeServiceError(w, project.ErrVersionConflict, op)
		return
	}
	if err := fn(sess); err != nil {
		a.writeServiceError(w, err, op)
		return
	}

	p, err := a.projects.SaveSession(r.Context(), sess)
	if err != nil {
		a.writeServiceError(w, err, op)
		return
	}
	rows := project.Resolve(p.TimetableSlots(), p.OpenTime, p.StartTime, project.SourceProject)
	writeJSON(w, http.StatusOK, timetableResponse{Project: p, Rows: rows})
}

func (a *API) handleSlotsReplace(w http.ResponseWriter, r *http.Request) {
	var req slotsReplaceRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	a.editSession(w, r, req.Version, "replace_slots", func(s *project.Session) error {
		if req.Slots != nil {
			s.SetSlots(timetable.DecodeSlots(req.Slots))
		}
		if req.OpenTime != nil || req.StartTime != nil {
			openTime, startTime := s.Anchors()
			if req.OpenTime != nil {
				openTime = *req.OpenTime
			}
			if req.StartTime != nil {
				startTime = *req.StartTime
			}
			s.SetAnchors(openTime, startTime)
		}
		return nil
	})
}

func (a *API) handleSlotsAdd(w http.ResponseWriter, r *http.Request) {
	var req slotAddRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	slot := timetable.DecodeSlots([]any{req.Slot})[0]
	a.editSession(w, r, req.Version, "add_slot", func(s *project.Session) error {
		if req.Index == nil {
			s.AppendSlot(slot)
			return nil
		}
		return s.InsertSlot(*req.Index, slot)
	})
}

func (a *API) handleSlotsMove(w http.ResponseWriter, r *http.Request) {
	var req slotMoveRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	a.editSession(w, r, req.Version, "move_slot", func(s *project.Session) error {
		return s.MoveSlot(*req.From, *req.To)
	})
}

func (a *API) handleSlotsRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index")
		return
	}
	var version *int
	if v, err := strconv.Atoi(r.URL.Query().Get("version")); err == nil {
		version = &v
	}
	a.editSession(w, r, version, "remove_slot", func(s *project.Session) error {
		_, err := s.RemoveSlot(index)
		return err
	})
}

func (a *API) handleGoodsRows(w http.ResponseWriter, r *http.Request) {
	var req goodsRowsRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	a.editSession(w, r, req.Version, "goods_rows", func(s *project.Session) error {
		s.EnsureGoodsRows(req.Pre, req.Post)
		return nil
	})
}
