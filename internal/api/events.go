/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/eventdesk/internal/events"
)

type projectEvent struct {
	Type    events.EventType `json:"type"`
	Payload events.Payload   `json:"payload"`
}

// handleProjectEvents streams one project's events over a websocket so open
// editors can reload after another client saves.
func (a *API) handleProjectEvents(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if _, err := a.projects.Get(r.Context(), id); err != nil {
		a.writeServiceError(w, err, "project_events")
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	// Client messages are ignored; CloseRead cancels ctx when the client leaves.
	ctx := conn.CloseRead(r.Context())

	merged := make(chan projectEvent, 16)
	subs := make([]events.Subscriber, len(events.ProjectEvents))
	for i, t := range events.ProjectEvents {
		subs[i] = a.bus.Subscribe(t)
		go forwardEvents(ctx, t, subs[i], merged)
	}
	defer func() {
		for i, t := range events.ProjectEvents {
			a.bus.Unsubscribe(t, subs[i])
		}
	}()

	a.logger.Debug().Str("project_id", id).Msg("event stream connected")

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ping.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case ev := <-merged:
			if ev.Payload.ProjectID() != id {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, ws.MessageText, data); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func forwardEvents(ctx context.Context, t events.EventType, sub events.Subscriber, out chan<- projectEvent) {
	for payload := range sub {
		select {
		case out <- projectEvent{Type: t, Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}
