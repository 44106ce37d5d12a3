/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/friendsincode/eventdesk/internal/clock"
	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

// ICal builds a calendar with one event per performance that has an
// interval. Times that wrap past midnight land on the following day.
func ICal(p *models.Project, rows []timetable.Row, opts Options) (*Result, error) {
	loc := opts.location()
	day, err := eventDate(p, loc)
	if err != nil {
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//eventdesk//Timetable Export//EN")
	cal.SetXWRCalName(p.Title)
	cal.SetXWRTimezone(loc.String())

	stamp := opts.now().UTC()
	dayOffset := 0
	prevStart := -1

	for i, row := range rows {
		if row.Kind != timetable.RowNormal || !row.HasInterval() {
			continue
		}
		start, okStart := clock.Parse(row.StartTime)
		end, okEnd := clock.Parse(row.EndTime)
		if !okStart || !okEnd {
			continue
		}

		if int(start) < prevStart {
			dayOffset++
		}
		prevStart = int(start)

		startAt := at(day, dayOffset, start, loc)
		endAt := at(day, dayOffset, end, loc)
		if !endAt.After(startAt) && row.DurationMinutes > 0 {
			endAt = endAt.AddDate(0, 0, 1)
		}

		event := cal.AddEvent(fmt.Sprintf("%s-%d-v%d@eventdesk", p.ID, i, p.Version))
		event.SetDtStampTime(stamp)
		event.SetStartAt(startAt)
		event.SetEndAt(endAt)
		event.SetSummary(row.ArtistName)
		if p.Venue != "" {
			event.SetLocation(p.Venue)
		}
		if desc := describe(row); desc != "" {
			event.SetDescription(desc)
		}
	}

	return &Result{
		Data:        []byte(cal.Serialize()),
		Filename:    filename(p, "timetable", "ics"),
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

func at(day time.Time, offset int, c clock.Clock, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+offset, c.Hour(), c.Minute(), 0, 0, loc)
}

func describe(row timetable.Row) string {
	var parts []string
	if row.GoodsDisplay != "" {
		parts = append(parts, "Goods: "+row.GoodsDisplay)
	}
	if row.PlaceDisplay != "" {
		parts = append(parts, "Place: "+row.PlaceDisplay)
	}
	if row.AdjustmentMinutes > 0 {
		parts = append(parts, fmt.Sprintf("Changeover: %d min", row.AdjustmentMinutes))
	}
	return strings.Join(parts, "\n")
}
