/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timetable resolves an ordered list of performance slots into a
// display timetable.
package timetable

import (
	"strings"

	"github.com/friendsincode/eventdesk/internal/clock"
)

// Resolve walks slots in order and returns the resolved rows. openTime and
// startTime are "HH:MM" anchors; either may be empty or malformed.
//
// The leading OPEN / START row is emitted only when both anchors parse. The
// cursor starts at startTime and only NORMAL slots advance it. When startTime
// is unusable, NORMAL rows keep empty time ranges but still compose their merch
// columns. Resolve never panics on field content and keeps no state between
// calls.
func Resolve(slots []Slot, openTime, startTime string) []Row {
	rows := make([]Row, 0, len(slots)+1)

	open, hasOpen := clock.Parse(openTime)
	start, hasStart := clock.Parse(startTime)
	if hasOpen && hasStart {
		rows = append(rows, Row{
			Kind:       RowOpenStart,
			TimeRange:  clock.Range(open, start),
			ArtistName: OpenStartLabel,
		})
	}

	cursor := start
	haveCursor := hasStart

	for _, raw := range slots {
		slot := sanitize(raw)

		if slot.Kind.IsGoods() {
			rows = append(rows, goodsRow(slot))
			continue
		}

		row := Row{
			Kind:              RowNormal,
			ArtistName:        slot.ArtistName,
			DurationMinutes:   slot.DurationMinutes,
			AdjustmentMinutes: slot.AdjustmentMinutes,
		}
		row.GoodsDisplay, row.PlaceDisplay = composeGoods(slot)

		if haveCursor {
			end := cursor.Add(slot.DurationMinutes)
			row.StartTime = cursor.String()
			row.EndTime = end.String()
			row.TimeRange = clock.Range(cursor, end)
			cursor = end.Add(slot.AdjustmentMinutes)
		}

		rows = append(rows, row)
	}

	return rows
}

func goodsRow(slot Slot) Row {
	kind := RowPreGoods
	if slot.Kind == KindPostGoods {
		kind = RowPostGoods
	}
	return Row{
		Kind:         kind,
		ArtistName:   slot.Kind.Label(),
		GoodsDisplay: window(slot.GoodsStart, slot.GoodsDurationMinutes),
	}
}

// composeGoods builds the goods and place columns for a NORMAL slot.
func composeGoods(slot Slot) (goods, place string) {
	if slot.IsPostGoods {
		goods = PostGoodsLabel
		if slot.Place != "" {
			goods += " " + slot.Place
		}
		return goods, ""
	}

	main := window(slot.GoodsStart, slot.GoodsDurationMinutes)
	add := window(slot.AdditionalGoodsStart, slot.AdditionalGoodsDurationMinutes)

	switch {
	case main != "" && add != "":
		return main + " / " + add, orDash(slot.Place) + " / " + orDash(slot.AdditionalGoodsPlace)
	case main != "":
		return main, slot.Place
	case add != "":
		return add, slot.AdditionalGoodsPlace
	}
	return "", ""
}

// window renders "start - start+duration", or "" when start does not parse.
func window(start string, duration int) string {
	c, ok := clock.Parse(start)
	if !ok {
		return ""
	}
	if duration <= 0 {
		duration = DefaultGoodsDurationMinutes
	}
	return clock.Range(c, c.Add(duration))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sanitize clamps a slot built directly in Go to the same shape DecodeSlot
// produces.
func sanitize(s Slot) Slot {
	if k, ok := ParseKind(string(s.Kind)); ok {
		s.Kind = k
	} else {
		s.Kind = KindNormal
	}
	if s.Kind.IsGoods() {
		s.DurationMinutes = 0
		s.AdjustmentMinutes = 0
		s.IsPostGoods = false
	}
	if s.DurationMinutes < 0 {
		s.DurationMinutes = 0
	}
	if s.AdjustmentMinutes < 0 {
		s.AdjustmentMinutes = 0
	}
	if s.GoodsDurationMinutes <= 0 {
		s.GoodsDurationMinutes = DefaultGoodsDurationMinutes
	}
	if s.AdditionalGoodsDurationMinutes <= 0 {
		s.AdditionalGoodsDurationMinutes = DefaultGoodsDurationMinutes
	}
	s.ArtistName = strings.TrimSpace(s.ArtistName)
	s.Place = strings.TrimSpace(s.Place)
	s.AdditionalGoodsPlace = strings.TrimSpace(s.AdditionalGoodsPlace)
	return s
}
