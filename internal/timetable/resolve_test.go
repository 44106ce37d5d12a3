/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timetable

import (
	"fmt"
	"sync"
	"testing"
)

func TestResolveOpenStartRow(t *testing.T) {
	tests := []struct {
		name      string
		open      string
		start     string
		wantLead  bool
		wantRange string
	}{
		{"both anchors", "10:00", "10:30", true, "10:00 - 10:30"},
		{"short hour normalized", "9:30", "10:00", true, "09:30 - 10:00"},
		{"missing open", "", "10:30", false, ""},
		{"missing start", "10:00", "", false, ""},
		{"malformed open", "ten", "10:30", false, ""},
		{"both missing", "", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Resolve([]Slot{{ArtistName: "A", DurationMinutes: 20}}, tt.open, tt.start)
			hasLead := len(rows) > 0 && rows[0].Kind == RowOpenStart
			if hasLead != tt.wantLead {
				t.Fatalf("leading row present = %v, want %v (rows=%+v)", hasLead, tt.wantLead, rows)
			}
			wantLen := 1
			if tt.wantLead {
				wantLen = 2
			}
			if len(rows) != wantLen {
				t.Fatalf("rows len = %d, want %d", len(rows), wantLen)
			}
			if !tt.wantLead {
				return
			}
			lead := rows[0]
			if lead.TimeRange != tt.wantRange {
				t.Fatalf("TimeRange = %q, want %q", lead.TimeRange, tt.wantRange)
			}
			if lead.ArtistName != OpenStartLabel {
				t.Fatalf("ArtistName = %q, want %q", lead.ArtistName, OpenStartLabel)
			}
			if lead.DurationMinutes != 0 || lead.AdjustmentMinutes != 0 || lead.GoodsDisplay != "" || lead.PlaceDisplay != "" {
				t.Fatalf("leading row should carry no duration or goods: %+v", lead)
			}
		})
	}
}

func TestResolveLeadingRowDoesNotMoveCursor(t *testing.T) {
	rows := Resolve([]Slot{{ArtistName: "A", DurationMinutes: 30}}, "09:00", "10:00")
	if got := rows[1].TimeRange; got != "10:00 - 10:30" {
		t.Fatalf("first slot TimeRange = %q, want 10:00 - 10:30", got)
	}
}

func TestResolveCursorAdvancement(t *testing.T) {
	slots := []Slot{
		{ArtistName: "First", DurationMinutes: 20, AdjustmentMinutes: 5},
		{ArtistName: "Second", DurationMinutes: 30, AdjustmentMinutes: 10},
		{ArtistName: "Third", DurationMinutes: 25},
	}
	rows := Resolve(slots, "", "10:30")

	want := []struct {
		rng, start, end string
	}{
		{"10:30 - 10:50", "10:30", "10:50"},
		{"10:55 - 11:25", "10:55", "11:25"},
		{"11:35 - 12:00", "11:35", "12:00"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows len = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].TimeRange != w.rng {
			t.Errorf("rows[%d].TimeRange = %q, want %q", i, rows[i].TimeRange, w.rng)
		}
		if rows[i].StartTime != w.start || rows[i].EndTime != w.end {
			t.Errorf("rows[%d] start/end = %s/%s, want %s/%s", i, rows[i].StartTime, rows[i].EndTime, w.start, w.end)
		}
	}
	if rows[0].DurationMinutes != 20 || rows[0].AdjustmentMinutes != 5 {
		t.Fatalf("rows[0] should echo duration/adjustment: %+v", rows[0])
	}
}

func TestResolveOrderPreserved(t *testing.T) {
	var slots []Slot
	for i := 0; i < 12; i++ {
		slots = append(slots, Slot{ArtistName: fmt.Sprintf("artist-%02d", i), DurationMinutes: 15})
	}
	slots = append([]Slot{{Kind: KindPreGoods, GoodsStart: "09:00"}}, slots...)
	slots = append(slots, Slot{Kind: KindPostGoods, GoodsStart: "18:00"})

	rows := Resolve(slots, "09:30", "10:00")
	if len(rows) != len(slots)+1 {
		t.Fatalf("rows len = %d, want %d", len(rows), len(slots)+1)
	}
	for i, slot := range slots {
		row := rows[i+1]
		switch slot.Kind {
		case KindPreGoods:
			if row.Kind != RowPreGoods {
				t.Fatalf("rows[%d].Kind = %s, want pre_goods", i+1, row.Kind)
			}
		case KindPostGoods:
			if row.Kind != RowPostGoods {
				t.Fatalf("rows[%d].Kind = %s, want post_goods", i+1, row.Kind)
			}
		default:
			if row.ArtistName != slot.ArtistName {
				t.Fatalf("rows[%d].ArtistName = %q, want %q", i+1, row.ArtistName, slot.ArtistName)
			}
		}
	}
}

func TestResolveGoodsRowsDoNotAdvanceCursor(t *testing.T) {
	base := []Slot{
		{ArtistName: "A", DurationMinutes: 20, AdjustmentMinutes: 5},
		{ArtistName: "B", DurationMinutes: 20},
	}
	baseline := Resolve(base, "", "12:00")

	pre := Slot{Kind: KindPreGoods, GoodsStart: "11:00", GoodsDurationMinutes: 45}
	post := Slot{Kind: KindPostGoods, GoodsStart: "13:00"}

	variants := [][]Slot{
		{pre, base[0], base[1]},
		{base[0], pre, base[1]},
		{base[0], post, base[1]},
		{base[0], base[1], post},
		{post, base[0], pre, base[1]},
	}

	for vi, slots := range variants {
		rows := Resolve(slots, "", "12:00")
		var normals []Row
		for _, r := range rows {
			if r.Kind == RowNormal {
				normals = append(normals, r)
			}
		}
		if len(normals) != len(baseline) {
			t.Fatalf("variant %d: normal rows = %d, want %d", vi, len(normals), len(baseline))
		}
		for i := range baseline {
			if normals[i].TimeRange != baseline[i].TimeRange {
				t.Errorf("variant %d: normal[%d] = %q, want %q", vi, i, normals[i].TimeRange, baseline[i].TimeRange)
			}
		}
	}
}

func TestResolveGoodsRows(t *testing.T) {
	slots := []Slot{
		{Kind: KindPreGoods, GoodsStart: "11:00", GoodsDurationMinutes: 45, Place: "Lobby", DurationMinutes: 99, AdjustmentMinutes: 9},
		{Kind: KindPostGoods, GoodsStart: "18:30"},
		{Kind: KindPostGoods},
	}
	rows := Resolve(slots, "", "12:00")

	pre := rows[0]
	if pre.Kind != RowPreGoods || pre.ArtistName != PreGoodsLabel {
		t.Fatalf("pre row = %+v", pre)
	}
	if pre.GoodsDisplay != "11:00 - 11:45" {
		t.Fatalf("pre GoodsDisplay = %q, want 11:00 - 11:45", pre.GoodsDisplay)
	}
	if pre.PlaceDisplay != "" || pre.TimeRange != "" || pre.StartTime != "" || pre.EndTime != "" {
		t.Fatalf("pre row should have no place or interval: %+v", pre)
	}
	if pre.DurationMinutes != 0 || pre.AdjustmentMinutes != 0 {
		t.Fatalf("pre row duration/adjustment should be zeroed: %+v", pre)
	}

	if rows[1].GoodsDisplay != "18:30 - 19:30" {
		t.Fatalf("post GoodsDisplay = %q, want default 60 minute window", rows[1].GoodsDisplay)
	}
	if rows[2].GoodsDisplay != "" {
		t.Fatalf("post row without start GoodsDisplay = %q, want empty", rows[2].GoodsDisplay)
	}
}

func TestResolvePostGoodsFlagWins(t *testing.T) {
	slot := Slot{
		ArtistName:           "A",
		DurationMinutes:      20,
		IsPostGoods:          true,
		Place:                "A",
		GoodsStart:           "12:00",
		AdditionalGoodsStart: "12:30",
		AdditionalGoodsPlace: "B",
	}
	rows := Resolve([]Slot{slot}, "", "10:00")
	if rows[0].GoodsDisplay != "終演後物販 A" {
		t.Fatalf("GoodsDisplay = %q, want %q", rows[0].GoodsDisplay, "終演後物販 A")
	}
	if rows[0].PlaceDisplay != "" {
		t.Fatalf("PlaceDisplay = %q, want empty", rows[0].PlaceDisplay)
	}

	slot.Place = ""
	rows = Resolve([]Slot{slot}, "", "10:00")
	if rows[0].GoodsDisplay != "終演後物販" {
		t.Fatalf("GoodsDisplay without place = %q, want %q", rows[0].GoodsDisplay, "終演後物販")
	}
}

func TestResolveGoodsComposition(t *testing.T) {
	tests := []struct {
		name      string
		slot      Slot
		wantGoods string
		wantPlace string
	}{
		{
			name: "both windows",
			slot: Slot{
				GoodsStart: "12:00", GoodsDurationMinutes: 30, Place: "A",
				AdditionalGoodsStart: "12:30", AdditionalGoodsDurationMinutes: 15, AdditionalGoodsPlace: "B",
			},
			wantGoods: "12:00 - 12:30 / 12:30 - 12:45",
			wantPlace: "A / B",
		},
		{
			name: "both windows missing places",
			slot: Slot{
				GoodsStart:           "12:00",
				AdditionalGoodsStart: "13:00",
			},
			wantGoods: "12:00 - 13:00 / 13:00 - 14:00",
			wantPlace: "- / -",
		},
		{
			name:      "main only",
			slot:      Slot{GoodsStart: "14:10", GoodsDurationMinutes: 20, Place: "Hall B"},
			wantGoods: "14:10 - 14:30",
			wantPlace: "Hall B",
		},
		{
			name:      "additional only",
			slot:      Slot{AdditionalGoodsStart: "15:00", AdditionalGoodsDurationMinutes: 40, AdditionalGoodsPlace: "Table 2", Place: "ignored"},
			wantGoods: "15:00 - 15:40",
			wantPlace: "Table 2",
		},
		{
			name:      "neither",
			slot:      Slot{Place: "Hall B"},
			wantGoods: "",
			wantPlace: "",
		},
		{
			name:      "malformed start contributes nothing",
			slot:      Slot{GoodsStart: "25:99", Place: "A", AdditionalGoodsStart: "16:00", AdditionalGoodsPlace: "B"},
			wantGoods: "16:00 - 17:00",
			wantPlace: "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.slot.ArtistName = "X"
			rows := Resolve([]Slot{tt.slot}, "", "10:00")
			if rows[0].GoodsDisplay != tt.wantGoods {
				t.Fatalf("GoodsDisplay = %q, want %q", rows[0].GoodsDisplay, tt.wantGoods)
			}
			if rows[0].PlaceDisplay != tt.wantPlace {
				t.Fatalf("PlaceDisplay = %q, want %q", rows[0].PlaceDisplay, tt.wantPlace)
			}
		})
	}
}

func TestResolveWithoutStartAnchor(t *testing.T) {
	slots := []Slot{
		{ArtistName: "A", DurationMinutes: 20, GoodsStart: "12:00", Place: "Lobby"},
		{ArtistName: "B", DurationMinutes: 20},
	}
	for _, start := range []string{"", "later", "99:99"} {
		rows := Resolve(slots, "10:00", start)
		if len(rows) != 2 {
			t.Fatalf("start=%q rows len = %d, want 2", start, len(rows))
		}
		for i, r := range rows {
			if r.TimeRange != "" || r.StartTime != "" || r.EndTime != "" {
				t.Fatalf("start=%q rows[%d] should have empty interval: %+v", start, i, r)
			}
		}
		if rows[0].GoodsDisplay != "12:00 - 13:00" || rows[0].PlaceDisplay != "Lobby" {
			t.Fatalf("start=%q goods should still compose: %+v", start, rows[0])
		}
	}
}

func TestResolveSanitizesNegativeValues(t *testing.T) {
	rows := Resolve([]Slot{
		{ArtistName: "A", DurationMinutes: -15, AdjustmentMinutes: -5, GoodsStart: "11:00", GoodsDurationMinutes: -30},
		{ArtistName: "B", DurationMinutes: 10},
	}, "", "10:00")

	if rows[0].TimeRange != "10:00 - 10:00" {
		t.Fatalf("rows[0].TimeRange = %q, want 10:00 - 10:00", rows[0].TimeRange)
	}
	if rows[0].DurationMinutes != 0 || rows[0].AdjustmentMinutes != 0 {
		t.Fatalf("negative duration/adjustment should clamp to 0: %+v", rows[0])
	}
	if rows[0].GoodsDisplay != "11:00 - 12:00" {
		t.Fatalf("negative goods duration should default to 60: %q", rows[0].GoodsDisplay)
	}
	if rows[1].TimeRange != "10:00 - 10:10" {
		t.Fatalf("rows[1].TimeRange = %q, want 10:00 - 10:10", rows[1].TimeRange)
	}
}

func TestResolveUnknownKindTreatedAsNormal(t *testing.T) {
	rows := Resolve([]Slot{{Kind: "encore", ArtistName: "A", DurationMinutes: 10}}, "", "20:00")
	if rows[0].Kind != RowNormal || rows[0].TimeRange != "20:00 - 20:10" {
		t.Fatalf("unknown kind row = %+v", rows[0])
	}
}

func TestResolveDuplicateGoodsRowsKeptInPlace(t *testing.T) {
	rows := Resolve([]Slot{
		{Kind: KindPreGoods, GoodsStart: "10:00"},
		{Kind: KindPreGoods, GoodsStart: "10:30"},
		{ArtistName: "A", DurationMinutes: 10},
	}, "", "11:00")

	if len(rows) != 3 {
		t.Fatalf("rows len = %d, want 3", len(rows))
	}
	if rows[0].GoodsDisplay != "10:00 - 11:00" || rows[1].GoodsDisplay != "10:30 - 11:30" {
		t.Fatalf("duplicate pre-goods rows should resolve independently: %+v", rows[:2])
	}
}

func TestResolveMidnightWraps(t *testing.T) {
	rows := Resolve([]Slot{
		{ArtistName: "Late", DurationMinutes: 30, AdjustmentMinutes: 10},
		{ArtistName: "Later", DurationMinutes: 20},
	}, "", "23:50")
	if rows[0].TimeRange != "23:50 - 00:20" {
		t.Fatalf("rows[0].TimeRange = %q, want 23:50 - 00:20", rows[0].TimeRange)
	}
	if rows[1].TimeRange != "00:30 - 00:50" {
		t.Fatalf("rows[1].TimeRange = %q, want 00:30 - 00:50", rows[1].TimeRange)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	if rows := Resolve(nil, "", ""); len(rows) != 0 {
		t.Fatalf("rows = %+v, want none", rows)
	}
	rows := Resolve(nil, "17:00", "17:30")
	if len(rows) != 1 || rows[0].Kind != RowOpenStart {
		t.Fatalf("rows = %+v, want only the leading row", rows)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	slots := []Slot{{ArtistName: "  A  ", DurationMinutes: -1, GoodsDurationMinutes: 0}}
	Resolve(slots, "", "10:00")
	if slots[0].ArtistName != "  A  " || slots[0].DurationMinutes != -1 || slots[0].GoodsDurationMinutes != 0 {
		t.Fatalf("input slot mutated: %+v", slots[0])
	}
}

func TestResolveConcurrentCalls(t *testing.T) {
	slots := []Slot{
		{Kind: KindPreGoods, GoodsStart: "09:00"},
		{ArtistName: "A", DurationMinutes: 20, AdjustmentMinutes: 5},
		{ArtistName: "B", DurationMinutes: 25},
	}
	want := Resolve(slots, "09:30", "10:00")

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := Resolve(slots, "09:30", "10:00")
			for j := range want {
				if got[j] != want[j] {
					errs <- fmt.Sprintf("row %d = %+v, want %+v", j, got[j], want[j])
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
