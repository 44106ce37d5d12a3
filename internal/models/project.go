/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/friendsincode/eventdesk/internal/timetable"
)

// Project is one live event: its header fields plus the ordered slot list the
// timetable is resolved from.
type Project struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title     string `gorm:"type:varchar(255);index" json:"title"`
	Venue     string `gorm:"type:varchar(255)" json:"venue"`
	EventDate string `gorm:"type:varchar(10);index" json:"event_date"` // YYYY-MM-DD
	OpenTime  string `gorm:"type:varchar(8)" json:"open_time"`
	StartTime string `gorm:"type:varchar(8)" json:"start_time"`
	Notes     string `gorm:"type:text" json:"notes"`

	Metadata map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`

	// Version increases on every slot or anchor change. Artifacts record the
	// version they were generated from.
	Version int `gorm:"not null;default:1" json:"version"`

	Slots []ProjectSlot `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"slots,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectSlot is the persisted form of a timetable slot.
type ProjectSlot struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID string `gorm:"type:varchar(36);index:idx_project_slot_position,priority:1" json:"project_id"`
	Position  int    `gorm:"index:idx_project_slot_position,priority:2" json:"position"`

	Kind              string `gorm:"type:varchar(16);not null;default:normal" json:"kind"`
	ArtistName        string `gorm:"type:varchar(255)" json:"artist_name"`
	DurationMinutes   int    `json:"duration_minutes"`
	AdjustmentMinutes int    `json:"adjustment_minutes"`

	IsPostGoods          bool   `json:"is_post_goods"`
	GoodsStart           string `gorm:"type:varchar(8)" json:"goods_start"`
	GoodsDurationMinutes int    `gorm:"default:60" json:"goods_duration_minutes"`
	Place                string `gorm:"type:varchar(255)" json:"place"`

	AdditionalGoodsStart           string `gorm:"type:varchar(8)" json:"additional_goods_start"`
	AdditionalGoodsDurationMinutes int    `gorm:"default:60" json:"additional_goods_duration_minutes"`
	AdditionalGoodsPlace           string `gorm:"type:varchar(255)" json:"additional_goods_place"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToSlot converts the row into the resolver's slot type.
func (ps ProjectSlot) ToSlot() timetable.Slot {
	kind, ok := timetable.ParseKind(ps.Kind)
	if !ok {
		kind = timetable.KindNormal
	}
	return timetable.Slot{
		Kind:                           kind,
		ArtistName:                     ps.ArtistName,
		DurationMinutes:                ps.DurationMinutes,
		AdjustmentMinutes:              ps.AdjustmentMinutes,
		IsPostGoods:                    ps.IsPostGoods,
		GoodsStart:                     ps.GoodsStart,
		GoodsDurationMinutes:           ps.GoodsDurationMinutes,
		Place:                          ps.Place,
		AdditionalGoodsStart:           ps.AdditionalGoodsStart,
		AdditionalGoodsDurationMinutes: ps.AdditionalGoodsDurationMinutes,
		AdditionalGoodsPlace:           ps.AdditionalGoodsPlace,
	}
}

// SlotFromTimetable builds the persisted row for s at position. ID and
// ProjectID are left to the caller.
func SlotFromTimetable(s timetable.Slot, position int) ProjectSlot {
	// Unknown kinds come back as normal; aliases are stored canonically.
	kind, _ := timetable.ParseKind(string(s.Kind))
	return ProjectSlot{
		Position:                       position,
		Kind:                           string(kind),
		ArtistName:                     s.ArtistName,
		DurationMinutes:                s.DurationMinutes,
		AdjustmentMinutes:              s.AdjustmentMinutes,
		IsPostGoods:                    s.IsPostGoods,
		GoodsStart:                     s.GoodsStart,
		GoodsDurationMinutes:           s.GoodsDurationMinutes,
		Place:                          s.Place,
		AdditionalGoodsStart:           s.AdditionalGoodsStart,
		AdditionalGoodsDurationMinutes: s.AdditionalGoodsDurationMinutes,
		AdditionalGoodsPlace:           s.AdditionalGoodsPlace,
	}
}

// TimetableSlots returns the project's slots in position order as resolver
// input. Slots must already be sorted by Position.
func (p *Project) TimetableSlots() []timetable.Slot {
	out := make([]timetable.Slot, len(p.Slots))
	for i, ps := range p.Slots {
		out[i] = ps.ToSlot()
	}
	return out
}
