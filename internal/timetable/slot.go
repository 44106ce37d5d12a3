/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timetable

import "strings"

// Kind tags a slot as a performance or one of the merchandising pseudo-rows.
type Kind string

const (
	KindNormal    Kind = "normal"
	KindPreGoods  Kind = "pre_goods"
	KindPostGoods Kind = "post_goods"
)

// Display labels. The goods labels double as the legacy sentinel artist
// names that older editors stored instead of a kind.
const (
	OpenStartLabel = "OPEN / START"
	PreGoodsLabel  = "開演前物販"
	PostGoodsLabel = "終演後物販"
)

// DefaultGoodsDurationMinutes applies to any merch window without a positive
// duration.
const DefaultGoodsDurationMinutes = 60

// ParseKind maps a stored kind string to a Kind. Unknown values report false.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return KindNormal, true
	case "pre_goods", "pre-goods", "pregoods":
		return KindPreGoods, true
	case "post_goods", "post-goods", "postgoods":
		return KindPostGoods, true
	}
	return KindNormal, false
}

// IsGoods reports whether the kind is a merchandising pseudo-row.
func (k Kind) IsGoods() bool {
	return k == KindPreGoods || k == KindPostGoods
}

// Label returns the display name used for pseudo-rows.
func (k Kind) Label() string {
	switch k {
	case KindPreGoods:
		return PreGoodsLabel
	case KindPostGoods:
		return PostGoodsLabel
	}
	return ""
}

// Slot is one unresolved timetable row.
type Slot struct {
	Kind              Kind   `json:"kind"`
	ArtistName        string `json:"artist_name"`
	DurationMinutes   int    `json:"duration_minutes"`
	AdjustmentMinutes int    `json:"adjustment_minutes"`

	// IsPostGoods moves this artist's merch sale into the post-show window.
	IsPostGoods          bool   `json:"is_post_goods"`
	GoodsStart           string `json:"goods_start,omitempty"`
	GoodsDurationMinutes int    `json:"goods_duration_minutes,omitempty"`
	Place                string `json:"place,omitempty"`

	AdditionalGoodsStart           string `json:"additional_goods_start,omitempty"`
	AdditionalGoodsDurationMinutes int    `json:"additional_goods_duration_minutes,omitempty"`
	AdditionalGoodsPlace           string `json:"additional_goods_place,omitempty"`
}

// RowKind distinguishes resolved rows, including the synthetic leading row.
type RowKind string

const (
	RowOpenStart RowKind = "open_start"
	RowNormal    RowKind = "normal"
	RowPreGoods  RowKind = "pre_goods"
	RowPostGoods RowKind = "post_goods"
)

// Row is one resolved display row.
type Row struct {
	Kind              RowKind `json:"kind"`
	TimeRange         string  `json:"time_range_display"`
	ArtistName        string  `json:"artist_name"`
	DurationMinutes   int     `json:"duration_minutes"`
	AdjustmentMinutes int     `json:"adjustment_minutes"`
	GoodsDisplay      string  `json:"goods_display"`
	PlaceDisplay      string  `json:"place_display"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
}

// HasInterval reports whether the row carries a performance interval.
func (r Row) HasInterval() bool {
	return r.StartTime != "" && r.EndTime != ""
}
