/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timetable

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Field aliases accepted from older editors and storage backends, in lookup
// order.
var (
	artistKeys           = []string{"artist_name", "artist", "name"}
	durationKeys         = []string{"duration_minutes", "duration"}
	adjustmentKeys       = []string{"adjustment_minutes", "adjustment"}
	postGoodsKeys        = []string{"is_post_goods", "post_goods"}
	goodsStartKeys       = []string{"goods_start", "goods_start_manual"}
	goodsDurationKeys    = []string{"goods_duration_minutes", "goods_duration"}
	placeKeys            = []string{"place", "goods_place"}
	addGoodsStartKeys    = []string{"additional_goods_start", "add_goods_start"}
	addGoodsDurationKeys = []string{"additional_goods_duration_minutes", "additional_goods_duration", "add_goods_duration"}
	addGoodsPlaceKeys    = []string{"additional_goods_place", "add_goods_place"}
	wrappedSlotListKeys  = []string{"slots", "timetable", "rows"}
)

// DecodeSlots normalizes whatever a storage backend or client handed over
// into slots. It accepts []any, []map[string]any, []Slot, a single object, an
// object wrapping a "slots" list, or JSON text holding any of those. Entries
// that are not objects decode as empty NORMAL slots so positions stay aligned.
// Unusable input yields nil.
func DecodeSlots(raw any) []Slot {
	switch v := raw.(type) {
	case nil:
		return nil
	case []Slot:
		out := make([]Slot, len(v))
		copy(out, v)
		return out
	case []map[string]any:
		out := make([]Slot, 0, len(v))
		for _, m := range v {
			out = append(out, DecodeSlot(m))
		}
		return out
	case []any:
		out := make([]Slot, 0, len(v))
		for _, item := range v {
			m, _ := item.(map[string]any)
			out = append(out, DecodeSlot(m))
		}
		return out
	case map[string]any:
		for _, key := range wrappedSlotListKeys {
			if inner, ok := v[key]; ok {
				return DecodeSlots(inner)
			}
		}
		return []Slot{DecodeSlot(v)}
	case string:
		return decodeJSONSlots([]byte(v))
	case []byte:
		return decodeJSONSlots(v)
	case json.RawMessage:
		return decodeJSONSlots(v)
	}
	return nil
}

func decodeJSONSlots(data []byte) []Slot {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	// Some backends store the list as double-encoded JSON text.
	if s, ok := v.(string); ok {
		return decodeJSONSlots([]byte(s))
	}
	return DecodeSlots(v)
}

// DecodeSlot normalizes one loosely typed record. The kind comes from an
// explicit "kind" field, or from the legacy sentinel artist names. Bad values
// fall back to defaults: 0 for show durations and adjustments, 60 for goods
// durations.
func DecodeSlot(m map[string]any) Slot {
	name := Text(lookup(m, artistKeys))

	kind := KindNormal
	if k, ok := ParseKind(Text(m["kind"])); ok {
		kind = k
	} else {
		switch name {
		case PreGoodsLabel:
			kind = KindPreGoods
		case PostGoodsLabel:
			kind = KindPostGoods
		}
	}

	slot := Slot{
		Kind:                           kind,
		ArtistName:                     name,
		DurationMinutes:                Minutes(lookup(m, durationKeys), 0),
		AdjustmentMinutes:              Minutes(lookup(m, adjustmentKeys), 0),
		IsPostGoods:                    Bool(lookup(m, postGoodsKeys)),
		GoodsStart:                     Text(lookup(m, goodsStartKeys)),
		GoodsDurationMinutes:           Minutes(lookup(m, goodsDurationKeys), DefaultGoodsDurationMinutes),
		Place:                          Text(lookup(m, placeKeys)),
		AdditionalGoodsStart:           Text(lookup(m, addGoodsStartKeys)),
		AdditionalGoodsDurationMinutes: Minutes(lookup(m, addGoodsDurationKeys), DefaultGoodsDurationMinutes),
		AdditionalGoodsPlace:           Text(lookup(m, addGoodsPlaceKeys)),
	}

	if kind.IsGoods() {
		slot.ArtistName = ""
		slot.DurationMinutes = 0
		slot.AdjustmentMinutes = 0
		slot.IsPostGoods = false
	}
	return slot
}

// EncodeSlot returns the canonical map form of a slot for storage adapters.
func EncodeSlot(s Slot) map[string]any {
	s = sanitize(s)
	return map[string]any{
		"kind":                              string(s.Kind),
		"artist_name":                       s.ArtistName,
		"duration_minutes":                  s.DurationMinutes,
		"adjustment_minutes":                s.AdjustmentMinutes,
		"is_post_goods":                     s.IsPostGoods,
		"goods_start":                       s.GoodsStart,
		"goods_duration_minutes":            s.GoodsDurationMinutes,
		"place":                             s.Place,
		"additional_goods_start":            s.AdditionalGoodsStart,
		"additional_goods_duration_minutes": s.AdditionalGoodsDurationMinutes,
		"additional_goods_place":            s.AdditionalGoodsPlace,
	}
}

func lookup(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Minutes coerces v into a non-negative minute count. Anything that is not a
// finite, non-negative number (or numeric string) returns def.
func Minutes(v any, def int) int {
	switch val := v.(type) {
	case nil, bool:
		return def
	case string:
		s := strings.TrimSpace(val)
		if s == "" || isNullText(s) {
			return def
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return def
	}
	return int(f)
}

// Text coerces v into trimmed text. Null markers ("nan", "None", "null")
// become empty.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format("15:04")
	case float32, float64:
		if f := cast.ToFloat64(val); math.IsNaN(f) || math.IsInf(f, 0) {
			return ""
		}
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	s = strings.TrimSpace(s)
	if isNullText(s) {
		return ""
	}
	return s
}

// Bool coerces v into a flag. Only recognizable truthy values are true.
func Bool(v any) bool {
	switch val := v.(type) {
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		switch s {
		case "yes", "on", "y":
			return true
		}
		v = s
	case float32, float64:
		if math.IsNaN(cast.ToFloat64(val)) {
			return false
		}
	}
	b, err := cast.ToBoolE(v)
	return err == nil && b
}

func isNullText(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "none", "null", "nat", "<na>":
		return true
	}
	return false
}
