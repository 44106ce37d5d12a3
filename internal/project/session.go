/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package project

import (
	"errors"
	"sync"

	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

// ErrSlotIndex is returned for slot positions outside the session's list.
var ErrSlotIndex = errors.New("slot index out of range")

// Session is an editable working copy of one project's timetable. The caller
// owns it; Service.SaveSession writes it back. A Session is safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	projectID string
	version   int
	openTime  string
	startTime string
	slots     []timetable.Slot
	dirty     bool
}

// NewSession snapshots a loaded project. Slots must be in position order.
func NewSession(p *models.Project) *Session {
	return &Session{
		projectID: p.ID,
		version:   p.Version,
		openTime:  p.OpenTime,
		startTime: p.StartTime,
		slots:     p.TimetableSlots(),
	}
}

// ProjectID returns the id of the project the session edits.
func (s *Session) ProjectID() string {
	return s.projectID
}

// Version returns the project version the session is based on.
func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether the session has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Slots returns a copy of the current slot list.
func (s *Session) Slots() []timetable.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSlots(s.slots)
}

// Anchors returns the current open and start times.
func (s *Session) Anchors() (openTime, startTime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openTime, s.startTime
}

// SetSlots replaces the whole slot list.
func (s *Session) SetSlots(slots []timetable.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = cloneSlots(slots)
	s.dirty = true
}

// AppendSlot adds a slot at the end of the list.
func (s *Session) AppendSlot(slot timetable.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append(s.slots, slot)
	s.dirty = true
}

// InsertSlot places slot at index i, shifting later slots down. i may equal
// the list length.
func (s *Session) InsertSlot(i int, slot timetable.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i > len(s.slots) {
		return ErrSlotIndex
	}
	s.slots = append(s.slots, timetable.Slot{})
	copy(s.slots[i+1:], s.slots[i:])
	s.slots[i] = slot
	s.dirty = true
	return nil
}

// MoveSlot moves the slot at from so that it ends up at index to.
func (s *Session) MoveSlot(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.slots)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrSlotIndex
	}
	if from == to {
		return nil
	}
	moved := s.slots[from]
	if from < to {
		copy(s.slots[from:to], s.slots[from+1:to+1])
	} else {
		copy(s.slots[to+1:from+1], s.slots[to:from])
	}
	s.slots[to] = moved
	s.dirty = true
	return nil
}

// RemoveSlot deletes and returns the slot at index i.
func (s *Session) RemoveSlot(i int) (timetable.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.slots) {
		return timetable.Slot{}, ErrSlotIndex
	}
	removed := s.slots[i]
	s.slots = append(s.slots[:i], s.slots[i+1:]...)
	s.dirty = true
	return removed, nil
}

// SetAnchors updates the open and start times.
func (s *Session) SetAnchors(openTime, startTime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openTime == openTime && s.startTime == startTime {
		return
	}
	s.openTime, s.startTime = openTime, startTime
	s.dirty = true
}

// EnsureGoodsRows adds or removes the merch pseudo-rows. A pre-show row goes
// first and a post-show row goes last. Existing rows are left where the user
// put them; disabling a kind removes every row of that kind.
func (s *Session) EnsureGoodsRows(pre, post bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasPre, hasPost := false, false
	kept := s.slots[:0:0]
	for _, slot := range s.slots {
		switch slot.Kind {
		case timetable.KindPreGoods:
			if !pre {
				s.dirty = true
				continue
			}
			hasPre = true
		case timetable.KindPostGoods:
			if !post {
				s.dirty = true
				continue
			}
			hasPost = true
		}
		kept = append(kept, slot)
	}

	if pre && !hasPre {
		kept = append([]timetable.Slot{goodsSlot(timetable.KindPreGoods)}, kept...)
		s.dirty = true
	}
	if post && !hasPost {
		kept = append(kept, goodsSlot(timetable.KindPostGoods))
		s.dirty = true
	}
	s.slots = kept
}

// Resolve resolves a snapshot of the session.
func (s *Session) Resolve() []timetable.Row {
	s.mu.Lock()
	slots := cloneSlots(s.slots)
	openTime, startTime := s.openTime, s.startTime
	s.mu.Unlock()
	return timetable.Resolve(slots, openTime, startTime)
}

// snapshot returns the state SaveSession persists.
func (s *Session) snapshot() (version int, openTime, startTime string, slots []timetable.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, s.openTime, s.startTime, cloneSlots(s.slots)
}

func (s *Session) markSaved(version int) {
	s.mu.Lock()
	s.version = version
	s.dirty = false
	s.mu.Unlock()
}

func goodsSlot(kind timetable.Kind) timetable.Slot {
	return timetable.Slot{
		Kind:                 kind,
		GoodsDurationMinutes: timetable.DefaultGoodsDurationMinutes,
	}
}

func cloneSlots(in []timetable.Slot) []timetable.Slot {
	out := make([]timetable.Slot, len(in))
	copy(out, in)
	return out
}
