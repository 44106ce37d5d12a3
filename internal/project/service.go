/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package project persists live-event projects and resolves their
// timetables.
package project

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/friendsincode/eventdesk/internal/cache"
	"github.com/friendsincode/eventdesk/internal/events"
	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/telemetry"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

var (
	// ErrNotFound is returned when a project does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrVersionConflict is returned when a session is saved over a newer
	// version of its project.
	ErrVersionConflict = errors.New("project was modified since the session was loaded")
)

// Resolve sources recorded in telemetry.
const (
	SourceRequest = "request"
	SourceProject = "project"
	SourceCache   = "cache"
)

// CreateInput holds the fields for a new project.
type CreateInput struct {
	Title     string
	Venue     string
	EventDate string
	OpenTime  string
	StartTime string
	Notes     string
	Metadata  map[string]any
	Slots     []timetable.Slot
}

// UpdateInput holds header changes. Nil fields are left unchanged.
type UpdateInput struct {
	Title     *string
	Venue     *string
	EventDate *string
	OpenTime  *string
	StartTime *string
	Notes     *string
	Metadata  map[string]any
}

// Service manages projects.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewService creates a project service. bus and c may be nil.
func NewService(db *gorm.DB, bus *events.Bus, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		cache:  c,
		logger: logger.With().Str("component", "project").Logger(),
	}
}

// Resolve runs the resolver and records telemetry for the caller.
func Resolve(slots []timetable.Slot, openTime, startTime, source string) []timetable.Row {
	rows := timetable.Resolve(slots, openTime, startTime)
	telemetry.TimetableResolvesTotal.WithLabelValues(source).Inc()
	telemetry.TimetableRowsResolved.Observe(float64(len(rows)))
	return rows
}

// Create stores a new project with its initial slots.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Project, error) {
	id := uuid.NewString()
	p := &models.Project{
		ID:        id,
		Title:     strings.TrimSpace(in.Title),
		Venue:     strings.TrimSpace(in.Venue),
		EventDate: strings.TrimSpace(in.EventDate),
		OpenTime:  strings.TrimSpace(in.OpenTime),
		StartTime: strings.TrimSpace(in.StartTime),
		Notes:     in.Notes,
		Metadata:  in.Metadata,
		Version:   1,
		Slots:     buildSlots(id, in.Slots),
	}

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info().Str("project_id", p.ID).Int("slots", len(p.Slots)).Msg("project created")
	s.publish(events.EventProjectCreated, p.ID, p.Version)
	return p, nil
}

// Get loads a project with its slots in position order.
func (s *Service) Get(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return &p, nil
}

// List returns projects without slots, most recent event first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Order("event_date DESC").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Update applies header changes. Any changed column bumps the version; exports
// and rendered artifacts carry the header fields too.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Project, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var cols []string
		setText := func(col string, v *string, dst *string) {
			if v == nil {
				return
			}
			next := strings.TrimSpace(*v)
			if next == *dst {
				return
			}
			*dst = next
			cols = append(cols, col)
		}
		setText("title", in.Title, &p.Title)
		setText("venue", in.Venue, &p.Venue)
		setText("event_date", in.EventDate, &p.EventDate)
		setText("open_time", in.OpenTime, &p.OpenTime)
		setText("start_time", in.StartTime, &p.StartTime)
		if in.Notes != nil && *in.Notes != p.Notes {
			p.Notes = *in.Notes
			cols = append(cols, "notes")
		}
		if in.Metadata != nil && !reflect.DeepEqual(in.Metadata, p.Metadata) {
			p.Metadata = in.Metadata
			cols = append(cols, "metadata")
		}

		if len(cols) == 0 {
			return nil
		}
		changed = true
		p.Version++
		cols = append(cols, "version")
		return tx.Model(&p).Select(append(cols, "updated_at")).Updates(&p).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update project: %w", err)
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.invalidate(ctx, id)
	}
	s.publish(events.EventProjectUpdated, id, p.Version)
	return p, nil
}

// Delete removes a project and its slots.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectSlot{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Project{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete project: %w", err)
	}

	s.invalidate(ctx, id)
	s.logger.Info().Str("project_id", id).Msg("project deleted")
	s.publish(events.EventProjectDeleted, id, 0)
	return nil
}

// LoadSession opens an editing session on a project.
func (s *Service) LoadSession(ctx context.Context, id string) (*Session, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewSession(p), nil
}

// SaveSession replaces the project's slots and anchors with the session's
// and bumps the version. A session based on an outdated version fails with
// ErrVersionConflict. Saving a clean session is a no-op.
func (s *Service) SaveSession(ctx context.Context, sess *Session) (*models.Project, error) {
	if !sess.Dirty() {
		return s.Get(ctx, sess.ProjectID())
	}

	ctx, span := telemetry.StartSpan(ctx, "project.save_session",
		attribute.String("project.id", sess.ProjectID()))
	version, openTime, startTime, slots := sess.snapshot()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND version = ?", sess.ProjectID(), version).
			Updates(map[string]any{
				"open_time":  strings.TrimSpace(openTime),
				"start_time": strings.TrimSpace(startTime),
				"version":    version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Project{}).Where("id = ?", sess.ProjectID()).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		if err := tx.Where("project_id = ?", sess.ProjectID()).Delete(&models.ProjectSlot{}).Error; err != nil {
			return err
		}
		rows := buildSlots(sess.ProjectID(), slots)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("save session: %w", err)
	}

	sess.markSaved(version + 1)
	s.invalidate(ctx, sess.ProjectID())
	s.logger.Info().
		Str("project_id", sess.ProjectID()).
		Int("version", version+1).
		Int("slots", len(slots)).
		Msg("project timetable saved")
	s.publish(events.EventProjectUpdated, sess.ProjectID(), version+1)

	return s.Get(ctx, sess.ProjectID())
}

// Timetable returns the project and its resolved rows, served from the cache
// when the current version is there.
func (s *Service) Timetable(ctx context.Context, id string) (*models.Project, []timetable.Row, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if rows, ok := s.cache.GetTimetable(ctx, p.ID, p.Version); ok {
		telemetry.TimetableResolvesTotal.WithLabelValues(SourceCache).Inc()
		return p, rows, nil
	}

	rows := Resolve(p.TimetableSlots(), p.OpenTime, p.StartTime, SourceProject)
	if err := s.cache.SetTimetable(ctx, p.ID, p.Version, rows); err != nil {
		s.logger.Debug().Err(err).Str("project_id", p.ID).Msg("timetable cache write failed")
	}
	return p, rows, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateProject(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("project_id", id).Msg("timetable cache invalidation failed")
	}
}

func (s *Service) publish(t events.EventType, id string, version int) {
	if s.bus == nil {
		return
	}
	payload := events.Payload{events.KeyProjectID: id}
	if version > 0 {
		payload[events.KeyVersion] = version
	}
	s.bus.Publish(t, payload)
}

func buildSlots(projectID string, slots []timetable.Slot) []models.ProjectSlot {
	out := make([]models.ProjectSlot, len(slots))
	for i, slot := range slots {
		ps := models.SlotFromTimetable(slot, i)
		ps.ID = uuid.NewString()
		ps.ProjectID = projectID
		out[i] = ps
	}
	return out
}
