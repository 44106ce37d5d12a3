/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package artifact generates project outputs and keeps them in object
// storage.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/friendsincode/eventdesk/internal/events"
	"github.com/friendsincode/eventdesk/internal/export"
	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/project"
	"github.com/friendsincode/eventdesk/internal/render"
	"github.com/friendsincode/eventdesk/internal/storage"
	"github.com/friendsincode/eventdesk/internal/telemetry"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

var (
	// ErrNotFound is returned when an artifact record does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrUnsupportedType is returned for unknown artifact types.
	ErrUnsupportedType = errors.New("unsupported artifact type")
	// ErrRendererUnavailable is returned for browser-rendered types when no
	// renderer is configured.
	ErrRendererUnavailable = errors.New("renderer not configured")
)

// Service generates, stores and lists artifacts.
type Service struct {
	db       *gorm.DB
	projects *project.Service
	renderer *render.Renderer
	store    storage.ObjectStore
	bus      *events.Bus
	location *time.Location
	logger   zerolog.Logger
}

// Config wires the service's collaborators. Renderer and Bus may be nil.
type Config struct {
	DB       *gorm.DB
	Projects *project.Service
	Renderer *render.Renderer
	Store    storage.ObjectStore
	Bus      *events.Bus
	Location *time.Location
}

// NewService creates an artifact service.
func NewService(cfg Config, logger zerolog.Logger) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		db:       cfg.DB,
		projects: cfg.Projects,
		renderer: cfg.Renderer,
		store:    cfg.Store,
		bus:      cfg.Bus,
		location: loc,
		logger:   logger.With().Str("component", "artifact").Logger(),
	}
}

// StorageKey returns the object key for a project version's artifact.
func StorageKey(projectID string, t models.ArtifactType, version int) string {
	return fmt.Sprintf("projects/%s/%s-v%d.%s", projectID, t, version, t.Extension())
}

// Build produces an artifact's bytes for the project's current version
// without storing it.
func (s *Service) Build(ctx context.Context, projectID string, t models.ArtifactType) (*models.Project, *export.Result, error) {
	if !t.Valid() {
		return nil, nil, ErrUnsupportedType
	}
	p, rows, err := s.projects.Timetable(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.build(ctx, p, rows, t)
	if err != nil {
		return nil, nil, err
	}
	return p, res, nil
}

func (s *Service) build(ctx context.Context, p *models.Project, rows []timetable.Row, t models.ArtifactType) (*export.Result, error) {
	switch t {
	case models.ArtifactTimetableICal:
		return export.ICal(p, rows, export.Options{Location: s.location})
	case models.ArtifactTimetableXLSX:
		return export.XLSX(p, rows)
	case models.ArtifactTimetableImage, models.ArtifactSummaryPDF:
		if s.renderer == nil {
			return nil, ErrRendererUnavailable
		}
		doc := render.NewDocument(p, rows)
		var (
			data []byte
			err  error
		)
		if t == models.ArtifactTimetableImage {
			data, err = s.renderer.TimetableImage(ctx, doc)
		} else {
			data, err = s.renderer.SummaryPDF(ctx, doc)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", t, err)
		}
		return &export.Result{
			Data:        data,
			Filename:    fmt.Sprintf("%s-v%d.%s", t, p.Version, t.Extension()),
			ContentType: t.ContentType(),
		}, nil
	}
	return nil, ErrUnsupportedType
}

// Generate stores an artifact for the project's current version. An existing
// artifact for that version is returned as is with reused set.
func (s *Service) Generate(ctx context.Context, projectID string, t models.ArtifactType) (a *models.Artifact, reused bool, err error) {
	if !t.Valid() {
		return nil, false, ErrUnsupportedType
	}

	ctx, span := telemetry.StartSpan(ctx, "artifact.generate",
		attribute.String("project.id", projectID),
		attribute.String("artifact.type", string(t)))
	defer func() { telemetry.EndSpan(span, err) }()

	p, rows, err := s.projects.Timetable(ctx, projectID)
	if err != nil {
		return nil, false, err
	}

	var existing []models.Artifact
	err = s.db.WithContext(ctx).
		Where("project_id = ? AND type = ? AND project_version = ?", p.ID, t, p.Version).
		Order("created_at DESC").
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return nil, false, fmt.Errorf("lookup artifact: %w", err)
	}
	if len(existing) > 0 {
		return &existing[0], true, nil
	}

	res, err := s.build(ctx, p, rows, t)
	if err != nil {
		return nil, false, err
	}

	key := StorageKey(p.ID, t, p.Version)
	if err = s.store.Put(ctx, key, res.Data, t.ContentType()); err != nil {
		return nil, false, fmt.Errorf("store artifact: %w", err)
	}

	a = &models.Artifact{
		ID:             uuid.NewString(),
		ProjectID:      p.ID,
		Type:           t,
		ProjectVersion: p.Version,
		StorageKey:     key,
		ContentType:    t.ContentType(),
		SizeBytes:      int64(len(res.Data)),
	}
	if err = s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, false, fmt.Errorf("record artifact: %w", err)
	}

	telemetry.ArtifactsGeneratedTotal.WithLabelValues(string(t)).Inc()
	telemetry.ArtifactBytesTotal.WithLabelValues(string(t)).Add(float64(a.SizeBytes))
	s.logger.Info().
		Str("project_id", p.ID).
		Str("type", string(t)).
		Int("version", p.Version).
		Int64("bytes", a.SizeBytes).
		Str("key", key).
		Msg("artifact generated")

	if s.bus != nil {
		s.bus.Publish(events.EventArtifactCreated, events.Payload{
			events.KeyProjectID: p.ID,
			events.KeyVersion:   p.Version,
			"artifact_id":       a.ID,
			"type":              string(t),
		})
	}
	return a, false, nil
}

// List returns a project's artifacts, newest first.
func (s *Service) List(ctx context.Context, projectID string) ([]models.Artifact, error) {
	var out []models.Artifact
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}

// Get loads one artifact record.
func (s *Service) Get(ctx context.Context, id string) (*models.Artifact, error) {
	var a models.Artifact
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return &a, nil
}

// Open reads the stored bytes of an artifact.
func (s *Service) Open(ctx context.Context, a *models.Artifact) ([]byte, error) {
	data, err := s.store.Get(ctx, a.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// URL returns a direct download URL, or "" when the artifact must be streamed.
func (s *Service) URL(a *models.Artifact) string {
	return s.store.URL(a.StorageKey)
}

// PurgeProject deletes every stored artifact of a project and its records.
// Objects already gone are ignored.
func (s *Service) PurgeProject(ctx context.Context, projectID string) error {
	list, err := s.List(ctx, projectID)
	if err != nil {
		return err
	}
	for _, a := range list {
		if err := s.store.Delete(ctx, a.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", a.StorageKey).Msg("artifact object delete failed")
		}
	}
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Artifact{}).Error; err != nil {
		return fmt.Errorf("delete artifact records: %w", err)
	}
	return nil
}
