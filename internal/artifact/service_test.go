/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package artifact

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eventdesk/internal/config"
	"github.com/friendsincode/eventdesk/internal/db"
	"github.com/friendsincode/eventdesk/internal/events"
	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/project"
	"github.com/friendsincode/eventdesk/internal/render"
	"github.com/friendsincode/eventdesk/internal/storage"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

type stubCapturer struct {
	calls int
}

func (c *stubCapturer) Screenshot(context.Context, []byte, int, int) ([]byte, error) {
	c.calls++
	return []byte("\x89PNG-stub"), nil
}

func (c *stubCapturer) PDF(context.Context, []byte) ([]byte, error) {
	c.calls++
	return []byte("%PDF-stub"), nil
}

func (c *stubCapturer) Close() error { return nil }

type fixture struct {
	svc      *Service
	projects *project.Service
	store    *storage.FilesystemStore
	bus      *events.Bus
	capturer *stubCapturer
	project  *models.Project
}

func newFixture(t *testing.T, withRenderer bool) *fixture {
	t.Helper()
	database, err := db.Connect(&config.Config{
		Environment: "test",
		DBBackend:   config.DatabaseSQLite,
		DBDSN:       filepath.Join(t.TempDir(), "artifact.db"),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(database) })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := storage.NewFilesystemStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	bus := events.NewBus()
	projects := project.NewService(database, bus, nil, zerolog.Nop())
	capturer := &stubCapturer{}
	var renderer *render.Renderer
	if withRenderer {
		renderer = render.NewRenderer(capturer, time.Second, zerolog.Nop())
	}

	p, err := projects.Create(context.Background(), project.CreateInput{
		Title:     "Spring Live",
		EventDate: "2026-04-10",
		OpenTime:  "17:30",
		StartTime: "18:00",
		Slots: []timetable.Slot{
			{ArtistName: "A", DurationMinutes: 20, AdjustmentMinutes: 10},
			{ArtistName: "B", DurationMinutes: 30},
		},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	return &fixture{
		svc: NewService(Config{
			DB:       database,
			Projects: projects,
			Renderer: renderer,
			Store:    store,
			Bus:      bus,
			Location: time.UTC,
		}, zerolog.Nop()),
		projects: projects,
		store:    store,
		bus:      bus,
		capturer: capturer,
		project:  p,
	}
}

func TestStorageKey(t *testing.T) {
	got := StorageKey("abc", models.ArtifactSummaryPDF, 7)
	if got != "projects/abc/summary_pdf-v7.pdf" {
		t.Fatalf("StorageKey = %q", got)
	}
}

func TestGenerateStoresAndRecords(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	created := f.bus.Subscribe(events.EventArtifactCreated)

	for _, typ := range models.ArtifactTypes {
		a, reused, err := f.svc.Generate(ctx, f.project.ID, typ)
		if err != nil {
			t.Fatalf("Generate(%s): %v", typ, err)
		}
		if reused {
			t.Fatalf("Generate(%s) reused on first call", typ)
		}
		if a.StorageKey != StorageKey(f.project.ID, typ, 1) || a.ContentType != typ.ContentType() {
			t.Fatalf("unexpected artifact: %+v", a)
		}

		data, err := f.svc.Open(ctx, a)
		if err != nil {
			t.Fatalf("Open(%s): %v", typ, err)
		}
		if int64(len(data)) != a.SizeBytes || len(data) == 0 {
			t.Fatalf("%s stored %d bytes, recorded %d", typ, len(data), a.SizeBytes)
		}

		select {
		case payload := <-created:
			if payload["artifact_id"] != a.ID {
				t.Fatalf("event artifact = %v, want %s", payload["artifact_id"], a.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("no artifact.created event for %s", typ)
		}
	}

	list, err := f.svc.List(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != len(models.ArtifactTypes) {
		t.Fatalf("artifacts = %d, want %d", len(list), len(models.ArtifactTypes))
	}
}

func TestGenerateReusesSameVersion(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, _, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableImage)
	if err != nil {
		t.Fatal(err)
	}
	second, reused, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableImage)
	if err != nil {
		t.Fatal(err)
	}
	if !reused || second.ID != first.ID || f.capturer.calls != 1 {
		t.Fatalf("reused=%v ids=%s/%s captures=%d", reused, first.ID, second.ID, f.capturer.calls)
	}

	// A new version produces a new artifact.
	sess, err := f.projects.LoadSession(ctx, f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	sess.AppendSlot(timetable.Slot{ArtistName: "C", DurationMinutes: 10})
	if _, err := f.projects.SaveSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	third, reused, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableImage)
	if err != nil {
		t.Fatal(err)
	}
	if reused || third.ProjectVersion != 2 || third.ID == first.ID {
		t.Fatalf("expected fresh artifact for version 2, got %+v reused=%v", third, reused)
	}
}

func TestGenerateAfterHeaderEdit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first, _, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableICal)
	if err != nil {
		t.Fatal(err)
	}

	date, title := "2031-01-02", "Renamed"
	if _, err := f.projects.Update(ctx, f.project.ID, project.UpdateInput{EventDate: &date, Title: &title}); err != nil {
		t.Fatal(err)
	}

	second, reused, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableICal)
	if err != nil {
		t.Fatal(err)
	}
	if reused || second.ID == first.ID || second.ProjectVersion != first.ProjectVersion+1 {
		t.Fatalf("reused=%v ids=%s/%s versions=%d/%d", reused, first.ID, second.ID, first.ProjectVersion, second.ProjectVersion)
	}
	data, err := f.svc.Open(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("20310102")) || !bytes.Contains(data, []byte("Renamed")) {
		t.Fatalf("calendar does not reflect the edit:\n%s", data)
	}
}

func TestGenerateErrors(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, _, err := f.svc.Generate(ctx, f.project.ID, "gif"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	if _, _, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactSummaryPDF); !errors.Is(err, ErrRendererUnavailable) {
		t.Fatalf("err = %v, want ErrRendererUnavailable", err)
	}
	if _, _, err := f.svc.Generate(ctx, "missing", models.ArtifactTimetableXLSX); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("err = %v, want project.ErrNotFound", err)
	}

	// Exports do not need a browser.
	if _, _, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableICal); err != nil {
		t.Fatalf("ical without renderer: %v", err)
	}
}

func TestBuildDoesNotStore(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, res, err := f.svc.Build(ctx, f.project.ID, models.ArtifactTimetableICal)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.ID != f.project.ID || !bytes.Contains(res.Data, []byte("BEGIN:VCALENDAR")) {
		t.Fatalf("unexpected build result: %s", res.Data)
	}
	list, _ := f.svc.List(ctx, f.project.ID)
	if len(list) != 0 {
		t.Fatalf("Build recorded %d artifacts", len(list))
	}
}

func TestGetAndPurge(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a, _, err := f.svc.Generate(ctx, f.project.ID, models.ArtifactTimetableXLSX)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Get(ctx, a.ID)
	if err != nil || got.StorageKey != a.StorageKey {
		t.Fatalf("Get: %+v, %v", got, err)
	}
	if f.svc.URL(a) != "" {
		t.Fatal("filesystem artifacts are streamed")
	}

	if err := f.svc.PurgeProject(ctx, f.project.ID); err != nil {
		t.Fatalf("PurgeProject: %v", err)
	}
	if _, err := f.svc.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := f.store.Get(ctx, a.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("object still present: %v", err)
	}
}
