/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eventdesk/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment:     "test",
		HTTPBind:        "127.0.0.1",
		HTTPPort:        0,
		DBBackend:       config.DatabaseSQLite,
		DBDSN:           filepath.Join(dir, "server.db"),
		StorageBackend:  config.StorageFilesystem,
		ArtifactRoot:    filepath.Join(dir, "artifacts"),
		CORSOrigins:     []string{"https://editor.example"},
		Timezone:        "UTC",
		RenderTimeout:   5 * time.Second,
		RenderRateLimit: 10,
		MetricsEnabled:  true,
	}
}

func TestServerWiring(t *testing.T) {
	srv, err := New(testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" || health["cache"] != false {
		t.Fatalf("healthz = %d %v", resp.StatusCode, health)
	}

	body := strings.NewReader(`{"open_time":"18:00","start_time":"18:30","slots":[{"artist":"A","duration":20}]}`)
	resp, err = http.Post(ts.URL+"/api/v1/timetable/resolve", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "eventdesk_timetable_resolves_total") {
		t.Fatal("metrics endpoint missing resolver counter")
	}
}

func TestServerCORS(t *testing.T) {
	srv, err := New(testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", "https://editor.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://editor.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestServerRejectsUnusableStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = config.StorageS3
	cfg.S3Region = "us-east-1"

	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected storage initialization to fail")
	}
}
