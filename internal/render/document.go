/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package render turns resolved timetables into HTML documents and captures
// them as PNG or PDF with a headless browser.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/timetable"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// Document is the data every template renders.
type Document struct {
	Title       string
	Venue       string
	EventDate   string
	OpenTime    string
	StartTime   string
	Notes       string
	Version     int
	Rows        []timetable.Row
	GeneratedAt time.Time
}

// NewDocument builds a document from a project and its resolved rows.
func NewDocument(p *models.Project, rows []timetable.Row) Document {
	return Document{
		Title:       p.Title,
		Venue:       p.Venue,
		EventDate:   p.EventDate,
		OpenTime:    p.OpenTime,
		StartTime:   p.StartTime,
		Notes:       p.Notes,
		Version:     p.Version,
		Rows:        rows,
		GeneratedAt: time.Now(),
	}
}

// PerformanceCount returns the number of NORMAL rows.
func (d Document) PerformanceCount() int {
	n := 0
	for _, r := range d.Rows {
		if r.Kind == timetable.RowNormal {
			n++
		}
	}
	return n
}

// EndTime returns the end of the last performance with an interval, or "".
func (d Document) EndTime() string {
	for i := len(d.Rows) - 1; i >= 0; i-- {
		if d.Rows[i].Kind == timetable.RowNormal && d.Rows[i].HasInterval() {
			return d.Rows[i].EndTime
		}
	}
	return ""
}

// Layout names a template.
type Layout string

const (
	LayoutTimetable Layout = "timetable.html.tmpl"
	LayoutSummary   Layout = "summary.html.tmpl"
)

// HTML executes the layout's template for doc.
func HTML(layout Layout, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(layout), doc); err != nil {
		return nil, fmt.Errorf("render %s: %w", layout, err)
	}
	return buf.Bytes(), nil
}
