/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package export writes resolved timetables as iCalendar and XLSX files.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/friendsincode/eventdesk/internal/models"
)

// ErrNoEventDate is returned when a calendar export needs a date the project
// does not have.
var ErrNoEventDate = errors.New("project has no valid event date")

// Result contains an exported file.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Options tune exports.
type Options struct {
	// Location interprets the project's wall-clock times. Defaults to UTC.
	Location *time.Location
	// Now stamps generated files. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func eventDate(p *models.Project, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(p.EventDate), loc)
	if err != nil {
		return time.Time{}, ErrNoEventDate
	}
	return d, nil
}

func filename(p *models.Project, suffix, ext string) string {
	base := slugify(p.Title)
	if base == "" {
		base = "project"
	}
	if p.EventDate != "" {
		base += "-" + p.EventDate
	}
	return fmt.Sprintf("%s-%s.%s", base, suffix, ext)
}

// slugify keeps letters and digits of any script and collapses the rest to
// single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
