/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ArtifactType enumerates generated project outputs.
type ArtifactType string

const (
	ArtifactTimetableImage ArtifactType = "timetable_image"
	ArtifactSummaryPDF     ArtifactType = "summary_pdf"
	ArtifactTimetableXLSX  ArtifactType = "timetable_xlsx"
	ArtifactTimetableICal  ArtifactType = "timetable_ical"
)

// ArtifactTypes lists every supported type in a stable order.
var ArtifactTypes = []ArtifactType{
	ArtifactTimetableImage,
	ArtifactSummaryPDF,
	ArtifactTimetableXLSX,
	ArtifactTimetableICal,
}

// Valid reports whether t is a known artifact type.
func (t ArtifactType) Valid() bool {
	for _, known := range ArtifactTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Extension returns the file extension used for stored objects.
func (t ArtifactType) Extension() string {
	switch t {
	case ArtifactTimetableImage:
		return "png"
	case ArtifactSummaryPDF:
		return "pdf"
	case ArtifactTimetableXLSX:
		return "xlsx"
	case ArtifactTimetableICal:
		return "ics"
	}
	return "bin"
}

// ContentType returns the MIME type served for the artifact.
func (t ArtifactType) ContentType() string {
	switch t {
	case ArtifactTimetableImage:
		return "image/png"
	case ArtifactSummaryPDF:
		return "application/pdf"
	case ArtifactTimetableXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ArtifactTimetableICal:
		return "text/calendar; charset=utf-8"
	}
	return "application/octet-stream"
}

// Artifact records a generated file in object storage.
type Artifact struct {
	ID             string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID      string       `gorm:"type:varchar(36);index:idx_artifact_project_type_version,priority:1" json:"project_id"`
	Type           ArtifactType `gorm:"type:varchar(32);index:idx_artifact_project_type_version,priority:2" json:"type"`
	ProjectVersion int          `gorm:"index:idx_artifact_project_type_version,priority:3" json:"project_version"`
	StorageKey     string       `gorm:"type:varchar(512)" json:"storage_key"`
	ContentType    string       `gorm:"type:varchar(128)" json:"content_type"`
	SizeBytes      int64        `json:"size_bytes"`
	CreatedAt      time.Time    `json:"created_at"`
}
