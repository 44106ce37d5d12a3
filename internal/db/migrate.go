/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/eventdesk/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Project{},
		&models.ProjectSlot{},
		&models.Artifact{},
	); err != nil {
		return err
	}

	if err := backfillProjectVersions(database); err != nil {
		return err
	}
	if err := compactSlotPositions(database); err != nil {
		return err
	}

	return nil
}

// backfillProjectVersions sets version 1 on rows created before the column
// existed.
func backfillProjectVersions(database *gorm.DB) error {
	if err := database.Model(&models.Project{}).
		Where("version IS NULL OR version < 1").
		Update("version", 1).Error; err != nil {
		return fmt.Errorf("backfill project versions: %w", err)
	}
	return nil
}

// compactSlotPositions renumbers each project's slots 0..n-1 in their current
// order, repairing gaps and duplicates left by older editors.
func compactSlotPositions(database *gorm.DB) error {
	var projectIDs []string
	if err := database.Model(&models.ProjectSlot{}).
		Distinct("project_id").
		Pluck("project_id", &projectIDs).Error; err != nil {
		return fmt.Errorf("list slot projects: %w", err)
	}

	for _, projectID := range projectIDs {
		var slots []models.ProjectSlot
		if err := database.
			Where("project_id = ?", projectID).
			Order("position ASC, created_at ASC, id ASC").
			Find(&slots).Error; err != nil {
			return fmt.Errorf("load slots for %s: %w", projectID, err)
		}

		for i, slot := range slots {
			if slot.Position == i {
				continue
			}
			if err := database.Model(&models.ProjectSlot{}).
				Where("id = ?", slot.ID).
				Update("position", i).Error; err != nil {
				return fmt.Errorf("renumber slot %s: %w", slot.ID, err)
			}
		}
	}

	return nil
}
