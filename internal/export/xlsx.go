/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package export

import (
	"fmt"
	"strings"

	"github.com/friendsincode/eventdesk/internal/models"
	"github.com/friendsincode/eventdesk/internal/timetable"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the timetable.
const SheetName = "Timetable"

var xlsxHeader = []any{"Time", "Artist", "Duration (min)", "Adjustment (min)", "Goods", "Place"}

// XLSX writes the resolved rows to a single-sheet workbook: a title row, a
// header row and one row per resolved row.
func XLSX(p *models.Project, rows []timetable.Row) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	widths := map[string]float64{"A": 16, "B": 28, "C": 14, "D": 16, "E": 30, "F": 20}
	for col, w := range widths {
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#222222"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	goodsStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF7E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	if err := f.SetCellValue(SheetName, "A1", title(p)); err != nil {
		return nil, err
	}
	if err := f.MergeCell(SheetName, "A1", "F1"); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", titleStyle); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(SheetName, "A2", &xlsxHeader); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A2", "F2", headerStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		r := i + 3
		values := []any{row.TimeRange, row.ArtistName, blankZero(row.DurationMinutes), blankZero(row.AdjustmentMinutes), row.GoodsDisplay, row.PlaceDisplay}
		start, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return nil, err
		}
		if row.Kind == timetable.RowPreGoods || row.Kind == timetable.RowPostGoods {
			end, _ := excelize.CoordinatesToCellName(6, r)
			if err := f.SetCellStyle(SheetName, start, end, goodsStyle); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return &Result{
		Data:        buf.Bytes(),
		Filename:    filename(p, "timetable", "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

func title(p *models.Project) string {
	parts := []string{p.Title}
	if p.EventDate != "" {
		parts = append(parts, p.EventDate)
	}
	if p.Venue != "" {
		parts = append(parts, p.Venue)
	}
	return strings.Join(parts, " / ")
}

// blankZero leaves zero minute cells empty, matching the rendered sheet.
func blankZero(n int) any {
	if n == 0 {
		return ""
	}
	return n
}
