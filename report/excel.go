/*
Package report renders worklog rows into the Excel timesheet users receive.

PURPOSE:
  Pure rendering: rows in, .xlsx bytes out. No I/O besides the in-memory
  workbook. Layout mirrors the spreadsheet the finance side expects:

    row 1          merged title ("Отчет по трудозатратам ...")
    row 2          merged project list (multi-project reports only)
    header row     bordered, bold column names
    data rows      bordered values, one row per worklog
    totals row     "Итого часов:" + sum
    stats block    per-project record/hour counts (multi-project only)

NUMBER FORMAT:
  Hours are written as text with a decimal comma ("1,5"), matching the
  locale of the consumers. Sums use shopspring/decimal so 0.1-rounded
  values never accumulate float drift.

SEE ALSO:
  - filename.go: report file naming
  - jira/client.go: produces the rows rendered here
*/
package report

import (
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/period"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

var headers = []string{
	"Дата работы",
	"Исполнитель",
	"Часы",
	"Содержание работы",
	"Проектная задача",
	"Проект",
}

// column widths, A through F
var columnWidths = []float64{20, 15, 10, 50, 25, 20}

const sheetNameLimit = 31 // hard Excel limit

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// FormatHours renders a decimal hour value with a decimal comma.
func FormatHours(d decimal.Decimal) string {
	return strings.ReplaceAll(d.String(), ".", ",")
}

// TotalHours sums the hours of all rows exactly.
func TotalHours(rows []jira.Row) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Hours)
	}
	return total
}

// =============================================================================
// WORKBOOK GENERATION
// =============================================================================

// Timesheet renders the rows into a workbook and returns the .xlsx bytes.
// reportName labels the sheet and the title row; projects drives the
// multi-project header and statistics block.
func Timesheet(rows []jira.Row, reportName string, p period.Period, projects []jira.Project) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(reportName)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return nil, fmt.Errorf("cell style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("bold style: %w", err)
	}

	// Title row
	title := fmt.Sprintf("Отчет по трудозатратам проекта '%s' с %s по %s",
		reportName, p.Start, p.End)
	if len(projects) > 1 {
		title = fmt.Sprintf("Сводный отчет по трудозатратам (%d проектов) с %s по %s",
			len(projects), p.Start, p.End)
	}
	if err := f.MergeCell(sheet, "A1", "F1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheet, "A1", title)
	f.SetCellStyle(sheet, "A1", "F1", titleStyle)

	headerRow := 3
	if len(projects) > 1 {
		// Project list on its own merged row.
		names := make([]string, len(projects))
		for i, pr := range projects {
			names[i] = fmt.Sprintf("%s (%s)", pr.Name, pr.Key)
		}
		if err := f.MergeCell(sheet, "A2", "F2"); err != nil {
			return nil, fmt.Errorf("merge project row: %w", err)
		}
		f.SetCellValue(sheet, "A2", "Проекты: "+strings.Join(names, ", "))
		headerRow = 4
	}

	// Header row
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		f.SetCellValue(sheet, cell, h)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	f.SetCellStyle(sheet, first, last, headerStyle)

	// Data rows
	dataStart := headerRow + 1
	for i, r := range rows {
		rowNum := dataStart + i
		values := []interface{}{
			r.Date.Format("2006-1-2 15:04"),
			r.Executor,
			FormatHours(r.Hours),
			r.Description,
			r.ProjectTask,
			r.Project,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(sheet, cell, v)
		}
		rowFirst, _ := excelize.CoordinatesToCellName(1, rowNum)
		rowLast, _ := excelize.CoordinatesToCellName(len(headers), rowNum)
		f.SetCellStyle(sheet, rowFirst, rowLast, cellStyle)
	}

	// Column widths
	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	if len(rows) > 0 {
		writeTotals(f, sheet, rows, projects, dataStart, boldStyle)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	log.Printf("report: generated workbook with %d rows", len(rows))
	return buf.Bytes(), nil
}

// writeTotals appends the totals row and, for multi-project reports, the
// per-project statistics block.
func writeTotals(f *excelize.File, sheet string, rows []jira.Row, projects []jira.Project, dataStart int, boldStyle int) {
	totalRow := dataStart + len(rows) + 1
	aCell := fmt.Sprintf("A%d", totalRow)
	f.MergeCell(sheet, aCell, fmt.Sprintf("B%d", totalRow))
	f.SetCellValue(sheet, aCell, "Итого часов:")
	f.SetCellStyle(sheet, aCell, aCell, boldStyle)

	cCell := fmt.Sprintf("C%d", totalRow)
	f.SetCellValue(sheet, cCell, FormatHours(TotalHours(rows)))
	f.SetCellStyle(sheet, cCell, cCell, boldStyle)

	if len(projects) <= 1 {
		return
	}

	statsRow := totalRow + 2
	f.MergeCell(sheet, fmt.Sprintf("A%d", statsRow), fmt.Sprintf("F%d", statsRow))
	f.SetCellValue(sheet, fmt.Sprintf("A%d", statsRow), "Статистика по проектам:")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", statsRow), fmt.Sprintf("A%d", statsRow), boldStyle)

	// Group rows by project, preserving first-seen order.
	type stat struct {
		records int
		hours   decimal.Decimal
	}
	stats := map[string]*stat{}
	var order []string
	for _, r := range rows {
		s, seen := stats[r.Project]
		if !seen {
			s = &stat{hours: decimal.Zero}
			stats[r.Project] = s
			order = append(order, r.Project)
		}
		s.records++
		s.hours = s.hours.Add(r.Hours)
	}

	for i, name := range order {
		row := statsRow + 1 + i
		s := stats[name]
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "• "+name+":")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%d записей", s.records))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), FormatHours(s.hours)+" ч")
	}
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
	}
}

// sheetName trims the report name into a legal sheet name.
func sheetName(reportName string) string {
	name := "Трудозатраты " + reportName
	runes := []rune(name)
	if len(runes) > sheetNameLimit {
		runes = runes[:sheetNameLimit]
	}
	return string(runes)
}
