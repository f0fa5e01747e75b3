package services

import (
	"bytes"
	"fmt"

	"case_relay_go/models"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheetCases = "Cases"
	exportSheetStats = "Statistics"
)

var exportCaseHeaders = []string{
	"Case ID", "Case Number", "Title", "Category", "Severity", "Status",
	"Approved", "Closed", "Archived", "Assigned Officer", "Previous Officer", "Reported At", "Resolved At",
}

// ExportCasesExcel writes the cases and their statistics to an xlsx workbook
func ExportCasesExcel(cases []models.Case, stats *CaseStatistics) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheetCases)
	for i, header := range exportCaseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheetCases, cell, header)
	}

	for i, c := range cases {
		row := i + 2
		values := []interface{}{
			c.ID,
			c.CaseNumber,
			c.Title,
			derefString(c.Category),
			c.Severity,
			string(c.Status),
			yesNo(c.IsApproved),
			yesNo(c.IsClosed),
			yesNo(c.IsArchived),
			c.AssignedOfficerID,
			derefString(c.PreviousOfficerID),
			c.ReportedAt.UTC().Format("2006-01-02 15:04"),
			"",
		}
		if c.ResolvedAt != nil {
			values[12] = c.ResolvedAt.UTC().Format("2006-01-02 15:04")
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(exportSheetCases, cell, value)
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportCaseHeaders), 1)
	f.SetCellStyle(exportSheetCases, "A1", lastHeader, headerStyle)

	if stats != nil {
		if _, err := f.NewSheet(exportSheetStats); err != nil {
			return nil, fmt.Errorf("failed to create statistics sheet: %w", err)
		}
		f.SetCellValue(exportSheetStats, "A1", "Status")
		f.SetCellValue(exportSheetStats, "B1", "Cases")
		row := 2
		for _, status := range models.CaseStatuses {
			f.SetCellValue(exportSheetStats, fmt.Sprintf("A%d", row), string(status))
			f.SetCellValue(exportSheetStats, fmt.Sprintf("B%d", row), stats.ByStatus[status])
			row++
		}
		for _, total := range []struct {
			label string
			value int64
		}{
			{"Unrecognized", stats.Unrecognized},
			{"Total", stats.Total},
			{"Approved", stats.Approved},
			{"Archived", stats.Archived},
		} {
			f.SetCellValue(exportSheetStats, fmt.Sprintf("A%d", row), total.label)
			f.SetCellValue(exportSheetStats, fmt.Sprintf("B%d", row), total.value)
			row++
		}
		f.SetCellStyle(exportSheetStats, "A1", "B1", headerStyle)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
