package report

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var ErrNoOccurrences = errors.New("failed to generate report, 0 occurrences were provided")

const maxSheetNameLength = 31

// Generator holds the state for the Excel report generation process.
type Generator struct {
	file *excelize.File
}

// ExcelRow holds the structured row for excel file.
type ExcelRow struct {
	ID           string    `json:"id"`            // Occurrence identifier
	Sheet        string    `json:"sheet"`         // Sheet the row belongs to, the category label
	CreationDate time.Time `json:"creation_date"` // Date when the occurrence was opened
	Technician   string    `json:"technician"`    // Login and name of the owner
	Contract     string    `json:"contract"`      // Customer contract
	Status       string    `json:"status"`        // Status label
	UpdatedAt    time.Time `json:"updated_at"`    // Date of the last status change
	Notes        string    `json:"notes"`         // Free text notes
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		file: excelize.NewFile(),
	}
}

// GenerateExcelReport builds a workbook with one sheet per distinct ExcelRow.Sheet, sheets in
// alphabetical order and rows in the order given. The headers are written in the first row of
// every sheet. It returns ErrNoOccurrences when rows is empty.
func GenerateExcelReport(headers []string, rows []ExcelRow) (*bytes.Buffer, error) {
	var err error

	if len(rows) == 0 {
		return nil, ErrNoOccurrences
	}

	rowsBySheet := make(map[string][]ExcelRow)
	for _, row := range rows {
		name := sheetName(row.Sheet)
		rowsBySheet[name] = append(rowsBySheet[name], row)
	}

	gen := NewGenerator()
	defer gen.file.Close()

	if err = gen.addSheets(headers, rowsBySheet); err != nil {
		return nil, fmt.Errorf("failed to add sheets: %w", err)
	}

	// setup first sheet as active
	gen.file.SetActiveSheet(0)

	// delete default sheet
	if _, ok := rowsBySheet["Sheet1"]; !ok {
		if sheetIndex, _ := gen.file.GetSheetIndex("Sheet1"); sheetIndex != -1 {
			if err = gen.file.DeleteSheet("Sheet1"); err != nil {
				return nil, fmt.Errorf("failed to delete default sheet 'Sheet1': %w", err)
			}
		}
	}

	buffer, err := gen.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write data from saved file: %w", err)
	}

	return buffer, nil
}

// addSheets creates one sheet per key of rowsBySheet, sets it up and fills it with its rows.
func (g *Generator) addSheets(headers []string, rowsBySheet map[string][]ExcelRow) error {
	var err error
	headerIndex := 2

	names := make([]string, 0, len(rowsBySheet))
	for name := range rowsBySheet {
		names = append(names, name)
	}
	slices.Sort(names)

	for tableIndex, name := range names {
		if _, err = g.file.NewSheet(name); err != nil {
			return fmt.Errorf("failed to generate new sheet '%s': %w", name, err)
		}

		if err = g.setupSheet(name, headers, tableIndex, len(rowsBySheet[name])); err != nil {
			return fmt.Errorf("failed to setup sheet '%s': %w", name, err)
		}

		for i, row := range rowsBySheet[name] {
			if err = g.addRow(name, i+headerIndex, row); err != nil { // i+2, the first row is the header
				return fmt.Errorf("failed to add row '%d': %w", i+headerIndex, err)
			}
		}
	}
	return nil
}

// setupSheet writes the styled header row, sets column widths and adds a table over
// the header and rowCount data rows.
func (g *Generator) setupSheet(name string, headers []string, tableIndex, rowCount int) error {
	var err error

	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#9B111E"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create new style: %w", err)
	}

	lastColumn, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("failed to resolve last column: %w", err)
	}

	rowHeight := 20
	if err = g.file.SetRowHeight(name, 1, float64(rowHeight)); err != nil {
		return fmt.Errorf("failed to set row height for headers: %w", err)
	}
	if err = g.file.SetSheetRow(name, "A1", &headers); err != nil {
		return fmt.Errorf("failed to set sheet row for headers: %w", err)
	}
	if err = g.file.SetCellStyle(name, "A1", lastColumn+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to set cell style for headers: %w", err)
	}

	widths := map[string]float64{
		"A": 12, "B": 18, "C": 30, "D": 16, "E": 14, "F": 18, "G": 50, //nolint:mnd // const values for row width
	}
	for col, width := range widths {
		if err = g.file.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err = g.file.AddTable(name, &excelize.Table{
		Range:     fmt.Sprintf("A1:%s%d", lastColumn, rowCount+1),
		Name:      fmt.Sprintf("table_%d", tableIndex+1),
		StyleName: "TableStyleMedium3",
	}); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	return nil
}

// addRow writes one occurrence at rowNum of the sheet.
func (g *Generator) addRow(name string, rowNum int, row ExcelRow) error {
	rowData := []interface{}{
		row.ID,
		row.CreationDate.Format("02.01.2006 15:04"),
		row.Technician,
		row.Contract,
		row.Status,
		row.UpdatedAt.Format("02.01.2006 15:04"),
		row.Notes,
	}
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)

	if err := g.file.SetSheetRow(name, cell, &rowData); err != nil {
		return fmt.Errorf("failed to set sheet row: %w", err)
	}

	return nil
}

// sheetName replaces the characters Excel forbids in sheet names and truncates the
// result to 31 runes.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "-"
	}

	if utf8.RuneCountInString(name) > maxSheetNameLength {
		runes := []rune(name)
		return string(runes[:maxSheetNameLength])
	}
	return name
}
