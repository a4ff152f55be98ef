// internal/output/excel.go
package output

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
)

const excelSheetName = "Batch Results"

// columnWidths are tuned to the typical content of each column; URLs
// and titles dominate.
var columnWidths = []float64{50, 14, 30, 40, 10, 50}

// ExcelWriter exports batch items as an .xlsx workbook with a styled
// header and a summary row.
type ExcelWriter struct {
	path string
}

// NewExcelWriter creates an Excel writer targeting the given path.
func NewExcelWriter(path string) *ExcelWriter {
	return &ExcelWriter{path: path}
}

// Write implements Writer.
func (w *ExcelWriter) Write(result *batch.Result) error {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName(file.GetSheetName(0), excelSheetName)

	if err := w.writeHeader(file); err != nil {
		return err
	}

	row := 2
	for _, item := range result.Items {
		for col, value := range itemRow(item) {
			cell := cellName(col+1, row)
			if err := file.SetCellValue(excelSheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
		row++
	}

	summary := fmt.Sprintf("%d success, %d failed, %d duplicate, %d slug conflict",
		result.Success, result.Failed, result.Duplicates, result.SlugConflict)
	if err := file.SetCellValue(excelSheetName, cellName(1, row+1), summary); err != nil {
		return fmt.Errorf("failed to write summary row: %w", err)
	}

	for col := range itemColumns {
		name := columnName(col + 1)
		if err := file.SetColWidth(excelSheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}

	if err := file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", w.path, err)
	}
	return nil
}

// writeHeader writes the bold header row.
func (w *ExcelWriter) writeHeader(file *excelize.File) error {
	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range itemColumns {
		cell := cellName(col+1, 1)
		if err := file.SetCellValue(excelSheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header cell %s: %w", cell, err)
		}
		if err := file.SetCellStyle(excelSheetName, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style header cell %s: %w", cell, err)
		}
	}
	return nil
}

func cellName(col, row int) string {
	return columnName(col) + strconv.Itoa(row)
}

// columnName converts a 1-based column number to its Excel name
// (A, B, ..., AA, AB).
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
