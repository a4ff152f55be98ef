// internal/output/output.go

// Package output exports batch results to JSON, CSV and Excel files.
// The CLI writes one file per run; the columns are fixed because the
// item shape is fixed.
package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
)

// Format identifies an export format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// Writer exports one batch result to a destination file.
type Writer interface {
	Write(result *batch.Result) error
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// FormatForPath infers the export format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("output path %q has no extension to infer a format from", path)
	}
	return ParseFormat(ext)
}

// NewWriter creates the writer for a format and destination path.
func NewWriter(format Format, path string) (Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	switch format {
	case FormatJSON:
		return NewJSONWriter(path), nil
	case FormatCSV:
		return NewCSVWriter(path), nil
	case FormatExcel:
		return NewExcelWriter(path), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// itemColumns is the fixed column set shared by the CSV and Excel
// writers.
var itemColumns = []string{"url", "outcome", "slug", "title", "record_id", "error"}

// itemRow renders one item in itemColumns order.
func itemRow(item batch.ItemResult) []string {
	recordID := ""
	if item.RecordID != 0 {
		recordID = fmt.Sprintf("%d", item.RecordID)
	}
	return []string{
		item.URL,
		string(item.Outcome),
		item.Slug,
		item.Title,
		recordID,
		item.Error,
	}
}
