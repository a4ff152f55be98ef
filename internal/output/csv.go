// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
)

// CSVWriter exports batch items as CSV rows with a header line.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a CSV writer targeting the given path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Write implements Writer.
func (w *CSVWriter) Write(result *batch.Result) error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(itemColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, item := range result.Items {
		if err := writer.Write(itemRow(item)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", item.URL, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	return file.Close()
}
