// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
)

// JSONWriter exports a batch result as an indented JSON document.
type JSONWriter struct {
	path string
}

// NewJSONWriter creates a JSON writer targeting the given path.
func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Write implements Writer. The file contains the whole Result so the
// per-outcome counts travel with the items.
func (w *JSONWriter) Write(result *batch.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch result: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	return nil
}
