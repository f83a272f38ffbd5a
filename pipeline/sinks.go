package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SinkFactory opens the per-run writers for a sink id. Identical queries map
// to the same files, so concurrent runs append to a shared namespace.
type SinkFactory struct {
	Dir  string
	Dual bool
	Pool PgxPool
}

// Open returns the writer for sinkID and the run tagged with runID.
func (f SinkFactory) Open(runID, sinkID string) (OutputWriter, error) {
	csvPath := filepath.Join(f.Dir, sinkID)
	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv sink: %w", err)
	}

	writers := []OutputWriter{csvWriter}
	if f.Dual {
		jsonPath := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".jsonl"
		jsonWriter, err := NewJSONWriter(jsonPath)
		if err != nil {
			csvWriter.Close()
			return nil, fmt.Errorf("open json sink: %w", err)
		}
		writers = append(writers, jsonWriter)
	}
	if f.Pool != nil {
		writers = append(writers, NewPostgresWriter(f.Pool, runID, sinkID))
	}

	if len(writers) == 1 {
		return csvWriter, nil
	}
	return NewMultiWriter(writers...), nil
}
