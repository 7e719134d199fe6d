/*
PURPOSE:
  Writes the reduction trace to a JSON Lines file (NDJSON): one line per removal attempt.

REQUIREMENTS:
  User-specified:
  - Progress of the reduction must be inspectable.

  Implementation-discovered:
  - JSON Lines is better for streaming/logging than a single large array (append-friendly).
  - A reduction can run for hours; lines must reach the destination as they happen.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go (as the Reducer observer)
  - Consumes: internal/model.ReductionStep

ERROR HANDLING:
  - Returns error on write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w := output.NewJSONWriter(file)
  w.Write(step)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if we switch to plain JSON array (not recommended for streaming).
*/

package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/daryltucker/flame-speed/internal/model"
)

// JSONWriter writes reduction steps as JSON lines.
type JSONWriter struct {
	out     io.WriteCloser
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSONWriter.
func NewJSONWriter(out io.WriteCloser) *JSONWriter {
	return &JSONWriter{
		out:     out,
		encoder: json.NewEncoder(out),
	}
}

// Write writes a single step as a JSON line.
func (jw *JSONWriter) Write(step model.ReductionStep) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(step)
}

// Observe adapts Write to the Reducer observer signature, logging failures.
func (jw *JSONWriter) Observe(step model.ReductionStep) {
	if err := jw.Write(step); err != nil {
		Logger.Error("Failed to write reduction step", "iteration", step.Iteration, "error", err)
	}
}

// Close closes the underlying destination.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.out.Close()
}
