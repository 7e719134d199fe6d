/*
PURPOSE:
  Writes the flame-speed report: one row per mixture fraction, reduced mechanism columns
  first, complete mechanism columns second.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV (flame_speed_data.csv).
  - Column headers name the reaction count of the reduced mechanism.
  - Failed evaluations still produce a row.

  Implementation-discovered:
  - Failed evaluations are written as zeros; the evaluator message goes to an error column.
  - Ignition delay is derived (z at peak temperature / flame speed), never stored.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Consumes: internal/model.SweepPoint

ERROR HANDLING:
  - Returns error on header or row write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Use Mutex so the writer can be shared.

USAGE:
  w, err := output.NewCSVWriter(file, 212)
  w.Write(point)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion together.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when FlameResult changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/daryltucker/flame-speed/internal/model"
)

// CSVWriter writes report rows.
type CSVWriter struct {
	out    io.WriteCloser
	writer *csv.Writer
	mu     sync.Mutex
}

// ReportHeader returns the report columns for a reduced mechanism of n reactions.
func ReportHeader(n int) []string {
	red := fmt.Sprintf("(reduced mechanism %d)", n)
	return []string{
		"Mixture fraction",
		"Equivalence ratio " + red,
		"Flame Speed " + red + " [m/s]",
		"Adiabatic flame temperature " + red + " [K]",
		"Maximum temperature " + red + " [K]",
		"Z_max " + red + " [m]",
		"Ignition delay time " + red + " [s]",
		"Flame Speed (complete mechanism) [m/s]",
		"Adiabatic flame temperature (complete mechanism) [K]",
		"Maximum temperature (complete mechanism) [K]",
		"Z_max (complete mechanism) [m]",
		"Ignition delay time (complete mechanism) [s]",
		"Error " + red,
		"Error (complete mechanism)",
	}
}

// NewCSVWriter writes the header for a reduced mechanism of reducedReactions reactions.
func NewCSVWriter(out io.WriteCloser, reducedReactions int) (*CSVWriter, error) {
	w := csv.NewWriter(out)
	if err := w.Write(ReportHeader(reducedReactions)); err != nil {
		out.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return nil, err
	}

	return &CSVWriter{
		out:    out,
		writer: w,
	}, nil
}

// Write writes a single report row.
// It is thread-safe.
func (cw *CSVWriter) Write(p model.SweepPoint) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{num(p.MixtureFraction), num(p.EquivalenceRatio)}
	record = append(record, flameColumns(p.Reduced)...)
	record = append(record, flameColumns(p.Complete)...)
	record = append(record, p.Reduced.Error, p.Complete.Error)

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close flushes and closes the destination.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.out.Close()
		return err
	}
	return cw.out.Close()
}

func flameColumns(r model.FlameResult) []string {
	if r.Failed {
		return []string{"0", "0", "0", "0", "0"}
	}
	return []string{
		num(r.Speed),
		num(r.AdiabaticTemperature),
		num(r.PeakTemperature),
		num(r.PeakTemperatureOffset),
		num(model.IgnitionDelay(r)),
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
