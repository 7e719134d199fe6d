/*
PURPOSE:
  Defines the core data structures shared by the engine, the output writers and the CLI:
  flame evaluation conditions and results, reduction steps and report rows.

REQUIREMENTS:
  User-specified:
  - Record flame speed, adiabatic flame temperature, peak temperature and its location.
  - Record per-reaction weights for the mechanism that was evaluated.

  Implementation-discovered:
  - A failed evaluation still produces a row in the report, so results carry a Failed flag
    and the evaluator's message instead of disappearing.
  - Need JSON tags for the reduction trace (NDJSON).

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/output, internal/cli
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - SI units everywhere (K, Pa, m, m/s).

USAGE:
  res := model.FlameResult{Speed: 0.38, ...}

SELF-HEALING INSTRUCTIONS:
  - If new metrics are needed, add the field and update the CSV/JSON writers.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"time"
)

// FailedSpeed is the flame speed reported for an evaluation that did not converge.
const FailedSpeed = -1.0

// Conditions are the boundary conditions of one flame evaluation.
type Conditions struct {
	Temperature     float64 `json:"temperature"`      // K
	Pressure        float64 `json:"pressure"`         // Pa
	InletVelocity   float64 `json:"inlet_velocity"`   // m/s
	Fuel            string  `json:"fuel"`             // e.g. "CH4"
	Oxidizer        string  `json:"oxidizer"`         // e.g. "O2:1, N2:3.76"
	MixtureFraction float64 `json:"mixture_fraction"` // 0 = pure oxidizer
	RefineGrid      bool    `json:"refine_grid"`
	LogLevel        int     `json:"log_level"`
}

// FlameResult is the outcome of one flame evaluation.
type FlameResult struct {
	Speed                 float64   `json:"flame_speed"`           // m/s
	AdiabaticTemperature  float64   `json:"adiabatic_temperature"` // K
	PeakTemperature       float64   `json:"peak_temperature"`      // K
	PeakTemperatureOffset float64   `json:"peak_temperature_z"`    // m
	Weights               []float64 `json:"-"`                     // one per reaction
	Failed                bool      `json:"failed,omitempty"`
	Error                 string    `json:"error,omitempty"`
}

// FailedResult is the sentinel result recorded for a failed evaluation.
func FailedResult(err error) FlameResult {
	res := FlameResult{Speed: FailedSpeed, Failed: true}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// ReductionStep records one iteration of the mechanism reduction loop.
type ReductionStep struct {
	RunID     string    `json:"run_id"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`
	Equation  string    `json:"equation"`
	Weight    float64   `json:"weight"`
	Remaining int       `json:"remaining"`
	Speed     float64   `json:"flame_speed"`
	Deviation float64   `json:"deviation"`
	Accepted  bool      `json:"accepted"`
	Error     string    `json:"error,omitempty"`
}

// SweepPoint is one row of the flame-speed report: the same mixture evaluated with the
// reduced and the complete mechanism.
type SweepPoint struct {
	MixtureFraction  float64     `json:"mixture_fraction"`
	EquivalenceRatio float64     `json:"equivalence_ratio"`
	Reduced          FlameResult `json:"reduced"`
	Complete         FlameResult `json:"complete"`
}

// IgnitionDelay estimates the ignition delay as the distance to the temperature peak over the
// flame speed. It is zero for failed or non-positive speeds.
func IgnitionDelay(r FlameResult) float64 {
	if r.Failed || r.Speed <= 0 {
		return 0
	}
	return r.PeakTemperatureOffset / r.Speed
}
