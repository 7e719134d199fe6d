/*
PURPOSE:
  Port to the external reacting-flow solver. Declares the chemistry capability interface
  the rest of the engine talks to, the typed failures it can report, and the glue that turns
  a raw flame profile into a FlameResult.

REQUIREMENTS:
  User-specified:
  - Given a mechanism and boundary conditions, return flame speed, adiabatic flame
    temperature, peak temperature (and where it occurs) and per-reaction weights.
  - A failed evaluation must not crash the caller.

  Implementation-discovered:
  - Chemistry construction and flame evaluation fail in different ways: a rejected
    mechanism (StructuralError) versus a non-converging or unphysical flame (EvaluationError).
  - The solver returns the net-rate-of-progress profile; weights are computed here so every
    adapter normalizes the same way.

ARCHITECTURE INTEGRATION:
  - Implemented by: internal/engine/client.go (HTTP sidecar)
  - Used by: internal/engine/reducer.go, internal/engine/runner.go
  - Uses: internal/ranking (PeakWeights, Peak), internal/model

ERROR HANDLING:
  - Evaluate never panics; every failure comes back as *EvaluationError with a sentinel
    result (speed = -1) so report rows can still be written.

IMPLEMENTATION RULES:
  - Chemistry handles are opaque. Callers never look inside them.
  - Every blocking call takes a context.

USAGE:
  chem, err := solver.NewChemistry(ctx, doc, "gri30", "mixture-averaged")
  defer chem.Close(ctx)
  res, err := engine.Evaluate(ctx, chem, cond)

SELF-HEALING INSTRUCTIONS:
  - If weights look wrong, check the orientation of FlameProfile.NetRates (points x reactions).

RELATED FILES:
  - internal/engine/client.go
  - internal/ranking/weights.go

MAINTENANCE:
  - Update when the solver exposes new flame metrics.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/daryltucker/flame-speed/internal/mechanism"
	"github.com/daryltucker/flame-speed/internal/model"
	"github.com/daryltucker/flame-speed/internal/ranking"
)

// Solver builds chemistry objects from mechanism documents.
type Solver interface {
	NewChemistry(ctx context.Context, doc *mechanism.Document, phase, transport string) (Chemistry, error)
}

// Chemistry is a solver-side solution object: thermodynamics, kinetics and transport for
// one mechanism.
type Chemistry interface {
	NumSpecies() int
	NumReactions() int
	// MixtureFraction returns the mixture fraction of a fuel/oxidizer blend at the given
	// equivalence ratio.
	MixtureFraction(ctx context.Context, fuel, oxidizer string, phi float64) (float64, error)
	// Equilibrate returns the constant enthalpy/pressure equilibrium of the inlet mixture.
	Equilibrate(ctx context.Context, cond model.Conditions) (Equilibrium, error)
	// Flame solves a freely propagating premixed flame.
	Flame(ctx context.Context, cond model.Conditions) (FlameProfile, error)
	Close(ctx context.Context) error
}

// Equilibrium is the burnt-gas state of an HP equilibrium.
type Equilibrium struct {
	Temperature float64 `json:"temperature"`
	Density     float64 `json:"density"`
}

// FlameProfile is the converged solution of a freely propagating flame.
type FlameProfile struct {
	Converged   bool        `json:"converged"`
	Error       string      `json:"error,omitempty"`
	Grid        []float64   `json:"grid"`        // m
	Temperature []float64   `json:"temperature"` // K
	Velocity    []float64   `json:"velocity"`    // m/s
	NetRates    [][]float64 `json:"net_rates"`   // [point][reaction], kmol/m3/s
}

// StructuralError is returned when the solver rejects a mechanism document.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("mechanism rejected: %v", e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// EvaluationError is returned when a flame could not be evaluated.
type EvaluationError struct {
	Op  string
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("flame evaluation failed (%s): %v", e.Op, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsStructural reports whether err is a rejected mechanism.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// Evaluate computes the flame metrics of a chemistry object under the given conditions.
// On failure it returns the sentinel result together with an *EvaluationError.
func Evaluate(ctx context.Context, chem Chemistry, cond model.Conditions) (model.FlameResult, error) {
	fail := func(op string, err error) (model.FlameResult, error) {
		evalErr := &EvaluationError{Op: op, Err: err}
		return model.FailedResult(evalErr), evalErr
	}

	eq, err := chem.Equilibrate(ctx, cond)
	if err != nil {
		return fail("equilibrate", err)
	}

	prof, err := chem.Flame(ctx, cond)
	if err != nil {
		return fail("flame", err)
	}
	if !prof.Converged {
		msg := prof.Error
		if msg == "" {
			msg = "solver did not converge"
		}
		return fail("flame", errors.New(msg))
	}
	if len(prof.Velocity) == 0 || len(prof.Temperature) != len(prof.Grid) {
		return fail("flame", fmt.Errorf("incomplete profile: %d grid points, %d temperatures, %d velocities",
			len(prof.Grid), len(prof.Temperature), len(prof.Velocity)))
	}

	speed := prof.Velocity[0]
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return fail("flame", fmt.Errorf("unphysical flame speed %g", speed))
	}

	weights, err := ranking.PeakWeights(prof.NetRates, chem.NumReactions())
	if err != nil {
		return fail("weights", err)
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fail("weights", fmt.Errorf("non-finite weight %g for reaction %d", w, i))
		}
	}

	res := model.FlameResult{
		Speed:                speed,
		AdiabaticTemperature: eq.Temperature,
		Weights:              weights,
	}
	if tmax, i := ranking.Peak(prof.Temperature); i >= 0 {
		res.PeakTemperature = tmax
		res.PeakTemperatureOffset = prof.Grid[i]
	}
	return res, nil
}
