/*
PURPOSE:
  Greedy mechanism reduction. Repeatedly removes the least important reaction, rebuilds
  the mechanism and re-evaluates the flame until the flame speed drifts from the baseline.

REQUIREMENTS:
  User-specified:
  - Remove the reaction with the smallest peak normalized net rate of progress.
  - Stop once |speed - baseline| >= tolerance and keep the mechanism evaluated before that.
  - Duplicate reactions: when one partner is removed, the survivor loses its duplicate marker.

  Implementation-discovered:
  - A failed evaluation must stop the loop even when the -1 sentinel would fall inside the
    tolerance of a slow baseline.
  - Removing the last reaction would produce an empty mechanism; never evaluate it.
  - Long reductions need an iteration budget and a wall-clock budget (context deadline).
  - Every step is traced for offline inspection.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: internal/ranking, internal/mechanism, Solver (evaluator.go)

ERROR HANDLING:
  - Baseline failure is returned as an error.
  - Failures during the loop end it with a terminal Outcome; the last accepted mechanism is
    always returned.

IMPLEMENTATION RULES:
  - Single goroutine. Chemistry handles are closed once superseded.
  - Strict < for the tolerance test.

USAGE:
  r := &engine.Reducer{Solver: client, Phase: "gri30", Transport: "mixture-averaged"}
  red, err := r.Reduce(ctx, complete, cond, 0.01)

SELF-HEALING INSTRUCTIONS:
  - If the loop removes the wrong reaction, check ranking.Min() tie-breaking first.

RELATED FILES:
  - internal/ranking/ranking.go
  - internal/mechanism/document.go

MAINTENANCE:
  - Add new terminal states to Outcome and its String().
*/

package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/daryltucker/flame-speed/internal/mechanism"
	"github.com/daryltucker/flame-speed/internal/model"
	"github.com/daryltucker/flame-speed/internal/output"
	"github.com/daryltucker/flame-speed/internal/ranking"
)

// Outcome is the reason the reduction loop stopped.
type Outcome int

const (
	OutcomeToleranceExceeded Outcome = iota
	OutcomeExhausted
	OutcomeEvaluationFailed
	OutcomeStructuralError
	OutcomeBudgetExhausted
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeToleranceExceeded:
		return "tolerance_exceeded"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeEvaluationFailed:
		return "evaluation_failed"
	case OutcomeStructuralError:
		return "structural_error"
	case OutcomeBudgetExhausted:
		return "budget_exhausted"
	case OutcomeCanceled:
		return "canceled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Reduction is the result of a reduction run.
type Reduction struct {
	RunID     string
	Mechanism *mechanism.Document // last accepted mechanism
	Baseline  model.FlameResult   // complete mechanism
	Final     model.FlameResult   // evaluation of Mechanism
	Removed   int
	Steps     []model.ReductionStep
	Outcome   Outcome
	Err       error // cause of EvaluationFailed, StructuralError and Canceled
}

// Reducer runs the reduction loop against a Solver.
type Reducer struct {
	Solver    Solver
	Phase     string // empty selects the first phase
	Transport string

	// MaxIterations bounds the number of removals. Zero means unbounded.
	MaxIterations int

	// Observer receives every step as it is recorded.
	Observer func(model.ReductionStep)

	// RunID tags every step. A UUIDv7 is generated when empty.
	RunID string

	Now func() time.Time
}

// Reduce evaluates the complete mechanism once, then removes reactions one at a time.
func (r *Reducer) Reduce(ctx context.Context, complete *mechanism.Document, cond model.Conditions, tolerance float64) (*Reduction, error) {
	phase, err := complete.Phase(r.Phase)
	if err != nil {
		return nil, err
	}

	runID := r.RunID
	if runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate run id: %w", err)
		}
		runID = id.String()
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	baseline, err := r.evaluate(ctx, complete, cond)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate complete mechanism: %w", err)
	}
	rank, err := ranking.FromResult(complete, baseline.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to rank complete mechanism: %w", err)
	}

	output.Logger.Info("Baseline evaluated",
		"run_id", runID,
		"reactions", rank.Len(),
		"flame_speed", baseline.Speed,
		"tolerance", tolerance,
	)

	red := &Reduction{
		RunID:     runID,
		Mechanism: complete,
		Baseline:  baseline,
		Final:     baseline,
	}
	stop := func(o Outcome, cause error) {
		red.Outcome = o
		red.Err = cause
	}
	record := func(step model.ReductionStep) {
		step.RunID = runID
		step.Timestamp = now()
		red.Steps = append(red.Steps, step)
		if r.Observer != nil {
			r.Observer(step)
		}
	}

	for iter := 1; ; iter++ {
		if !(math.Abs(red.Final.Speed-baseline.Speed) < tolerance) {
			stop(OutcomeToleranceExceeded, nil)
			break
		}
		if err := ctx.Err(); err != nil {
			stop(OutcomeCanceled, err)
			break
		}
		if r.MaxIterations > 0 && iter > r.MaxIterations {
			stop(OutcomeBudgetExhausted, nil)
			break
		}
		if rank.Len() <= 1 {
			stop(OutcomeExhausted, nil)
			break
		}

		victim, _ := rank.Min()
		next, err := rank.Without(victim)
		if err != nil {
			stop(OutcomeStructuralError, err)
			break
		}

		step := model.ReductionStep{
			Iteration: iter,
			Equation:  victim.Equation,
			Weight:    victim.Weight,
			Remaining: next.Len(),
			Speed:     model.FailedSpeed,
		}

		candidate, err := mechanism.Build(red.Mechanism.Units, phase, red.Mechanism.Species, next.Definitions())
		if err != nil {
			step.Error = err.Error()
			record(step)
			stop(OutcomeStructuralError, &StructuralError{Err: err})
			break
		}

		res, err := r.evaluate(ctx, candidate, cond)
		if err != nil {
			step.Error = err.Error()
			record(step)
			switch {
			case ctx.Err() != nil:
				stop(OutcomeCanceled, err)
			case IsStructural(err):
				output.Logger.Error("Rebuilt mechanism rejected", "equation", victim.Equation, "error", err)
				stop(OutcomeStructuralError, err)
			default:
				output.Logger.Error("Evaluation failed", "equation", victim.Equation, "error", err)
				stop(OutcomeEvaluationFailed, err)
			}
			break
		}

		step.Speed = res.Speed
		step.Deviation = math.Abs(res.Speed - baseline.Speed)

		output.Logger.Info("Reaction removed",
			"iteration", iter,
			"equation", victim.Equation,
			"weight", victim.Weight,
			"remaining", next.Len(),
			"flame_speed", res.Speed,
			"deviation", step.Deviation,
		)

		if !(step.Deviation < tolerance) {
			record(step)
			stop(OutcomeToleranceExceeded, nil)
			break
		}

		nextRank, err := ranking.FromResult(candidate, res.Weights)
		if err != nil {
			step.Error = err.Error()
			record(step)
			stop(OutcomeStructuralError, err)
			break
		}

		step.Accepted = true
		record(step)
		red.Mechanism, red.Final, rank = candidate, res, nextRank
		red.Removed++
	}

	output.Logger.Info("Reduction finished",
		"run_id", runID,
		"outcome", red.Outcome.String(),
		"removed", red.Removed,
		"reactions", len(red.Mechanism.Reactions),
		"flame_speed", red.Final.Speed,
	)
	return red, nil
}

// evaluate builds a chemistry object for doc, evaluates it and releases it.
func (r *Reducer) evaluate(ctx context.Context, doc *mechanism.Document, cond model.Conditions) (model.FlameResult, error) {
	chem, err := r.Solver.NewChemistry(ctx, doc, phaseName(doc, r.Phase), r.Transport)
	if err != nil {
		return model.FailedResult(err), err
	}
	defer closeChemistry(ctx, chem)

	if n := chem.NumReactions(); n != len(doc.Reactions) {
		err := &StructuralError{Err: fmt.Errorf("solver loaded %d reactions, mechanism has %d", n, len(doc.Reactions))}
		return model.FailedResult(err), err
	}
	return Evaluate(ctx, chem, cond)
}

func phaseName(doc *mechanism.Document, name string) string {
	phase, err := doc.Phase(name)
	if err != nil {
		return name
	}
	return mechanism.PhaseName(phase)
}
