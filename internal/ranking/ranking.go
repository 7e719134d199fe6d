/*
PURPOSE:
  Ranks the reactions of one mechanism by their normalized importance weight and supports
  the edits the reduction loop needs: minimum selection, removal by identity, duplicate
  bookkeeping and serialization back into reaction definitions.

REQUIREMENTS:
  User-specified:
  - An equation may map to more than one entry (duplicate reactions).
  - The minimum-weight entry is removed individually, not every entry of its equation.
  - A reaction left alone under its equation must not keep the duplicate marker.

  Implementation-discovered:
  - Ties on the minimum weight are resolved by the lowest position in the mechanism
    that produced the ranking, which keeps runs reproducible.
  - Equations are compared in canonical form (NFC, collapsed whitespace).

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine (reducer)
  - Uses: internal/mechanism

ERROR HANDLING:
  - FromResult fails when the weight vector does not line up with the reactions.
  - Without fails when the entry is not part of the ranking.

IMPLEMENTATION RULES:
  - Rankings are values: Without returns a new ranking and leaves the receiver intact.

USAGE:
  r, err := ranking.FromResult(doc, result.Weights)
  min, _ := r.Min()
  next, err := r.Without(min)
  defs := next.Definitions()

SELF-HEALING INSTRUCTIONS:
  - If duplicate handling misbehaves, check Canonical() against the evaluator's equation text.

RELATED FILES:
  - internal/ranking/weights.go
  - internal/engine/reducer.go

MAINTENANCE:
  - Update Canonical() if the mechanism format starts emitting equations in another notation.
*/

package ranking

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/daryltucker/flame-speed/internal/mechanism"
)

// ErrUnknownEntry is returned when an entry does not belong to a ranking.
var ErrUnknownEntry = errors.New("entry not in ranking")

// Entry is one reaction definition with its importance weight.
type Entry struct {
	// Equation is the canonical equation.
	Equation string
	// Definition is the serialized reaction, as consumed by mechanism.Build.
	Definition string
	// Weight is the normalized peak net rate of progress in [0,1].
	Weight float64
	// Index is the position of the reaction in the mechanism the ranking was built from.
	Index int
}

// Ranking is an ordered set of entries keyed by canonical equation.
type Ranking struct {
	entries    []Entry
	byEquation map[string][]int
}

// Canonical returns the canonical form of a reaction equation.
func Canonical(equation string) string {
	return strings.Join(strings.Fields(norm.NFC.String(equation)), " ")
}

// FromResult builds a ranking from a mechanism and one weight per reaction.
func FromResult(doc *mechanism.Document, weights []float64) (*Ranking, error) {
	if len(weights) != len(doc.Reactions) {
		return nil, fmt.Errorf("weights for %d reactions, mechanism has %d", len(weights), len(doc.Reactions))
	}
	defs, err := doc.ReactionDefs()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(doc.Reactions))
	for i, r := range doc.Reactions {
		entries[i] = Entry{
			Equation:   Canonical(mechanism.Equation(r)),
			Definition: defs[i],
			Weight:     weights[i],
			Index:      i,
		}
	}
	return New(entries), nil
}

// New builds a ranking from entries, in the given order.
func New(entries []Entry) *Ranking {
	r := &Ranking{
		entries:    append([]Entry(nil), entries...),
		byEquation: make(map[string][]int, len(entries)),
	}
	for i, e := range r.entries {
		r.byEquation[e.Equation] = append(r.byEquation[e.Equation], i)
	}
	return r
}

// Len returns the number of entries.
func (r *Ranking) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the entries in ranking order.
func (r *Ranking) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Lookup returns every entry declared under an equation.
func (r *Ranking) Lookup(equation string) []Entry {
	idx := r.byEquation[Canonical(equation)]
	out := make([]Entry, len(idx))
	for i, j := range idx {
		out[i] = r.entries[j]
	}
	return out
}

// Min returns the entry with the smallest weight. Ties go to the entry seen first and NaN
// weights only win when every weight is NaN.
func (r *Ranking) Min() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	best := 0
	for i := 1; i < len(r.entries); i++ {
		w, b := r.entries[i].Weight, r.entries[best].Weight
		if w < b || (math.IsNaN(b) && !math.IsNaN(w)) {
			best = i
		}
	}
	return r.entries[best], true
}

// Without returns a new ranking lacking the given entry. When exactly one entry is left
// under the same equation, its duplicate marker is cleared.
func (r *Ranking) Without(target Entry) (*Ranking, error) {
	pos := r.position(target)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, target.Equation)
	}

	siblings := 0
	for _, j := range r.byEquation[target.Equation] {
		if j != pos {
			siblings++
		}
	}

	kept := make([]Entry, 0, len(r.entries)-1)
	for i, e := range r.entries {
		if i == pos {
			continue
		}
		if siblings == 1 && e.Equation == target.Equation {
			def, err := mechanism.ClearDuplicate(e.Definition)
			if err != nil {
				return nil, fmt.Errorf("clear duplicate on %s: %w", e.Equation, err)
			}
			e.Definition = def
		}
		kept = append(kept, e)
	}
	return New(kept), nil
}

// Definitions returns the serialized reactions in ranking order.
func (r *Ranking) Definitions() []string {
	defs := make([]string, len(r.entries))
	for i, e := range r.entries {
		defs[i] = e.Definition
	}
	return defs
}

func (r *Ranking) position(target Entry) int {
	for _, j := range r.byEquation[target.Equation] {
		e := r.entries[j]
		if e.Index == target.Index && e.Definition == target.Definition {
			return j
		}
	}
	return -1
}

// Duplicates returns the equations declared by more than one entry, in ranking order.
func (r *Ranking) Duplicates() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range r.entries {
		if seen[e.Equation] || len(r.byEquation[e.Equation]) < 2 {
			continue
		}
		seen[e.Equation] = true
		out = append(out, e.Equation)
	}
	return out
}
