package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/daryltucker/flame-speed/internal/mechanism"
	"github.com/daryltucker/flame-speed/internal/model"
)

// flameFunc returns the flame speed and one net rate per reaction of doc.
type flameFunc func(doc *mechanism.Document, cond model.Conditions) (float64, []float64, error)

type fakeSolver struct {
	mu      sync.Mutex
	flame   flameFunc
	reject  func(doc *mechanism.Document) error
	// block makes Flame wait for its context when it returns true.
	block   func(doc *mechanism.Document) bool
	zst     float64
	built   []*mechanism.Document
	flames  int
	created int
	closed  int
}

func (s *fakeSolver) NewChemistry(_ context.Context, doc *mechanism.Document, _, _ string) (Chemistry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject != nil {
		if err := s.reject(doc); err != nil {
			return nil, &StructuralError{Err: err}
		}
	}
	s.built = append(s.built, doc)
	s.created++
	return &fakeChemistry{solver: s, doc: doc}, nil
}

func (s *fakeSolver) flameCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flames
}

type fakeChemistry struct {
	solver *fakeSolver
	doc    *mechanism.Document
}

func (c *fakeChemistry) NumSpecies() int   { return len(c.doc.Species) }
func (c *fakeChemistry) NumReactions() int { return len(c.doc.Reactions) }

func (c *fakeChemistry) MixtureFraction(_ context.Context, _, _ string, phi float64) (float64, error) {
	return c.solver.zst * phi, nil
}

func (c *fakeChemistry) Equilibrate(context.Context, model.Conditions) (Equilibrium, error) {
	return Equilibrium{Temperature: 2225}, nil
}

func (c *fakeChemistry) Flame(ctx context.Context, cond model.Conditions) (FlameProfile, error) {
	c.solver.mu.Lock()
	c.solver.flames++
	c.solver.mu.Unlock()

	if c.solver.block != nil && c.solver.block(c.doc) {
		<-ctx.Done()
		return FlameProfile{}, ctx.Err()
	}

	speed, rates, err := c.solver.flame(c.doc, cond)
	if err != nil {
		return FlameProfile{}, err
	}
	return FlameProfile{
		Converged:   true,
		Grid:        []float64{0, 0.01, 0.02},
		Temperature: []float64{300, 2200, 2150},
		Velocity:    []float64{speed, 2.1, 2.2},
		NetRates:    [][]float64{rates},
	}, nil
}

func (c *fakeChemistry) Close(context.Context) error {
	c.solver.mu.Lock()
	defer c.solver.mu.Unlock()
	c.solver.closed++
	return nil
}

// byEquation assigns rates by equation, in document order.
func byEquation(doc *mechanism.Document, weights map[string]float64) []float64 {
	rates := make([]float64, len(doc.Reactions))
	for i, r := range doc.Reactions {
		rates[i] = weights[mechanism.Equation(r)]
	}
	return rates
}

// rejectLoneDuplicates mimics a solver refusing a duplicate marker without a partner.
func rejectLoneDuplicates(doc *mechanism.Document) error {
	count := map[string]int{}
	for _, r := range doc.Reactions {
		count[mechanism.Equation(r)]++
	}
	for _, r := range doc.Reactions {
		if mechanism.IsDuplicate(r) && count[mechanism.Equation(r)] < 2 {
			return fmt.Errorf("no duplicate found for declared duplicate reaction %q", mechanism.Equation(r))
		}
	}
	return nil
}

// mechanismYAML builds a small mechanism with the given equations.
func mechanismYAML(equations ...string) string {
	var b strings.Builder
	b.WriteString(`units: {length: cm, time: s, quantity: mol, activation-energy: cal/mol}
phases:
- name: gas
  thermo: ideal-gas
  elements: [O, H, N]
  species: [H2, H, O, O2, OH, N2]
  kinetics: gas
  transport: mixture-averaged
  state: {T: 300.0, P: 1 atm}
species:
- name: H2
- name: H
- name: O
- name: O2
- name: OH
- name: N2
`)
	if len(equations) == 0 {
		b.WriteString("reactions: []\n")
		return b.String()
	}
	b.WriteString("reactions:\n")
	for i, eq := range equations {
		fmt.Fprintf(&b, "- equation: %s\n  rate-constant: {A: %d.0e+12, b: 0.0, Ea: 0.0}\n", eq, i+1)
	}
	return b.String()
}

func parseMechanism(text string) *mechanism.Document {
	doc, err := mechanism.Parse([]byte(text))
	if err != nil {
		panic(err)
	}
	return doc
}

func equations(doc *mechanism.Document) []string {
	out := make([]string, len(doc.Reactions))
	for i, r := range doc.Reactions {
		out[i] = mechanism.Equation(r)
	}
	return out
}
