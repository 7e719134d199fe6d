package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/mechanism"
	"github.com/daryltucker/flame-speed/internal/model"
	"github.com/daryltucker/flame-speed/internal/store"
)

func testRunner(s *fakeSolver) (*Runner, *store.FS) {
	cfg := config.DefaultConfig()
	cfg.Mechanism.Phase = "gas"
	cfg.Sweep.Stop = 0.02
	st := store.NewMemory()
	return NewRunner(cfg, s, st), st
}

func TestReduceIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := &fakeSolver{zst: 0.055, flame: speedBySize(map[int]float64{3: 0.40, 2: 0.405, 1: 0.30}, threeWeights)}
	r, st := testRunner(s)
	complete := parseMechanism(mechanismYAML(eqA, eqB, eqC))

	first, err := r.ReduceIfAbsent(ctx, complete)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{eqA, eqC}, equations(first))
	calls := s.flameCalls()
	assert.Positive(t, calls)

	stored, err := st.Read(ctx, "modified_mechanism.yaml")
	require.NoError(t, err)
	want, err := first.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(stored))

	trace, err := st.Read(ctx, "reduction_trace.jsonl")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(trace)), "\n"), 2)

	second, err := r.ReduceIfAbsent(ctx, complete)
	require.NoError(t, err)
	assert.Equal(t, calls, s.flameCalls(), "no evaluator calls when the reduced mechanism exists")
	assert.Equal(t, equations(first), equations(second))
}

func TestReduceIfAbsentSkipsWhenPresent(t *testing.T) {
	ctx := context.Background()
	s := &fakeSolver{flame: func(*mechanism.Document, model.Conditions) (float64, []float64, error) {
		t.Fatal("evaluator must not be called")
		return 0, nil, nil
	}}
	r, st := testRunner(s)
	require.NoError(t, st.Write(ctx, "modified_mechanism.yaml", []byte(mechanismYAML(eqC))))

	doc, err := r.ReduceIfAbsent(ctx, parseMechanism(mechanismYAML(eqA, eqB, eqC)))
	require.NoError(t, err)
	assert.Equal(t, []string{eqC}, equations(doc))
	assert.Zero(t, s.created)
}

func TestReduceIfAbsentInterruptedWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeSolver{zst: 0.055, flame: func(doc *mechanism.Document, _ model.Conditions) (float64, []float64, error) {
		if len(doc.Reactions) == 2 {
			cancel()
		}
		return 0.4, byEquation(doc, threeWeights), nil
	}}
	r, st := testRunner(s)

	_, err := r.ReduceIfAbsent(ctx, parseMechanism(mechanismYAML(eqA, eqB, eqC)))
	assert.ErrorIs(t, err, context.Canceled)

	ok, err := st.Exists(context.Background(), "modified_mechanism.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReduceTimeoutKeepsLastAcceptedMechanism(t *testing.T) {
	ctx := context.Background()
	newSolver := func() *fakeSolver {
		return &fakeSolver{
			zst:   0.055,
			flame: speedBySize(map[int]float64{3: 0.40, 2: 0.405, 1: 0.402}, threeWeights),
			block: func(doc *mechanism.Document) bool { return len(doc.Reactions) == 1 },
		}
	}
	complete := parseMechanism(mechanismYAML(eqA, eqB, eqC))

	r, _ := testRunner(newSolver())
	r.Config.Reduction.Timeout = 50 * time.Millisecond
	red, err := r.reduce(ctx, complete)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, red.Outcome)
	assert.ErrorIs(t, red.Err, context.DeadlineExceeded)
	assert.Equal(t, 1, red.Removed)
	assert.ElementsMatch(t, []string{eqA, eqC}, equations(red.Mechanism))

	r, st := testRunner(newSolver())
	r.Config.Reduction.Timeout = 50 * time.Millisecond
	doc, err := r.ReduceIfAbsent(ctx, complete)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{eqA, eqC}, equations(doc))

	stored, err := st.Read(ctx, "modified_mechanism.yaml")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{eqA, eqC}, equations(parseMechanism(string(stored))))
}

func TestSweepSortsAndRecordsFailures(t *testing.T) {
	ctx := context.Background()
	s := &fakeSolver{zst: 0.0125, flame: func(doc *mechanism.Document, cond model.Conditions) (float64, []float64, error) {
		if cond.MixtureFraction == 0 {
			return 0, nil, errors.New("no fuel")
		}
		return 0.1 * float64(len(doc.Reactions)), byEquation(doc, threeWeights), nil
	}}
	r, _ := testRunner(s)

	complete := parseMechanism(mechanismYAML(eqA, eqB, eqC))
	reduced := parseMechanism(mechanismYAML(eqA, eqC))

	points, err := r.Sweep(ctx, complete, reduced)
	require.NoError(t, err)
	require.Len(t, points, 6)

	var zs []float64
	for _, p := range points {
		zs = append(zs, p.MixtureFraction)
	}
	assert.InDeltaSlice(t, []float64{0, 0.005, 0.01, 0.0125, 0.015, 0.02}, zs, 1e-12)

	assert.True(t, points[0].Reduced.Failed)
	assert.True(t, points[0].Complete.Failed)
	assert.Contains(t, points[0].Complete.Error, "no fuel")

	stoich := points[3]
	assert.InDelta(t, 1.0, stoich.EquivalenceRatio, 1e-12)
	assert.InDelta(t, 0.2, stoich.Reduced.Speed, 1e-12)
	assert.InDelta(t, 0.3, stoich.Complete.Speed, 1e-12)

	assert.Equal(t, s.created, s.closed)
}

func TestWriteReport(t *testing.T) {
	ctx := context.Background()
	r, st := testRunner(&fakeSolver{})

	points := []model.SweepPoint{
		{MixtureFraction: 0, Reduced: model.FailedResult(errors.New("x")), Complete: model.FailedResult(errors.New("x"))},
		{MixtureFraction: 0.055, EquivalenceRatio: 1, Reduced: model.FlameResult{Speed: 0.38}, Complete: model.FlameResult{Speed: 0.38}},
	}
	require.NoError(t, r.WriteReport(ctx, points, 120))

	data, err := st.Read(ctx, "flame_speed_data.csv")
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[0][1], "reduced mechanism 120")
	assert.Equal(t, "0.38", rows[2][2])
}

func TestMixtureFractions(t *testing.T) {
	zs := MixtureFractions(0, 0.20, 0.005)
	require.Len(t, zs, 41)
	assert.Equal(t, 0.0, zs[0])
	assert.InDelta(t, 0.20, zs[40], 1e-12)

	assert.Equal(t, []float64{0.1}, MixtureFractions(0.1, 0.1, 0.005))
	assert.Nil(t, MixtureFractions(0, 0.1, 0))
	assert.Nil(t, MixtureFractions(0.2, 0.1, 0.005))
}

func TestLoadMechanism(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "mech/h2.yaml", []byte(mechanismYAML(eqA, eqB)), 0o644))

	doc, err := LoadMechanism(fsys, "mech/h2.yaml")
	require.NoError(t, err)
	assert.Len(t, doc.Reactions, 2)

	_, err = LoadMechanism(fsys, "mech/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")

	require.NoError(t, util.WriteFile(fsys, "mech/bad.yaml", []byte("reactions: []\n"), 0o644))
	_, err = LoadMechanism(fsys, "mech/bad.yaml")
	assert.Error(t, err)
}

func TestLoadMechanismFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mech.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mechanismYAML(eqA, eqB)), 0o644))

	doc, err := LoadMechanismFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Reactions, 2)

	_, err = LoadMechanismFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
