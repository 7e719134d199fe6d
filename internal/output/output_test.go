package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/flame-speed/internal/model"
)

type nopCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestCSVWriterReport(t *testing.T) {
	buf := &nopCloser{}
	w, err := NewCSVWriter(buf, 212)
	require.NoError(t, err)

	require.NoError(t, w.Write(model.SweepPoint{
		MixtureFraction:  0.055,
		EquivalenceRatio: 1,
		Reduced: model.FlameResult{
			Speed:                 0.25,
			AdiabaticTemperature:  2225,
			PeakTemperature:       2200,
			PeakTemperatureOffset: 0.0125,
		},
		Complete: model.FlameResult{
			Speed:                 0.5,
			AdiabaticTemperature:  2226,
			PeakTemperature:       2201,
			PeakTemperatureOffset: 0.01,
		},
	}))
	require.NoError(t, w.Write(model.SweepPoint{
		MixtureFraction:  0.2,
		EquivalenceRatio: 3.6,
		Reduced:          model.FailedResult(errors.New("no convergence")),
		Complete:         model.FailedResult(errors.New("no convergence")),
	}))
	require.NoError(t, w.Close())
	assert.True(t, buf.closed)

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, ReportHeader(212), rows[0])
	assert.Equal(t, "Flame Speed (reduced mechanism 212) [m/s]", rows[0][2])

	assert.Equal(t, []string{
		"0.055", "1",
		"0.25", "2225", "2200", "0.0125", "0.05",
		"0.5", "2226", "2201", "0.01", "0.02",
		"", "",
	}, rows[1])

	assert.Equal(t, []string{
		"0.2", "3.6",
		"0", "0", "0", "0", "0",
		"0", "0", "0", "0", "0",
		"no convergence", "no convergence",
	}, rows[2])
}

func TestJSONWriterTrace(t *testing.T) {
	buf := &nopCloser{}
	w := NewJSONWriter(buf)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.Observe(model.ReductionStep{RunID: "run", Iteration: 1, Timestamp: ts, Equation: "H + O2 <=> O + OH", Accepted: true})
	w.Observe(model.ReductionStep{RunID: "run", Iteration: 2, Timestamp: ts, Error: "flame evaluation failed"})
	require.NoError(t, w.Close())

	var steps []model.ReductionStep
	sc := bufio.NewScanner(strings.NewReader(buf.String()))
	for sc.Scan() {
		var s model.ReductionStep
		require.NoError(t, json.Unmarshal(sc.Bytes(), &s))
		steps = append(steps, s)
	}
	require.Len(t, steps, 2)
	assert.True(t, steps[0].Accepted)
	assert.Equal(t, "H + O2 <=> O + OH", steps[0].Equation)
	assert.Equal(t, "flame evaluation failed", steps[1].Error)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestConfigureFiltersBelowLevel(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { SetLogger(prev) })

	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "warn"))

	Logger.Info("hidden")
	Logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=v")
}
