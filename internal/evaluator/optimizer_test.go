package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogbandwidth/router/internal/routing"
)

func TestOptimizeHumanRateReturnsPolicyWithUnitRangeScore(t *testing.T) {
	records := sampleRecords()

	policy, score, err := Optimize(records, Grid{
		ImmediateThresholds: []float64{0.6, 0.95},
		BatchThresholds:     []float64{0.3, 0.45},
	}, HumanRateObjective())

	require.NoError(t, err)
	require.NotNil(t, policy)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestOptimizeTieBreaksOnFirstEncountered(t *testing.T) {
	records := sampleRecords()

	// An objective that scores every candidate identically: the winner
	// must be the very first candidate enumerated (outermost-to-innermost
	// Grid field order), not merely "a" valid candidate.
	constantObjective := Objective{Name: "constant", Score: func(Report) float64 { return 1.0 }, Minimize: false}

	grid := Grid{
		ImmediateThresholds: []float64{0.6, 0.7, 0.8},
		BatchThresholds:     []float64{0.3, 0.4},
	}

	policy, _, err := Optimize(records, grid, constantObjective)
	require.NoError(t, err)
	assert.Equal(t, 0.6, policy.Thresholds().ImmediateThreshold)
	assert.Equal(t, 0.3, policy.Thresholds().BatchThreshold)
}

func TestOptimizeSkipsInvalidCandidatesWithoutError(t *testing.T) {
	records := sampleRecords()

	// batch_threshold >= immediate_threshold is invalid for every pairing
	// here except the diagonal-avoiding ones; Optimize must skip the
	// invalid combinations rather than fail outright.
	grid := Grid{
		ImmediateThresholds: []float64{0.5},
		BatchThresholds:     []float64{0.5, 0.4},
	}

	policy, _, err := Optimize(records, grid, HumanRateObjective())
	require.NoError(t, err)
	assert.Equal(t, 0.4, policy.Thresholds().BatchThreshold)
}

func TestOptimizeReturnsErrorWhenNoCandidateValidates(t *testing.T) {
	records := sampleRecords()

	grid := Grid{
		ImmediateThresholds: []float64{0.5},
		BatchThresholds:     []float64{0.5},
	}

	_, _, err := Optimize(records, grid, HumanRateObjective())
	require.Error(t, err)
}

func TestOptimizeFallsBackToDefaultsForOmittedKnobs(t *testing.T) {
	records := sampleRecords()

	policy, _, err := Optimize(records, Grid{}, HumanRateObjective())
	require.NoError(t, err)

	assert.Equal(t, routing.DefaultThresholds().ImmediateThreshold, policy.Thresholds().ImmediateThreshold)
	assert.Equal(t, routing.DefaultThresholds().BatchThreshold, policy.Thresholds().BatchThreshold)
}
