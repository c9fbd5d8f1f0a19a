package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/autotune/internal/telemetry"
)

func TestCollectorTotals(t *testing.T) {
	ctx := context.Background()
	c, m, err := telemetry.NewCollector()
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	m.Evaluation(ctx, telemetry.OutcomeCompleted, 1.5)
	m.Evaluation(ctx, telemetry.OutcomeCompleted, 2.5)
	m.Evaluation(ctx, telemetry.OutcomeTimeout, 10)
	m.Duplicate(ctx)
	m.Duplicate(ctx)
	m.Configuration(ctx, false)
	m.CircuitBreak(ctx)

	totals, err := c.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, totals["autotune.evaluations{outcome=completed}"])
	assert.Equal(t, 1.0, totals["autotune.evaluations{outcome=timeout}"])
	assert.Equal(t, 4.0, totals["autotune.evaluation.duration{outcome=completed}.sum"])
	assert.Equal(t, 2.0, totals["autotune.evaluation.duration{outcome=completed}.count"])
	assert.Equal(t, 2.0, totals[telemetry.DuplicatesName])
	assert.Equal(t, 1.0, totals["autotune.configurations{complete=false}"])
	assert.Equal(t, 1.0, totals[telemetry.CircuitBreaksName])
}

func TestNopRecordsNothing(t *testing.T) {
	m := telemetry.Nop()
	require.NotNil(t, m)
	m.Evaluation(context.Background(), telemetry.OutcomePenalized, 1)
	m.Duplicate(context.Background())
}
