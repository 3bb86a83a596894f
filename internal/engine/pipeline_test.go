package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

func testPipeline(t *testing.T, ds domain.Dataset) (*Pipeline, *memStore, *countingReporter) {
	t.Helper()
	runner := testRunner(t, testRegistry(t))
	store := newMemStore()
	opt, err := NewOptimizer(DefaultOptimizerConfig(), runner, store)
	require.NoError(t, err)

	rep := &countingReporter{}
	p := NewPipeline(DefaultPipelineConfig(), staticDataset{ds: ds}, runner, opt, store, rep)
	p.newRunID = func() string { return "run-1" }
	return p, store, rep
}

func TestPipeline_Run_ValidatesOnHoldout(t *testing.T) {
	p, store, rep := testPipeline(t, informativeDataset(30))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 24, report.TrainMarkets)
	assert.Equal(t, 6, report.HoldoutMarkets)

	require.NotEmpty(t, report.Holdout)
	assert.LessOrEqual(t, len(report.Holdout), DefaultPipelineConfig().ValidateTop)
	assert.Len(t, store.holdouts, len(report.Holdout))

	h := report.Holdout[0]
	assert.Equal(t, "run-1", h.RunID)
	assert.Equal(t, report.Tier3[0].ComboID, h.ComboID)
	assert.Equal(t, 24, h.TrainMarkets)
	assert.Equal(t, 6, h.HoldoutMarkets)
	// las odds informan igual en train y en holdout
	assert.Equal(t, 1.0, h.HoldoutAcc)

	run := store.runs["run-1"]
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, "ODDS", run.BestComboID)
	assert.Empty(t, run.Error)
	assert.False(t, run.FinishedAt.IsZero())

	require.Len(t, rep.reports, 1)
	assert.Equal(t, "run-1", rep.reports[0].RunID)
}

func TestPipeline_Run_SkipsSmallHoldout(t *testing.T) {
	p, store, _ := testPipeline(t, informativeDataset(12))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Holdout)
	assert.Empty(t, store.holdouts)
	assert.Equal(t, domain.RunCompleted, store.runs["run-1"].Status)
}

func TestPipeline_Run_FailsFastWithoutEligibleMarkets(t *testing.T) {
	ds := informativeDataset(20)
	for i := range ds.Markets {
		ds.Markets[i].EndDate = ds.Markets[i].CreatedAt
	}
	p, store, rep := testPipeline(t, ds)

	_, err := p.Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoMarketsEvaluated))
	assert.Empty(t, store.runs)
	assert.Empty(t, rep.reports)
}

func TestPipeline_Run_InsufficientMarkets(t *testing.T) {
	p, store, _ := testPipeline(t, informativeDataset(5))

	_, err := p.Run(context.Background())
	assert.True(t, errors.Is(err, ErrInsufficientMarkets))
	assert.Empty(t, store.runs)
}

func TestPipeline_Run_InterruptedIsRecorded(t *testing.T) {
	p, store, rep := testPipeline(t, informativeDataset(30))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))

	run := store.runs["run-1"]
	assert.Equal(t, domain.RunInterrupted, run.Status)
	assert.Contains(t, run.Error, "context canceled")
	assert.Empty(t, rep.reports)
}
