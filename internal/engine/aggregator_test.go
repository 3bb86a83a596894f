package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/methods"
)

func TestAggregate_EmptyOrZeroWeight(t *testing.T) {
	s, c := Aggregate(nil)
	assert.Equal(t, 0.0, s)
	assert.Equal(t, 0.0, c)

	s, c = Aggregate([]domain.MethodResult{{Signal: 1, Confidence: 0}, {Signal: -1, Confidence: 0}})
	assert.Equal(t, 0.0, s)
	assert.Equal(t, 0.0, c)
}

func TestAggregate_ConfidenceWeighted(t *testing.T) {
	s, c := Aggregate([]domain.MethodResult{
		{Signal: 1, Confidence: 0.5},
		{Signal: -1, Confidence: 0.25},
	})
	assert.InDelta(t, 1.0/3, s, 1e-9)
	assert.InDelta(t, 0.375, c, 1e-9)
}

func TestRunChain_FilterReplacesCursor(t *testing.T) {
	m := market("m1", 0, domain.SideYes)
	bets := visibleBets(m, 6, domain.SideYes, 0.5)

	var seen []int
	r := methods.NewRegistry()
	require.NoError(t, r.Register("KEEP2", "F", "", func(_ domain.Market, b []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
		seen = append(seen, len(b))
		return domain.MethodResult{Signal: 1, Confidence: 1, FilteredBets: b[:2]}, nil
	}))
	require.NoError(t, r.Register("EMPTY", "F", "", func(_ domain.Market, b []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
		seen = append(seen, len(b))
		return domain.MethodResult{Signal: 1, Confidence: 1}, nil
	}))
	require.NoError(t, r.Register("COUNT", "F", "", func(_ domain.Market, b []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
		seen = append(seen, len(b))
		return domain.MethodResult{Signal: 1, Confidence: 1, FilteredBets: b}, nil
	}))

	out := RunChain(r, domain.NewCombo("COUNT", "KEEP2", "EMPTY", "COUNT"), m, bets, domain.WalletView{})
	// COUNT aparece una vez porque el combo deduplica
	assert.Equal(t, []int{6, 6, 2}, seen)
	assert.Len(t, out.Bets, 2)
	assert.Len(t, out.Results, 3)
}

func TestRunChain_OrderMatters(t *testing.T) {
	m := market("m1", 0, domain.SideYes)
	bets := visibleBets(m, 6, domain.SideYes, 0.5)

	var seen []int
	r := methods.NewRegistry()
	require.NoError(t, r.Register("KEEP2", "F", "", func(_ domain.Market, b []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
		return domain.MethodResult{Signal: 1, Confidence: 1, FilteredBets: b[:2]}, nil
	}))
	require.NoError(t, r.Register("COUNT", "F", "", func(_ domain.Market, b []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
		seen = append(seen, len(b))
		return domain.MethodResult{Signal: 1, Confidence: 1}, nil
	}))

	RunChain(r, domain.NewCombo("KEEP2", "COUNT"), m, bets, domain.WalletView{})
	RunChain(r, domain.NewCombo("COUNT", "KEEP2"), m, bets, domain.WalletView{})
	assert.Equal(t, []int{2, 6}, seen)
}

func TestRunChain_FailuresDoNotAbort(t *testing.T) {
	r := testRegistry(t)
	m := market("m1", 0, domain.SideYes)
	bets := visibleBets(m, 6, domain.SideYes, 0.9)

	out := RunChain(r, domain.NewCombo("FAIL", "PANIC", "YES"), m, bets, domain.WalletView{})
	assert.Equal(t, []string{"FAIL", "PANIC"}, out.Failed)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 1.0, out.Results[0].Signal)
}

func TestCallMethod_RecoversPanic(t *testing.T) {
	_, err := callMethod(panicking, domain.Market{}, nil, domain.WalletView{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector exploded")

	_, err = callMethod(failing, domain.Market{}, nil, domain.WalletView{})
	assert.EqualError(t, err, "boom")
}
