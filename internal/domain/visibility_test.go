package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func makeMarket(id string, days int, outcome Side) Market {
	return Market{
		ID:        id,
		CreatedAt: t0,
		EndDate:   t0.Add(time.Duration(days) * 24 * time.Hour),
		Resolved:  outcome != "",
		Outcome:   outcome,
	}
}

// betsAtHours crea una apuesta por cada offset en horas desde t0 (en el orden dado).
func betsAtHours(marketID string, hours ...int) []Bet {
	out := make([]Bet, len(hours))
	for i, h := range hours {
		out[i] = Bet{
			MarketID:  marketID,
			Wallet:    "0xw",
			Side:      SideYes,
			Amount:    10,
			Odds:      0.6,
			Timestamp: t0.Add(time.Duration(h) * time.Hour),
		}
	}
	return out
}

func TestVisibleBets_CutoffAndOrder(t *testing.T) {
	m := makeMarket("m1", 10, SideYes) // 240h, corte al 70% = 168h
	bets := betsAtHours("m1", 200, 10, 167, 50, 100, 169)

	visible, reason := VisibleBets(m, bets, DefaultVisibilityConfig())
	require.Equal(t, SkipNone, reason)
	require.Len(t, visible, 4)
	for i := 1; i < len(visible); i++ {
		assert.True(t, visible[i-1].Timestamp.Before(visible[i].Timestamp))
	}
	assert.Equal(t, t0.Add(167*time.Hour), visible[3].Timestamp)
}

func TestVisibleBets_CutoffInclusive(t *testing.T) {
	m := makeMarket("m1", 10, SideYes)
	cfg := DefaultVisibilityConfig()
	cfg.CutoffFraction = 0.5 // 120h

	visible, reason := VisibleBets(m, betsAtHours("m1", 1, 2, 120, 121, 130), cfg)
	require.Equal(t, SkipNone, reason)
	require.Len(t, visible, 3)
	assert.Equal(t, t0.Add(120*time.Hour), visible[2].Timestamp)
}

func TestVisibleBets_NonPositiveLifespan(t *testing.T) {
	m := makeMarket("m1", 0, SideYes)
	_, reason := VisibleBets(m, betsAtHours("m1", 0, 0, 0, 0, 0), DefaultVisibilityConfig())
	assert.Equal(t, SkipLifespan, reason)

	m.EndDate = t0.Add(-time.Hour)
	_, reason = VisibleBets(m, betsAtHours("m1", 0, 0, 0, 0, 0), DefaultVisibilityConfig())
	assert.Equal(t, SkipLifespan, reason)
}

func TestVisibleBets_Minimums(t *testing.T) {
	m := makeMarket("m1", 10, SideNo)
	cfg := DefaultVisibilityConfig()

	_, reason := VisibleBets(m, betsAtHours("m1", 1, 2, 3, 4), cfg)
	assert.Equal(t, SkipTooFewBets, reason)

	_, reason = VisibleBets(m, betsAtHours("m1", 1, 2, 200, 210, 220), cfg)
	assert.Equal(t, SkipTooFewVisible, reason)
}

func TestVisibleBets_Unresolved(t *testing.T) {
	m := makeMarket("m1", 10, "")
	_, reason := VisibleBets(m, betsAtHours("m1", 1, 2, 3, 4, 5), DefaultVisibilityConfig())
	assert.Equal(t, SkipUnresolved, reason)
}

func TestCapRecent(t *testing.T) {
	bets := betsAtHours("m1", 1, 2, 3, 4, 5)
	capped := CapRecent(bets, 2)
	require.Len(t, capped, 2)
	assert.Equal(t, bets[3].Timestamp, capped[0].Timestamp)
	assert.Len(t, CapRecent(bets, 0), 5)
	assert.Len(t, CapRecent(bets, 10), 5)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.InDelta(t, 0.5, Median([]float64{0.9, 0.1, 0.5}), 1e-9)
	assert.InDelta(t, 0.4, Median([]float64{0.6, 0.2, 0.3, 0.5}), 1e-9)
	assert.Equal(t, 0.5, MedianOdds(nil))
}

func TestMarket_Validate(t *testing.T) {
	assert.NoError(t, makeMarket("m", 1, SideYes).Validate())
	bad := makeMarket("m", 1, SideYes)
	bad.Outcome = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMarket)
}

func TestWalletView_RestrictsToBetAddresses(t *testing.T) {
	universe := map[string]Wallet{
		"0xa": {Address: "0xa", RationalityScore: 0.9},
		"0xb": {Address: "0xb", RationalityScore: 0.2},
		"0xc": {Address: "0xc", RationalityScore: 0.5},
	}
	bets := []Bet{{Wallet: "0xb"}, {Wallet: "0xa"}, {Wallet: "0xb"}, {Wallet: "0xunknown"}}

	v := NewWalletView(universe, bets)
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []string{"0xa", "0xb"}, v.Addresses())
	_, ok := v.Get("0xc")
	assert.False(t, ok)
	assert.InDelta(t, 0.9, v.Rationality("0xa", 0.5), 1e-9)
	assert.InDelta(t, 0.5, v.Rationality("0xunknown", 0.5), 1e-9)
}
