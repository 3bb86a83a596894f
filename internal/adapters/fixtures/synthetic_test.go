package fixtures_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/oraclebot/internal/adapters/fixtures"
	"github.com/alejandrodnm/oraclebot/internal/domain"
)

func smallConfig() fixtures.Config {
	cfg := fixtures.DefaultConfig()
	cfg.Markets = 20
	cfg.BetsPerMarket = 30
	cfg.Wallets = 60
	return cfg
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := fixtures.Generate(smallConfig())
	require.NoError(t, err)
	b, err := fixtures.Generate(smallConfig())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := smallConfig()
	other.Seed = 7
	c, err := fixtures.Generate(other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Markets[0].ID, c.Markets[0].ID)
}

func TestGenerate_Invariants(t *testing.T) {
	syn, err := fixtures.Generate(smallConfig())
	require.NoError(t, err)

	require.Len(t, syn.Markets, 20)
	assert.Len(t, syn.Wallets, 60)

	markets := make(map[string]domain.Market)
	for _, m := range syn.Markets {
		require.NoError(t, m.Validate())
		assert.Positive(t, m.Lifespan())
		markets[m.ID] = m
	}
	assert.Len(t, markets, 20, "market ids are unique")

	wallets := make(map[string]bool)
	for _, w := range syn.Wallets {
		wallets[w.Address] = true
	}

	for _, b := range syn.Bets {
		m, ok := markets[b.MarketID]
		require.True(t, ok)
		assert.True(t, b.Side.Valid())
		assert.Positive(t, b.Amount)
		assert.GreaterOrEqual(t, b.Odds, 0.0)
		assert.LessOrEqual(t, b.Odds, 1.0)
		assert.False(t, b.Timestamp.Before(m.CreatedAt))
		assert.False(t, b.Timestamp.After(m.EndDate))
		assert.True(t, wallets[b.Wallet])
	}
}

func TestGenerate_Dataset(t *testing.T) {
	syn, err := fixtures.Generate(smallConfig())
	require.NoError(t, err)

	ds := syn.Dataset()
	assert.Len(t, ds.Markets, 20)
	assert.Equal(t, len(syn.Bets), ds.TotalBets())
	for id, bets := range ds.BetsByMarket {
		for i := 1; i < len(bets); i++ {
			assert.False(t, bets[i].Timestamp.Before(bets[i-1].Timestamp), id)
		}
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Markets = 0
	_, err := fixtures.Generate(cfg)
	assert.Error(t, err)

	cfg = smallConfig()
	cfg.InsiderShare, cfg.EmotionalShare = 0.6, 0.6
	_, err = fixtures.Generate(cfg)
	assert.Error(t, err)
}

type memWriter struct {
	markets   []domain.Market
	bets      []domain.Bet
	wallets   []domain.Wallet
	refreshed bool
}

func (w *memWriter) SaveMarkets(_ context.Context, m []domain.Market) error {
	w.markets = append(w.markets, m...)
	return nil
}

func (w *memWriter) SaveBets(_ context.Context, b []domain.Bet) (int, error) {
	w.bets = append(w.bets, b...)
	return len(b), nil
}

func (w *memWriter) SaveWallets(_ context.Context, ws []domain.Wallet) error {
	w.wallets = append(w.wallets, ws...)
	return nil
}

func (w *memWriter) RefreshWalletStats(_ context.Context) (int, error) {
	w.refreshed = true
	return len(w.wallets), nil
}

func TestSeed_WritesEverything(t *testing.T) {
	w := &memWriter{}
	stats, err := fixtures.Seed(context.Background(), w, smallConfig())
	require.NoError(t, err)

	assert.Equal(t, 20, stats.Markets)
	assert.Equal(t, len(w.bets), stats.Bets)
	assert.Equal(t, stats.Bets, stats.NewBets)
	assert.Equal(t, 60, stats.Wallets)
	assert.True(t, w.refreshed)
}
