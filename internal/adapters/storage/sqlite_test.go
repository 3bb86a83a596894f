package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/oraclebot/internal/adapters/storage"
	"github.com/alejandrodnm/oraclebot/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeResult(methods []string, fitness float64) domain.ComboResult {
	c := domain.NewCombo(methods...)
	return domain.ComboResult{
		ComboID:          c.ID(),
		MethodsUsed:      c,
		Accuracy:         0.6,
		EdgeVsMarket:     0.1,
		Complexity:       c.Size(),
		FitnessScore:     fitness,
		MarketsEvaluated: 40,
		Tier:             2,
		TestedAt:         t0,
	}
}

func TestSQLiteStorage_UpsertKeepsBestFitness(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, makeResult([]string{"T17", "S1"}, 0.30)))
	require.NoError(t, db.Upsert(ctx, makeResult([]string{"S1", "T17"}, 0.20)))

	top, err := db.QueryTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "S1,T17", top[0].ComboID)
	assert.InDelta(t, 0.30, top[0].FitnessScore, 1e-9)
	// el orden de ejecución es el de la fila ganadora
	assert.Equal(t, []string{"T17", "S1"}, top[0].MethodsUsed)
	assert.Equal(t, 40, top[0].MarketsEvaluated)
	assert.Equal(t, 2, top[0].Tier)
	assert.True(t, t0.Equal(top[0].TestedAt))

	require.NoError(t, db.Upsert(ctx, makeResult([]string{"S1", "T17"}, 0.30)))
	top, err = db.QueryTop(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "T17"}, top[0].MethodsUsed, "equal fitness replaces the row")
}

func TestSQLiteStorage_QueryTopOrder(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	require.NoError(t, db.Upsert(ctx, makeResult([]string{"E10"}, 0.10)))
	require.NoError(t, db.Upsert(ctx, makeResult([]string{"D5"}, 0.40)))
	require.NoError(t, db.Upsert(ctx, makeResult([]string{"S4"}, 0.25)))
	require.NoError(t, db.Upsert(ctx, makeResult([]string{"D7"}, 0.25)))

	top, err := db.QueryTop(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "D5", top[0].ComboID)
	assert.Equal(t, "D7", top[1].ComboID) // empate: combo_id asc
	assert.Equal(t, "S4", top[2].ComboID)
}

func TestSQLiteStorage_Prune(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	for i, id := range []string{"A", "B", "C", "D", "E"} {
		require.NoError(t, db.Upsert(ctx, makeResult([]string{id}, float64(i)/10)))
	}

	deleted, err := db.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	top, err := db.QueryTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "E", top[0].ComboID)
	assert.Equal(t, "D", top[1].ComboID)

	_, err = db.Prune(ctx, -1)
	assert.Error(t, err)
}

func TestSQLiteStorage_RunLifecycle(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, domain.RunRecord{
		RunID:          "run-a",
		StartedAt:      t0,
		Status:         domain.RunRunning,
		TrainMarkets:   80,
		HoldoutMarkets: 20,
	}))

	run, err := db.GetRun(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, run.Status)
	assert.True(t, run.FinishedAt.IsZero())

	require.NoError(t, db.FinishRun(ctx, domain.RunRecord{
		RunID:       "run-a",
		FinishedAt:  t0.Add(time.Minute),
		Status:      domain.RunCompleted,
		Evaluated:   321,
		BestComboID: "D5,T17",
		BestFitness: 0.41,
	}))

	run, err = db.GetRun(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 80, run.TrainMarkets)
	assert.Equal(t, 321, run.Evaluated)
	assert.Equal(t, "D5,T17", run.BestComboID)
	assert.True(t, t0.Add(time.Minute).Equal(run.FinishedAt))

	assert.Error(t, db.FinishRun(ctx, domain.RunRecord{RunID: "missing"}))
}

func TestSQLiteStorage_LatestHoldout(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	empty, err := db.LatestHoldout(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	save := func(run, combo string, fitness float64, at time.Time) {
		require.NoError(t, db.SaveHoldout(ctx, domain.HoldoutResult{
			RunID: run, ComboID: combo, TrainFitness: 0.3, HoldoutFitness: fitness,
			TrainMarkets: 80, HoldoutMarkets: 20, HoldoutAcc: 0.6, ValidatedAt: at,
		}))
	}
	save("old", "S1", 0.5, t0)
	save("new", "D5", 0.1, t0.Add(time.Hour))
	save("new", "T17", 0.2, t0.Add(time.Hour))

	latest, err := db.LatestHoldout(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "T17", latest[0].ComboID)
	assert.Equal(t, "new", latest[0].RunID)
	assert.InDelta(t, -0.1, latest[0].Gap(), 1e-9)
}

func seedDataset(t *testing.T, db *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	markets := []domain.Market{
		{ID: "m2", CreatedAt: t0.Add(48 * time.Hour), EndDate: t0.Add(96 * time.Hour), Resolved: true, Outcome: domain.SideNo},
		{ID: "m1", CreatedAt: t0, EndDate: t0.Add(48 * time.Hour), Resolved: true, Outcome: domain.SideYes},
		{ID: "open", CreatedAt: t0, EndDate: t0.Add(48 * time.Hour)},
	}
	require.NoError(t, db.SaveMarkets(ctx, markets))

	var bets []domain.Bet
	for _, m := range markets {
		for i := range 6 {
			side := domain.SideYes
			if i%2 == 1 {
				side = domain.SideNo
			}
			amount := 25.0
			if i == 0 {
				amount = 100 // redonda
			}
			bets = append(bets, domain.Bet{
				MarketID:  m.ID,
				Wallet:    fmt.Sprintf("0x%d", i%3),
				Side:      side,
				Amount:    amount,
				Odds:      0.55,
				Timestamp: m.CreatedAt.Add(time.Duration(i+1) * time.Hour),
			})
		}
	}
	n, err := db.SaveBets(ctx, bets)
	require.NoError(t, err)
	require.Equal(t, len(bets), n)
}

func TestSQLiteStorage_SaveBetsIgnoresDuplicates(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	seedDataset(t, db)

	dup := domain.Bet{MarketID: "m1", Wallet: "0x0", Side: domain.SideYes, Amount: 100, Odds: 0.55, Timestamp: t0.Add(time.Hour)}
	n, err := db.SaveBets(ctx, []domain.Bet{dup})
	require.NoError(t, err)
	assert.Zero(t, n)

	markets, bets, _, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, markets)
	assert.Equal(t, 18, bets)

	_, err = db.SaveBets(ctx, []domain.Bet{{MarketID: "m1", Side: "MAYBE"}})
	assert.Error(t, err)
}

func TestSQLiteStorage_SaveMarketsRejectsInvalid(t *testing.T) {
	db := openDB(t)
	err := db.SaveMarkets(context.Background(), []domain.Market{{ID: "x", Resolved: true}})
	assert.ErrorIs(t, err, domain.ErrInvalidMarket)
}

func TestSQLiteStorage_RefreshWalletStats(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	seedDataset(t, db)
	require.NoError(t, db.SaveWallets(ctx, []domain.Wallet{{Address: "0x0", FlaggedSandpit: true}}))

	n, err := db.RefreshWalletStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ds, err := db.LoadResolved(ctx, 5)
	require.NoError(t, err)

	// 0x0 apuesta en i=0 (YES, 100) e i=3 (NO, 25) de cada mercado.
	// Resueltos: m1 YES → 1 acierto; m2 NO → 1 acierto. win = 2/4.
	// Redondas: 3 de 6 (i=0 en los tres mercados).
	w := ds.Wallets["0x0"]
	assert.Equal(t, 6, w.TotalBets)
	assert.InDelta(t, 3*100+3*25, w.TotalVolume, 1e-9)
	assert.InDelta(t, 0.5, w.WinRate, 1e-9)
	assert.InDelta(t, 0.5*0.5+0.5*0.3+0.2, w.RationalityScore, 1e-9)
	assert.True(t, w.FlaggedSandpit, "flags survive a refresh")
	assert.True(t, t0.Add(time.Hour).Equal(w.FirstSeen))
}

func TestSQLiteStorage_LoadResolved(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	seedDataset(t, db)
	_, err := db.RefreshWalletStats(ctx)
	require.NoError(t, err)

	ds, err := db.LoadResolved(ctx, 5)
	require.NoError(t, err)

	require.Len(t, ds.Markets, 2)
	assert.Equal(t, "m1", ds.Markets[0].ID, "ordered by created_at")
	assert.Equal(t, domain.SideNo, ds.Markets[1].Outcome)
	assert.True(t, t0.Equal(ds.Markets[0].CreatedAt))
	assert.NotContains(t, ds.BetsByMarket, "open")

	bets := ds.BetsByMarket["m1"]
	require.Len(t, bets, 6)
	for i := 1; i < len(bets); i++ {
		assert.False(t, bets[i].Timestamp.Before(bets[i-1].Timestamp))
	}
	assert.Positive(t, bets[0].ID)
	assert.Len(t, ds.Wallets, 3)

	ds, err = db.LoadResolved(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, ds.Markets)
}
