package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/methods"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// ---- detectores de prueba ----

func alwaysYes(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	return domain.MethodResult{Signal: 1, Confidence: 1, FilteredBets: bets}, nil
}

func alwaysNo(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	return domain.MethodResult{Signal: -1, Confidence: 1, FilteredBets: bets}, nil
}

// followOdds apuesta por el lado que da la mediana de odds.
func followOdds(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	s := -1.0
	if domain.MedianOdds(bets) > 0.5 {
		s = 1
	}
	return domain.MethodResult{Signal: s, Confidence: 1, FilteredBets: bets}, nil
}

// followVolume apuesta por el lado con más volumen visible.
func followVolume(_ domain.Market, bets []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	var v float64
	for _, b := range bets {
		if b.Side == domain.SideYes {
			v += b.Amount
		} else {
			v -= b.Amount
		}
	}
	s := -1.0
	if v > 0 {
		s = 1
	}
	return domain.MethodResult{Signal: s, Confidence: 1, FilteredBets: bets}, nil
}

func failing(_ domain.Market, _ []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	return domain.MethodResult{}, errors.New("boom")
}

func panicking(_ domain.Market, _ []domain.Bet, _ domain.WalletView) (domain.MethodResult, error) {
	panic("detector exploded")
}

// testRegistry registra detectores de prueba en dos categorías.
func testRegistry(t *testing.T) *methods.Registry {
	t.Helper()
	r := methods.NewRegistry()
	require.NoError(t, r.Register("ODDS", "A", "follow odds", followOdds))
	require.NoError(t, r.Register("YES", "A", "always yes", alwaysYes))
	require.NoError(t, r.Register("NO", "B", "always no", alwaysNo))
	require.NoError(t, r.Register("VOL", "B", "follow volume", followVolume))
	require.NoError(t, r.Register("FAIL", "C", "always fails", failing))
	require.NoError(t, r.Register("PANIC", "C", "always panics", panicking))
	return r
}

func testScorer(t *testing.T, total int) domain.FitnessScorer {
	t.Helper()
	s, err := domain.NewFitnessScorer(domain.DefaultFitnessWeights(total))
	require.NoError(t, err)
	return s
}

func testRunner(t *testing.T, r *methods.Registry) *Runner {
	t.Helper()
	runner, err := NewRunner(DefaultBacktestConfig(), r, testScorer(t, r.Len()))
	require.NoError(t, err)
	return runner
}

// ---- datasets ----

// market crea un mercado de 10 días creado `day` días después de t0.
func market(id string, day int, outcome domain.Side) domain.Market {
	created := t0.Add(time.Duration(day) * 24 * time.Hour)
	return domain.Market{
		ID:        id,
		CreatedAt: created,
		EndDate:   created.Add(240 * time.Hour),
		Resolved:  true,
		Outcome:   outcome,
	}
}

// visibleBets crea n apuestas en las primeras horas del mercado (todas visibles).
func visibleBets(m domain.Market, n int, side domain.Side, odds float64) []domain.Bet {
	out := make([]domain.Bet, n)
	for i := range out {
		out[i] = domain.Bet{
			ID:        int64(i + 1),
			MarketID:  m.ID,
			Wallet:    fmt.Sprintf("0x%s-%d", m.ID, i%3),
			Side:      side,
			Amount:    10,
			Odds:      odds,
			Timestamp: m.CreatedAt.Add(time.Duration(i+1) * time.Hour),
		}
	}
	return out
}

// informativeDataset: n mercados alternando YES/NO; las odds apuntan al resultado.
func informativeDataset(n int) domain.Dataset {
	ds := domain.Dataset{BetsByMarket: map[string][]domain.Bet{}, Wallets: map[string]domain.Wallet{}}
	for i := range n {
		outcome, odds := domain.SideYes, 0.8
		if i%2 == 1 {
			outcome, odds = domain.SideNo, 0.2
		}
		m := market(fmt.Sprintf("m%02d", i), i, outcome)
		ds.Markets = append(ds.Markets, m)
		ds.BetsByMarket[m.ID] = visibleBets(m, 6, domain.SideYes, odds)
	}
	return ds
}

// ---- fakes de los ports ----

type memStore struct {
	mu       sync.Mutex
	results  map[string]domain.ComboResult
	upserts  int
	runs     map[string]domain.RunRecord
	holdouts []domain.HoldoutResult
}

func newMemStore() *memStore {
	return &memStore{results: map[string]domain.ComboResult{}, runs: map[string]domain.RunRecord{}}
}

func (s *memStore) Upsert(_ context.Context, r domain.ComboResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if prev, ok := s.results[r.ComboID]; ok && prev.FitnessScore > r.FitnessScore {
		return nil
	}
	s.results[r.ComboID] = r
	return nil
}

func (s *memStore) all() []domain.ComboResult {
	out := make([]domain.ComboResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	domain.SortByFitness(out)
	return out
}

func (s *memStore) QueryTop(_ context.Context, n int) ([]domain.ComboResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topN(s.all(), n), nil
}

func (s *memStore) Prune(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.all()
	deleted := 0
	for _, r := range all[min(keep, len(all)):] {
		delete(s.results, r.ComboID)
		deleted++
	}
	return deleted, nil
}

func (s *memStore) SaveRun(_ context.Context, r domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.RunID] = r
	return nil
}

func (s *memStore) FinishRun(ctx context.Context, r domain.RunRecord) error {
	return s.SaveRun(ctx, r)
}

func (s *memStore) SaveHoldout(_ context.Context, h domain.HoldoutResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdouts = append(s.holdouts, h)
	return nil
}

func (s *memStore) LatestHoldout(_ context.Context) ([]domain.HoldoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HoldoutResult(nil), s.holdouts...), nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.results))
	for id := range s.results {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type staticDataset struct {
	ds domain.Dataset
}

func (p staticDataset) LoadResolved(_ context.Context, _ int) (domain.Dataset, error) {
	return p.ds, nil
}

type countingReporter struct {
	reports []domain.RunReport
}

func (r *countingReporter) Report(_ context.Context, report domain.RunReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func (r *countingReporter) ReportTop(_ context.Context, _ []domain.ComboResult) error {
	return nil
}
