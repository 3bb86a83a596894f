package storage

// dataset.go — ingesta y carga del histórico (mercados, apuestas, wallets).

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/methods"
)

// SaveMarkets hace upsert de los mercados. created_at no se sobreescribe.
func (s *SQLiteStorage) SaveMarkets(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveMarkets: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO markets (id, title, description, created_at, end_date, resolved, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			end_date    = excluded.end_date,
			resolved    = excluded.resolved,
			outcome     = excluded.outcome
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveMarkets: prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range markets {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("storage.SaveMarkets: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Title, m.Description, ts(m.CreatedAt), ts(m.EndDate),
			boolInt(m.Resolved), string(m.Outcome),
		); err != nil {
			return fmt.Errorf("storage.SaveMarkets: upsert %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveMarkets: commit: %w", err)
	}
	return nil
}

// SaveBets inserta las apuestas ignorando duplicados (mismo mercado, wallet,
// lado, cantidad y timestamp). El id lo asigna la base de datos.
func (s *SQLiteStorage) SaveBets(ctx context.Context, bets []domain.Bet) (int, error) {
	if len(bets) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveBets: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO bets (market_id, wallet, side, amount, odds, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveBets: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bets {
		if !b.Side.Valid() {
			return 0, fmt.Errorf("storage.SaveBets: bet on %s has side %q", b.MarketID, b.Side)
		}
		res, err := stmt.ExecContext(ctx,
			b.MarketID, b.Wallet, string(b.Side), b.Amount, b.Odds, ts(b.Timestamp),
		)
		if err != nil {
			return 0, fmt.Errorf("storage.SaveBets: insert on %s: %w", b.MarketID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.SaveBets: commit: %w", err)
	}
	return inserted, nil
}

// SaveWallets hace upsert de las wallets, incluidos sus flags.
func (s *SQLiteStorage) SaveWallets(ctx context.Context, wallets []domain.Wallet) error {
	if len(wallets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveWallets: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wallets (address, first_seen, total_bets, total_volume, win_rate,
		                     rationality_score, flagged_suspicious, flagged_sandpit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			first_seen         = excluded.first_seen,
			total_bets         = excluded.total_bets,
			total_volume       = excluded.total_volume,
			win_rate           = excluded.win_rate,
			rationality_score  = excluded.rationality_score,
			flagged_suspicious = excluded.flagged_suspicious,
			flagged_sandpit    = excluded.flagged_sandpit
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveWallets: prepare: %w", err)
	}
	defer stmt.Close()

	for _, w := range wallets {
		if _, err := stmt.ExecContext(ctx,
			w.Address, nullTS(w.FirstSeen), w.TotalBets, w.TotalVolume, w.WinRate,
			w.RationalityScore, boolInt(w.FlaggedSuspicious), boolInt(w.FlaggedSandpit),
		); err != nil {
			return fmt.Errorf("storage.SaveWallets: upsert %s: %w", w.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveWallets: commit: %w", err)
	}
	return nil
}

// walletAgg acumula las estadísticas de una wallet durante RefreshWalletStats.
type walletAgg struct {
	firstSeen string
	bets      int
	volume    float64
	round     int
	resolved  int
	wins      int
}

// RefreshWalletStats recalcula las estadísticas de cada wallet desde sus apuestas:
//
//	win_rate    = aciertos / apuestas en mercados resueltos
//	rationality = clamp(win_rate·0.5 + (1 − round_ratio)·0.3 + 0.2, 0, 1)
//
// Los flags se conservan. Devuelve cuántas wallets se actualizaron.
func (s *SQLiteStorage) RefreshWalletStats(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.wallet, b.side, b.amount, b.timestamp, m.resolved, m.outcome
		FROM bets b
		LEFT JOIN markets m ON m.id = b.market_id
		ORDER BY b.wallet, b.timestamp
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.RefreshWalletStats: query: %w", err)
	}

	aggs := make(map[string]*walletAgg)
	var order []string
	for rows.Next() {
		var (
			wallet, side, stamp string
			amount              float64
			resolved            sql.NullInt64
			outcome             sql.NullString
		)
		if err := rows.Scan(&wallet, &side, &amount, &stamp, &resolved, &outcome); err != nil {
			rows.Close()
			return 0, fmt.Errorf("storage.RefreshWalletStats: scan row: %w", err)
		}
		a, ok := aggs[wallet]
		if !ok {
			a = &walletAgg{firstSeen: stamp}
			aggs[wallet] = a
			order = append(order, wallet)
		}
		a.bets++
		a.volume += amount
		if methods.IsRoundAmount(amount) {
			a.round++
		}
		if resolved.Int64 == 1 && domain.Side(outcome.String).Valid() {
			a.resolved++
			if side == outcome.String {
				a.wins++
			}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("storage.RefreshWalletStats: rows: %w", err)
	}
	rows.Close()

	if len(order) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.RefreshWalletStats: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO wallets (address, first_seen, total_bets, total_volume, win_rate, rationality_score)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			first_seen        = excluded.first_seen,
			total_bets        = excluded.total_bets,
			total_volume      = excluded.total_volume,
			win_rate          = excluded.win_rate,
			rationality_score = excluded.rationality_score
	`)
	if err != nil {
		return 0, fmt.Errorf("storage.RefreshWalletStats: prepare: %w", err)
	}
	defer stmt.Close()

	for _, addr := range order {
		a := aggs[addr]
		winRate, rationality := a.scores()
		if _, err := stmt.ExecContext(ctx,
			addr, a.firstSeen, a.bets, a.volume, winRate, rationality,
		); err != nil {
			return 0, fmt.Errorf("storage.RefreshWalletStats: upsert %s: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.RefreshWalletStats: commit: %w", err)
	}
	return len(order), nil
}

func (a *walletAgg) scores() (winRate, rationality float64) {
	if a.resolved > 0 {
		winRate = float64(a.wins) / float64(a.resolved)
	}
	roundRatio := float64(a.round) / float64(a.bets)
	rationality = domain.Clamp(winRate*0.5+(1-roundRatio)*0.3+0.2, 0, 1)
	return winRate, rationality
}

// LoadResolved carga los mercados resueltos con resultado conocido y al menos
// minBets apuestas, sus apuestas ordenadas por timestamp y las wallets que
// apostaron en ellos. Los mercados salen ordenados por created_at.
func (s *SQLiteStorage) LoadResolved(ctx context.Context, minBets int) (domain.Dataset, error) {
	ds := domain.Dataset{
		BetsByMarket: make(map[string][]domain.Bet),
		Wallets:      make(map[string]domain.Wallet),
	}

	mrows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.title, m.description, m.created_at, m.end_date, m.resolved, m.outcome
		FROM markets m
		WHERE m.resolved = 1
		  AND m.outcome IN ('YES', 'NO')
		  AND (SELECT COUNT(*) FROM bets b WHERE b.market_id = m.id) >= ?
		ORDER BY m.created_at, m.id
	`, minBets)
	if err != nil {
		return ds, fmt.Errorf("storage.LoadResolved: query markets: %w", err)
	}
	for mrows.Next() {
		var (
			m                 domain.Market
			title, desc       sql.NullString
			created, end, out string
			resolved          int
		)
		if err := mrows.Scan(&m.ID, &title, &desc, &created, &end, &resolved, &out); err != nil {
			mrows.Close()
			return ds, fmt.Errorf("storage.LoadResolved: scan market: %w", err)
		}
		m.Title = title.String
		m.Description = desc.String
		m.CreatedAt = parseTS(created)
		m.EndDate = parseTS(end)
		m.Resolved = resolved == 1
		m.Outcome = domain.Side(out)
		ds.Markets = append(ds.Markets, m)
	}
	if err := mrows.Err(); err != nil {
		mrows.Close()
		return ds, fmt.Errorf("storage.LoadResolved: markets: %w", err)
	}
	mrows.Close()

	if len(ds.Markets) == 0 {
		return ds, nil
	}
	loaded := make(map[string]bool, len(ds.Markets))
	for _, m := range ds.Markets {
		loaded[m.ID] = true
	}

	brows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.market_id, b.wallet, b.side, b.amount, b.odds, b.timestamp
		FROM bets b
		JOIN markets m ON m.id = b.market_id
		WHERE m.resolved = 1
		ORDER BY b.market_id, b.timestamp, b.id
	`)
	if err != nil {
		return ds, fmt.Errorf("storage.LoadResolved: query bets: %w", err)
	}
	seen := make(map[string]bool)
	for brows.Next() {
		var b domain.Bet
		var side, stamp string
		if err := brows.Scan(&b.ID, &b.MarketID, &b.Wallet, &side, &b.Amount, &b.Odds, &stamp); err != nil {
			brows.Close()
			return ds, fmt.Errorf("storage.LoadResolved: scan bet: %w", err)
		}
		if !loaded[b.MarketID] {
			continue
		}
		b.Side = domain.Side(side)
		b.Timestamp = parseTS(stamp)
		ds.BetsByMarket[b.MarketID] = append(ds.BetsByMarket[b.MarketID], b)
		seen[b.Wallet] = true
	}
	if err := brows.Err(); err != nil {
		brows.Close()
		return ds, fmt.Errorf("storage.LoadResolved: bets: %w", err)
	}
	brows.Close()

	wrows, err := s.db.QueryContext(ctx, `
		SELECT address, first_seen, total_bets, total_volume, win_rate,
		       rationality_score, flagged_suspicious, flagged_sandpit
		FROM wallets
	`)
	if err != nil {
		return ds, fmt.Errorf("storage.LoadResolved: query wallets: %w", err)
	}
	defer wrows.Close()
	for wrows.Next() {
		var (
			w                   domain.Wallet
			firstSeen           sql.NullString
			suspicious, sandpit int
		)
		if err := wrows.Scan(
			&w.Address, &firstSeen, &w.TotalBets, &w.TotalVolume, &w.WinRate,
			&w.RationalityScore, &suspicious, &sandpit,
		); err != nil {
			return ds, fmt.Errorf("storage.LoadResolved: scan wallet: %w", err)
		}
		if !seen[w.Address] {
			continue
		}
		w.FirstSeen = parseNullTS(firstSeen)
		w.FlaggedSuspicious = suspicious == 1
		w.FlaggedSandpit = sandpit == 1
		ds.Wallets[w.Address] = w
	}
	return ds, wrows.Err()
}
