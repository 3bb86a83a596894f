package storage

// sqlite.go — persistencia del dataset histórico y de los resultados del optimizador.
//
// Tablas:
//   - `markets`, `bets`, `wallets`: el dataset sobre el que se hace backtest.
//     `bets` tiene un índice único que descarta duplicados al reingestar.
//   - `method_results`: UNA fila por combo_id con el mejor fitness visto (UPSERT condicional).
//   - `runs` y `holdout_validation`: historial de runs y su validación fuera de muestra.
//
// Los timestamps se guardan como texto UTC de ancho fijo, así ORDER BY sobre
// la columna es orden cronológico.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS markets (
    id          TEXT PRIMARY KEY,
    title       TEXT,
    description TEXT,
    created_at  TEXT    NOT NULL,
    end_date    TEXT    NOT NULL,
    resolved    INTEGER NOT NULL DEFAULT 0,
    outcome     TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS bets (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id TEXT NOT NULL,
    wallet    TEXT NOT NULL,
    side      TEXT NOT NULL,
    amount    REAL NOT NULL,
    odds      REAL NOT NULL,
    timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS wallets (
    address            TEXT PRIMARY KEY,
    first_seen         TEXT,
    total_bets         INTEGER NOT NULL DEFAULT 0,
    total_volume       REAL    NOT NULL DEFAULT 0,
    win_rate           REAL    NOT NULL DEFAULT 0,
    rationality_score  REAL    NOT NULL DEFAULT 0,
    flagged_suspicious INTEGER NOT NULL DEFAULT 0,
    flagged_sandpit    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS method_results (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    combo_id            TEXT    NOT NULL UNIQUE,
    methods_used        TEXT    NOT NULL,
    accuracy            REAL    NOT NULL DEFAULT 0,
    edge_vs_market      REAL    NOT NULL DEFAULT 0,
    false_positive_rate REAL    NOT NULL DEFAULT 0,
    complexity          INTEGER NOT NULL DEFAULT 0,
    fitness_score       REAL    NOT NULL DEFAULT 0,
    markets_evaluated   INTEGER NOT NULL DEFAULT 0,
    tier                INTEGER NOT NULL DEFAULT 0,
    tested_at           TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    run_id          TEXT PRIMARY KEY,
    started_at      TEXT    NOT NULL,
    finished_at     TEXT,
    status          TEXT    NOT NULL,
    train_markets   INTEGER NOT NULL DEFAULT 0,
    holdout_markets INTEGER NOT NULL DEFAULT 0,
    evaluated       INTEGER NOT NULL DEFAULT 0,
    best_combo_id   TEXT,
    best_fitness    REAL    NOT NULL DEFAULT 0,
    error           TEXT
);

CREATE TABLE IF NOT EXISTS holdout_validation (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id           TEXT    NOT NULL,
    combo_id         TEXT    NOT NULL,
    train_markets    INTEGER NOT NULL DEFAULT 0,
    holdout_markets  INTEGER NOT NULL DEFAULT 0,
    train_fitness    REAL    NOT NULL DEFAULT 0,
    holdout_fitness  REAL    NOT NULL DEFAULT 0,
    holdout_accuracy REAL    NOT NULL DEFAULT 0,
    validated_at     TEXT    NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bets_unique  ON bets(market_id, wallet, side, amount, timestamp);
CREATE INDEX IF NOT EXISTS idx_bets_market         ON bets(market_id);
CREATE INDEX IF NOT EXISTS idx_bets_wallet         ON bets(wallet);
CREATE INDEX IF NOT EXISTS idx_results_fitness     ON method_results(fitness_score DESC);
CREATE INDEX IF NOT EXISTS idx_holdout_run         ON holdout_validation(run_id);
`

// tsLayout es de ancho fijo para que el orden lexicográfico sea cronológico.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteStorage implementa ResultStore, RunRecorder, DatasetProvider y
// DatasetWriter usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Counts devuelve el número de mercados, apuestas y wallets almacenados.
func (s *SQLiteStorage) Counts(ctx context.Context) (markets, bets, wallets int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM markets),
		       (SELECT COUNT(*) FROM bets),
		       (SELECT COUNT(*) FROM wallets)
	`).Scan(&markets, &bets, &wallets)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("storage.Counts: %w", err)
	}
	return markets, bets, wallets, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// nullTS devuelve nil para el tiempo cero, así la columna queda NULL.
func nullTS(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return ts(t)
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func parseNullTS(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTS(s.String)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
