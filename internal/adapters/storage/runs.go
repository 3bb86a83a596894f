package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// SaveRun inserta (o reemplaza) la fila de un run.
func (s *SQLiteStorage) SaveRun(ctx context.Context, r domain.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, status, train_markets,
		                  holdout_markets, evaluated, best_combo_id, best_fitness, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at     = excluded.finished_at,
			status          = excluded.status,
			train_markets   = excluded.train_markets,
			holdout_markets = excluded.holdout_markets,
			evaluated       = excluded.evaluated,
			best_combo_id   = excluded.best_combo_id,
			best_fitness    = excluded.best_fitness,
			error           = excluded.error
	`,
		r.RunID, ts(r.StartedAt), nullTS(r.FinishedAt), string(r.Status),
		r.TrainMarkets, r.HoldoutMarkets, r.Evaluated,
		r.BestComboID, r.BestFitness, r.Error,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: %s: %w", r.RunID, err)
	}
	return nil
}

// FinishRun actualiza el run con su estado final. El run debe existir.
func (s *SQLiteStorage) FinishRun(ctx context.Context, r domain.RunRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at   = ?,
			status        = ?,
			evaluated     = ?,
			best_combo_id = ?,
			best_fitness  = ?,
			error         = ?
		WHERE run_id = ?
	`,
		nullTS(r.FinishedAt), string(r.Status), r.Evaluated,
		r.BestComboID, r.BestFitness, r.Error, r.RunID,
	)
	if err != nil {
		return fmt.Errorf("storage.FinishRun: %s: %w", r.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.FinishRun: run %s not found", r.RunID)
	}
	return nil
}

// GetRun devuelve la fila de un run.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (domain.RunRecord, error) {
	var (
		r          domain.RunRecord
		startedAt  string
		finishedAt sql.NullString
		status     string
		bestCombo  sql.NullString
		errText    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, status, train_markets, holdout_markets,
		       evaluated, best_combo_id, best_fitness, error
		FROM runs WHERE run_id = ?
	`, runID).Scan(
		&r.RunID, &startedAt, &finishedAt, &status, &r.TrainMarkets, &r.HoldoutMarkets,
		&r.Evaluated, &bestCombo, &r.BestFitness, &errText,
	)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRun: %s: %w", runID, err)
	}
	r.StartedAt = parseTS(startedAt)
	r.FinishedAt = parseNullTS(finishedAt)
	r.Status = domain.RunStatus(status)
	r.BestComboID = bestCombo.String
	r.Error = errText.String
	return r, nil
}

// SaveHoldout inserta una validación holdout.
func (s *SQLiteStorage) SaveHoldout(ctx context.Context, h domain.HoldoutResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdout_validation (run_id, combo_id, train_markets, holdout_markets,
		                                train_fitness, holdout_fitness, holdout_accuracy, validated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		h.RunID, h.ComboID, h.TrainMarkets, h.HoldoutMarkets,
		h.TrainFitness, h.HoldoutFitness, h.HoldoutAcc, ts(h.ValidatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveHoldout: %s: %w", h.ComboID, err)
	}
	return nil
}

// LatestHoldout devuelve las validaciones del último run que registró alguna,
// ordenadas por fitness holdout desc.
func (s *SQLiteStorage) LatestHoldout(ctx context.Context) ([]domain.HoldoutResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, combo_id, train_markets, holdout_markets,
		       train_fitness, holdout_fitness, holdout_accuracy, validated_at
		FROM holdout_validation
		WHERE run_id = (
			SELECT run_id FROM holdout_validation ORDER BY validated_at DESC, id DESC LIMIT 1
		)
		ORDER BY holdout_fitness DESC, combo_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.LatestHoldout: query: %w", err)
	}
	defer rows.Close()

	var out []domain.HoldoutResult
	for rows.Next() {
		var h domain.HoldoutResult
		var validatedAt string
		if err := rows.Scan(
			&h.RunID, &h.ComboID, &h.TrainMarkets, &h.HoldoutMarkets,
			&h.TrainFitness, &h.HoldoutFitness, &h.HoldoutAcc, &validatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.LatestHoldout: scan row: %w", err)
		}
		h.ValidatedAt = parseTS(validatedAt)
		out = append(out, h)
	}
	return out, rows.Err()
}
