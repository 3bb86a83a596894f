package storage

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// Upsert guarda el resultado de un combo. Si el combo_id ya existe solo se
// reemplaza cuando el fitness nuevo es mayor o igual: la fila es siempre el máximo.
func (s *SQLiteStorage) Upsert(ctx context.Context, r domain.ComboResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO method_results
			(combo_id, methods_used, accuracy, edge_vs_market, false_positive_rate,
			 complexity, fitness_score, markets_evaluated, tier, tested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(combo_id) DO UPDATE SET
			methods_used        = excluded.methods_used,
			accuracy            = excluded.accuracy,
			edge_vs_market      = excluded.edge_vs_market,
			false_positive_rate = excluded.false_positive_rate,
			complexity          = excluded.complexity,
			fitness_score       = excluded.fitness_score,
			markets_evaluated   = excluded.markets_evaluated,
			tier                = excluded.tier,
			tested_at           = excluded.tested_at
		WHERE excluded.fitness_score >= method_results.fitness_score
	`,
		r.ComboID,
		r.Combo().Key(),
		r.Accuracy,
		r.EdgeVsMarket,
		r.FalsePositiveRate,
		r.Complexity,
		r.FitnessScore,
		r.MarketsEvaluated,
		r.Tier,
		ts(r.TestedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.Upsert: %s: %w", r.ComboID, err)
	}
	return nil
}

// QueryTop devuelve los n mejores combos por fitness desc (combo_id asc en empates).
func (s *SQLiteStorage) QueryTop(ctx context.Context, n int) ([]domain.ComboResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT combo_id, methods_used, accuracy, edge_vs_market, false_positive_rate,
		       complexity, fitness_score, markets_evaluated, tier, tested_at
		FROM method_results
		ORDER BY fitness_score DESC, combo_id ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.QueryTop: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ComboResult
	for rows.Next() {
		var r domain.ComboResult
		var methods, testedAt string
		if err := rows.Scan(
			&r.ComboID,
			&methods,
			&r.Accuracy,
			&r.EdgeVsMarket,
			&r.FalsePositiveRate,
			&r.Complexity,
			&r.FitnessScore,
			&r.MarketsEvaluated,
			&r.Tier,
			&testedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.QueryTop: scan row: %w", err)
		}
		r.MethodsUsed = domain.ParseCombo(methods)
		r.TestedAt = parseTS(testedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune borra todos los resultados excepto los keep mejores.
func (s *SQLiteStorage) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("storage.Prune: keep must be >= 0, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM method_results WHERE id NOT IN (
			SELECT id FROM method_results
			ORDER BY fitness_score DESC, combo_id ASC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.Prune: rows affected: %w", err)
	}
	return int(n), nil
}
