package ports

import (
	"context"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// ResultStore persiste los resultados de backtest de cada combo.
type ResultStore interface {
	// Upsert guarda el resultado. Si ya existe el combo_id solo se reemplaza
	// cuando el nuevo fitness es mayor o igual: la fila siempre es el máximo.
	Upsert(ctx context.Context, r domain.ComboResult) error

	// QueryTop devuelve los n mejores resultados por fitness descendente.
	QueryTop(ctx context.Context, n int) ([]domain.ComboResult, error)

	// Prune borra todo excepto los keep mejores y devuelve cuántas filas borró.
	Prune(ctx context.Context, keep int) (int, error)
}

// RunRecorder guarda el historial de runs y las validaciones holdout.
type RunRecorder interface {
	SaveRun(ctx context.Context, r domain.RunRecord) error
	FinishRun(ctx context.Context, r domain.RunRecord) error
	SaveHoldout(ctx context.Context, h domain.HoldoutResult) error

	// LatestHoldout devuelve las validaciones del último run que registró alguna.
	LatestHoldout(ctx context.Context) ([]domain.HoldoutResult, error)
}
