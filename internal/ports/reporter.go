package ports

import (
	"context"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// Reporter presenta los resultados del optimizador al usuario.
type Reporter interface {
	// Report muestra el resumen de un run: finalistas por tier y validación holdout.
	Report(ctx context.Context, report domain.RunReport) error

	// ReportTop muestra una tabla de combos ordenada por fitness.
	ReportTop(ctx context.Context, results []domain.ComboResult) error
}
