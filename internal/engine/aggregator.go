package engine

// aggregator.go — ejecución encadenada de un combo sobre un mercado y
// agregación de las señales de sus detectores.

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/metrics"
)

// MethodSource es lo que el engine necesita del registry de detectores.
type MethodSource interface {
	Get(id string) (domain.Method, bool)
	IDs() []string
	Categories() []string
	ByCategory(category string) []string
	ValidateCombo(c domain.Combo) error
	Len() int
}

// ChainOutcome es el resultado de ejecutar un combo sobre un mercado.
type ChainOutcome struct {
	Results []domain.MethodResult // solo los detectores que no fallaron, en orden
	Failed  []string
	Bets    []domain.Bet // cursor final tras los filtros
}

// RunChain ejecuta los detectores del combo en su orden. Un FilteredBets no
// vacío reemplaza el cursor para los siguientes. Un detector que devuelve error
// o hace panic se registra y se excluye; la cadena continúa.
func RunChain(src MethodSource, combo domain.Combo, market domain.Market, bets []domain.Bet, wallets domain.WalletView) ChainOutcome {
	out := ChainOutcome{
		Results: make([]domain.MethodResult, 0, len(combo)),
		Bets:    bets,
	}
	for _, id := range combo {
		fn, ok := src.Get(id)
		if !ok {
			out.Failed = append(out.Failed, id)
			continue
		}
		res, err := callMethod(fn, market, out.Bets, wallets)
		if err != nil {
			slog.Warn("detector failed",
				"method", id,
				"market_id", market.ID,
				"err", err,
			)
			metrics.RecordDetectorFailure(id)
			out.Failed = append(out.Failed, id)
			continue
		}
		out.Results = append(out.Results, res)
		if len(res.FilteredBets) > 0 {
			out.Bets = res.FilteredBets
		}
	}
	return out
}

// callMethod convierte un panic del detector en error.
func callMethod(fn domain.Method, market domain.Market, bets []domain.Bet, wallets domain.WalletView) (res domain.MethodResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(market, bets, wallets)
}

// Aggregate combina los resultados en una señal y una confianza.
//
//	signal     = Σ(sᵢ·cᵢ) / Σcᵢ   (media ponderada por confianza)
//	confidence = Σcᵢ / n
//
// Sin resultados o con confianza total 0 devuelve (0, 0).
func Aggregate(results []domain.MethodResult) (signal, confidence float64) {
	if len(results) == 0 {
		return 0, 0
	}
	var weight, weighted float64
	for _, r := range results {
		weight += r.Confidence
		weighted += r.Signal * r.Confidence
	}
	if weight == 0 {
		return 0, 0
	}
	signal = domain.Clamp(weighted/weight, -1, 1)
	confidence = domain.Clamp(weight/float64(len(results)), 0, 1)
	return signal, confidence
}
