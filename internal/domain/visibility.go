package domain

import (
	"fmt"
	"sort"
	"time"
)

// SkipReason explica por qué un mercado no entra en el backtest.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipUnresolved     SkipReason = "unresolved"
	SkipLifespan       SkipReason = "non_positive_lifespan"
	SkipTooFewBets     SkipReason = "too_few_bets"
	SkipTooFewVisible  SkipReason = "too_few_visible_bets"
	SkipAllMethodsFail SkipReason = "all_methods_failed"
)

// VisibilityConfig controla qué parte del historial de un mercado es observable.
type VisibilityConfig struct {
	CutoffFraction float64 // fracción de la vida del mercado visible (0, 1]
	MinTotalBets   int     // mínimo de apuestas totales del mercado
	MinVisibleBets int     // mínimo de apuestas visibles antes del corte
	MaxVisibleBets int     // tope de apuestas recientes que ven los detectores (0 = sin tope)
}

// DefaultVisibilityConfig devuelve 70% de vida, ≥5 apuestas, ≥3 visibles, máx 500.
func DefaultVisibilityConfig() VisibilityConfig {
	return VisibilityConfig{
		CutoffFraction: 0.70,
		MinTotalBets:   5,
		MinVisibleBets: 3,
		MaxVisibleBets: 500,
	}
}

// Validate comprueba los límites de la ventana.
func (c VisibilityConfig) Validate() error {
	if c.CutoffFraction <= 0 || c.CutoffFraction > 1 {
		return fmt.Errorf("cutoff fraction must be in (0,1], got %.3f", c.CutoffFraction)
	}
	if c.MinTotalBets < 0 || c.MinVisibleBets < 0 || c.MaxVisibleBets < 0 {
		return fmt.Errorf("bet minimums must be >= 0")
	}
	return nil
}

// CutoffTime devuelve created + f·lifespan.
func CutoffTime(m Market, fraction float64) time.Time {
	span := float64(m.Lifespan())
	return m.CreatedAt.Add(time.Duration(span * fraction))
}

// VisibleBets devuelve las apuestas con timestamp ≤ corte, ordenadas ascendente.
// Si el mercado no es elegible devuelve nil y el motivo.
func VisibleBets(m Market, bets []Bet, cfg VisibilityConfig) ([]Bet, SkipReason) {
	if !m.HasOutcome() {
		return nil, SkipUnresolved
	}
	if m.Lifespan() <= 0 {
		return nil, SkipLifespan
	}
	if len(bets) < cfg.MinTotalBets {
		return nil, SkipTooFewBets
	}

	cutoff := CutoffTime(m, cfg.CutoffFraction)
	visible := make([]Bet, 0, len(bets))
	for _, b := range bets {
		if !b.Timestamp.After(cutoff) {
			visible = append(visible, b)
		}
	}
	if len(visible) < cfg.MinVisibleBets {
		return nil, SkipTooFewVisible
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Timestamp.Before(visible[j].Timestamp)
	})
	return visible, SkipNone
}

// CapRecent devuelve como mucho las n apuestas más recientes (n <= 0 = sin tope).
// Espera las apuestas ordenadas ascendente.
func CapRecent(bets []Bet, n int) []Bet {
	if n <= 0 || len(bets) <= n {
		return bets
	}
	return bets[len(bets)-n:]
}

// MedianOdds devuelve la mediana de las odds de las apuestas (0.5 si no hay).
func MedianOdds(bets []Bet) float64 {
	if len(bets) == 0 {
		return 0.5
	}
	odds := make([]float64, len(bets))
	for i, b := range bets {
		odds[i] = b.Odds
	}
	return Median(odds)
}

// Median devuelve la mediana de xs sin modificar el slice (0 si está vacío).
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
