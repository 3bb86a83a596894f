package engine

// backtest.go — reproduce mercados resueltos a través de un combo sin mirar
// el futuro: cada mercado solo expone las apuestas anteriores al corte.

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/metrics"
)

// ErrNoMarketsEvaluated indica que ningún mercado del dataset llegó a evaluarse.
// Un combo sin mercados evaluados no tiene estadísticas: nunca se devuelve un
// ComboResult a cero en su lugar.
var ErrNoMarketsEvaluated = errors.New("no markets evaluated")

// BacktestConfig controla la ventana de visibilidad y el umbral de alta confianza.
type BacktestConfig struct {
	Visibility     domain.VisibilityConfig
	HighConfidence float64
}

// DefaultBacktestConfig devuelve corte al 70% y alta confianza > 0.5.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Visibility:     domain.DefaultVisibilityConfig(),
		HighConfidence: 0.5,
	}
}

// Runner evalúa combos contra un dataset.
type Runner struct {
	cfg    BacktestConfig
	source MethodSource
	scorer domain.FitnessScorer
	now    func() time.Time
}

// NewRunner crea un Runner. La configuración de visibilidad se valida aquí.
func NewRunner(cfg BacktestConfig, source MethodSource, scorer domain.FitnessScorer) (*Runner, error) {
	if err := cfg.Visibility.Validate(); err != nil {
		return nil, fmt.Errorf("engine.NewRunner: %w", err)
	}
	if cfg.HighConfidence < 0 || cfg.HighConfidence > 1 {
		return nil, fmt.Errorf("engine.NewRunner: high_confidence must be in [0,1], got %v", cfg.HighConfidence)
	}
	return &Runner{cfg: cfg, source: source, scorer: scorer, now: time.Now}, nil
}

// Source devuelve el registry de detectores del runner.
func (r *Runner) Source() MethodSource {
	return r.source
}

// CutoffFraction devuelve la fracción de corte por defecto.
func (r *Runner) CutoffFraction() float64 {
	return r.cfg.Visibility.CutoffFraction
}

// Backtest evalúa el combo con la fracción de corte configurada.
func (r *Runner) Backtest(combo domain.Combo, ds domain.Dataset) (domain.ComboResult, error) {
	return r.BacktestAt(combo, ds, r.cfg.Visibility.CutoffFraction)
}

// BacktestAt evalúa el combo sobre cada mercado resuelto del dataset usando
// solo las apuestas con timestamp ≤ created + cutoff·lifespan.
//
// Por mercado: predicción = YES si señal > 0, si no NO. La línea base ingenua
// predice YES cuando la mediana de odds visibles supera 0.5. El edge suma |señal|
// cuando el combo acierta y la línea base falla.
func (r *Runner) BacktestAt(combo domain.Combo, ds domain.Dataset, cutoff float64) (domain.ComboResult, error) {
	if err := r.source.ValidateCombo(combo); err != nil {
		return domain.ComboResult{}, fmt.Errorf("engine.Backtest: %w", err)
	}
	vis := r.cfg.Visibility
	vis.CutoffFraction = cutoff
	if err := vis.Validate(); err != nil {
		return domain.ComboResult{}, fmt.Errorf("engine.Backtest: %w", err)
	}

	var (
		evaluated, correct      int
		highConf, falsePositive int
		edgeSum                 float64
	)

	for _, m := range ds.Markets {
		visible, reason := domain.VisibleBets(m, ds.BetsByMarket[m.ID], vis)
		if reason != domain.SkipNone {
			metrics.RecordMarketSkipped(string(reason))
			continue
		}

		input := domain.CapRecent(visible, vis.MaxVisibleBets)
		wallets := domain.NewWalletView(ds.Wallets, input)
		chain := RunChain(r.source, combo, m, input, wallets)
		if len(chain.Results) == 0 {
			metrics.RecordMarketSkipped(string(domain.SkipAllMethodsFail))
			continue
		}

		signal, confidence := Aggregate(chain.Results)
		evaluated++

		predicted := domain.SideNo
		if signal > 0 {
			predicted = domain.SideYes
		}
		high := confidence > r.cfg.HighConfidence
		if high {
			highConf++
		}
		if predicted == m.Outcome {
			correct++
		} else if high {
			falsePositive++
		}

		baseline := domain.SideNo
		if domain.MedianOdds(visible) > 0.5 {
			baseline = domain.SideYes
		}
		if predicted == m.Outcome && baseline != m.Outcome {
			edgeSum += math.Abs(signal)
		}
	}

	if evaluated == 0 {
		return domain.ComboResult{}, fmt.Errorf("engine.Backtest: %s: %w", combo.Key(), ErrNoMarketsEvaluated)
	}

	n := float64(evaluated)
	res := domain.ComboResult{
		ComboID:          combo.ID(),
		MethodsUsed:      append([]string(nil), combo...),
		Accuracy:         float64(correct) / n,
		EdgeVsMarket:     edgeSum / n,
		Complexity:       combo.Size(),
		MarketsEvaluated: evaluated,
		TestedAt:         r.now().UTC(),
	}
	if highConf > 0 {
		res.FalsePositiveRate = float64(falsePositive) / float64(highConf)
	}
	res.FitnessScore = r.scorer.Score(res)

	slog.Debug("combo backtested",
		"combo", combo.Key(),
		"accuracy", res.Accuracy,
		"edge", res.EdgeVsMarket,
		"fpr", res.FalsePositiveRate,
		"fitness", res.FitnessScore,
		"markets", evaluated,
	)
	return res, nil
}

// EligibleMarkets cuenta los mercados del dataset que pasan la ventana de
// visibilidad con la fracción configurada.
func (r *Runner) EligibleMarkets(ds domain.Dataset) int {
	n := 0
	for _, m := range ds.Markets {
		if _, reason := domain.VisibleBets(m, ds.BetsByMarket[m.ID], r.cfg.Visibility); reason == domain.SkipNone {
			n++
		}
	}
	return n
}
