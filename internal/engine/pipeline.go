package engine

// pipeline.go — run completo: carga, split temporal, optimización sobre train,
// validación de los mejores combos sobre holdout y registro del run.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/metrics"
	"github.com/alejandrodnm/oraclebot/internal/ports"
)

// ErrInsufficientMarkets indica que hay mercados evaluables pero menos del mínimo.
var ErrInsufficientMarkets = errors.New("insufficient markets")

// PipelineConfig controla la carga de datos y la validación holdout.
type PipelineConfig struct {
	MinBets         int     // apuestas mínimas por mercado al cargar
	MinMarkets      int     // mercados evaluables mínimos para optimizar
	HoldoutFraction float64 // fracción más reciente reservada para validar
	MinHoldout      int
	ValidateTop     int // combos del Tier 3 que se validan en holdout
}

// DefaultPipelineConfig devuelve los valores por defecto.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MinBets:         5,
		MinMarkets:      10,
		HoldoutFraction: 0.20,
		MinHoldout:      5,
		ValidateTop:     3,
	}
}

// Pipeline orquesta un run de optimización de principio a fin.
type Pipeline struct {
	cfg       PipelineConfig
	data      ports.DatasetProvider
	runner    *Runner
	optimizer *Optimizer
	runs      ports.RunRecorder
	reporter  ports.Reporter
	newRunID  func() string
}

// NewPipeline crea el pipeline con sus dependencias. reporter puede ser nil.
func NewPipeline(
	cfg PipelineConfig,
	data ports.DatasetProvider,
	runner *Runner,
	optimizer *Optimizer,
	runs ports.RunRecorder,
	reporter ports.Reporter,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		data:      data,
		runner:    runner,
		optimizer: optimizer,
		runs:      runs,
		reporter:  reporter,
		newRunID:  uuid.NewString,
	}
}

// Run ejecuta el pipeline. Falla rápido si ningún mercado pasa la ventana de
// visibilidad: no tiene sentido buscar combos sin datos evaluables.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	started := time.Now().UTC()
	runID := p.newRunID()

	ds, err := p.data.LoadResolved(ctx, p.cfg.MinBets)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("engine.Pipeline.Run: load dataset: %w", err)
	}

	eligible := p.runner.EligibleMarkets(ds)
	if eligible == 0 {
		return domain.RunReport{}, fmt.Errorf("engine.Pipeline.Run: %d markets loaded: %w", len(ds.Markets), ErrNoMarketsEvaluated)
	}
	if eligible < p.cfg.MinMarkets {
		return domain.RunReport{}, fmt.Errorf("engine.Pipeline.Run: %d eligible, need %d: %w", eligible, p.cfg.MinMarkets, ErrInsufficientMarkets)
	}

	split, err := SplitHoldout(ds.Markets, p.cfg.HoldoutFraction, p.cfg.MinHoldout)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("engine.Pipeline.Run: %w", err)
	}

	slog.Info("run starting",
		"run_id", runID,
		"markets", len(ds.Markets),
		"eligible", eligible,
		"train", len(split.Train),
		"holdout", len(split.Holdout),
		"holdout_available", split.HoldoutAvailable,
	)

	if err := p.runs.SaveRun(ctx, domain.RunRecord{
		RunID:          runID,
		StartedAt:      started,
		Status:         domain.RunRunning,
		TrainMarkets:   len(split.Train),
		HoldoutMarkets: len(split.Holdout),
	}); err != nil {
		return domain.RunReport{}, fmt.Errorf("engine.Pipeline.Run: save run: %w", err)
	}

	report, err := p.optimizer.Run(ctx, ds.Subset(split.Train))
	report.RunID = runID
	report.StartedAt = started
	report.TrainMarkets = len(split.Train)
	report.HoldoutMarkets = len(split.Holdout)
	if err != nil {
		p.finish(ctx, report, err)
		return report, fmt.Errorf("engine.Pipeline.Run: optimize: %w", err)
	}

	if split.HoldoutAvailable {
		report.Holdout, err = p.validate(ctx, runID, report, ds.Subset(split.Holdout))
		if err != nil {
			p.finish(ctx, report, err)
			return report, fmt.Errorf("engine.Pipeline.Run: holdout: %w", err)
		}
	} else {
		slog.Info("holdout too small, skipping validation",
			"holdout", len(split.Holdout),
			"min", p.cfg.MinHoldout,
		)
	}

	if p.reporter != nil {
		if err := p.reporter.Report(ctx, report); err != nil {
			slog.Error("report failed", "err", err)
		}
	}

	p.finish(ctx, report, nil)
	return report, nil
}

// validate re-evalúa los mejores combos del Tier 3 sobre los mercados de holdout.
func (p *Pipeline) validate(ctx context.Context, runID string, report domain.RunReport, holdout domain.Dataset) ([]domain.HoldoutResult, error) {
	var out []domain.HoldoutResult
	for _, train := range topN(report.Tier3, p.cfg.ValidateTop) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r, err := p.runner.Backtest(train.Combo(), holdout)
		if errors.Is(err, ErrNoMarketsEvaluated) {
			slog.Warn("holdout evaluated no markets", "combo", train.ComboID)
			continue
		}
		if err != nil {
			return out, err
		}

		h := domain.HoldoutResult{
			RunID:          runID,
			ComboID:        train.ComboID,
			TrainMarkets:   train.MarketsEvaluated,
			HoldoutMarkets: r.MarketsEvaluated,
			TrainFitness:   train.FitnessScore,
			HoldoutFitness: r.FitnessScore,
			HoldoutAcc:     r.Accuracy,
			ValidatedAt:    time.Now().UTC(),
		}
		if err := p.runs.SaveHoldout(ctx, h); err != nil {
			return out, err
		}
		slog.Info("holdout validated",
			"combo", h.ComboID,
			"train_fitness", h.TrainFitness,
			"holdout_fitness", h.HoldoutFitness,
			"gap", h.Gap(),
		)
		out = append(out, h)
	}
	return out, nil
}

// finish registra el estado final del run. Usa un contexto sin cancelación para
// que un run interrumpido quede marcado como tal.
func (p *Pipeline) finish(ctx context.Context, report domain.RunReport, runErr error) {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now().UTC()
	}
	status := domain.RunCompleted
	switch {
	case runErr != nil && ctx.Err() != nil:
		status = domain.RunInterrupted
	case runErr != nil:
		status = domain.RunFailed
	}
	rec := report.Record(status)
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := p.runs.FinishRun(context.WithoutCancel(ctx), rec); err != nil {
		slog.Error("finish run failed", "run_id", report.RunID, "err", err)
	}
	metrics.RecordRunDuration(report.FinishedAt.Sub(report.StartedAt).Seconds())
}
