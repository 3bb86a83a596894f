package engine

// optimizer.go — búsqueda escalonada del mejor combo de detectores.
//
//   - Tier 1: todos los subconjuntos de cada categoría hasta Tier1MaxSize; top K por categoría.
//   - Tier 2: uniones de Tier2MinSize..Tier2MaxSize finalistas del Tier 1; top N global.
//   - Tier 3: ascenso por coordenadas (primera mejora) desde los mejores del Tier 2.
//
// Cada resultado evaluado se persiste en el ResultStore al producirse.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/metrics"
	"github.com/alejandrodnm/oraclebot/internal/ports"
)

// OptimizerConfig contiene los límites de cada tier.
type OptimizerConfig struct {
	Tier1MaxSize int
	Tier1TopK    int
	Tier2MinSize int
	Tier2MaxSize int
	Tier2TopN    int
	Tier3Seeds   int
	PruneKeep    int // 0 = no podar
	Workers      int // 1 = secuencial

	ProgressInterval time.Duration
}

// DefaultOptimizerConfig devuelve los límites por defecto.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Tier1MaxSize:     3,
		Tier1TopK:        5,
		Tier2MinSize:     2,
		Tier2MaxSize:     3,
		Tier2TopN:        10,
		Tier3Seeds:       3,
		PruneKeep:        50,
		Workers:          1,
		ProgressInterval: 10 * time.Second,
	}
}

// Validate comprueba la coherencia de los límites.
func (c OptimizerConfig) Validate() error {
	switch {
	case c.Tier1MaxSize < 1 || c.Tier1TopK < 1:
		return fmt.Errorf("tier1 max size and top k must be >= 1")
	case c.Tier2MinSize < 1 || c.Tier2MaxSize < c.Tier2MinSize:
		return fmt.Errorf("tier2 sizes must satisfy 1 <= min <= max (min=%d max=%d)", c.Tier2MinSize, c.Tier2MaxSize)
	case c.Tier2TopN < 1 || c.Tier3Seeds < 1:
		return fmt.Errorf("tier2 top n and tier3 seeds must be >= 1")
	case c.PruneKeep < 0:
		return fmt.Errorf("prune keep must be >= 0")
	}
	return nil
}

// Optimizer ejecuta los tres tiers sobre un dataset.
type Optimizer struct {
	cfg    OptimizerConfig
	runner *Runner
	source MethodSource
	store  ports.ResultStore
	memo   *evalMemo

	progress  *rate.Sometimes
	evaluated int // evaluaciones nuevas (no memo) del run en curso; solo lo toca el escritor
}

// NewOptimizer crea un optimizer con sus dependencias inyectadas.
func NewOptimizer(cfg OptimizerConfig, runner *Runner, store ports.ResultStore) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine.NewOptimizer: %w", err)
	}
	if runner == nil || store == nil {
		return nil, errors.New("engine.NewOptimizer: runner and store are required")
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultOptimizerConfig().ProgressInterval
	}
	return &Optimizer{
		cfg:      cfg,
		runner:   runner,
		source:   runner.Source(),
		store:    store,
		memo:     newEvalMemo(),
		progress: &rate.Sometimes{First: 1, Interval: cfg.ProgressInterval},
	}, nil
}

// Evaluated devuelve cuántos backtests nuevos se hicieron en el último run.
func (o *Optimizer) Evaluated() int {
	return o.evaluated
}

// Run ejecuta Tier 1 → Tier 2 → Tier 3 y poda el store al terminar.
// Si el contexto se cancela devuelve ctx.Err(); lo ya persistido se conserva.
func (o *Optimizer) Run(ctx context.Context, ds domain.Dataset) (domain.RunReport, error) {
	o.memo.flush()
	o.evaluated = 0
	report := domain.RunReport{StartedAt: time.Now().UTC(), TrainMarkets: len(ds.Markets)}

	slog.Info("optimization starting",
		"markets", len(ds.Markets),
		"methods", o.source.Len(),
		"workers", o.cfg.Workers,
	)

	t1, err := o.Tier1(ctx, ds)
	report.Tier1 = t1
	if err != nil {
		return o.finish(report), err
	}
	t2, err := o.Tier2(ctx, ds, t1)
	report.Tier2 = t2
	if err != nil {
		return o.finish(report), err
	}
	t3, err := o.Tier3(ctx, ds, t2)
	report.Tier3 = t3
	if err != nil {
		return o.finish(report), err
	}

	if o.cfg.PruneKeep > 0 {
		deleted, err := o.store.Prune(ctx, o.cfg.PruneKeep)
		if err != nil {
			return o.finish(report), fmt.Errorf("engine.Optimizer.Run: prune: %w", err)
		}
		slog.Info("results pruned", "deleted", deleted, "kept", o.cfg.PruneKeep)
	}

	report = o.finish(report)
	if best, ok := report.Best(); ok {
		slog.Info("optimization complete",
			"best", best.ComboID,
			"fitness", best.FitnessScore,
			"evaluated", report.Evaluated,
			"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		)
	}
	return report, nil
}

func (o *Optimizer) finish(r domain.RunReport) domain.RunReport {
	r.FinishedAt = time.Now().UTC()
	r.Evaluated = o.evaluated
	return r
}

// Tier1 evalúa, por categoría, todos los subconjuntos de tamaño 1..Tier1MaxSize
// y conserva los Tier1TopK mejores de cada una.
func (o *Optimizer) Tier1(ctx context.Context, ds domain.Dataset) (map[string][]domain.ComboResult, error) {
	out := make(map[string][]domain.ComboResult)
	for _, cat := range o.source.Categories() {
		ids := o.source.ByCategory(cat)
		if len(ids) == 0 {
			slog.Warn("no methods registered for category", "category", cat)
			continue
		}
		combos := subsets(ids, 1, o.cfg.Tier1MaxSize)
		slog.Info("tier 1 category", "category", cat, "methods", len(ids), "combos", len(combos))

		results, err := o.evaluateBatch(ctx, ds, combos, 1)
		domain.SortByFitness(results)
		out[cat] = topN(results, o.cfg.Tier1TopK)
		if err != nil {
			return out, fmt.Errorf("engine.Tier1: %s: %w", cat, err)
		}
		for i, r := range out[cat] {
			slog.Debug("tier 1 finalist", "category", cat, "rank", i+1, "combo", r.ComboID, "fitness", r.FitnessScore)
		}
	}
	o.updateBest(1, flatten(out, o.source.Categories()))
	return out, nil
}

// Tier2 cruza los finalistas del Tier 1: cada subconjunto de Tier2MinSize..Tier2MaxSize
// finalistas se une en orden con deduplicación. Claves de ejecución repetidas se
// evalúan una sola vez. Si el pool no da candidatos (menos finalistas que
// Tier2MinSize) se devuelven los finalistas del Tier 1 sin reevaluar.
func (o *Optimizer) Tier2(ctx context.Context, ds domain.Dataset, tier1 map[string][]domain.ComboResult) ([]domain.ComboResult, error) {
	finalists := flatten(tier1, o.source.Categories())
	if len(finalists) == 0 {
		slog.Warn("no tier 1 finalists, skipping tier 2")
		return nil, nil
	}

	pool := make([]domain.Combo, len(finalists))
	for i, r := range finalists {
		pool[i] = r.Combo()
	}

	seen := make(map[string]bool)
	var combos []domain.Combo
	for _, idx := range indexSubsets(len(pool), o.cfg.Tier2MinSize, o.cfg.Tier2MaxSize) {
		parts := make([]domain.Combo, len(idx))
		for i, j := range idx {
			parts[i] = pool[j]
		}
		merged := domain.MergeCombos(parts...)
		if merged.Size() == 0 || seen[merged.Key()] {
			continue
		}
		seen[merged.Key()] = true
		combos = append(combos, merged)
	}

	if len(combos) == 0 {
		domain.SortByFitness(finalists)
		return topN(finalists, o.cfg.Tier2TopN), nil
	}

	slog.Info("tier 2", "finalists", len(pool), "combos", len(combos))
	results, err := o.evaluateBatch(ctx, ds, combos, 2)
	domain.SortByFitness(results)
	top := topN(results, o.cfg.Tier2TopN)
	if err != nil {
		return top, fmt.Errorf("engine.Tier2: %w", err)
	}
	o.updateBest(2, top)
	return top, nil
}

// Tier3 refina los Tier3Seeds mejores del Tier 2 por ascenso de colina y
// devuelve la unión de óptimos locales (un resultado por combo_id, el mejor).
func (o *Optimizer) Tier3(ctx context.Context, ds domain.Dataset, tier2 []domain.ComboResult) ([]domain.ComboResult, error) {
	seeds := topN(tier2, o.cfg.Tier3Seeds)
	best := make(map[string]domain.ComboResult)
	var order []string

	for _, seed := range seeds {
		refined, err := o.hillClimb(ctx, ds, seed)
		if err != nil {
			return collect(best, order), fmt.Errorf("engine.Tier3: %w", err)
		}
		prev, ok := best[refined.ComboID]
		if !ok {
			order = append(order, refined.ComboID)
		}
		if !ok || refined.FitnessScore > prev.FitnessScore {
			best[refined.ComboID] = refined
		}
		slog.Info("tier 3 refined",
			"seed", seed.ComboID,
			"result", refined.ComboID,
			"fitness", refined.FitnessScore,
		)
	}

	out := collect(best, order)
	o.updateBest(3, out)
	return out, nil
}

// hillClimb hace ascenso por coordenadas con primera mejora: prueba añadir cada
// id no usado (en orden del registry) y reinicia en cuanto mejora estrictamente;
// si ninguna adición mejora prueba quitar cada id. Un seed que ya es óptimo local
// se devuelve sin cambios.
func (o *Optimizer) hillClimb(ctx context.Context, ds domain.Dataset, seed domain.ComboResult) (domain.ComboResult, error) {
	current := seed
	for {
		next, improved, err := o.climbStep(ctx, ds, current)
		if err != nil {
			return current, err
		}
		if !improved {
			return current, nil
		}
		current = next
	}
}

func (o *Optimizer) climbStep(ctx context.Context, ds domain.Dataset, current domain.ComboResult) (domain.ComboResult, bool, error) {
	combo := current.Combo()

	for _, id := range o.source.IDs() {
		if combo.Contains(id) {
			continue
		}
		r, ok, err := o.evaluateOne(ctx, ds, combo.With(id))
		if err != nil {
			return current, false, err
		}
		if ok && r.FitnessScore > current.FitnessScore {
			slog.Debug("tier 3 add", "method", id, "fitness", r.FitnessScore)
			return r, true, nil
		}
	}

	if combo.Size() <= 1 {
		return current, false, nil
	}
	for _, id := range combo {
		r, ok, err := o.evaluateOne(ctx, ds, combo.Without(id))
		if err != nil {
			return current, false, err
		}
		if ok && r.FitnessScore > current.FitnessScore {
			slog.Debug("tier 3 remove", "method", id, "fitness", r.FitnessScore)
			return r, true, nil
		}
	}
	return current, false, nil
}

func (o *Optimizer) evaluateOne(ctx context.Context, ds domain.Dataset, combo domain.Combo) (domain.ComboResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ComboResult{}, false, err
	}
	ev := o.compute(ds, combo, 3)
	if ev.err != nil || !ev.ok {
		return ev.result, false, ev.err
	}
	if err := o.record(ctx, ev.result, ev.cached); err != nil {
		return ev.result, false, err
	}
	return ev.result, true, nil
}

// compute hace el backtest (o lo sirve del memo). Es seguro llamarlo desde
// varios workers: no escribe en el store.
func (o *Optimizer) compute(ds domain.Dataset, combo domain.Combo, tier int) evaluation {
	if combo.Size() == 0 {
		return evaluation{}
	}
	key := memoKey(combo, o.runner.CutoffFraction())
	if r, ok := o.memo.get(key); ok {
		r.Tier = tier
		return evaluation{result: r, ok: true, cached: true}
	}

	r, err := o.runner.Backtest(combo, ds)
	if errors.Is(err, ErrNoMarketsEvaluated) {
		slog.Warn("combo evaluated no markets", "combo", combo.Key())
		return evaluation{}
	}
	if err != nil {
		return evaluation{err: err}
	}
	r.Tier = tier
	o.memo.set(key, r)
	return evaluation{result: r, ok: true}
}

// record persiste un resultado nuevo y actualiza métricas y progreso.
// Los aciertos de memo ya están persistidos.
func (o *Optimizer) record(ctx context.Context, r domain.ComboResult, cached bool) error {
	if cached {
		return nil
	}
	if err := o.store.Upsert(ctx, r); err != nil {
		return fmt.Errorf("persist %s: %w", r.ComboID, err)
	}
	o.evaluated++
	metrics.RecordComboEvaluated(tierLabel(r.Tier), r.FitnessScore)
	o.progress.Do(func() {
		slog.Info("optimizer progress",
			"evaluated", o.evaluated,
			"tier", r.Tier,
			"last", r.ComboID,
			"fitness", r.FitnessScore,
		)
	})
	return nil
}

func (o *Optimizer) updateBest(tier int, results []domain.ComboResult) {
	if len(results) == 0 {
		return
	}
	best := results[0].FitnessScore
	for _, r := range results[1:] {
		best = max(best, r.FitnessScore)
	}
	metrics.UpdateBestFitness(tierLabel(tier), best)
}

func tierLabel(tier int) string {
	return fmt.Sprintf("tier%d", tier)
}

func topN(results []domain.ComboResult, n int) []domain.ComboResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

// flatten concatena los finalistas del Tier 1 en orden de categoría.
func flatten(byCat map[string][]domain.ComboResult, categories []string) []domain.ComboResult {
	var out []domain.ComboResult
	for _, cat := range categories {
		out = append(out, byCat[cat]...)
	}
	return out
}

func collect(best map[string]domain.ComboResult, order []string) []domain.ComboResult {
	out := make([]domain.ComboResult, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	domain.SortByFitness(out)
	return out
}
