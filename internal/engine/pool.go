package engine

// pool.go — worker pool para evaluar en paralelo lotes de combos independientes.
//
// Los workers solo calculan; la goroutine que llama es el único escritor
// (persistencia, métricas, log) y coloca cada resultado en su posición de
// entrada, así la salida no depende de cuántos workers haya.

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

// evaluation es el resultado de calcular un combo del lote.
type evaluation struct {
	idx    int
	result domain.ComboResult
	ok     bool // false si el combo no evaluó ningún mercado
	cached bool
	err    error
}

// evaluateBatch evalúa los combos y devuelve los resultados válidos en el orden
// de entrada. Con workers <= 1 es estrictamente secuencial.
// Si el contexto se cancela devuelve lo evaluado hasta entonces y ctx.Err().
func (o *Optimizer) evaluateBatch(ctx context.Context, ds domain.Dataset, combos []domain.Combo, tier int) ([]domain.ComboResult, error) {
	if o.cfg.Workers <= 1 || len(combos) <= 1 {
		return o.evaluateSequential(ctx, ds, combos, tier)
	}

	workers := min(o.cfg.Workers, len(combos))
	workCh := make(chan int, len(combos))
	resultCh := make(chan evaluation, len(combos))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				if ctx.Err() != nil {
					return
				}
				ev := o.compute(ds, combos[idx], tier)
				ev.idx = idx
				resultCh <- ev
			}
		}()
	}

	for i := range combos {
		workCh <- i
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	slots := make([]evaluation, len(combos))
	var firstErr error
	for ev := range resultCh {
		if ev.err == nil && ev.ok {
			ev.err = o.record(ctx, ev.result, ev.cached)
		}
		if ev.err != nil && firstErr == nil {
			firstErr = ev.err
		}
		slots[ev.idx] = ev
	}

	out := make([]domain.ComboResult, 0, len(combos))
	for _, ev := range slots {
		if ev.ok && ev.err == nil {
			out = append(out, ev.result)
		}
	}

	slog.Debug("concurrent evaluation complete",
		"tier", tier,
		"combos", len(combos),
		"results", len(out),
		"workers", workers,
	)

	if firstErr != nil {
		return out, firstErr
	}
	return out, ctx.Err()
}

func (o *Optimizer) evaluateSequential(ctx context.Context, ds domain.Dataset, combos []domain.Combo, tier int) ([]domain.ComboResult, error) {
	out := make([]domain.ComboResult, 0, len(combos))
	for _, c := range combos {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ev := o.compute(ds, c, tier)
		if ev.err != nil {
			return out, ev.err
		}
		if !ev.ok {
			continue
		}
		if err := o.record(ctx, ev.result, ev.cached); err != nil {
			return out, err
		}
		out = append(out, ev.result)
	}
	return out, nil
}
