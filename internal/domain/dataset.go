package domain

import "time"

// Dataset agrupa los inputs de un run. Es de solo lectura mientras dura el run.
type Dataset struct {
	Markets      []Market
	BetsByMarket map[string][]Bet
	Wallets      map[string]Wallet
}

// Subset devuelve un Dataset con solo los mercados dados. Comparte apuestas y
// wallets con el original (no se copian).
func (d Dataset) Subset(markets []Market) Dataset {
	return Dataset{
		Markets:      markets,
		BetsByMarket: d.BetsByMarket,
		Wallets:      d.Wallets,
	}
}

// TotalBets devuelve el número de apuestas de los mercados del dataset.
func (d Dataset) TotalBets() int {
	n := 0
	for _, m := range d.Markets {
		n += len(d.BetsByMarket[m.ID])
	}
	return n
}

// RunReport resume un run completo del optimizer.
type RunReport struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	TrainMarkets   int
	HoldoutMarkets int
	Evaluated      int
	Tier1          map[string][]ComboResult // categoría → finalistas
	Tier2          []ComboResult
	Tier3          []ComboResult
	Holdout        []HoldoutResult
}

// Best devuelve el mejor resultado del Tier 3 (o del Tier 2 si el 3 está vacío).
func (r RunReport) Best() (ComboResult, bool) {
	if len(r.Tier3) > 0 {
		return r.Tier3[0], true
	}
	if len(r.Tier2) > 0 {
		return r.Tier2[0], true
	}
	return ComboResult{}, false
}

// RunStatus es el estado de un run registrado.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// RunRecord es la fila persistida de un run: cuándo empezó y terminó, cuántos
// mercados usó y cuál fue el mejor combo.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         RunStatus
	TrainMarkets   int
	HoldoutMarkets int
	Evaluated      int
	BestComboID    string
	BestFitness    float64
	Error          string
}

// Record resume el reporte en un RunRecord con el estado dado.
func (r RunReport) Record(status RunStatus) RunRecord {
	rec := RunRecord{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Status:         status,
		TrainMarkets:   r.TrainMarkets,
		HoldoutMarkets: r.HoldoutMarkets,
		Evaluated:      r.Evaluated,
	}
	if best, ok := r.Best(); ok {
		rec.BestComboID = best.ComboID
		rec.BestFitness = best.FitnessScore
	}
	return rec
}
