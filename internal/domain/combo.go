package domain

import (
	"sort"
	"strings"
	"time"
)

// Combo es una lista deduplicada de method ids. El orden es el de ejecución
// de la cadena; la identidad (ID) es independiente del orden.
type Combo []string

// NewCombo construye un Combo eliminando duplicados y conservando el primer orden de aparición.
func NewCombo(ids ...string) Combo {
	seen := make(map[string]bool, len(ids))
	out := make(Combo, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ParseCombo construye un Combo desde "S1,T17, P20".
func ParseCombo(s string) Combo {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return NewCombo(parts...)
}

// MergeCombos concatena los combos deduplicando y conservando el orden.
func MergeCombos(combos ...Combo) Combo {
	var all []string
	for _, c := range combos {
		all = append(all, c...)
	}
	return NewCombo(all...)
}

// ID devuelve la identidad canónica: ids ordenados y unidos por ",".
func (c Combo) ID() string {
	ids := make([]string, len(c))
	copy(ids, c)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Key devuelve los ids en orden de ejecución. Dos combos con el mismo ID
// pueden tener Key distinta si su orden difiere.
func (c Combo) Key() string {
	return strings.Join(c, ",")
}

// Contains devuelve true si el combo incluye el id.
func (c Combo) Contains(id string) bool {
	for _, m := range c {
		if m == id {
			return true
		}
	}
	return false
}

// With devuelve un nuevo combo con id añadido al final.
func (c Combo) With(id string) Combo {
	out := make(Combo, 0, len(c)+1)
	out = append(out, c...)
	return NewCombo(append(out, id)...)
}

// Without devuelve un nuevo combo sin id.
func (c Combo) Without(id string) Combo {
	out := make(Combo, 0, len(c))
	for _, m := range c {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}

// Size devuelve el número de métodos.
func (c Combo) Size() int {
	return len(c)
}

// ComboResult son las estadísticas agregadas de un combo sobre un set de mercados.
type ComboResult struct {
	ComboID           string
	MethodsUsed       []string // orden de ejecución
	Accuracy          float64
	EdgeVsMarket      float64
	FalsePositiveRate float64
	Complexity        int
	FitnessScore      float64
	MarketsEvaluated  int
	Tier              int // 0 = evaluación manual, 1–3 = tier del optimizer
	TestedAt          time.Time
}

// Combo reconstruye el Combo en orden de ejecución.
func (r ComboResult) Combo() Combo {
	return NewCombo(r.MethodsUsed...)
}

// SortByFitness ordena de forma estable por fitness desc y combo_id asc.
func SortByFitness(results []ComboResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FitnessScore != results[j].FitnessScore {
			return results[i].FitnessScore > results[j].FitnessScore
		}
		return results[i].ComboID < results[j].ComboID
	})
}

// HoldoutResult compara el fitness de un combo en train y en holdout.
type HoldoutResult struct {
	RunID          string
	ComboID        string
	TrainMarkets   int
	HoldoutMarkets int
	TrainFitness   float64
	HoldoutFitness float64
	HoldoutAcc     float64
	ValidatedAt    time.Time
}

// Gap devuelve holdout − train. Muy negativo = sobreajuste.
func (h HoldoutResult) Gap() float64 {
	return h.HoldoutFitness - h.TrainFitness
}
